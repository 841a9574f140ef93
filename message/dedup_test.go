package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/consensus/avalanche"
	"github.com/time-coin/time-core/ids"
)

func TestDedupRejectsRepeatedEnvelope(t *testing.T) {
	d := NewDedup(time.Hour)
	e := &Envelope{
		Kind:        KindSampleQuery,
		SampleQuery: &avalanche.SampleQuery{ConflictSetID: ids.ID{1}, Candidate: ids.ID{2}},
	}
	h := e.ContentHash()
	require.False(t, d.Seen(h), "first observation is never a duplicate")
	require.True(t, d.Seen(h), "second observation of the same content hash is a duplicate")
}

func TestPerPeerRateLimiterShedsExcess(t *testing.T) {
	l := NewPerPeerRateLimiter(1, 1)
	peer := ids.ID{9}
	require.True(t, l.Allow(peer))
	require.False(t, l.Allow(peer), "burst of 1 is exhausted by the first call")
}
