package message

import (
	"sync"

	"github.com/cockroachdb/tokenbucket"
	"golang.org/x/time/rate"

	"github.com/time-coin/time-core/ids"
)

// PerPeerRateLimiter throttles inbound messages per sender (spec.md
// §4.9/§5: "per-peer message rate limited (token bucket); responders
// shed load by replying Unknown when at capacity"). It is grounded on
// the teacher's network.Throttler, which applies the same per-peer
// token-bucket shape; x/time/rate drives the steady-state per-peer
// limiter, and cockroachdb/tokenbucket is one node-wide bucket that every
// inbound message, from any peer, must also draw a token from.
type PerPeerRateLimiter struct {
	mu       sync.Mutex
	limiters map[ids.ID]*rate.Limiter
	burst    *tokenbucket.TokenBucket // node-wide admission bucket, charged on every Allow
	rps      rate.Limit
	burstCap int
}

// NewPerPeerRateLimiter builds a limiter allowing ratePerSecond steady
// messages per peer with a burstCap-sized initial allowance, plus a
// node-wide burst bucket guarding the aggregate message rate across
// all peers.
func NewPerPeerRateLimiter(ratePerSecond float64, burstCap int) *PerPeerRateLimiter {
	burst := &tokenbucket.TokenBucket{}
	burst.Init(tokenbucket.TokensPerSecond(ratePerSecond*10), tokenbucket.Tokens(burstCap*10))
	return &PerPeerRateLimiter{
		limiters: make(map[ids.ID]*rate.Limiter),
		burst:    burst,
		rps:      rate.Limit(ratePerSecond),
		burstCap: burstCap,
	}
}

// Allow reports whether a message from peer should be admitted now. A
// denied message is not queued; spec.md §4.9 requires shedding load by
// replying Unknown, not buffering.
func (l *PerPeerRateLimiter) Allow(peer ids.ID) bool {
	if ok, _ := l.burst.TryToFulfill(1); !ok {
		return false
	}

	l.mu.Lock()
	lim, ok := l.limiters[peer]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burstCap)
		l.limiters[peer] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
