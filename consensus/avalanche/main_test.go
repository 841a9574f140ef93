package avalanche

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies RunRound's per-sample query goroutines don't leak past
// the round they were spawned for.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
