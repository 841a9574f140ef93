package utxo

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the concurrent-locking tests in this package leave no
// goroutines behind (TestConcurrentLockingNoDeadlock spawns many).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
