// Package errs collects the Resource-class sentinel errors of spec.md
// §7's error taxonomy (Validation/State/Consensus/Safety/Resource/
// Transport) and a cenkalti/backoff/v4-backed retry helper for callers
// that would rather wait out transient resource pressure than handle
// the error themselves — grounded on the teacher's own sentinel-error
// style (vms/avm/utxo.go, vms/avm/import_tx.go) plus the retry-on-
// specific-errors pattern backoff.Permanent exists for.
package errs

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrMempoolFull is returned when a transaction cannot be admitted
	// because the pool is already at its tx-count or byte-size bound
	// and is itself the lowest fee-rate candidate (spec.md §4.2).
	ErrMempoolFull = errors.New("resource: mempool at capacity")

	// ErrRateLimited is returned when a peer's per-sender token bucket
	// is exhausted (spec.md §4.9).
	ErrRateLimited = errors.New("resource: rate limit exceeded")

	// ErrSnapshotExpired is returned when a caller references an AVS
	// snapshot slot that has already been evicted from retention
	// (spec.md §4.4: "MUST remain while any unconfirmed VFP references
	// them" — once unpinned and past retention, older snapshots age out).
	ErrSnapshotExpired = errors.New("resource: avs snapshot no longer retained")
)

// IsResource reports whether err is one of the Resource-class sentinels
// above, the condition RetryResource treats as transient.
func IsResource(err error) bool {
	return errors.Is(err, ErrMempoolFull) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrSnapshotExpired)
}

// RetryResource calls op, retrying with exponential backoff as long as
// it keeps returning a Resource-class error. Any other error is
// returned immediately (wrapped in backoff.Permanent, which
// backoff.Retry unwraps before returning it to the caller). ctx bounds
// the total retry budget.
func RetryResource(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsResource(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
