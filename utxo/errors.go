package utxo

import (
	"errors"
	"fmt"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
)

// ErrNotFound mirrors StateError::NotFound — the outpoint has no record at
// all (never created, or already pruned post-archival).
var ErrNotFound = errors.New("utxo: outpoint not found")

// ErrUnexpectedState mirrors StateError::UnexpectedState — an operation
// was attempted against an outpoint that is not in the state the
// transition requires.
var ErrUnexpectedState = errors.New("utxo: unexpected state")

// AlreadyLockedError mirrors LockError::AlreadyLocked{other_tx}: one of
// tx's inputs is already Locked by a different transaction. This is a
// normal, expected occurrence in a conflict set (spec.md §7), not a bug.
type AlreadyLockedError struct {
	OutPoint txs.OutPoint
	OtherTx  ids.ID
}

func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("utxo: outpoint %x:%d already locked by %s", e.OutPoint.TxID, e.OutPoint.Index, e.OtherTx)
}

// ErrAlreadyLocked lets callers errors.Is-match any AlreadyLockedError.
var ErrAlreadyLocked = errors.New("utxo: already locked")

func (e *AlreadyLockedError) Unwrap() error { return ErrAlreadyLocked }
