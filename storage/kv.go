// Package storage provides two persisted key-value backends behind one KV
// interface: PebbleStore (cockroachdb/pebble) and LevelDBStore
// (syndtr/goleveldb). Within this module only cmd/timecored opens a
// store, a PebbleStore holding the node's identity seeds. Grounded on the
// teacher's database package, which wraps the same two engines behind one
// KV interface.
package storage

import "errors"

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("storage: key not found")

// KV is the narrow key-value contract both backends satisfy; consensus
// code depends on this interface, never on pebble/leveldb types
// directly, so storage engines can be swapped without touching callers.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewIter(prefix []byte) (Iterator, error)
	Close() error
}

// Iterator walks a KV's keys in order, optionally restricted to a prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}
