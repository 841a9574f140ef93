package storage

import (
	"bytes"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is the durable store for archived blocks and their txid
// index (spec.md §4.7/§4.8): append-mostly, read-heavy once a block is
// canonical, which is exactly pebble's LSM sweet spot.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *PebbleStore) Put(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

func (s *PebbleStore) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

func (s *PebbleStore) Close() error { return s.db.Close() }

type pebbleIterator struct {
	it     *pebble.Iterator
	prefix []byte
	first  bool
}

func (s *PebbleStore) NewIter(prefix []byte) (Iterator, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	return &pebbleIterator{it: it, prefix: prefix, first: true}, nil
}

func (i *pebbleIterator) Next() bool {
	if i.first {
		i.first = false
		return i.it.First()
	}
	return i.it.Next()
}

func (i *pebbleIterator) Key() []byte   { return i.it.Key() }
func (i *pebbleIterator) Value() []byte { return i.it.Value() }
func (i *pebbleIterator) Close() error  { return i.it.Close() }

// prefixUpperBound returns the smallest key greater than every key
// sharing prefix, used to bound a prefix scan.
func prefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil // prefix is all 0xFF: no upper bound needed
}
