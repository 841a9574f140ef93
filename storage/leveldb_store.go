package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists the mempool's working set across a clean
// restart (spec.md §4.2 non-goal aside: not required for correctness,
// since the network will re-gossip in-flight transactions, but avoids
// discarding a restarting node's own unconfirmed transactions).
type LevelDBStore struct {
	db *leveldb.DB
}

func OpenLevelDB(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *LevelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *LevelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *LevelDBStore) Close() error { return s.db.Close() }

type leveldbIterator struct {
	it iterator
}

// iterator narrows goleveldb's iterator.Iterator down to what Iterator
// needs.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

func (s *LevelDBStore) NewIter(prefix []byte) (Iterator, error) {
	return &leveldbIterator{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}, nil
}

func (i *leveldbIterator) Next() bool   { return i.it.Next() }
func (i *leveldbIterator) Key() []byte  { return i.it.Key() }
func (i *leveldbIterator) Value() []byte { return i.it.Value() }
func (i *leveldbIterator) Close() error { i.it.Release(); return nil }
