package lsmkv

import (
	"lsmkv/lsm"
	"lsmkv/utils"
	"sync"
)

// Store is the key/value interface served by DB.
type Store interface {
	Put(key uint64, value string) error
	Get(key uint64) (string, error)
	Delete(key uint64) (bool, error)
	Scan(k1, k2 uint64) ([]KV, error)
	Reset() error
	Close() error
	Stats() Stats
}

// KV is one live pair returned by Scan.
type KV struct {
	Key   uint64
	Value string
}

type Stats = lsm.Stats

// DB serializes callers in front of the engine, which has no locking of its own.
type DB struct {
	sync.Mutex
	lsm *lsm.LSM
}

var _ Store = (*DB)(nil)

// Open opens the store rooted at opt.WorkDir, creating it if needed.
func Open(opt *utils.Options) (*DB, error) {
	l, err := lsm.NewLSM(opt)
	if err != nil {
		return nil, err
	}
	return &DB{lsm: l}, nil
}

func (db *DB) Put(key uint64, value string) error {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Put(key, value)
}

// Get returns utils.ErrKeyNotFound when key is absent or deleted.
func (db *DB) Get(key uint64) (string, error) {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Get(key)
}

// Delete reports whether key was present.
func (db *DB) Delete(key uint64) (bool, error) {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Delete(key)
}

// Scan returns the live pairs with k1 <= key <= k2, ascending.
func (db *DB) Scan(k1, k2 uint64) ([]KV, error) {
	db.Lock()
	defer db.Unlock()
	entries, err := db.lsm.Scan(k1, k2)
	if err != nil {
		return nil, err
	}
	res := make([]KV, len(entries))
	for i, e := range entries {
		res[i] = KV{Key: e.Key, Value: e.Value.Data}
	}
	return res, nil
}

func (db *DB) Reset() error {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Reset()
}

func (db *DB) Close() error {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Close()
}

func (db *DB) Stats() Stats {
	db.Lock()
	defer db.Unlock()
	return db.lsm.Stats()
}
