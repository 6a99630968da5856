package sstable

import (
	"lsmkv/utils"
)

// TableIterator walks the entries of one table whose keys lie in [k1, k2].
type TableIterator struct {
	t    *Table
	k1   uint64
	k2   uint64
	pos  int
	item utils.Entry
	err  error
}

func (t *Table) NewIterator(k1, k2 uint64) *TableIterator {
	iter := &TableIterator{t: t, k1: k1, k2: k2}
	iter.Rewind()
	return iter
}

// Rewind positions the iterator on the first key >= k1.
func (iter *TableIterator) Rewind() {
	iter.err = nil
	iter.pos = iter.t.LowPos(iter.k1, iter.k2)
	iter.load()
}

func (iter *TableIterator) load() {
	if !iter.Valid() {
		return
	}
	v, err := iter.t.ValueAt(iter.pos)
	if err != nil {
		iter.err = err
		iter.pos = -1
		return
	}
	iter.item = utils.Entry{Key: iter.t.index[iter.pos].Key, Value: v}
}

func (iter *TableIterator) Valid() bool {
	return iter.pos >= 0 && iter.pos < len(iter.t.index) && iter.t.index[iter.pos].Key <= iter.k2
}

func (iter *TableIterator) Next() {
	if !iter.Valid() {
		return
	}
	iter.pos++
	iter.load()
}

func (iter *TableIterator) Item() utils.Entry {
	return iter.item
}

// Slot returns the index slot of the current item.
func (iter *TableIterator) Slot() int {
	return iter.pos
}

// Err returns the error that stopped the iteration, if any.
func (iter *TableIterator) Err() error {
	return iter.err
}
