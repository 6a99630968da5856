package version

import (
	"lsmkv/utils"
)

// MergeIterator yields the union of several sorted iterators. When a key
// appears in more than one of them, the item of the earliest iterator in the
// list wins and the others are skipped.
type MergeIterator struct {
	list []utils.Iterator
	it   utils.Entry
	ok   bool
}

// NewMergeIterator takes iterators ordered from highest to lowest precedence.
func NewMergeIterator(iters []utils.Iterator) *MergeIterator {
	iter := &MergeIterator{list: iters}
	iter.Next()
	return iter
}

func (iter *MergeIterator) Next() {
	n := -1
	var key uint64
	// find the smallest key, the first iterator holding it wins
	for i, it := range iter.list {
		if !it.Valid() {
			continue
		}
		if k := it.Item().Key; n < 0 || k < key {
			n, key = i, k
		}
	}
	if n < 0 {
		iter.ok = false
		return
	}
	iter.it = iter.list[n].Item()
	iter.ok = true

	// skip repeat keys
	for _, it := range iter.list {
		for it.Valid() && it.Item().Key == key {
			it.Next()
		}
	}
}

func (iter *MergeIterator) Valid() bool {
	return iter.ok
}

func (iter *MergeIterator) Item() utils.Entry {
	return iter.it
}
