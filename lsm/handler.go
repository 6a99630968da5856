package lsm

import (
	"lsmkv/sstable"
	"lsmkv/utils"
)

type levelHandler struct {
	levelNum int              // level
	tables   []*sstable.Table // all tables for this level, newest first
	lm       *levelManager
}

func (lh *levelHandler) numTables() int {
	return len(lh.tables)
}

// Get returns the version of key held by the newest table that has it.
func (lh *levelHandler) Get(key uint64) (utils.Value, bool, error) {
	for _, t := range lh.tables {
		slot := t.Search(key)
		if slot < 0 {
			continue
		}
		v, err := lh.lm.valueAt(t, slot)
		if err != nil {
			return utils.Value{}, false, err
		}
		return v, true, nil
	}
	return utils.Value{}, false, nil
}

func (lh *levelHandler) iterators(k1, k2 uint64) []*sstable.TableIterator {
	var iters []*sstable.TableIterator
	for _, t := range lh.tables {
		if t.Overlaps(k1, k2) {
			iters = append(iters, t.NewIterator(k1, k2))
		}
	}
	return iters
}
