package lsm

import (
	"go.uber.org/zap"

	"lsmkv/cache"
	"lsmkv/sstable"
	"lsmkv/utils"
	"lsmkv/version"
)

// levelManager owns the on-disk levels and the value cache in front of them.
type levelManager struct {
	opt    *utils.Options
	vs     *version.VersionSet
	cache  *cache.Cache
	logger *zap.Logger
}

func newLevelManager(opt *utils.Options) (*levelManager, error) {
	vs, err := version.Open(opt)
	if err != nil {
		return nil, err
	}
	return &levelManager{
		opt:    opt,
		vs:     vs,
		cache:  cache.NewCache(opt.CachePolicy, opt.ValueCacheSize),
		logger: opt.Logger,
	}, nil
}

func (lm *levelManager) level(i int) *levelHandler {
	return &levelHandler{levelNum: i, tables: lm.vs.Tables(i), lm: lm}
}

// Get probes the levels in ascending order and returns the first version of
// key it finds, tombstones included.
func (lm *levelManager) Get(key uint64) (utils.Value, bool, error) {
	for i := 0; i < lm.vs.NumLevels(); i++ {
		v, ok, err := lm.level(i).Get(key)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return utils.Value{}, false, nil
}

// valueAt reads a table value through the cache.
func (lm *levelManager) valueAt(t *sstable.Table, slot int) (utils.Value, error) {
	if v, ok := lm.cache.GetValue(t.Path(), slot); ok {
		return v, nil
	}
	v, err := t.ValueAt(slot)
	if err != nil {
		return utils.Value{}, err
	}
	lm.cache.AddValue(t.Path(), slot, v)
	return v, nil
}

// iterators returns one iterator per table intersecting [k1, k2], lower
// levels first and newer tables first within a level.
func (lm *levelManager) iterators(k1, k2 uint64) []*sstable.TableIterator {
	var iters []*sstable.TableIterator
	for i := 0; i < lm.vs.NumLevels(); i++ {
		iters = append(iters, lm.level(i).iterators(k1, k2)...)
	}
	return iters
}

// writeLevel0Table flushes mem as a level 0 table stamped ts.
func (lm *levelManager) writeLevel0Table(mem *MemTable, ts uint64) (*sstable.Table, error) {
	t, err := mem.Flush(utils.FileNameSSTable(lm.vs.LevelDir(0), ts), ts)
	if err != nil {
		return nil, err
	}
	ve := version.NewVersionEdit()
	ve.RecordAddTable(0, t)
	if err := lm.vs.LogAndApply(ve); err != nil {
		_ = t.Delete()
		return nil, err
	}
	return t, nil
}

func (lm *levelManager) reset() error {
	lm.cache.Reset()
	return lm.vs.Reset()
}

func (lm *levelManager) close() error {
	return lm.vs.Close()
}
