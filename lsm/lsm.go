package lsm

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lsmkv/sstable"
	"lsmkv/utils"
	"lsmkv/version"
)

// LSM is the storage engine: one memtable in front of leveled tables. It is
// not safe for concurrent use.
type LSM struct {
	memTable *MemTable
	option   *utils.Options
	lm       *levelManager
	logger   *zap.Logger
	metrics  *metrics

	// deletes a compaction input once the outputs are installed
	removeTable func(*sstable.Table) error

	// timestamp handed to the next flush or compaction output
	clock       uint64
	flushes     uint64
	compactions uint64
	closed      bool
}

// Stats is a point-in-time summary of the engine.
type Stats struct {
	Levels          []int
	Tables          int
	MemTableEntries int
	MemTableBytes   int64
	Clock           uint64
	Flushes         uint64
	Compactions     uint64
	CacheHits       uint64
	CacheMisses     uint64
}

// NewLSM opens the engine rooted at opt.WorkDir, loading any tables already
// there. opt is copied; defaults are filled into the copy only.
func NewLSM(opt *utils.Options) (*LSM, error) {
	o := *opt
	opt = &o
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	lm, err := newLevelManager(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", opt.WorkDir)
	}
	m, err := newMetrics(opt.Registerer, lm.cache)
	if err != nil {
		_ = lm.close()
		return nil, err
	}
	lsm := &LSM{
		option:      opt,
		lm:          lm,
		logger:      opt.Logger,
		metrics:     m,
		memTable:    NewMemTable(opt.MaxTableSize),
		clock:       lm.vs.MaxTimestamp() + 1,
		removeTable: (*sstable.Table).Delete,
	}
	lsm.metrics.setLevels(lm.vs.LevelSizes())
	lsm.metrics.memtableBytes.Set(float64(lsm.memTable.Size()))

	lsm.logger.Info("store opened",
		zap.String("dir", opt.WorkDir),
		zap.Ints("levels", lm.vs.LevelSizes()),
		zap.Uint64("clock", lsm.clock))
	return lsm, nil
}

func (lsm *LSM) nextTimestamp() uint64 {
	ts := lsm.clock
	lsm.clock++
	return ts
}

// Put inserts or replaces the value of key.
func (lsm *LSM) Put(key uint64, value string) error {
	err := lsm.set(key, utils.Present(value))
	lsm.metrics.op("put", result(err))
	return err
}

func (lsm *LSM) set(key uint64, v utils.Value) error {
	if lsm.closed {
		return utils.ErrClosed
	}
	if utils.TableOverhead+utils.EntrySize(v) > lsm.option.MaxTableSize {
		return errors.Wrapf(utils.ErrValueTooLarge, "key %d with %d byte value", key, len(v.Data))
	}
	defer func() { lsm.metrics.memtableBytes.Set(float64(lsm.memTable.Size())) }()
	if lsm.memTable.Put(key, v) {
		return nil
	}
	if err := lsm.Rotate(); err != nil {
		return err
	}
	utils.CondPanic(!lsm.memTable.Put(key, v),
		errors.Errorf("entry %d does not fit an empty memtable", key))
	return lsm.compact()
}

// Rotate flushes the memtable to level 0 and installs an empty one. An empty
// memtable is left alone.
func (lsm *LSM) Rotate() error {
	if lsm.memTable.Empty() {
		return nil
	}
	_, err := lsm.WriteLevel0Table(lsm.memTable)
	if err != nil {
		return err
	}
	lsm.memTable = NewMemTable(lsm.option.MaxTableSize)
	return nil
}

// WriteLevel0Table writes mem to a new level 0 table under a fresh timestamp.
func (lsm *LSM) WriteLevel0Table(mem *MemTable) (*sstable.Table, error) {
	ts := lsm.nextTimestamp()
	t, err := lsm.lm.writeLevel0Table(mem, ts)
	if err != nil {
		return nil, errors.Wrap(err, "flush memtable")
	}
	lsm.flushes++
	lsm.metrics.flushes.Inc()
	lsm.metrics.flushedBytes.Add(float64(t.Size()))
	lsm.metrics.setLevels(lsm.lm.vs.LevelSizes())
	lsm.logger.Debug("memtable flushed",
		zap.String("path", t.Path()),
		zap.Int("entries", t.Len()),
		zap.Int64("bytes", t.Size()),
		zap.Uint64("ts", ts))
	return t, nil
}

// Get returns the value of key, or utils.ErrKeyNotFound when it is absent or deleted.
func (lsm *LSM) Get(key uint64) (string, error) {
	v, err := lsm.get(key)
	lsm.metrics.op("get", result(err))
	return v, err
}

func (lsm *LSM) get(key uint64) (string, error) {
	if lsm.closed {
		return "", utils.ErrClosed
	}
	// serach from memtable first
	if v, ok := lsm.memTable.Get(key); ok {
		if v.Deleted {
			return "", utils.ErrKeyNotFound
		}
		return v.Data, nil
	}
	v, ok, err := lsm.lm.Get(key)
	if err != nil {
		return "", errors.Wrapf(err, "get %d", key)
	}
	if !ok || v.Deleted {
		return "", utils.ErrKeyNotFound
	}
	return v.Data, nil
}

// Delete writes a tombstone for key. It reports false, and writes nothing,
// when key is already absent.
func (lsm *LSM) Delete(key uint64) (bool, error) {
	ok, err := lsm.del(key)
	lsm.metrics.op("delete", result(err))
	return ok, err
}

func (lsm *LSM) del(key uint64) (bool, error) {
	if _, err := lsm.get(key); err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := lsm.set(key, utils.Tombstone()); err != nil {
		return false, err
	}
	return true, nil
}

// Scan returns the live entries with k1 <= key <= k2 in ascending key order.
// Every key appears once, with its newest value.
func (lsm *LSM) Scan(k1, k2 uint64) ([]utils.Entry, error) {
	res, err := lsm.scan(k1, k2)
	lsm.metrics.op("scan", result(err))
	return res, err
}

func (lsm *LSM) scan(k1, k2 uint64) ([]utils.Entry, error) {
	if lsm.closed {
		return nil, utils.ErrClosed
	}
	if k1 > k2 {
		return nil, errors.Wrapf(utils.ErrInvalidRange, "scan [%d, %d]", k1, k2)
	}
	tableIters := lsm.lm.iterators(k1, k2)
	iters := make([]utils.Iterator, 0, len(tableIters)+1)
	iters = append(iters, utils.NewSliceIterator(lsm.memTable.Scan(k1, k2)))
	for _, it := range tableIters {
		iters = append(iters, it)
	}

	res := make([]utils.Entry, 0)
	for iter := version.NewMergeIterator(iters); iter.Valid(); iter.Next() {
		if e := iter.Item(); !e.Value.Deleted {
			res = append(res, e)
		}
	}
	for _, it := range tableIters {
		if err := it.Err(); err != nil {
			return nil, errors.Wrapf(err, "scan [%d, %d]", k1, k2)
		}
	}
	return res, nil
}

// Reset drops every key: the memtable, all tables and all level directories.
// The timestamp clock keeps running.
func (lsm *LSM) Reset() error {
	if lsm.closed {
		return utils.ErrClosed
	}
	lsm.memTable = NewMemTable(lsm.option.MaxTableSize)
	if err := lsm.lm.reset(); err != nil {
		return errors.Wrap(err, "reset")
	}
	lsm.metrics.setLevels(lsm.lm.vs.LevelSizes())
	lsm.metrics.memtableBytes.Set(float64(lsm.memTable.Size()))
	lsm.logger.Info("store reset", zap.String("dir", lsm.option.WorkDir))
	return nil
}

// Close flushes a non-empty memtable, runs one compaction pass and releases
// every table. Later calls return nil.
func (lsm *LSM) Close() error {
	if lsm.closed {
		return nil
	}
	err := lsm.Rotate()
	if err == nil {
		err = lsm.compact()
	}
	if cerr := lsm.lm.close(); cerr != nil && err == nil {
		err = cerr
	}
	lsm.metrics.unregister()
	lsm.closed = true
	lsm.logger.Info("store closed",
		zap.String("dir", lsm.option.WorkDir),
		zap.Ints("levels", lsm.lm.vs.LevelSizes()),
		zap.Error(err))
	return err
}

func (lsm *LSM) Stats() Stats {
	return Stats{
		Levels:          lsm.lm.vs.LevelSizes(),
		Tables:          lsm.lm.vs.TableCount(),
		MemTableEntries: lsm.memTable.Len(),
		MemTableBytes:   lsm.memTable.Size(),
		Clock:           lsm.clock,
		Flushes:         lsm.flushes,
		Compactions:     lsm.compactions,
		CacheHits:       lsm.lm.cache.Hits(),
		CacheMisses:     lsm.lm.cache.Misses(),
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, utils.ErrKeyNotFound):
		return "not_found"
	}
	return "error"
}
