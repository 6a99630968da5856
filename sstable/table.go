package sstable

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"lsmkv/file"
	"lsmkv/utils"
)

type indexEntry struct {
	Key    uint64
	Offset uint32
}

// Table is the resident part of a table file: header, bloom filter and index.
// Values are read on demand from a read-only mapping of the file.
type Table struct {
	path   string
	ts     uint64
	minKey uint64
	maxKey uint64
	filter *BloomFilter
	index  []indexEntry
	mf     *file.MmapFile
}

// OpenTable maps the table file at path and parses its header, filter and index.
func OpenTable(path string) (*Table, error) {
	mf, err := file.OpenMmapFile(path)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(utils.ErrTableMissing, "open table %s", path)
		}
		return nil, err
	}
	t := &Table{path: path, mf: mf}
	if err := t.parse(); err != nil {
		_ = mf.Close()
		return nil, errors.Wrapf(err, "open table %s", path)
	}
	return t, nil
}

func (t *Table) parse() error {
	data := t.mf.Data
	c := utils.NewCursor(data)
	ts, err := c.Uint64()
	if err != nil {
		return corrupt(err)
	}
	n, err := c.Uint64()
	if err != nil {
		return corrupt(err)
	}
	if t.minKey, err = c.Uint64(); err != nil {
		return corrupt(err)
	}
	if t.maxKey, err = c.Uint64(); err != nil {
		return corrupt(err)
	}
	t.ts = ts

	raw, err := c.Bytes(utils.FilterSize)
	if err != nil {
		return corrupt(err)
	}
	if t.filter, err = NewBloomFilterFromBytes(raw); err != nil {
		return err
	}

	if n == 0 || n > uint64(c.Remaining()/utils.IndexEntrySize) {
		return errors.Wrapf(utils.ErrCorruptTable, "entry count %d does not fit %d bytes", n, len(data))
	}
	t.index = make([]indexEntry, n)
	for i := range t.index {
		k, _ := c.Uint64()
		off, _ := c.Uint32()
		t.index[i] = indexEntry{Key: k, Offset: off}
	}

	valuesStart := uint32(c.Offset())
	for i, e := range t.index {
		if i > 0 && e.Key <= t.index[i-1].Key {
			return errors.Wrapf(utils.ErrCorruptTable, "index not ascending at slot %d", i)
		}
		// every value holds at least its tag byte
		if (i > 0 && e.Offset <= t.index[i-1].Offset) || int(e.Offset) >= len(data) {
			return errors.Wrapf(utils.ErrCorruptTable, "bad value offset %d at slot %d", e.Offset, i)
		}
	}
	if t.index[0].Offset != valuesStart {
		return errors.Wrapf(utils.ErrCorruptTable, "first value at %d, want %d", t.index[0].Offset, valuesStart)
	}
	if t.minKey != t.index[0].Key || t.maxKey != t.index[n-1].Key {
		return errors.Wrapf(utils.ErrCorruptTable, "header range [%d, %d] does not match index", t.minKey, t.maxKey)
	}
	return nil
}

func corrupt(err error) error {
	return errors.Wrap(utils.ErrCorruptTable, err.Error())
}

func (t *Table) Path() string      { return t.path }
func (t *Table) Timestamp() uint64 { return t.ts }
func (t *Table) MinKey() uint64    { return t.minKey }
func (t *Table) MaxKey() uint64    { return t.maxKey }
func (t *Table) Len() int          { return len(t.index) }

// Size returns the file size in bytes.
func (t *Table) Size() int64 {
	if t.mf == nil {
		return 0
	}
	return int64(len(t.mf.Data))
}

// KeyAt returns the key stored at slot.
func (t *Table) KeyAt(slot int) uint64 {
	return t.index[slot].Key
}

// Overlaps reports whether [min, max] intersects [k1, k2].
func (t *Table) Overlaps(k1, k2 uint64) bool {
	return t.minKey <= k2 && k1 <= t.maxKey
}

// Search returns the slot holding key, or -1.
func (t *Table) Search(key uint64) int {
	if key < t.minKey || key > t.maxKey {
		return -1
	}
	if !t.filter.MayContain(key) {
		return -1
	}
	low, high := 0, len(t.index)-1
	for low <= high {
		mid := low + (high-low)/2
		switch k := t.index[mid].Key; {
		case k == key:
			return mid
		case k < key:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return -1
}

// LowPos returns the first slot whose key lies in [k1, k2], or -1 when none does.
func (t *Table) LowPos(k1, k2 uint64) int {
	if k1 > k2 || !t.Overlaps(k1, k2) {
		return -1
	}
	lo, hi := k1, k2
	if t.minKey > lo {
		lo = t.minKey
	}
	if t.maxKey < hi {
		hi = t.maxKey
	}
	// any slot inside [lo, hi]
	low, high := 0, len(t.index)-1
	pos := -1
	for low <= high {
		mid := low + (high-low)/2
		k := t.index[mid].Key
		if k < lo {
			low = mid + 1
		} else if k > hi {
			high = mid - 1
		} else {
			pos = mid
			break
		}
	}
	if pos < 0 {
		return -1
	}
	for pos > 0 && t.index[pos-1].Key >= k1 {
		pos--
	}
	return pos
}

func (t *Table) valueBytes(slot int) ([]byte, error) {
	if t.mf == nil {
		return nil, errors.Wrapf(utils.ErrTableMissing, "table %s is closed", t.path)
	}
	if slot < 0 || slot >= len(t.index) {
		return nil, errors.Errorf("slot %d out of range [0, %d)", slot, len(t.index))
	}
	start := int(t.index[slot].Offset)
	end := len(t.mf.Data)
	if slot+1 < len(t.index) {
		end = int(t.index[slot+1].Offset)
	}
	return t.mf.Bytes(start, end-start)
}

// ValueAt decodes the value stored at slot.
func (t *Table) ValueAt(slot int) (utils.Value, error) {
	raw, err := t.valueBytes(slot)
	if err != nil {
		return utils.Value{}, err
	}
	v, err := utils.DecodeValue(raw)
	if err != nil {
		return utils.Value{}, errors.Wrapf(err, "table %s slot %d", t.path, slot)
	}
	return v, nil
}

// Entries reads every entry in key order.
func (t *Table) Entries() ([]utils.Entry, error) {
	res := make([]utils.Entry, 0, len(t.index))
	for i, e := range t.index {
		v, err := t.ValueAt(i)
		if err != nil {
			return nil, err
		}
		res = append(res, utils.Entry{Key: e.Key, Value: v})
	}
	return res, nil
}

// Close releases the mapping. The table cannot be read afterwards.
func (t *Table) Close() error {
	if t.mf == nil {
		return nil
	}
	err := t.mf.Close()
	t.mf = nil
	return err
}

// Delete closes the table and removes its file.
func (t *Table) Delete() error {
	if err := t.Close(); err != nil {
		return err
	}
	return file.RemoveFile(t.path)
}

// SortNewestFirst orders tables by descending timestamp, then by path so
// that ties have a stable order.
func SortNewestFirst(tables []*Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].ts != tables[j].ts {
			return tables[i].ts > tables[j].ts
		}
		return tables[i].path < tables[j].path
	})
}
