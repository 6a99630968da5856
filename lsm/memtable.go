package lsm

import (
	"lsmkv/sstable"
	"lsmkv/utils"
)

// MemTable buffers writes in a skip list until they fill one table file.
type MemTable struct {
	table   *utils.SkipList
	size    int64
	maxSize int64
}

// NewMemTable returns an empty memtable that flushes into tables of at most
// maxSize bytes.
func NewMemTable(maxSize int64) *MemTable {
	return &MemTable{
		table:   utils.NewSkipList(),
		size:    utils.TableOverhead,
		maxSize: maxSize,
	}
}

// Put writes key unless that would grow the memtable past the table size
// limit, in which case it reports false and leaves the memtable unchanged.
func (mem *MemTable) Put(key uint64, v utils.Value) bool {
	if h := mem.table.Search(key); h != 0 {
		size := mem.size + int64(v.EncodedLen()-mem.table.Value(h).EncodedLen())
		if size > mem.maxSize {
			return false
		}
		mem.table.SetValue(h, v)
		mem.size = size
		return true
	}
	size := mem.size + utils.EntrySize(v)
	if size > mem.maxSize {
		return false
	}
	mem.table.Add(key, v)
	mem.size = size
	return true
}

// Get returns the value of key, tombstones included.
func (mem *MemTable) Get(key uint64) (utils.Value, bool) {
	h := mem.table.Search(key)
	if h == 0 {
		return utils.Value{}, false
	}
	return mem.table.Value(h), true
}

// Scan returns the entries in [k1, k2], tombstones included.
func (mem *MemTable) Scan(k1, k2 uint64) []utils.Entry {
	return mem.table.Scan(k1, k2)
}

// Size is the byte size of the table file a flush would write.
func (mem *MemTable) Size() int64 {
	return mem.size
}

func (mem *MemTable) Len() int {
	return mem.table.Len()
}

func (mem *MemTable) Empty() bool {
	return mem.table.Len() == 0
}

// Flush writes the whole memtable as one table at path.
func (mem *MemTable) Flush(path string, ts uint64) (*sstable.Table, error) {
	builder := sstable.NewTableBuilder()
	iter := mem.NewMemTableIterator()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		builder.Add(iter.Item())
	}
	return builder.Flush(path, ts)
}

type MemTableIterator struct {
	list *utils.SkipListIterator
}

func (mem *MemTable) NewMemTableIterator() *MemTableIterator {
	return &MemTableIterator{list: mem.table.NewIterator()}
}

func (m MemTableIterator) Next() {
	m.list.Next()
}

func (m MemTableIterator) Valid() bool {
	return m.list.Valid()
}

func (m MemTableIterator) Rewind() {
	m.list.Rewind()
}

func (m MemTableIterator) Item() utils.Entry {
	return m.list.Item()
}
