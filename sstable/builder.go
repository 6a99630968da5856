package sstable

import (
	"fmt"

	"github.com/pkg/errors"

	"lsmkv/file"
	"lsmkv/utils"
)

// tableBuilder collects entries in ascending key order and serializes them
// into one table file.
//
//	+--------+--------------+-------------------------+-------------------+
//	| header | bloom filter | index (key, offset) * N | tag|value * N     |
//	+--------+--------------+-------------------------+-------------------+
type tableBuilder struct {
	entries []utils.Entry
	filter  *BloomFilter
	size    int64
}

func NewTableBuilder() *tableBuilder {
	return &tableBuilder{
		filter: NewBloomFilter(),
		size:   utils.TableOverhead,
	}
}

// Add appends e. Keys must arrive strictly ascending.
func (tb *tableBuilder) Add(e utils.Entry) {
	if n := len(tb.entries); n > 0 {
		utils.CondPanic(e.Key <= tb.entries[n-1].Key,
			fmt.Errorf("tableBuilder.Add key %d after %d", e.Key, tb.entries[n-1].Key))
	}
	tb.entries = append(tb.entries, e)
	tb.filter.Add(e.Key)
	tb.size += utils.EntrySize(e.Value)
}

// Size is the byte size of the file the builder would produce.
func (tb *tableBuilder) Size() int64 {
	return tb.size
}

func (tb *tableBuilder) Empty() bool {
	return len(tb.entries) == 0
}

// done serializes the collected entries under timestamp ts.
func (tb *tableBuilder) done(ts uint64) ([]byte, error) {
	if tb.Empty() {
		return nil, errors.New("tableBuilder.done: no entries")
	}
	if tb.size > int64(^uint32(0)) {
		return nil, errors.Wrapf(utils.ErrBufferOverflow, "table of %d bytes exceeds 32 bit offsets", tb.size)
	}
	buf := make([]byte, tb.size)
	c := utils.NewCursor(buf)

	n := len(tb.entries)
	if err := c.PutUint64(ts); err != nil {
		return nil, err
	}
	if err := c.PutUint64(uint64(n)); err != nil {
		return nil, err
	}
	if err := c.PutUint64(tb.entries[0].Key); err != nil {
		return nil, err
	}
	if err := c.PutUint64(tb.entries[n-1].Key); err != nil {
		return nil, err
	}
	filter, _ := tb.filter.MarshalBinary()
	if err := c.PutBytes(filter); err != nil {
		return nil, err
	}

	offset := uint32(utils.TableOverhead + n*utils.IndexEntrySize)
	for _, e := range tb.entries {
		if err := c.PutUint64(e.Key); err != nil {
			return nil, err
		}
		if err := c.PutUint32(offset); err != nil {
			return nil, err
		}
		offset += uint32(e.Value.EncodedLen())
	}
	for _, e := range tb.entries {
		if err := c.PutValue(e.Value); err != nil {
			return nil, err
		}
	}

	utils.CondPanic(c.Remaining() != 0, fmt.Errorf("tableBuilder.done written %d != len(buf) %d", c.Offset(), len(buf)))
	return buf, nil
}

// Flush writes the table file to path and opens it.
func (tb *tableBuilder) Flush(path string, ts uint64) (*Table, error) {
	buf, err := tb.done(ts)
	if err != nil {
		return nil, err
	}
	if err := file.WriteFileAtomic(path, buf); err != nil {
		return nil, err
	}
	return OpenTable(path)
}

// BuildTable writes entries, which must be sorted by key and unique, to a
// single table file at path.
func BuildTable(path string, ts uint64, entries []utils.Entry) (*Table, error) {
	tb := NewTableBuilder()
	for _, e := range entries {
		tb.Add(e)
	}
	return tb.Flush(path, ts)
}
