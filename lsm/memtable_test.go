package lsm

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmkv/sstable"
	"lsmkv/utils"
)

func TestMemTableCreate(t *testing.T) {
	mem := NewMemTable(utils.DefaultMaxTableSize)
	_, ok := mem.Get(1)
	assert.False(t, ok)
	assert.True(t, mem.Empty())
	assert.Equal(t, int64(utils.TableOverhead), mem.Size())
}

func TestMemTableSize(t *testing.T) {
	mem := NewMemTable(utils.DefaultMaxTableSize)

	require.True(t, mem.Put(1, utils.Present("apple")))
	assert.Equal(t, int64(10272+12+1+5), mem.Size())

	// overwrite only moves the size by the value delta
	require.True(t, mem.Put(1, utils.Present("ap")))
	assert.Equal(t, int64(10272+12+1+2), mem.Size())

	require.True(t, mem.Put(1, utils.Tombstone()))
	assert.Equal(t, int64(10272+12+1), mem.Size())

	v, ok := mem.Get(1)
	require.True(t, ok)
	assert.True(t, v.Deleted)
	assert.Equal(t, 1, mem.Len())
}

func TestMemTablePutLimit(t *testing.T) {
	const maxSize = 20480
	mem := NewMemTable(maxSize)
	room := maxSize - utils.TableOverhead

	// one entry that fills the table exactly
	value := strings.Repeat("x", room-13)
	require.True(t, mem.Put(7, utils.Present(value)))
	assert.Equal(t, int64(maxSize), mem.Size())

	assert.False(t, mem.Put(8, utils.Tombstone()))
	assert.False(t, mem.Put(7, utils.Present(value+"x")))
	assert.Equal(t, 1, mem.Len())
	assert.Equal(t, int64(maxSize), mem.Size())
	v, _ := mem.Get(7)
	assert.Equal(t, value, v.Data)

	// shrinking an existing key always fits
	require.True(t, mem.Put(7, utils.Present("x")))
	assert.Equal(t, int64(utils.TableOverhead+13+1), mem.Size())
	assert.True(t, mem.Put(8, utils.Tombstone()))
}

func TestMemTableScan(t *testing.T) {
	mem := NewMemTable(utils.DefaultMaxTableSize)
	for i := uint64(10); i > 0; i-- {
		mem.Put(i*10, utils.Present(fmt.Sprint(i)))
	}
	mem.Put(50, utils.Tombstone())

	res := mem.Scan(25, 60)
	require.Len(t, res, 4)
	assert.Equal(t, uint64(30), res[0].Key)
	assert.Equal(t, uint64(50), res[2].Key)
	assert.True(t, res[2].Value.Deleted)
	assert.Equal(t, uint64(60), res[3].Key)

	assert.Empty(t, mem.Scan(101, 200))
}

func TestMemTableIterator(t *testing.T) {
	mem := NewMemTable(utils.DefaultMaxTableSize)
	for _, k := range []uint64{5, 1, 3} {
		mem.Put(k, utils.Present(fmt.Sprint(k)))
	}
	iter := mem.NewMemTableIterator()
	var keys []uint64
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().Key)
	}
	assert.Equal(t, []uint64{1, 3, 5}, keys)
}

func TestMemTableFlush(t *testing.T) {
	mem := NewMemTable(utils.DefaultMaxTableSize)
	for i := uint64(0); i < 100; i++ {
		mem.Put(i, utils.Present(fmt.Sprintf("val%d", i)))
	}
	mem.Put(42, utils.Tombstone())

	path := filepath.Join(t.TempDir(), "9.sst")
	table, err := mem.Flush(path, 9)
	require.NoError(t, err)
	assert.Equal(t, mem.Size(), table.Size())
	require.NoError(t, table.Close())

	table, err = sstable.OpenTable(path)
	require.NoError(t, err)
	defer table.Close()
	assert.Equal(t, uint64(9), table.Timestamp())
	assert.Equal(t, 100, table.Len())
	assert.Equal(t, uint64(0), table.MinKey())
	assert.Equal(t, uint64(99), table.MaxKey())

	v, err := table.ValueAt(table.Search(42))
	require.NoError(t, err)
	assert.True(t, v.Deleted)
	v, err = table.ValueAt(table.Search(7))
	require.NoError(t, err)
	assert.Equal(t, "val7", v.Data)
}
