package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmkv/utils"
)

func kv(key uint64, val string) utils.Entry {
	return utils.Entry{Key: key, Value: utils.Present(val)}
}

func TestMerge2(t *testing.T) {
	a := []utils.Entry{kv(1, "a1"), kv(3, "a3"), kv(5, "a5")}
	b := []utils.Entry{kv(2, "b2"), kv(3, "b3"), kv(6, "b6")}
	got := Merge2(a, b)
	assert.Equal(t, []utils.Entry{kv(1, "a1"), kv(2, "b2"), kv(3, "a3"), kv(5, "a5"), kv(6, "b6")}, got)

	assert.Equal(t, a, Merge2(a, nil))
	assert.Equal(t, b, Merge2(nil, b))
}

func TestMergeAll(t *testing.T) {
	buffers := []*MergeBuffer{
		{Level: 0, TS: 9, Entries: []utils.Entry{kv(1, "newest")}},
		{Level: 0, TS: 8, Entries: []utils.Entry{kv(1, "old"), kv(2, "new")}},
		{Level: 0, TS: 7, Entries: []utils.Entry{kv(2, "old"), kv(3, "x")}},
		{Level: 1, TS: 10, Entries: []utils.Entry{kv(1, "l1"), kv(3, "l1"), kv(4, "l1")}},
		{Level: 1, TS: 2, Entries: []utils.Entry{kv(5, "l1")}},
	}
	got := MergeAll(buffers)
	assert.Equal(t, []utils.Entry{kv(1, "newest"), kv(2, "new"), kv(3, "x"), kv(4, "l1"), kv(5, "l1")}, got)
	assert.Nil(t, MergeAll(nil))
}

func TestSortInputs(t *testing.T) {
	buffers := []*MergeBuffer{
		{Level: 1, TS: 50},
		{Level: 0, TS: 3},
		{Level: 0, TS: 4},
		{Level: 1, TS: 60},
	}
	SortInputs(buffers)
	var got []string
	for _, b := range buffers {
		got = append(got, fmt.Sprintf("%d/%d", b.Level, b.TS))
	}
	assert.Equal(t, []string{"0/4", "0/3", "1/60", "1/50"}, got)
}

func TestNewMergeBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "4.sst")
	table, err := BuildTable(path, 4, []utils.Entry{kv(1, "a"), {Key: 2, Value: utils.Tombstone()}})
	require.NoError(t, err)

	mb, err := NewMergeBuffer(table, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, mb.Level)
	assert.Equal(t, uint64(4), mb.TS)
	assert.Equal(t, []utils.Entry{kv(1, "a"), {Key: 2, Value: utils.Tombstone()}}, mb.Entries)

	// the input stays readable until the caller deletes it
	_, err = os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, table.Delete())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveSplitsTables(t *testing.T) {
	dir := t.TempDir()
	val := string(make([]byte, 987))
	var entries []utils.Entry
	for k := uint64(0); k < 100; k++ {
		entries = append(entries, kv(k, val))
	}
	// each entry takes 12 + 1 + 987 = 1000 bytes, so 10 fit next to the overhead
	maxSize := int64(utils.TableOverhead + 10*1000)
	tables, err := Save(dir, 12, maxSize, entries)
	require.NoError(t, err)
	require.Len(t, tables, 10)

	var all []utils.Entry
	for i, table := range tables {
		assert.Equal(t, utils.FileNameSplitSSTable(dir, 12, i), table.Path())
		assert.Equal(t, uint64(12), table.Timestamp())
		assert.LessOrEqual(t, table.Size(), maxSize)
		if i > 0 {
			assert.Less(t, tables[i-1].MaxKey(), table.MinKey())
		}
		got, err := table.Entries()
		require.NoError(t, err)
		all = append(all, got...)
		require.NoError(t, table.Close())
	}
	assert.Equal(t, entries, all)
}

func TestSaveEmpty(t *testing.T) {
	tables, err := Save(t.TempDir(), 1, utils.DefaultMaxTableSize, nil)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
