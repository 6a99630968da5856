package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmkv/sstable"
	"lsmkv/utils"
)

// with 20480 byte tables and 1000 byte values every table holds 10 entries
const (
	smallTableSize = 20480
	perTable       = 10
)

func bigValue(key uint64, round int) string {
	prefix := fmt.Sprintf("%d:%d:", key, round)
	return prefix + strings.Repeat("v", 1000-len(prefix))
}

func fill(t *testing.T, lsm *LSM, from, to uint64, round int) {
	for k := from; k < to; k++ {
		require.NoError(t, lsm.Put(k, bigValue(k, round)))
		assert.LessOrEqual(t, lsm.Stats().Levels[0], 2, "level 0 after put %d", k)
	}
}

func TestCompactLevel0(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)

	fill(t, lsm, 0, 2*perTable+1, 0)
	assert.Equal(t, []int{2}, lsm.Stats().Levels)
	assert.Equal(t, 1, lsm.Stats().MemTableEntries)

	// the third flush pushes level 0 past its limit of two tables
	fill(t, lsm, 2*perTable+1, 3*perTable+1, 0)
	stats := lsm.Stats()
	assert.Equal(t, []int{0, 3}, stats.Levels)
	assert.Equal(t, uint64(3), stats.Flushes)
	assert.Equal(t, uint64(1), stats.Compactions)

	names, err := os.ReadDir(filepath.Join(lsm.option.WorkDir, "level-0"))
	require.NoError(t, err)
	assert.Empty(t, names)

	for k := uint64(0); k <= 3*perTable; k++ {
		v, err := lsm.Get(k)
		require.NoError(t, err)
		assert.Equal(t, bigValue(k, 0), v)
	}
}

func TestCompactCascade(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)

	fill(t, lsm, 0, 6*perTable+1, 0)
	// level 1 reached six tables; the boundary table ties the youngest ones, so the level moved down whole
	stats := lsm.Stats()
	assert.Equal(t, []int{0, 0, 6}, stats.Levels)
	assert.Equal(t, uint64(3), stats.Compactions)

	res, err := lsm.Scan(0, 6*perTable)
	require.NoError(t, err)
	require.Len(t, res, 6*perTable+1)
	for i, e := range res {
		assert.Equal(t, uint64(i), e.Key)
		assert.Equal(t, bigValue(e.Key, 0), e.Value.Data)
	}
}

func TestCompactKeepsNewestVersion(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)

	for round := 0; round < 4; round++ {
		for k := uint64(0); k < 15; k++ {
			require.NoError(t, lsm.Put(k, bigValue(k, round)))
		}
	}
	ok, err := lsm.Delete(3)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lsm.Rotate())
	require.NoError(t, lsm.compact())
	assert.NotZero(t, lsm.Stats().Compactions)

	for k := uint64(0); k < 15; k++ {
		v, err := lsm.Get(k)
		if k == 3 {
			assert.ErrorIs(t, err, utils.ErrKeyNotFound)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, bigValue(k, 3), v)
	}

	res, err := lsm.Scan(0, 100)
	require.NoError(t, err)
	assert.Len(t, res, 14)
	for _, e := range res {
		assert.NotEqual(t, uint64(3), e.Key)
		assert.Equal(t, bigValue(e.Key, 3), e.Value.Data)
	}
}

func TestCompactOutputsFreshTimestamp(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)
	fill(t, lsm, 0, 3*perTable+1, 0)

	// flushes took 1, 2 and 3; the compaction output took 4
	tables := lsm.lm.vs.Tables(1)
	require.Len(t, tables, 3)
	for seq, table := range tables {
		assert.Equal(t, uint64(4), table.Timestamp())
		assert.Equal(t, utils.FileNameSplitSSTable(lsm.lm.vs.LevelDir(1), 4, seq), table.Path())
	}
	assert.Equal(t, uint64(5), lsm.Stats().Clock)
}

func TestCompactInterruptedRemovalKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	lsm := newTestLSM(t, dir, utils.DefaultMaxTableSize)
	for _, e := range []utils.Entry{
		{Key: 1, Value: utils.Present("old")},
		{Key: 1, Value: utils.Present("new")},
		{Key: 2, Value: utils.Present("x")},
	} {
		require.NoError(t, lsm.Put(e.Key, e.Value.Data))
		require.NoError(t, lsm.Rotate())
	}
	require.Equal(t, []int{3}, lsm.Stats().Levels)

	// the pass stops after two of the three level 0 inputs are gone
	var removed []uint64
	lsm.removeTable = func(table *sstable.Table) error {
		if len(removed) == 2 {
			return errors.New("interrupted")
		}
		removed = append(removed, table.Timestamp())
		return table.Delete()
	}
	assert.Error(t, lsm.compact())
	assert.Equal(t, []uint64{1, 2}, removed)
	require.NoError(t, lsm.Close())

	lsm = newTestLSM(t, dir, utils.DefaultMaxTableSize)
	assert.Equal(t, []int{1, 1}, lsm.Stats().Levels)
	v, err := lsm.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	v, err = lsm.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
