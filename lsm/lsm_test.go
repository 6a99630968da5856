package lsm

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/btree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmkv/utils"
)

func newTestLSM(t *testing.T, dir string, maxTableSize int64) *LSM {
	t.Helper()
	opt := utils.DefaultOptions(dir)
	opt.MaxTableSize = maxTableSize
	opt.Registerer = prometheus.NewRegistry()
	lsm, err := NewLSM(opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lsm.Close() })
	return lsm
}

func TestLSMPutGetDelete(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), utils.DefaultMaxTableSize)

	require.NoError(t, lsm.Put(42, "apple"))
	require.NoError(t, lsm.Put(42, "banana"))
	v, err := lsm.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "banana", v)

	ok, err := lsm.Delete(42)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = lsm.Get(42)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)

	ok, err = lsm.Delete(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLSMDeleteAbsentWritesNothing(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), utils.DefaultMaxTableSize)
	before := lsm.Stats().MemTableBytes

	ok, err := lsm.Delete(7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, lsm.Stats().MemTableBytes)
	assert.Zero(t, lsm.Stats().MemTableEntries)
}

func TestLSMEmptyAndMarkerLikeValues(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), utils.DefaultMaxTableSize)

	// neither is a tombstone
	require.NoError(t, lsm.Put(1, ""))
	require.NoError(t, lsm.Put(2, "~DELETED~"))
	require.NoError(t, lsm.Rotate())

	v, err := lsm.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = lsm.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "~DELETED~", v)
}

func TestLSMGetFromTables(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)
	fill(t, lsm, 0, 25, 0)
	require.NotZero(t, lsm.Stats().Flushes)

	for i := 0; i < 2; i++ {
		for k := uint64(0); k < 25; k++ {
			v, err := lsm.Get(k)
			require.NoError(t, err)
			assert.Equal(t, bigValue(k, 0), v)
		}
	}
	_, err := lsm.Get(1000)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)

	// the second pass is served from the value cache
	assert.NotZero(t, lsm.Stats().CacheHits)
}

func TestLSMDeleteShadowsTables(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)
	fill(t, lsm, 0, 25, 0)

	ok, err := lsm.Delete(3)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lsm.Rotate())

	_, err = lsm.Get(3)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
	ok, err = lsm.Delete(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLSMValueTooLarge(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)

	fits := strings.Repeat("x", smallTableSize-utils.TableOverhead-13)
	require.NoError(t, lsm.Put(1, fits))

	err := lsm.Put(2, fits+"x")
	assert.ErrorIs(t, err, utils.ErrValueTooLarge)
	_, err = lsm.Get(2)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
}

func TestLSMScan(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), utils.DefaultMaxTableSize)
	for k := uint64(0); k < 100; k += 2 {
		require.NoError(t, lsm.Put(k, fmt.Sprint(k)))
	}
	_, err := lsm.Delete(10)
	require.NoError(t, err)

	res, err := lsm.Scan(5, 15)
	require.NoError(t, err)
	var keys []uint64
	for _, e := range res {
		keys = append(keys, e.Key)
		assert.Equal(t, fmt.Sprint(e.Key), e.Value.Data)
	}
	assert.Equal(t, []uint64{6, 8, 12, 14}, keys)

	res, err = lsm.Scan(1000, 2000)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = lsm.Scan(4, 4)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "4", res[0].Value.Data)

	_, err = lsm.Scan(9, 3)
	assert.ErrorIs(t, err, utils.ErrInvalidRange)
}

type modelItem struct {
	key   uint64
	value string
}

func modelLess(a, b modelItem) bool { return a.key < b.key }

// TestLSMScanMatchesModel drives random puts and deletes through the store and
// a btree and compares scans and gets over flushes and compactions.
func TestLSMScanMatchesModel(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)
	model := btree.NewG(8, modelLess)
	r := rand.New(rand.NewSource(7))

	const keySpace = 300
	for i := 0; i < 3000; i++ {
		key := uint64(r.Intn(keySpace))
		if r.Intn(5) == 0 {
			_, inModel := model.Get(modelItem{key: key})
			ok, err := lsm.Delete(key)
			require.NoError(t, err)
			require.Equal(t, inModel, ok, "delete %d", key)
			model.Delete(modelItem{key: key})
			continue
		}
		value := fmt.Sprintf("%d-%d-%s", key, i, strings.Repeat("p", r.Intn(400)))
		require.NoError(t, lsm.Put(key, value))
		model.ReplaceOrInsert(modelItem{key: key, value: value})

		if i%500 == 499 {
			k1 := uint64(r.Intn(keySpace))
			k2 := k1 + uint64(r.Intn(keySpace))
			res, err := lsm.Scan(k1, k2)
			require.NoError(t, err)
			var want []utils.Entry
			model.AscendRange(modelItem{key: k1}, modelItem{key: k2 + 1}, func(it modelItem) bool {
				want = append(want, utils.Entry{Key: it.key, Value: utils.Present(it.value)})
				return true
			})
			require.Equal(t, len(want), len(res))
			for j := range want {
				require.Equal(t, want[j], res[j])
			}
		}
	}
	require.NotZero(t, lsm.Stats().Compactions)

	for key := uint64(0); key < keySpace; key++ {
		it, inModel := model.Get(modelItem{key: key})
		v, err := lsm.Get(key)
		if !inModel {
			assert.ErrorIs(t, err, utils.ErrKeyNotFound)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, it.value, v)
	}
}

func TestLSMReopen(t *testing.T) {
	dir := t.TempDir()
	lsm := newTestLSM(t, dir, smallTableSize)
	fill(t, lsm, 0, 45, 0)
	ok, err := lsm.Delete(44)
	require.NoError(t, err)
	require.True(t, ok)
	clock := lsm.Stats().Clock
	require.NoError(t, lsm.Close())
	require.NoError(t, lsm.Close())

	lsm = newTestLSM(t, dir, smallTableSize)
	stats := lsm.Stats()
	assert.Zero(t, stats.MemTableEntries)
	assert.GreaterOrEqual(t, stats.Clock, clock)
	for k := uint64(0); k < 44; k++ {
		v, err := lsm.Get(k)
		require.NoError(t, err)
		assert.Equal(t, bigValue(k, 0), v)
	}
	_, err = lsm.Get(44)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
}

func TestLSMOpenSkipsLevelGap(t *testing.T) {
	dir := t.TempDir()
	lsm := newTestLSM(t, dir, smallTableSize)
	fill(t, lsm, 0, 3*perTable+1, 0)
	require.NoError(t, lsm.Close())

	// level-1 moves to level-2, leaving a gap after level-0
	require.NoError(t, os.Rename(filepath.Join(dir, "level-1"), filepath.Join(dir, "level-2")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level-0", "junk.sst.tmp"), []byte("x"), 0o644))

	lsm = newTestLSM(t, dir, smallTableSize)
	assert.Equal(t, []int{1}, lsm.Stats().Levels)
	_, err := lsm.Get(0)
	assert.ErrorIs(t, err, utils.ErrKeyNotFound)
	v, err := lsm.Get(3 * perTable)
	require.NoError(t, err)
	assert.Equal(t, bigValue(3*perTable, 0), v)

	_, err = os.Stat(filepath.Join(dir, "level-0", "junk.sst.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLSMReset(t *testing.T) {
	dir := t.TempDir()
	lsm := newTestLSM(t, dir, smallTableSize)
	fill(t, lsm, 0, 100, 0)
	require.NotEqual(t, 1, len(lsm.Stats().Levels))
	clock := lsm.Stats().Clock

	require.NoError(t, lsm.Reset())
	for k := uint64(0); k < 100; k++ {
		_, err := lsm.Get(k)
		assert.ErrorIs(t, err, utils.ErrKeyNotFound)
	}
	stats := lsm.Stats()
	assert.Equal(t, []int{0}, stats.Levels)
	assert.Equal(t, clock, stats.Clock)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "level-0", entries[0].Name())
	assert.True(t, entries[0].IsDir())
	level0, err := os.ReadDir(filepath.Join(dir, "level-0"))
	require.NoError(t, err)
	assert.Empty(t, level0)

	// the store keeps working after a reset
	require.NoError(t, lsm.Put(5, "again"))
	v, err := lsm.Get(5)
	require.NoError(t, err)
	assert.Equal(t, "again", v)
}

func TestLSMClosed(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), utils.DefaultMaxTableSize)
	require.NoError(t, lsm.Put(1, "one"))
	require.NoError(t, lsm.Close())

	assert.ErrorIs(t, lsm.Put(2, "two"), utils.ErrClosed)
	_, err := lsm.Get(1)
	assert.ErrorIs(t, err, utils.ErrClosed)
	_, err = lsm.Delete(1)
	assert.ErrorIs(t, err, utils.ErrClosed)
	_, err = lsm.Scan(0, 10)
	assert.ErrorIs(t, err, utils.ErrClosed)
	assert.ErrorIs(t, lsm.Reset(), utils.ErrClosed)
}

func TestLSMCloseEmptyMemTable(t *testing.T) {
	dir := t.TempDir()
	lsm := newTestLSM(t, dir, utils.DefaultMaxTableSize)
	require.NoError(t, lsm.Close())

	level0, err := os.ReadDir(filepath.Join(dir, "level-0"))
	require.NoError(t, err)
	assert.Empty(t, level0)
	assert.Zero(t, lsm.Stats().Flushes)
}

func TestLSMMetrics(t *testing.T) {
	lsm := newTestLSM(t, t.TempDir(), smallTableSize)
	fill(t, lsm, 0, 3*perTable+1, 0)
	_, err := lsm.Get(0)
	require.NoError(t, err)
	_, err = lsm.Get(1000)
	require.ErrorIs(t, err, utils.ErrKeyNotFound)

	m := lsm.metrics
	assert.Equal(t, float64(3*perTable+1), testutil.ToFloat64(m.ops.WithLabelValues("put", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ops.WithLabelValues("get", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ops.WithLabelValues("get", "not_found")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.flushes))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.compactions.WithLabelValues("0")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.tables.WithLabelValues("0")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.tables.WithLabelValues("1")))
	assert.Equal(t, float64(lsm.Stats().MemTableBytes), testutil.ToFloat64(m.memtableBytes))
	assert.Equal(t, 2, testutil.CollectAndCount(m.tables))
}
