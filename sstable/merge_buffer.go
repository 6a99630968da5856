package sstable

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"lsmkv/utils"
)

// MergeBuffer holds every entry of one compaction input in key order.
type MergeBuffer struct {
	Level   int
	TS      uint64
	Entries []utils.Entry
}

// NewMergeBuffer reads all of t into memory. The caller deletes t once the
// merged output is installed.
func NewMergeBuffer(t *Table, level int) (*MergeBuffer, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, errors.Wrapf(err, "load compaction input %s", t.Path())
	}
	return &MergeBuffer{Level: level, TS: t.Timestamp(), Entries: entries}, nil
}

// SortInputs orders buffers so that the newest version of a key comes first:
// lower levels before higher ones, newer timestamps before older ones.
func SortInputs(buffers []*MergeBuffer) {
	sort.SliceStable(buffers, func(i, j int) bool {
		if buffers[i].Level != buffers[j].Level {
			return buffers[i].Level < buffers[j].Level
		}
		return buffers[i].TS > buffers[j].TS
	})
}

// Merge2 merges two ascending runs. On equal keys the entry of a wins.
func Merge2(a, b []utils.Entry) []utils.Entry {
	res := make([]utils.Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Key < b[j].Key:
			res = append(res, a[i])
			i++
		case a[i].Key > b[j].Key:
			res = append(res, b[j])
			j++
		default:
			res = append(res, a[i])
			i++
			j++
		}
	}
	res = append(res, a[i:]...)
	res = append(res, b[j:]...)
	return res
}

// MergeAll merges buffers ordered newest first in balanced pairwise rounds.
// An odd buffer at the end of a round is carried into the next one.
func MergeAll(buffers []*MergeBuffer) []utils.Entry {
	runs := make([][]utils.Entry, 0, len(buffers))
	for _, b := range buffers {
		runs = append(runs, b.Entries)
	}
	if len(runs) == 0 {
		return nil
	}
	for len(runs) > 1 {
		next := make([][]utils.Entry, 0, (len(runs)+1)/2)
		for i := 0; i+1 < len(runs); i += 2 {
			next = append(next, Merge2(runs[i], runs[i+1]))
		}
		if len(runs)%2 == 1 {
			next = append(next, runs[len(runs)-1])
		}
		runs = next
	}
	return runs[0]
}

// Save splits sorted, unique entries greedily into tables of at most maxSize
// bytes written to dir as <ts>-<seq>.sst.
func Save(dir string, ts uint64, maxSize int64, entries []utils.Entry) ([]*Table, error) {
	var tables []*Table
	seq := 0
	tb := NewTableBuilder()
	flush := func() error {
		t, err := tb.Flush(utils.FileNameSplitSSTable(dir, ts, seq), ts)
		if err != nil {
			return err
		}
		tables = append(tables, t)
		seq++
		tb = NewTableBuilder()
		return nil
	}
	for _, e := range entries {
		sz := utils.EntrySize(e.Value)
		utils.CondPanic(utils.TableOverhead+sz > maxSize,
			fmt.Errorf("entry %d of %d bytes cannot fit a table of %d", e.Key, sz, maxSize))
		if !tb.Empty() && tb.Size()+sz > maxSize {
			if err := flush(); err != nil {
				return tables, err
			}
		}
		tb.Add(e)
	}
	if !tb.Empty() {
		if err := flush(); err != nil {
			return tables, err
		}
	}
	return tables, nil
}
