package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	tableSuffix = ".sst"
	levelPrefix = "level-"
)

// LevelDir returns the directory holding the tables of level.
func LevelDir(root string, level int) string {
	return filepath.Join(root, fmt.Sprintf("%s%d", levelPrefix, level))
}

// FileNameSSTable names a table written by a memtable flush.
func FileNameSSTable(dir string, ts uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", ts, tableSuffix))
}

// FileNameSplitSSTable names the seq-th table of one compaction output batch.
func FileNameSplitSSTable(dir string, ts uint64, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%d%s", ts, seq, tableSuffix))
}

// IsTableFile reports whether name looks like `<ts>.sst` or `<ts>-<seq>.sst`.
func IsTableFile(name string) bool {
	_, ok := TableTimestamp(name)
	return ok
}

// TableTimestamp extracts the timestamp part of a table file name.
func TableTimestamp(name string) (uint64, bool) {
	name = path.Base(name)
	if !strings.HasSuffix(name, tableSuffix) {
		return 0, false
	}
	name = strings.TrimSuffix(name, tableSuffix)
	if i := strings.IndexByte(name, '-'); i >= 0 {
		if _, err := strconv.ParseUint(name[i+1:], 10, 32); err != nil {
			return 0, false
		}
		name = name[:i]
	}
	ts, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
