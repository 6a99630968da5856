package version

import (
	"lsmkv/sstable"
)

// Version is the current layout of tables: levels[i] holds the tables of
// level i, newest first.
type Version struct {
	levels [][]*sstable.Table
}

func NewVersion() *Version {
	return &Version{levels: [][]*sstable.Table{nil}}
}

func (v *Version) numLevels() int {
	return len(v.levels)
}

func (v *Version) addTable(level int, t *sstable.Table) {
	for len(v.levels) <= level {
		v.levels = append(v.levels, nil)
	}
	v.levels[level] = append(v.levels[level], t)
}

func (v *Version) deleteTable(level int, t *sstable.Table) bool {
	if level >= len(v.levels) {
		return false
	}
	files := v.levels[level]
	for i := range files {
		if files[i] == t {
			v.levels[level] = append(files[:i], files[i+1:]...)
			return true
		}
	}
	return false
}

func (v *Version) tableCount() int {
	n := 0
	for _, files := range v.levels {
		n += len(files)
	}
	return n
}
