package version

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lsmkv/file"
	"lsmkv/sstable"
	"lsmkv/utils"
)

// VersionSet owns every table of the store, organized by level.
type VersionSet struct {
	dir     string
	logger  *zap.Logger
	current *Version
}

// Open discovers the tables under opt.WorkDir. Levels are read from level-0
// upwards until the first missing directory; level-0 is created if absent.
func Open(opt *utils.Options) (*VersionSet, error) {
	vs := &VersionSet{
		dir:     opt.WorkDir,
		logger:  opt.Logger,
		current: NewVersion(),
	}
	if err := file.MkdirAll(vs.LevelDir(0)); err != nil {
		return nil, err
	}
	vs.current.levels = nil
	for level := 0; ; level++ {
		dir := vs.LevelDir(level)
		ok, err := file.DirExists(dir)
		if err != nil {
			_ = vs.Close()
			return nil, err
		}
		if !ok {
			vs.logger.Debug("level scan stopped", zap.Int("level", level))
			break
		}
		if err := vs.loadLevel(level, dir); err != nil {
			_ = vs.Close()
			return nil, err
		}
	}
	return vs, nil
}

func (vs *VersionSet) loadLevel(level int, dir string) error {
	if n, err := file.RemoveTempFiles(dir); err != nil {
		return err
	} else if n > 0 {
		vs.logger.Info("removed temporary files", zap.String("dir", dir), zap.Int("count", n))
	}
	names, err := file.ScanDir(dir)
	if err != nil {
		return err
	}
	vs.current.levels = append(vs.current.levels, nil)
	for _, name := range names {
		if !utils.IsTableFile(name) {
			vs.logger.Debug("skip non table file", zap.String("dir", dir), zap.String("name", name))
			continue
		}
		t, err := sstable.OpenTable(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		vs.current.addTable(level, t)
	}
	sstable.SortNewestFirst(vs.current.levels[level])
	return nil
}

// LevelDir returns the directory of level.
func (vs *VersionSet) LevelDir(level int) string {
	return utils.LevelDir(vs.dir, level)
}

// NumLevels returns the number of levels, empty ones included.
func (vs *VersionSet) NumLevels() int {
	return vs.current.numLevels()
}

// Tables returns the tables of level, newest first. The slice must not be modified.
func (vs *VersionSet) Tables(level int) []*sstable.Table {
	if level < 0 || level >= vs.current.numLevels() {
		return nil
	}
	return vs.current.levels[level]
}

// TableCount returns the number of tables over all levels.
func (vs *VersionSet) TableCount() int {
	return vs.current.tableCount()
}

// LevelSizes returns the table count of each level.
func (vs *VersionSet) LevelSizes() []int {
	sizes := make([]int, vs.current.numLevels())
	for i, files := range vs.current.levels {
		sizes[i] = len(files)
	}
	return sizes
}

// MaxTimestamp returns the newest table timestamp, or 0 when there are no tables.
func (vs *VersionSet) MaxTimestamp() uint64 {
	var ts uint64
	for _, files := range vs.current.levels {
		for _, t := range files {
			if t.Timestamp() > ts {
				ts = t.Timestamp()
			}
		}
	}
	return ts
}

// EnsureLevel makes level and every level below it exist, on disk and in memory.
func (vs *VersionSet) EnsureLevel(level int) error {
	for l := vs.current.numLevels(); l <= level; l++ {
		if err := file.MkdirAll(vs.LevelDir(l)); err != nil {
			return err
		}
		vs.current.levels = append(vs.current.levels, nil)
	}
	return nil
}

// LogAndApply installs the edit: deleted tables leave their level, added
// tables join theirs, and every touched level is sorted newest first again.
func (vs *VersionSet) LogAndApply(ve *VersionEdit) error {
	touched := make(map[int]struct{})
	for _, tm := range ve.deletes {
		if !vs.current.deleteTable(tm.level, tm.table) {
			return errors.Errorf("table %s is not in level %d", tm.table.Path(), tm.level)
		}
		touched[tm.level] = struct{}{}
	}
	for _, tm := range ve.adds {
		if err := vs.EnsureLevel(tm.level); err != nil {
			return err
		}
		vs.current.addTable(tm.level, tm.table)
		touched[tm.level] = struct{}{}
	}
	for level := range touched {
		sstable.SortNewestFirst(vs.current.levels[level])
	}
	vs.logger.Debug("version edit applied",
		zap.Int("added", len(ve.adds)),
		zap.Int("deleted", len(ve.deletes)),
		zap.Ints("levels", vs.LevelSizes()))
	return nil
}

// Reset deletes every table file and level directory and leaves a single
// empty level-0.
func (vs *VersionSet) Reset() error {
	for level := range vs.current.levels {
		for _, t := range vs.current.levels[level] {
			if err := t.Delete(); err != nil {
				return err
			}
		}
		vs.current.levels[level] = nil
	}
	for level := vs.current.numLevels() - 1; level >= 0; level-- {
		dir := vs.LevelDir(level)
		if _, err := file.RemoveTempFiles(dir); err != nil {
			return err
		}
		if err := file.RemoveDir(dir); err != nil {
			return err
		}
	}
	vs.current = NewVersion()
	return file.MkdirAll(vs.LevelDir(0))
}

// Close releases every table mapping. Files stay on disk.
func (vs *VersionSet) Close() error {
	var first error
	for _, files := range vs.current.levels {
		for _, t := range files {
			if err := t.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
