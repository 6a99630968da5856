package lsm

import (
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lsmkv/sstable"
	"lsmkv/version"
)

// compact runs the compaction cascade: starting from level 0, every level
// holding too many tables is merged into the next one, until a level is
// within its limit.
func (lsm *LSM) compact() error {
	for level := 0; level < lsm.lm.vs.NumLevels(); level++ {
		if !lsm.lm.vs.NeedsCompaction(level) {
			break
		}
		if err := lsm.compactLevel(level); err != nil {
			return errors.Wrapf(err, "compact level %d", level)
		}
	}
	lsm.metrics.setLevels(lsm.lm.vs.LevelSizes())
	return nil
}

// compactLevel merges the tables picked from level, together with the
// overlapping tables of level+1, into new tables of level+1.
func (lsm *LSM) compactLevel(level int) error {
	vs := lsm.lm.vs
	c := vs.PickCompaction(level)
	if c == nil {
		return nil
	}
	if err := vs.EnsureLevel(level + 1); err != nil {
		return err
	}

	buffers := make([]*sstable.MergeBuffer, 0, c.NumInputs())
	for which := 0; which < 2; which++ {
		for _, t := range c.Inputs(which) {
			mb, err := sstable.NewMergeBuffer(t, level+which)
			if err != nil {
				return err
			}
			buffers = append(buffers, mb)
		}
	}
	sstable.SortInputs(buffers)
	merged := sstable.MergeAll(buffers)

	ts := lsm.nextTimestamp()
	outputs, err := sstable.Save(vs.LevelDir(level+1), ts, lsm.option.MaxTableSize, merged)
	if err != nil {
		for _, t := range outputs {
			_ = t.Delete()
		}
		return err
	}

	ve := version.NewVersionEdit()
	ve.DeleteTables(level, c.Inputs(0))
	ve.DeleteTables(level+1, c.Inputs(1))
	ve.AddTables(level+1, outputs)
	if err := vs.LogAndApply(ve); err != nil {
		return err
	}
	if err := lsm.removeInputs(c); err != nil {
		return err
	}

	lsm.compactions++
	lsm.metrics.compactions.WithLabelValues(strconv.Itoa(level)).Inc()
	lsm.logger.Debug("compaction finished",
		zap.Int("level", level),
		zap.Int("inputs", len(c.Inputs(0))),
		zap.Int("overlapping", len(c.Inputs(1))),
		zap.Int("outputs", len(outputs)),
		zap.Int("entries", len(merged)),
		zap.Int("level_tables", lsm.lm.level(level).numTables()),
		zap.Uint64("ts", ts))
	return nil
}

// removeInputs deletes the input files of an installed compaction. The tables
// of the source level go oldest first: if the pass stops early, the files
// left behind are never older than one already removed, so none of them can
// shadow a newer version in the output.
func (lsm *LSM) removeInputs(c *version.Compaction) error {
	inputs := c.Inputs(0)
	for i := len(inputs) - 1; i >= 0; i-- {
		if err := lsm.removeTable(inputs[i]); err != nil {
			return err
		}
	}
	for _, t := range c.Inputs(1) {
		if err := lsm.removeTable(t); err != nil {
			return err
		}
	}
	return nil
}
