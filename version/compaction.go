package version

import (
	"lsmkv/sstable"
)

// Compaction describes one merge: inputs[0] comes from level, inputs[1] from
// level+1.
type Compaction struct {
	level  int
	inputs [2][]*sstable.Table
}

func (c *Compaction) Level() int { return c.level }

// Inputs returns the selected tables of level+which, which is 0 or 1.
func (c *Compaction) Inputs(which int) []*sstable.Table {
	return c.inputs[which]
}

// NumInputs returns the total number of input tables.
func (c *Compaction) NumInputs() int {
	return len(c.inputs[0]) + len(c.inputs[1])
}

// levelLimit is the most tables level may hold before it compacts.
func levelLimit(level int) int {
	return 1 << (level + 1)
}

// NeedsCompaction reports whether level holds more than 2^(level+1) tables.
func (vs *VersionSet) NeedsCompaction(level int) bool {
	return len(vs.Tables(level)) > levelLimit(level)
}

// PickCompaction selects the tables to push from level into level+1. Level 0
// gives up every table. Deeper levels keep their 2^level youngest tables,
// except that tables sharing the timestamp of the oldest kept table go along
// with it. Tables of level+1 overlapping any selected table join the merge.
func (vs *VersionSet) PickCompaction(level int) *Compaction {
	tables := vs.Tables(level)
	if len(tables) == 0 {
		return nil
	}
	c := &Compaction{level: level}
	if level == 0 {
		c.inputs[0] = append(c.inputs[0], tables...)
	} else {
		start := 1 << level
		if start >= len(tables) {
			return nil
		}
		ts := tables[start].Timestamp()
		for start > 0 && tables[start-1].Timestamp() == ts {
			start--
		}
		c.inputs[0] = append(c.inputs[0], tables[start:]...)
	}

	for _, t := range vs.Tables(level + 1) {
		for _, in := range c.inputs[0] {
			if t.Overlaps(in.MinKey(), in.MaxKey()) {
				c.inputs[1] = append(c.inputs[1], t)
				break
			}
		}
	}
	return c
}
