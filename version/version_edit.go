package version

import "lsmkv/sstable"

// VersionEdit is a batch of table additions and removals applied together by
// VersionSet.LogAndApply.
type VersionEdit struct {
	deletes []*TableMeta
	adds    []*TableMeta
}

type TableMeta struct {
	table *sstable.Table
	level int
}

func NewVersionEdit() *VersionEdit {
	return &VersionEdit{
		deletes: make([]*TableMeta, 0),
		adds:    make([]*TableMeta, 0),
	}
}

func (ve *VersionEdit) RecordAddTable(level int, t *sstable.Table) {
	ve.adds = append(ve.adds, &TableMeta{table: t, level: level})
}

func (ve *VersionEdit) RecordDeleteTable(level int, t *sstable.Table) {
	ve.deletes = append(ve.deletes, &TableMeta{table: t, level: level})
}

func (ve *VersionEdit) AddTables(level int, tables []*sstable.Table) {
	for _, t := range tables {
		ve.RecordAddTable(level, t)
	}
}

func (ve *VersionEdit) DeleteTables(level int, tables []*sstable.Table) {
	for _, t := range tables {
		ve.RecordDeleteTable(level, t)
	}
}
