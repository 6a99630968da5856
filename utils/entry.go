package utils

const (
	// value tags, stored as the first byte of every encoded value
	tagDeleted byte = 0
	tagPresent byte = 1
)

// Value is either a present string or a tombstone.
type Value struct {
	Data    string
	Deleted bool
}

// Present wraps s as a live value.
func Present(s string) Value {
	return Value{Data: s}
}

// Tombstone returns the deletion marker.
func Tombstone() Value {
	return Value{Deleted: true}
}

// EncodedLen is the number of bytes the value occupies in a table.
func (v Value) EncodedLen() int {
	return 1 + len(v.Data)
}

// Encode writes the tag byte and the value bytes into buf, which must hold EncodedLen bytes.
func (v Value) Encode(buf []byte) int {
	if v.Deleted {
		buf[0] = tagDeleted
		return 1
	}
	buf[0] = tagPresent
	return 1 + copy(buf[1:], v.Data)
}

// DecodeValue parses an encoded value. Deleted values carry no data.
func DecodeValue(buf []byte) (Value, error) {
	if len(buf) == 0 {
		return Value{}, ErrCorruptTable
	}
	switch buf[0] {
	case tagDeleted:
		return Tombstone(), nil
	case tagPresent:
		return Present(string(buf[1:])), nil
	}
	return Value{}, ErrCorruptTable
}

// Entry is one key with its value.
type Entry struct {
	Key   uint64
	Value Value
}

// EntrySize is the number of bytes an entry adds to a table: its index slot plus the encoded value.
func EntrySize(v Value) int64 {
	return IndexEntrySize + int64(v.EncodedLen())
}

// Iterator walks entries in ascending key order.
type Iterator interface {
	Valid() bool
	Next()
	Item() Entry
}

// SliceIterator iterates over an already sorted slice of entries.
type SliceIterator struct {
	entries []Entry
	pos     int
}

func NewSliceIterator(entries []Entry) *SliceIterator {
	return &SliceIterator{entries: entries}
}

func (it *SliceIterator) Valid() bool { return it.pos < len(it.entries) }
func (it *SliceIterator) Next()       { it.pos++ }
func (it *SliceIterator) Item() Entry { return it.entries[it.pos] }
