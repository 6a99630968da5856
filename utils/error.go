package utils

import "github.com/pkg/errors"

var (
	// ErrKeyNotFound is returned when a key is absent or has been deleted.
	ErrKeyNotFound = errors.New("key not found")
	// ErrValueTooLarge is returned when a single entry can never fit into one table.
	ErrValueTooLarge = errors.New("value too large for a table")
	// ErrTableMissing means a table referenced by the in-memory state is gone from disk.
	ErrTableMissing = errors.New("table file missing")
	// ErrCorruptTable is returned when a table file does not parse.
	ErrCorruptTable = errors.New("corrupt table file")
	// ErrBufferOverflow is returned by the coding cursor when a write or read
	// would cross the end of its buffer.
	ErrBufferOverflow = errors.New("buffer overflow")
	// ErrInvalidRange is returned by Scan when key1 > key2.
	ErrInvalidRange = errors.New("invalid key range")
	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("store closed")
)

// Panic 如果err 不为nil 则panic
func Panic(err error) {
	if err != nil {
		panic(err)
	}
}

// CondPanic panics with err when condition holds.
func CondPanic(condition bool, err error) {
	if condition {
		Panic(err)
	}
}
