package utils

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Cursor reads and writes fixed width little-endian fields over a buffer of
// declared length. Every access is bounds checked and advances the offset by the
// width of the field.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current position.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of bytes left after the current position.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

func (c *Cursor) reserve(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, errors.Wrapf(ErrBufferOverflow, "need %d bytes at %d, len %d", n, c.off, len(c.buf))
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) PutUint64(v uint64) error {
	b, err := c.reserve(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (c *Cursor) PutUint32(v uint32) error {
	b, err := c.reserve(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (c *Cursor) PutBytes(data []byte) error {
	b, err := c.reserve(len(data))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// PutValue writes the tag byte followed by the value bytes.
func (c *Cursor) PutValue(v Value) error {
	b, err := c.reserve(v.EncodedLen())
	if err != nil {
		return err
	}
	v.Encode(b)
	return nil
}

func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.reserve(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.reserve(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.reserve(n)
}
