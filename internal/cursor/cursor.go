// Package cursor provides a bounds-checked reader over a byte slice. Every
// binary parser in the pipeline (TS, PES, NAL) reads through a Cursor so that
// malformed lengths can never index past the end of a buffer.
package cursor

import "errors"

// ErrShortBuffer is returned when a read or skip would run past the end of
// the underlying slice. The cursor position is unchanged on error.
var ErrShortBuffer = errors.New("cursor: short buffer")

// Cursor is a forward-only position within a byte slice. The zero value is an
// empty cursor. Cursor never copies or owns the slice it reads.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current offset from the start of the buffer.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// U8 reads one byte.
func (c *Cursor) U8() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// U16 reads a big-endian 16-bit value.
func (c *Cursor) U16() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, ErrShortBuffer
	}
	v := uint16(c.buf[c.pos])<<8 | uint16(c.buf[c.pos+1])
	c.pos += 2
	return v, nil
}

// U32 reads a big-endian 32-bit value.
func (c *Cursor) U32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := uint32(c.buf[c.pos])<<24 | uint32(c.buf[c.pos+1])<<16 |
		uint32(c.buf[c.pos+2])<<8 | uint32(c.buf[c.pos+3])
	c.pos += 4
	return v, nil
}

// Peek returns the byte at offset from the current position without
// advancing.
func (c *Cursor) Peek(offset int) (byte, error) {
	if offset < 0 || c.pos+offset >= len(c.buf) {
		return 0, ErrShortBuffer
	}
	return c.buf[c.pos+offset], nil
}

// Skip advances the cursor n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 || c.Remaining() < n {
		return ErrShortBuffer
	}
	c.pos += n
	return nil
}

// Bytes returns a view of the next n bytes and advances past them. The
// returned slice aliases the underlying buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Rest returns a view of all unread bytes and advances to the end.
func (c *Cursor) Rest() []byte {
	b := c.buf[c.pos:]
	c.pos = len(c.buf)
	return b
}
