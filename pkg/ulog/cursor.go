package ulog

import (
	"bytes"
	"encoding/binary"
)

// cursor walks an immutable byte slice. base is the absolute offset of buf[0]
// in the decoded input so errors can point into the original file.
type cursor struct {
	buf  []byte
	pos  int
	base int64
}

func newCursor(buf []byte, base int64) *cursor {
	return &cursor{buf: buf, base: base}
}

func (c *cursor) offset() int64 {
	return c.base + int64(c.pos)
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return newError(c.offset(), ErrTruncatedInput, "need %d bytes, have %d", n, c.remaining())
	}
	return nil
}

// rewind returns to the start of the buffer. Only header validation uses it.
func (c *cursor) rewind() {
	c.pos = 0
}

func (c *cursor) readU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) readU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) readU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) readU64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// readBytes returns a view into the underlying buffer, not a copy.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

// readCString consumes exactly maxLen bytes and returns the text up to the
// first NUL, or all of it when no NUL is present.
func (c *cursor) readCString(maxLen int) (string, error) {
	raw, err := c.readBytes(maxLen)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

// rest consumes everything that is left.
func (c *cursor) rest() []byte {
	v := c.buf[c.pos:]
	c.pos = len(c.buf)
	return v
}
