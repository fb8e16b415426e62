// Package rbuf implements the primitive codec layer: a cursor over a byte
// buffer that decodes the big-endian scalars, length-prefixed strings, and
// fixed arrays out of which every higher-level record in the format is built.
//
// All values on disk are big-endian regardless of host architecture.  Every
// read checks the remaining length and fails with ErrTruncated rather than
// panicking or returning partial data.
package rbuf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrTruncated = errors.New("truncated data")

// ByteCountMask marks a 4-byte object header word as a byte count rather
// than a bare version number.
const ByteCountMask = 0x40000000

// Cursor decodes values sequentially from a byte buffer.  The zero value is
// not usable; construct with New.  Cursors are cheap and copyable: a copy
// reads independently from the same underlying buffer.
type Cursor struct {
	buf []byte
	off int
}

func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewAt returns a cursor positioned at off.
func NewAt(buf []byte, off int) *Cursor {
	return &Cursor{buf: buf, off: off}
}

func (c *Cursor) Pos() int { return c.off }

func (c *Cursor) Len() int { return len(c.buf) - c.off }

// SeekTo moves the cursor to an absolute offset.  Seeking past the end is
// legal; the next read will fail with ErrTruncated.
func (c *Cursor) SeekTo(off int) { c.off = off }

func (c *Cursor) Skip(n int) error {
	if _, err := c.Bytes(n); err != nil {
		return err
	}
	return nil
}

// Bytes returns the next n bytes without copying.  The returned slice
// aliases the cursor's buffer and must not be modified.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.buf) {
		return nil, fmt.Errorf("%d bytes at offset %d exceeds buffer of %d: %w",
			n, c.off, len(c.buf), ErrTruncated)
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadU8()
	return v != 0, err
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	return math.Float32frombits(v), err
}

func (c *Cursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	return math.Float64frombits(v), err
}

// String reads a length-prefixed string: one length byte, or the 0xFF
// escape followed by a 4-byte length for strings of 255 bytes or more.
func (c *Cursor) String() (string, error) {
	n8, err := c.ReadU8()
	if err != nil {
		return "", err
	}
	n := int(n8)
	if n8 == 0xff {
		n32, err := c.ReadU32()
		if err != nil {
			return "", err
		}
		n = int(n32)
	}
	b, err := c.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CString reads a null-terminated string.
func (c *Cursor) CString() (string, error) {
	i := bytes.IndexByte(c.buf[c.off:], 0)
	if i < 0 {
		return "", fmt.Errorf("unterminated string at offset %d: %w", c.off, ErrTruncated)
	}
	b, _ := c.Bytes(i)
	c.off++ // the terminator
	return string(b), nil
}

// ByteCountVersion reads the header that precedes most serialized objects:
// a 4-byte word that, when its count bit is set, holds the number of bytes
// remaining in the object (exclusive of the word itself) followed by a
// 2-byte version; without the bit, the 2-byte version stands alone and the
// returned count is -1.
func (c *Cursor) ByteCountVersion() (count int, version uint16, err error) {
	save := c.off
	word, err := c.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	if word&ByteCountMask == 0 {
		c.off = save
		v, err := c.ReadU16()
		return -1, v, err
	}
	v, err := c.ReadU16()
	if err != nil {
		return 0, 0, err
	}
	return int(word &^ ByteCountMask), v, nil
}

// CheckByteCount verifies that the bytes consumed since start match the
// declared object byte count (a count of -1 means the header carried none).
func (c *Cursor) CheckByteCount(start, count int, class string) error {
	if count < 0 {
		return nil
	}
	// The count excludes the 4-byte count word itself.
	if got := c.off - start - 4; got != count {
		return fmt.Errorf("class %s: read %d bytes, header declared %d", class, got, count)
	}
	return nil
}
