package rbuf

import (
	"encoding/binary"
	"math"
)

// Builder appends big-endian values to a growing buffer.  It is the write
// side of Cursor and exists for the basket writer and for synthesizing
// schema records in tests.
type Builder struct {
	buf []byte
}

func (b *Builder) Bytes() []byte { return b.buf }

func (b *Builder) Len() int { return len(b.buf) }

func (b *Builder) AppendBytes(p []byte) { b.buf = append(b.buf, p...) }

func (b *Builder) AppendU8(v uint8) { b.buf = append(b.buf, v) }

func (b *Builder) AppendBool(v bool) {
	if v {
		b.AppendU8(1)
	} else {
		b.AppendU8(0)
	}
}

func (b *Builder) AppendI8(v int8) { b.AppendU8(uint8(v)) }

func (b *Builder) AppendU16(v uint16) {
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
}

func (b *Builder) AppendI16(v int16) { b.AppendU16(uint16(v)) }

func (b *Builder) AppendU32(v uint32) {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
}

func (b *Builder) AppendI32(v int32) { b.AppendU32(uint32(v)) }

func (b *Builder) AppendU64(v uint64) {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
}

func (b *Builder) AppendI64(v int64) { b.AppendU64(uint64(v)) }

func (b *Builder) AppendF32(v float32) { b.AppendU32(math.Float32bits(v)) }

func (b *Builder) AppendF64(v float64) { b.AppendU64(math.Float64bits(v)) }

// AppendString writes a length-prefixed string using the 0xFF escape for
// strings of 255 bytes or more.
func (b *Builder) AppendString(s string) {
	if len(s) >= 0xff {
		b.AppendU8(0xff)
		b.AppendU32(uint32(len(s)))
	} else {
		b.AppendU8(uint8(len(s)))
	}
	b.buf = append(b.buf, s...)
}

// BeginByteCount reserves a byte-count+version header and returns a mark to
// pass to EndByteCount once the object body is complete.
func (b *Builder) BeginByteCount(version uint16) int {
	mark := len(b.buf)
	b.AppendU32(0)
	b.AppendU16(version)
	return mark
}

// EndByteCount back-patches the count word reserved at mark with the number
// of bytes appended since, setting the count bit.
func (b *Builder) EndByteCount(mark int) {
	count := uint32(len(b.buf)-mark-4) | ByteCountMask
	binary.BigEndian.PutUint32(b.buf[mark:], count)
}

// AppendTObject writes a minimal serialized base-object header matching
// what Cursor.SkipTObject consumes.
func (b *Builder) AppendTObject() {
	b.AppendU16(1) // version
	b.AppendU32(0) // fUniqueID
	b.AppendU32(0) // fBits
}

// AppendNameTitle writes a named-object header readable by Cursor.NameTitle.
func (b *Builder) AppendNameTitle(name, title string) {
	mark := b.BeginByteCount(1)
	b.AppendTObject()
	b.AppendString(name)
	b.AppendString(title)
	b.EndByteCount(mark)
}
