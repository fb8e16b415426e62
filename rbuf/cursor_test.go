package rbuf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalars(t *testing.T) {
	var b Builder
	b.AppendBool(true)
	b.AppendI8(-5)
	b.AppendI16(-12345)
	b.AppendU16(54321)
	b.AppendI32(-7)
	b.AppendU32(0xdeadbeef)
	b.AppendI64(-1 << 40)
	b.AppendU64(1 << 60)
	b.AppendF32(3.5)
	b.AppendF64(math.Pi)

	c := New(b.Bytes())
	v1, err := c.ReadBool()
	require.NoError(t, err)
	assert.True(t, v1)
	v2, err := c.ReadI8()
	require.NoError(t, err)
	assert.Equal(t, int8(-5), v2)
	v3, err := c.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-12345), v3)
	v4, err := c.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(54321), v4)
	v5, err := c.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), v5)
	v6, err := c.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v6)
	v7, err := c.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<40), v7)
	v8, err := c.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<60), v8)
	v9, err := c.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), v9)
	v10, err := c.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, math.Pi, v10)
	assert.Equal(t, 0, c.Len())
}

func TestBigEndianLayout(t *testing.T) {
	var b Builder
	b.AppendU32(0x01020304)
	require.Equal(t, []byte{1, 2, 3, 4}, b.Bytes())
}

func TestTruncated(t *testing.T) {
	c := New([]byte{1, 2, 3})
	_, err := c.ReadU32()
	require.ErrorIs(t, err, ErrTruncated)

	c = New([]byte{1, 2, 3})
	_, err = c.ReadI32Array(1)
	require.ErrorIs(t, err, ErrTruncated)

	// A short string length prefix promising more than the buffer holds.
	c = New([]byte{10, 'a', 'b'})
	_, err = c.String()
	require.ErrorIs(t, err, ErrTruncated)

	c = New([]byte{'a', 'b', 'c'})
	_, err = c.CString()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestStrings(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	var b Builder
	b.AppendString("hello")
	b.AppendString("")
	b.AppendString(string(long))

	c := New(b.Bytes())
	s, err := c.String()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	s, err = c.String()
	require.NoError(t, err)
	assert.Equal(t, "", s)
	s, err = c.String()
	require.NoError(t, err)
	assert.Equal(t, string(long), s)
}

func TestCString(t *testing.T) {
	c := New([]byte("abc\x00def\x00"))
	s, err := c.CString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	s, err = c.CString()
	require.NoError(t, err)
	assert.Equal(t, "def", s)
}

func TestByteCountVersion(t *testing.T) {
	var b Builder
	mark := b.BeginByteCount(3)
	b.AppendI32(99)
	b.EndByteCount(mark)

	c := New(b.Bytes())
	start := c.Pos()
	count, version, err := c.ByteCountVersion()
	require.NoError(t, err)
	assert.Equal(t, uint16(3), version)
	assert.Equal(t, 6, count) // version word plus payload
	_, err = c.ReadI32()
	require.NoError(t, err)
	require.NoError(t, c.CheckByteCount(start, count, "test"))

	// A bare version with no count bit.
	var b2 Builder
	b2.AppendU16(7)
	b2.AppendU32(0)
	c = New(b2.Bytes())
	count, version, err = c.ByteCountVersion()
	require.NoError(t, err)
	assert.Equal(t, -1, count)
	assert.Equal(t, uint16(7), version)
}

func TestNameTitleRoundTrip(t *testing.T) {
	var b Builder
	b.AppendNameTitle("Events", "physics events")
	c := New(b.Bytes())
	name, title, err := c.NameTitle()
	require.NoError(t, err)
	assert.Equal(t, "Events", name)
	assert.Equal(t, "physics events", title)
	assert.Equal(t, 0, c.Len())
}

func TestArrays(t *testing.T) {
	var b Builder
	for i := 0; i < 4; i++ {
		b.AppendF64(float64(i) / 2)
	}
	c := New(b.Bytes())
	vals, err := c.ReadF64Array(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, vals)
}
