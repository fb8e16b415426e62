package rbuf

import (
	"encoding/binary"
	"math"
)

// Fixed-array reads decode n big-endian elements into a freshly allocated
// slice.  They fail with ErrTruncated before allocating when the buffer
// cannot hold n elements.

func (c *Cursor) ReadI8Array(n int) ([]int8, error) {
	b, err := c.Bytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(b[i])
	}
	return out, nil
}

func (c *Cursor) ReadU8Array(n int) ([]uint8, error) {
	b, err := c.Bytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	copy(out, b)
	return out, nil
}

func (c *Cursor) ReadI16Array(n int) ([]int16, error) {
	b, err := c.Bytes(2 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(b[2*i:]))
	}
	return out, nil
}

func (c *Cursor) ReadI32Array(n int) ([]int32, error) {
	b, err := c.Bytes(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func (c *Cursor) ReadI64Array(n int) ([]int64, error) {
	b, err := c.Bytes(8 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func (c *Cursor) ReadF32Array(n int) ([]float32, error) {
	b, err := c.Bytes(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func (c *Cursor) ReadF64Array(n int) ([]float64, error) {
	b, err := c.Bytes(8 * n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
	}
	return out, nil
}
