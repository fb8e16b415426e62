package treecol

import (
	"encoding/binary"
	"fmt"

	"github.com/treecol/treecol/rbuf"
)

// Result is a decoded column: a flat typed array, a jagged content/offsets
// pair, or a group of named sub-results.  Results are created fresh per
// read and owned by the caller.
type Result interface {
	// Entries returns the number of entries the result spans.
	Entries() int
}

// Flat is a contiguous array of fixed-size elements.  The bytes are kept in
// their on-disk big-endian layout; the typed accessors materialize native
// slices in one pass.
type Flat struct {
	Of  DType
	Raw []byte
}

func NewFlat(of DType, raw []byte) *Flat {
	return &Flat{Of: of, Raw: raw}
}

func (f *Flat) Entries() int { return len(f.Raw) / f.Of.Size() }

func (f *Flat) Bools() []bool {
	out := make([]bool, len(f.Raw))
	for i, b := range f.Raw {
		out[i] = b != 0
	}
	return out
}

func (f *Flat) Int8s() []int8 {
	v, _ := rbuf.New(f.Raw).ReadI8Array(f.Entries())
	return v
}

func (f *Flat) Uint8s() []uint8 {
	v, _ := rbuf.New(f.Raw).ReadU8Array(f.Entries())
	return v
}

func (f *Flat) Int16s() []int16 {
	v, _ := rbuf.New(f.Raw).ReadI16Array(f.Entries())
	return v
}

func (f *Flat) Uint16s() []uint16 {
	out := make([]uint16, f.Entries())
	for i := range out {
		out[i] = binary.BigEndian.Uint16(f.Raw[i*2:])
	}
	return out
}

func (f *Flat) Uint32s() []uint32 {
	out := make([]uint32, f.Entries())
	for i := range out {
		out[i] = binary.BigEndian.Uint32(f.Raw[i*4:])
	}
	return out
}

func (f *Flat) Uint64s() []uint64 {
	out := make([]uint64, f.Entries())
	for i := range out {
		out[i] = binary.BigEndian.Uint64(f.Raw[i*8:])
	}
	return out
}

func (f *Flat) Int32s() []int32 {
	v, _ := rbuf.New(f.Raw).ReadI32Array(f.Entries())
	return v
}

func (f *Flat) Int64s() []int64 {
	v, _ := rbuf.New(f.Raw).ReadI64Array(f.Entries())
	return v
}

func (f *Flat) Float32s() []float32 {
	v, _ := rbuf.New(f.Raw).ReadF32Array(f.Entries())
	return v
}

func (f *Flat) Float64s() []float64 {
	v, _ := rbuf.New(f.Raw).ReadF64Array(f.Entries())
	return v
}

// JaggedArray is a variable-length column: Content holds every element of
// every entry and Offsets brackets each entry's elements.  Offsets has
// Entries()+1 values, starts at zero, and is non-decreasing; entry i's
// element count is Offsets[i+1]-Offsets[i].  Content is usually a *Flat;
// for nested containers it is itself a *JaggedArray, with each level's
// offsets bracketing elements of the level below.
type JaggedArray struct {
	Offsets []int64
	Content Result
}

func (j *JaggedArray) Entries() int { return len(j.Offsets) - 1 }

// Flat returns the content as a flat array, which it is for all
// non-nested jagged columns.
func (j *JaggedArray) Flat() (*Flat, error) {
	f, ok := j.Content.(*Flat)
	if !ok {
		return nil, fmt.Errorf("jagged content is %T, not flat", j.Content)
	}
	return f, nil
}

// Counts returns the per-entry element counts.
func (j *JaggedArray) Counts() []int64 {
	out := make([]int64, j.Entries())
	for i := range out {
		out[i] = j.Offsets[i+1] - j.Offsets[i]
	}
	return out
}

// StringArray is a decoded string column.
type StringArray struct {
	Values []string
}

func (s *StringArray) Entries() int { return len(s.Values) }

// Group holds one result per named member, in declared member order.
type Group struct {
	Names []string
	Elems []Result
}

func (g *Group) Entries() int {
	if len(g.Elems) == 0 {
		return 0
	}
	return g.Elems[0].Entries()
}

// Elem returns the member result with the given name.
func (g *Group) Elem(name string) (Result, error) {
	for i, n := range g.Names {
		if n == name {
			return g.Elems[i], nil
		}
	}
	return nil, fmt.Errorf("group has no member %q", name)
}
