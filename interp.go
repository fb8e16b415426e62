// Package treecol defines the interpretation type algebra: the composable
// descriptors that say how one column's bytes decode into arrays, the
// parser that infers a descriptor from a C++ type name, and the decoded
// result shapes the engine produces.
//
// An interpretation is a tree.  Leaves are Numeric and Strings; FixedArray,
// Jagged, STL, and Grouped compose them.  Named is an unresolved reference
// to a class whose layout comes from the schema registry; the class model
// resolver (package rplan) expands it into Grouped.
package treecol

import (
	"fmt"
	"strings"
)

// Interp describes how one column's on-disk bytes decode.
type Interp interface {
	// ItemSize returns the fixed number of payload bytes one entry
	// occupies, or 0 when entries are variable-length.
	ItemSize() int
	String() string
}

// OffsetScheme selects how a jagged basket records its per-entry byte
// offsets.  It is a property of the file, read once from the file's
// format-version marker and threaded explicitly through the engine.
type OffsetScheme int

const (
	// TrailingOffsets appends the offset table to the basket payload
	// after the data border (the modern layout).
	TrailingOffsets OffsetScheme = iota
	// SeparateOffsets stores the offset table apart from the payload
	// (the legacy layout).
	SeparateOffsets
)

// Numeric decodes fixed-width big-endian scalars.
type Numeric struct {
	Of DType
}

func (n *Numeric) ItemSize() int  { return n.Of.Size() }
func (n *Numeric) String() string { return n.Of.String() }

// FixedArray decodes a C-style array of a compile-time-fixed length.
type FixedArray struct {
	Inner Interp
	N     int
}

func (f *FixedArray) ItemSize() int {
	if inner := f.Inner.ItemSize(); inner > 0 {
		return inner * f.N
	}
	return 0
}

func (f *FixedArray) String() string { return fmt.Sprintf("%s[%d]", f.Inner, f.N) }

// Jagged decodes a variable number of elements per entry using the
// basket's per-entry byte offsets.  Header is the number of bytes to skip
// at the start of each entry before the elements begin.
type Jagged struct {
	Inner  Interp
	Header int
}

func (*Jagged) ItemSize() int    { return 0 }
func (j *Jagged) String() string { return fmt.Sprintf("jagged<%s>", j.Inner) }

// STLKind distinguishes the supported standard container families.
type STLKind int

const (
	STLVector STLKind = iota
	STLSet
	STLMap
	STLString
)

func (k STLKind) String() string {
	switch k {
	case STLVector:
		return "vector"
	case STLSet:
		return "set"
	case STLMap:
		return "map"
	case STLString:
		return "string"
	}
	return "invalid"
}

// STL decodes a standard container serialized with a leading element
// count.  Map containers carry both Key and Val; the others use Key only.
type STL struct {
	Kind STLKind
	Key  Interp
	Val  Interp
}

func (*STL) ItemSize() int { return 0 }

func (s *STL) String() string {
	switch s.Kind {
	case STLMap:
		return fmt.Sprintf("map<%s, %s>", s.Key, s.Val)
	case STLString:
		return "string"
	default:
		return fmt.Sprintf("%s<%s>", s.Kind, s.Key)
	}
}

// StringScheme selects the length-prefix convention for decoded strings.
type StringScheme int

const (
	// PrefixByte is a single length byte with the 0xFF long-string escape.
	PrefixByte StringScheme = iota
	// PrefixU32 is a 4-byte big-endian length.
	PrefixU32
	// NullTerminated has no length prefix.
	NullTerminated
)

// Strings decodes one character string per entry.
type Strings struct {
	Scheme StringScheme
}

func (*Strings) ItemSize() int  { return 0 }
func (*Strings) String() string { return "strings" }

// Field is one named member of a Grouped interpretation.
type Field struct {
	Name string
	Of   Interp
}

// Grouped decodes a record of named sub-interpretations in declared member
// order.
type Grouped struct {
	Class  string
	Fields []Field
}

func (g *Grouped) ItemSize() int {
	var size int
	for _, f := range g.Fields {
		inner := f.Of.ItemSize()
		if inner == 0 {
			return 0
		}
		size += inner
	}
	return size
}

func (g *Grouped) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, f := range g.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Of)
	}
	b.WriteString("}")
	return b.String()
}

// Named is an unresolved reference to a class by name.  The class model
// resolver expands it against the schema registry.
type Named struct {
	Class string
}

func (*Named) ItemSize() int    { return 0 }
func (n *Named) String() string { return n.Class }

// RawBytes is the fallback interpretation: each entry's bytes are passed
// through unexamined.
type RawBytes struct{}

func (*RawBytes) ItemSize() int  { return 0 }
func (*RawBytes) String() string { return "bytes" }

// OutputDType reports the numeric type an interpretation's flat content
// carries, when it has one.  Grouped interpretations do not: each of their
// fields reports its own.
func OutputDType(in Interp) (DType, bool) {
	switch in := in.(type) {
	case *Numeric:
		return in.Of, true
	case *FixedArray:
		return OutputDType(in.Inner)
	case *Jagged:
		return OutputDType(in.Inner)
	case *STL:
		if in.Kind == STLString {
			return U8, true
		}
		return OutputDType(in.Key)
	case *Strings, *RawBytes:
		return U8, true
	}
	return 0, false
}

// ElementsPerEntry reports the fixed number of basic elements one entry
// produces, or -1 when the count varies per entry and requires the
// basket's offsets to determine.
func ElementsPerEntry(in Interp) int {
	switch in := in.(type) {
	case *Numeric:
		return 1
	case *FixedArray:
		if inner := ElementsPerEntry(in.Inner); inner >= 0 {
			return inner * in.N
		}
		return -1
	}
	return -1
}

// ElementCount reports the total number of basic elements a fixed-size
// interpretation produces over entries entries, or -1 when variable.
// Callers use it to preallocate and to predict output shape without
// decoding.
func ElementCount(in Interp, entries int) int {
	per := ElementsPerEntry(in)
	if per < 0 {
		return -1
	}
	return per * entries
}
