// Package streamer implements the schema registry: parsing a file's
// embedded streamer-info records into versioned class descriptions and
// resolving classes by (name, version) with support for forward references
// between classes defined in the same record set.
//
// Streamer records are themselves serialized objects, so the parser here is
// the bootstrap: a small set of hand-written decoders for the streamer
// classes (TStreamerInfo, TStreamerElement and its subclasses, and the TList
// and TObjArray containers that hold them).  Everything else in the file is
// decoded generically, driven by the schemas this package produces.
package streamer

import "fmt"

// Kind tags one class member's on-disk encoding.  The values are the
// format's own type codes; an offset of ArrayMark added to a basic kind
// marks a fixed C array of that kind, and PointerMark marks a counted
// pointer.
type Kind int32

const (
	KindBase       Kind = 0
	KindChar       Kind = 1
	KindShort      Kind = 2
	KindInt        Kind = 3
	KindLong       Kind = 4
	KindFloat      Kind = 5
	KindCounter    Kind = 6
	KindCharStar   Kind = 7
	KindDouble     Kind = 8
	KindDouble32   Kind = 9
	KindLegacyChar Kind = 10
	KindUChar      Kind = 11
	KindUShort     Kind = 12
	KindUInt       Kind = 13
	KindULong      Kind = 14
	KindBits       Kind = 15
	KindLong64     Kind = 16
	KindULong64    Kind = 17
	KindBool       Kind = 18
	KindFloat16    Kind = 19
	KindObject     Kind = 61
	KindAny        Kind = 62
	KindObjectp    Kind = 63
	KindObjectP    Kind = 64
	KindTString    Kind = 65
	KindTObject    Kind = 66
	KindTNamed     Kind = 67
	KindSTLp       Kind = 71
	KindSTL        Kind = 300
	KindSTLstring  Kind = 365

	// ArrayMark and PointerMark offset the basic kinds.
	ArrayMark   Kind = 20
	PointerMark Kind = 40
)

// Basic reports whether k (after stripping an array mark) encodes a basic
// scalar, returning the underlying scalar kind.
func (k Kind) Basic() (Kind, bool) {
	if k > ArrayMark && k < PointerMark {
		k -= ArrayMark
	}
	switch k {
	case KindChar, KindShort, KindInt, KindLong, KindFloat, KindCounter,
		KindDouble, KindDouble32, KindLegacyChar, KindUChar, KindUShort,
		KindUInt, KindULong, KindBits, KindLong64, KindULong64, KindBool,
		KindFloat16:
		return k, true
	}
	return k, false
}

// IsArray reports whether k marks a fixed C array of a basic kind.
func (k Kind) IsArray() bool { return k > ArrayMark && k < PointerMark }

func (k Kind) String() string { return fmt.Sprintf("kind(%d)", int32(k)) }

// Element is one class member as described by a streamer record.
type Element struct {
	Name     string
	Title    string
	Kind     Kind
	Size     int32 // byte size of the member
	ArrayLen int32 // total fixed-array length, 0 when scalar
	TypeName string

	// ClassRef names the class an object, base, or container element
	// refers to.  The referenced class may be registered after this one;
	// resolution is deferred to the registry's link pass or, failing
	// that, to first use.
	ClassRef string

	// CountName names the counter member for counted-pointer elements.
	CountName string

	// BaseVersion is the base class version for base-class markers.
	BaseVersion int32

	// STLType and CType describe container elements: the container
	// family code and the contained basic kind.
	STLType int32
	CType   int32

	// classID is the arena id of the resolved ClassRef, or -1.
	classID int
}
