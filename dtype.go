package treecol

// DType tags the numeric type a decoded array carries.
type DType int

const (
	Bool DType = iota
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
)

// Size returns the number of bytes one value occupies, identical on disk
// and in a Flat result.
func (d DType) Size() int {
	switch d {
	case Bool, I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "invalid"
}
