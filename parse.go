package treecol

import (
	"fmt"
	"strconv"
	"strings"
)

// ROOT's typedef aliases for the portable primitive names.
var canonicalNames = map[string]string{
	"Bool_t":     "bool",
	"Char_t":     "char",
	"UChar_t":    "unsigned char",
	"Byte_t":     "unsigned char",
	"Short_t":    "short",
	"UShort_t":   "unsigned short",
	"Int_t":      "int",
	"UInt_t":     "unsigned int",
	"Seek_t":     "int",
	"Ssiz_t":     "int",
	"Long_t":     "long",
	"ULong_t":    "unsigned long",
	"Long64_t":   "long long",
	"ULong64_t":  "unsigned long long",
	"Float_t":    "float",
	"Float16_t":  "float",
	"Double_t":   "double",
	"Double32_t": "double",
	"Version_t":  "short",
}

var primitiveNames = map[string]DType{
	"bool":               Bool,
	"char":               I8,
	"signed char":        I8,
	"int8_t":             I8,
	"unsigned char":      U8,
	"uint8_t":            U8,
	"short":              I16,
	"int16_t":            I16,
	"unsigned short":     U16,
	"uint16_t":           U16,
	"int":                I32,
	"int32_t":            I32,
	"unsigned int":       U32,
	"uint32_t":           U32,
	"long":               I64,
	"long long":          I64,
	"int64_t":            I64,
	"unsigned long":      U64,
	"unsigned long long": U64,
	"uint64_t":           U64,
	"float":              F32,
	"double":             F64,
}

// Parse infers an interpretation from a C++-style type name, e.g.
// "std::vector<std::vector<int32_t>>", "float[3]", or "MyClass".  Bare
// class names parse to Named; the class model resolver expands them
// against the schema registry.  Unparseable or pointer-typed names fail
// with ErrUnsupportedType naming the raw string.
func Parse(name string) (Interp, error) {
	in, err := parseType(name)
	if err != nil {
		return nil, fmt.Errorf("type name %q: %w", name, err)
	}
	return in, nil
}

func parseType(s string) (Interp, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "const ")
	if s == "" {
		return nil, ErrUnsupportedType
	}
	if canonical, ok := canonicalNames[s]; ok {
		s = canonical
	}
	if i := arrayStart(s); i >= 0 {
		return parseArray(s, i)
	}
	if strings.HasSuffix(s, "*") {
		return nil, fmt.Errorf("pointer member: %w", ErrUnsupportedType)
	}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return parseTemplate(s, i)
	}
	switch s {
	case "string", "std::string":
		return &STL{Kind: STLString}, nil
	case "TString":
		return &Strings{Scheme: PrefixByte}, nil
	}
	if dtype, ok := primitiveNames[s]; ok {
		return &Numeric{Of: dtype}, nil
	}
	if !isIdentifier(s) {
		return nil, ErrUnsupportedType
	}
	return &Named{Class: s}, nil
}

// arrayStart returns the index of the first '[' belonging to a trailing
// array-suffix run, or -1.
func arrayStart(s string) int {
	if !strings.HasSuffix(s, "]") {
		return -1
	}
	return strings.IndexByte(s, '[')
}

func parseArray(s string, open int) (Interp, error) {
	inner, err := parseType(s[:open])
	if err != nil {
		return nil, err
	}
	var dims []int
	for rest := s[open:]; rest != ""; {
		if rest[0] != '[' {
			return nil, ErrUnsupportedType
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, ErrUnsupportedType
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return nil, ErrUnsupportedType
		}
		dims = append(dims, n)
		rest = rest[end+1:]
	}
	// C layout: the outermost dimension is leftmost, so wrap inside out.
	for i := len(dims) - 1; i >= 0; i-- {
		inner = &FixedArray{Inner: inner, N: dims[i]}
	}
	return inner, nil
}

func parseTemplate(s string, open int) (Interp, error) {
	if !strings.HasSuffix(s, ">") {
		return nil, ErrUnsupportedType
	}
	head := strings.TrimPrefix(s[:open], "std::")
	args, err := splitArgs(s[open+1 : len(s)-1])
	if err != nil || len(args) == 0 {
		return nil, ErrUnsupportedType
	}
	first, err := parseType(args[0])
	if err != nil {
		return nil, err
	}
	switch head {
	case "vector", "list", "deque":
		return &STL{Kind: STLVector, Key: first}, nil
	case "set", "multiset", "unordered_set":
		return &STL{Kind: STLSet, Key: first}, nil
	case "map", "multimap", "unordered_map":
		if len(args) < 2 {
			return nil, ErrUnsupportedType
		}
		val, err := parseType(args[1])
		if err != nil {
			return nil, err
		}
		return &STL{Kind: STLMap, Key: first, Val: val}, nil
	}
	return nil, fmt.Errorf("template %q: %w", head, ErrUnsupportedType)
}

// splitArgs splits a template argument list on the commas at angle-bracket
// depth zero.  Allocator and comparator arguments beyond the first two are
// preserved here and ignored by the callers that do not need them.
func splitArgs(s string) ([]string, error) {
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, ErrUnsupportedType
			}
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, ErrUnsupportedType
	}
	return append(args, s[start:]), nil
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
		case c >= '0' && c <= '9' && i > 0:
		case c == ':' && i > 0 && i+1 < len(s) && s[i+1] == ':':
			i++ // namespace separator
		default:
			return false
		}
	}
	return true
}
