package rplan

import "github.com/treecol/treecol"

// builtinPlans is the hand-written plan table for well-known framework
// classes.  It is consulted before the generic streamer-driven path and
// always wins over it: these plans encode layout quirks (headerless
// strings and arrays) that the generic path does not know about.
var builtinPlans = map[string]func() *Plan{
	"TObject": func() *Plan {
		return &Plan{Class: "TObject", Steps: []Step{&SkipBase{}}}
	},
	"TNamed": func() *Plan {
		return &Plan{
			Class:     "TNamed",
			HasHeader: true,
			Steps: []Step{
				&SkipBase{},
				&ReadString{Field: "fName"},
				&ReadString{Field: "fTitle"},
			},
		}
	},
	// TString instances are bare length-prefixed strings with no object
	// header.
	"TString": func() *Plan {
		return &Plan{Class: "TString", Steps: []Step{&ReadString{Field: "fString"}}}
	},
	// The TArray classes are a 4-byte count followed by the elements,
	// also headerless.
	"TArrayC": arrayPlan("TArrayC", treecol.I8),
	"TArrayS": arrayPlan("TArrayS", treecol.I16),
	"TArrayI": arrayPlan("TArrayI", treecol.I32),
	"TArrayL": arrayPlan("TArrayL", treecol.I64),
	"TArrayF": arrayPlan("TArrayF", treecol.F32),
	"TArrayD": arrayPlan("TArrayD", treecol.F64),
}

func arrayPlan(class string, of treecol.DType) func() *Plan {
	return func() *Plan {
		return &Plan{
			Class: class,
			Steps: []Step{&ReadCountedArray{Field: "fArray", Of: of}},
		}
	}
}
