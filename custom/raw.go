package custom

import (
	"fmt"

	"github.com/treecol/treecol"
)

// RawNested is the intermediate representation handlers hand back from
// Decode: the same content/offsets shape the engine's own accumulators
// use, so downstream reconstruction and concatenation are uniform.  A node
// is exactly one of: a leaf of big-endian Content bytes, a Strings leaf,
// or a group of named Kids; Offsets, when present, bracket the node's
// per-entry elements.
type RawNested struct {
	Of      treecol.DType
	Content []byte
	Strings []string
	Offsets []int64
	Names   []string
	Kids    []*RawNested
}

// Result reconstructs the node into the engine's result form.  Handlers
// whose Reconstruct has nothing custom to do can delegate to it.
func (r *RawNested) Result() (treecol.Result, error) {
	inner, err := r.flatResult()
	if err != nil {
		return nil, err
	}
	if r.Offsets != nil {
		return &treecol.JaggedArray{Offsets: r.Offsets, Content: inner}, nil
	}
	return inner, nil
}

func (r *RawNested) flatResult() (treecol.Result, error) {
	switch {
	case len(r.Kids) > 0:
		g := &treecol.Group{Names: r.Names}
		if len(r.Names) != len(r.Kids) {
			return nil, fmt.Errorf("%d names for %d nested members", len(r.Names), len(r.Kids))
		}
		for _, kid := range r.Kids {
			sub, err := kid.Result()
			if err != nil {
				return nil, err
			}
			g.Elems = append(g.Elems, sub)
		}
		return g, nil
	case r.Strings != nil:
		return &treecol.StringArray{Values: r.Strings}, nil
	default:
		return treecol.NewFlat(r.Of, r.Content), nil
	}
}
