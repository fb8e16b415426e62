package column

import (
	"fmt"

	"github.com/treecol/treecol"
)

// concatResults joins per-basket results into one, preserving entry order.
// All parts have the same shape since they decode the same interpretation.
func concatResults(parts []treecol.Result) (treecol.Result, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}
	switch first := parts[0].(type) {
	case *treecol.Flat:
		var raw []byte
		for _, p := range parts {
			f, ok := p.(*treecol.Flat)
			if !ok {
				return nil, shapeMismatch(first, p)
			}
			raw = append(raw, f.Raw...)
		}
		return treecol.NewFlat(first.Of, raw), nil
	case *treecol.StringArray:
		var vals []string
		for _, p := range parts {
			s, ok := p.(*treecol.StringArray)
			if !ok {
				return nil, shapeMismatch(first, p)
			}
			vals = append(vals, s.Values...)
		}
		return &treecol.StringArray{Values: vals}, nil
	case *treecol.JaggedArray:
		offsets := []int64{0}
		contents := make([]treecol.Result, len(parts))
		for i, p := range parts {
			j, ok := p.(*treecol.JaggedArray)
			if !ok {
				return nil, shapeMismatch(first, p)
			}
			base := offsets[len(offsets)-1]
			for _, off := range j.Offsets[1:] {
				offsets = append(offsets, base+off)
			}
			contents[i] = j.Content
		}
		content, err := concatResults(contents)
		if err != nil {
			return nil, err
		}
		return &treecol.JaggedArray{Offsets: offsets, Content: content}, nil
	case *treecol.Group:
		out := &treecol.Group{Names: first.Names}
		for e := range first.Elems {
			elems := make([]treecol.Result, len(parts))
			for i, p := range parts {
				g, ok := p.(*treecol.Group)
				if !ok {
					return nil, shapeMismatch(first, p)
				}
				elems[i] = g.Elems[e]
			}
			sub, err := concatResults(elems)
			if err != nil {
				return nil, err
			}
			out.Elems = append(out.Elems, sub)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot assemble %T results", parts[0])
}

func shapeMismatch(want, got treecol.Result) error {
	return fmt.Errorf("basket results disagree on shape: %T vs %T", want, got)
}
