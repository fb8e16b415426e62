package rplan

import (
	"fmt"

	"github.com/treecol/treecol"
)

// Interp infers the interpretation for a column's declared type name,
// expanding bare class references into Grouped through the registry.  The
// specialized built-in plans win over the generic streamer path, matching
// Plan's preference order.
func (r *Resolver) Interp(typeName string) (treecol.Interp, error) {
	in, err := treecol.Parse(typeName)
	if err != nil {
		return nil, err
	}
	return r.Expand(in)
}

// Expand replaces every Named reference inside an interpretation with the
// Grouped layout of the referenced class.
func (r *Resolver) Expand(in treecol.Interp) (treecol.Interp, error) {
	return r.expand(in, make(map[planKey]bool))
}

func (r *Resolver) expand(in treecol.Interp, inProgress map[planKey]bool) (treecol.Interp, error) {
	switch in := in.(type) {
	case *treecol.Named:
		plan, err := r.plan(in.Class, -1, inProgress)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", in.Class, err)
		}
		return PlanInterp(plan), nil
	case *treecol.FixedArray:
		inner, err := r.expand(in.Inner, inProgress)
		if err != nil {
			return nil, err
		}
		return &treecol.FixedArray{Inner: inner, N: in.N}, nil
	case *treecol.Jagged:
		inner, err := r.expand(in.Inner, inProgress)
		if err != nil {
			return nil, err
		}
		return &treecol.Jagged{Inner: inner, Header: in.Header}, nil
	case *treecol.STL:
		out := &treecol.STL{Kind: in.Kind}
		var err error
		if in.Key != nil {
			if out.Key, err = r.expand(in.Key, inProgress); err != nil {
				return nil, err
			}
		}
		if in.Val != nil {
			if out.Val, err = r.expand(in.Val, inProgress); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *treecol.Grouped:
		out := &treecol.Grouped{Class: in.Class}
		for _, f := range in.Fields {
			inner, err := r.expand(f.Of, inProgress)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, treecol.Field{Name: f.Name, Of: inner})
		}
		return out, nil
	}
	return in, nil
}

// PlanInterp describes a plan's output shape as a Grouped interpretation,
// one field per output step in declared order.
func PlanInterp(p *Plan) *treecol.Grouped {
	g := &treecol.Grouped{Class: p.Class}
	for _, step := range p.Steps {
		switch step := step.(type) {
		case *ReadBasic:
			g.Fields = append(g.Fields, treecol.Field{Name: step.Field, Of: &treecol.Numeric{Of: step.Of}})
		case *ReadBasicArray:
			g.Fields = append(g.Fields, treecol.Field{
				Name: step.Field,
				Of:   &treecol.FixedArray{Inner: &treecol.Numeric{Of: step.Of}, N: step.N},
			})
		case *ReadCountedArray:
			g.Fields = append(g.Fields, treecol.Field{
				Name: step.Field,
				Of:   &treecol.Jagged{Inner: &treecol.Numeric{Of: step.Of}},
			})
		case *ReadCountedPtr:
			g.Fields = append(g.Fields, treecol.Field{
				Name: step.Field,
				Of:   &treecol.Jagged{Inner: &treecol.Numeric{Of: step.Of}},
			})
		case *ReadString:
			g.Fields = append(g.Fields, treecol.Field{Name: step.Field, Of: &treecol.Strings{}})
		case *ReadSTL:
			g.Fields = append(g.Fields, treecol.Field{Name: step.Field, Of: step.Of})
		case *ReadObject:
			g.Fields = append(g.Fields, treecol.Field{Name: step.Field, Of: PlanInterp(step.Plan)})
		}
	}
	return g
}
