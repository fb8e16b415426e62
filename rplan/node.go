package rplan

import (
	"fmt"

	"github.com/treecol/treecol"
)

// The accumulator tree mirrors a plan's output shape: one node per leaf
// member, grouped the way the class groups them.  Nodes buffer the on-disk
// big-endian bytes as decoded and assemble Results at the end.
type node interface {
	result() treecol.Result
}

type flatNode struct {
	of  treecol.DType
	buf []byte
}

func (f *flatNode) append(b []byte) { f.buf = append(f.buf, b...) }

func (f *flatNode) result() treecol.Result { return treecol.NewFlat(f.of, f.buf) }

type stringNode struct {
	vals []string
}

func (s *stringNode) result() treecol.Result { return &treecol.StringArray{Values: s.vals} }

type jaggedNode struct {
	offsets []int64
	child   node
}

func newJaggedNode(child node) *jaggedNode {
	return &jaggedNode{offsets: []int64{0}, child: child}
}

// close ends the current entry, recording that it contributed n elements.
func (j *jaggedNode) close(n int) {
	j.offsets = append(j.offsets, j.offsets[len(j.offsets)-1]+int64(n))
}

func (j *jaggedNode) result() treecol.Result {
	return &treecol.JaggedArray{Offsets: j.offsets, Content: j.child.result()}
}

type groupNode struct {
	names    []string
	children []node
}

func (g *groupNode) result() treecol.Result {
	elems := make([]treecol.Result, len(g.children))
	for i, c := range g.children {
		elems[i] = c.result()
	}
	return &treecol.Group{Names: g.names, Elems: elems}
}

func (g *groupNode) child(name string, mk func() node) node {
	for i, n := range g.names {
		if n == name {
			return g.children[i]
		}
	}
	c := mk()
	g.names = append(g.names, name)
	g.children = append(g.children, c)
	return c
}

func (g *groupNode) flat(name string) *flatNode {
	return g.child(name, nil).(*flatNode)
}

func (g *groupNode) jagged(name string) *jaggedNode {
	return g.child(name, nil).(*jaggedNode)
}

func (g *groupNode) strings(name string) *stringNode {
	return g.child(name, nil).(*stringNode)
}

// newGroupNode pre-creates an accumulator per output step so member order
// matches declaration order regardless of decode order.
func newGroupNode(p *Plan) *groupNode {
	g := &groupNode{}
	add := func(name string, n node) {
		g.names = append(g.names, name)
		g.children = append(g.children, n)
	}
	for _, step := range p.Steps {
		switch step := step.(type) {
		case *ReadBasic:
			add(step.Field, &flatNode{of: step.Of})
		case *ReadBasicArray:
			add(step.Field, &flatNode{of: step.Of})
		case *ReadCountedArray:
			add(step.Field, newJaggedNode(&flatNode{of: step.Of}))
		case *ReadCountedPtr:
			add(step.Field, newJaggedNode(&flatNode{of: step.Of}))
		case *ReadString:
			add(step.Field, &stringNode{})
		case *ReadSTL:
			add(step.Field, makeNode(step.Of))
		case *ReadObject:
			add(step.Field, newGroupNode(step.Plan))
		}
	}
	return g
}

// makeNode builds the accumulator shape for a fully resolved
// interpretation.  Callers expand Named references before decoding; an
// unresolved one here is a programming error.
func makeNode(in treecol.Interp) node {
	switch in := in.(type) {
	case *treecol.Numeric:
		return &flatNode{of: in.Of}
	case *treecol.FixedArray:
		dtype, _ := treecol.OutputDType(in)
		return &flatNode{of: dtype}
	case *treecol.Jagged:
		return newJaggedNode(makeNode(in.Inner))
	case *treecol.Strings:
		return &stringNode{}
	case *treecol.STL:
		switch in.Kind {
		case treecol.STLString:
			return &stringNode{}
		case treecol.STLMap:
			return &groupNode{
				names:    []string{"keys", "vals"},
				children: []node{newJaggedNode(makeNode(in.Key)), newJaggedNode(makeNode(in.Val))},
			}
		default:
			return newJaggedNode(makeNode(in.Key))
		}
	case *treecol.Grouped:
		g := &groupNode{}
		for _, f := range in.Fields {
			g.names = append(g.names, f.Name)
			g.children = append(g.children, makeNode(f.Of))
		}
		return g
	case *treecol.RawBytes:
		return &flatNode{of: treecol.U8}
	}
	panic(fmt.Sprintf("rplan: no accumulator for interpretation %v", in))
}
