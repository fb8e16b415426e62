package rplan

import (
	"encoding/binary"
	"fmt"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
)

// Decoder executes a reader plan over successive entries, accumulating
// columnar output: one flat, jagged, or string accumulator per leaf member.
// A Decoder is single-use and not safe for concurrent use; the engine runs
// one per basket.
type Decoder struct {
	plan *Plan
	root *groupNode
	// counters holds the current entry's decoded integer members, the
	// targets of counted-pointer references.
	counters map[string]int64
}

func NewDecoder(plan *Plan) *Decoder {
	return &Decoder{
		plan:     plan,
		root:     newGroupNode(plan),
		counters: make(map[string]int64),
	}
}

// DecodeEntry consumes one entry's bytes from the cursor.
func (d *Decoder) DecodeEntry(c *rbuf.Cursor) error {
	if err := d.decodePlan(d.plan, d.root, c); err != nil {
		return fmt.Errorf("class %s: %w", d.plan.Class, err)
	}
	return nil
}

// Result assembles everything decoded so far, in declared member order.
func (d *Decoder) Result() *treecol.Group {
	return d.root.result().(*treecol.Group)
}

func (d *Decoder) decodePlan(p *Plan, g *groupNode, c *rbuf.Cursor) error {
	start := c.Pos()
	count := -1
	if p.HasHeader {
		var err error
		if count, _, err = c.ByteCountVersion(); err != nil {
			return err
		}
	}
	for _, step := range p.Steps {
		if err := d.decodeStep(step, g, c); err != nil {
			return err
		}
	}
	return c.CheckByteCount(start, count, p.Class)
}

func (d *Decoder) decodeStep(step Step, g *groupNode, c *rbuf.Cursor) error {
	switch step := step.(type) {
	case *SkipBase:
		return c.SkipTObject()
	case *ReadBasic:
		n := step.Of.Size()
		b, err := c.Bytes(n)
		if err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		if v, ok := intValue(step.Of, b); ok {
			d.counters[step.Field] = v
		}
		g.flat(step.Field).append(b)
		return nil
	case *ReadBasicArray:
		b, err := c.Bytes(step.N * step.Of.Size())
		if err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		g.flat(step.Field).append(b)
		return nil
	case *ReadCountedArray:
		n, err := c.ReadI32()
		if err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		return d.appendCounted(g.jagged(step.Field), step.Of, int(n), step.Field, c)
	case *ReadCountedPtr:
		// A 1-byte marker precedes the elements.
		if _, err := c.ReadU8(); err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		n, ok := d.counters[step.Count]
		if !ok {
			return fmt.Errorf("member %s: counter %s not yet decoded: %w",
				step.Field, step.Count, treecol.ErrUnsupportedLayout)
		}
		return d.appendCounted(g.jagged(step.Field), step.Of, int(n), step.Field, c)
	case *ReadString:
		s, err := c.String()
		if err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		g.strings(step.Field).vals = append(g.strings(step.Field).vals, s)
		return nil
	case *ReadSTL:
		node := g.child(step.Field, func() node { return makeNode(step.Of) })
		if err := decodeValue(step.Of, node, c, true); err != nil {
			return fmt.Errorf("member %s: %w", step.Field, err)
		}
		return nil
	case *ReadObject:
		sub := g.child(step.Field, func() node { return newGroupNode(step.Plan) })
		return d.decodePlan(step.Plan, sub.(*groupNode), c)
	}
	return fmt.Errorf("unknown plan step %T: %w", step, treecol.ErrUnsupportedLayout)
}

func (d *Decoder) appendCounted(j *jaggedNode, of treecol.DType, n int, field string, c *rbuf.Cursor) error {
	b, err := c.Bytes(n * of.Size())
	if err != nil {
		return fmt.Errorf("member %s: %w", field, err)
	}
	j.child.(*flatNode).append(b)
	j.close(n)
	return nil
}

// intValue decodes an integer member's value for use as a later counter.
func intValue(of treecol.DType, b []byte) (int64, bool) {
	switch of {
	case treecol.I8:
		return int64(int8(b[0])), true
	case treecol.U8:
		return int64(b[0]), true
	case treecol.I16:
		return int64(int16(binary.BigEndian.Uint16(b))), true
	case treecol.U16:
		return int64(binary.BigEndian.Uint16(b)), true
	case treecol.I32:
		return int64(int32(binary.BigEndian.Uint32(b))), true
	case treecol.U32:
		return int64(binary.BigEndian.Uint32(b)), true
	case treecol.I64, treecol.U64:
		return int64(binary.BigEndian.Uint64(b)), true
	}
	return 0, false
}

// decodeValue decodes one value of an interpretation into its accumulator
// node.  Only the outermost container of a nesting carries the 6-byte
// object header; inner containers are bare counts.
func decodeValue(in treecol.Interp, sink node, c *rbuf.Cursor, outer bool) error {
	switch in := in.(type) {
	case *treecol.Numeric:
		b, err := c.Bytes(in.Of.Size())
		if err != nil {
			return err
		}
		sink.(*flatNode).append(b)
		return nil
	case *treecol.FixedArray:
		per := treecol.ElementsPerEntry(in)
		dtype, _ := treecol.OutputDType(in)
		b, err := c.Bytes(per * dtype.Size())
		if err != nil {
			return err
		}
		sink.(*flatNode).append(b)
		return nil
	case *treecol.Strings:
		s, err := readString(in.Scheme, c)
		if err != nil {
			return err
		}
		str := sink.(*stringNode)
		str.vals = append(str.vals, s)
		return nil
	case *treecol.STL:
		return decodeSTL(in, sink, c, outer)
	case *treecol.Grouped:
		g := sink.(*groupNode)
		for i, f := range in.Fields {
			if err := decodeValue(f.Of, g.children[i], c, false); err != nil {
				return fmt.Errorf("member %s: %w", f.Name, err)
			}
		}
		return nil
	case *treecol.RawBytes:
		b, err := c.Bytes(c.Len())
		if err != nil {
			return err
		}
		sink.(*flatNode).append(b)
		return nil
	}
	return fmt.Errorf("interpretation %s inside an object: %w", in, treecol.ErrUnsupportedType)
}

func decodeSTL(in *treecol.STL, sink node, c *rbuf.Cursor, outer bool) error {
	if in.Kind == treecol.STLString {
		if outer {
			if _, _, err := c.ByteCountVersion(); err != nil {
				return err
			}
		}
		s, err := c.String()
		if err != nil {
			return err
		}
		str := sink.(*stringNode)
		str.vals = append(str.vals, s)
		return nil
	}
	if outer {
		if _, _, err := c.ByteCountVersion(); err != nil {
			return err
		}
		if in.Kind == treecol.STLMap {
			// Maps carry an extra header word before the count.
			if err := c.Skip(6); err != nil {
				return err
			}
		}
	}
	n, err := c.ReadI32()
	if err != nil {
		return err
	}
	if in.Kind == treecol.STLMap {
		m := sink.(*groupNode)
		keys, vals := m.children[0].(*jaggedNode), m.children[1].(*jaggedNode)
		// Memberwise layout: all keys, then all values, each run
		// preceded by a pad word when the element type is nested.
		if err := decodeRun(in.Key, keys, int(n), c, outer); err != nil {
			return err
		}
		return decodeRun(in.Val, vals, int(n), c, outer)
	}
	j := sink.(*jaggedNode)
	for i := 0; i < int(n); i++ {
		if err := decodeValue(in.Key, j.child, c, false); err != nil {
			return err
		}
	}
	j.close(int(n))
	return nil
}

func decodeRun(in treecol.Interp, j *jaggedNode, n int, c *rbuf.Cursor, outer bool) error {
	if outer && hasNestedHeader(in) {
		if err := c.Skip(6); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		if err := decodeValue(in, j.child, c, false); err != nil {
			return err
		}
	}
	j.close(n)
	return nil
}

func hasNestedHeader(in treecol.Interp) bool {
	_, isSTL := in.(*treecol.STL)
	return isSTL
}

func readString(scheme treecol.StringScheme, c *rbuf.Cursor) (string, error) {
	switch scheme {
	case treecol.PrefixU32:
		n, err := c.ReadU32()
		if err != nil {
			return "", err
		}
		b, err := c.Bytes(int(n))
		if err != nil {
			return "", err
		}
		return string(b), nil
	case treecol.NullTerminated:
		return c.CString()
	default:
		return c.String()
	}
}
