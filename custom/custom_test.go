package custom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
)

// pairHandler decodes a class of two big-endian i32 members per entry.
type pairHandler struct {
	name string
}

func (h *pairHandler) BuildPlan(ctx *Context) (*PlanNode, error) {
	return &PlanNode{Class: ctx.Class, State: h.name, Interp: &treecol.Grouped{
		Class: ctx.Class,
		Fields: []treecol.Field{
			{Name: "lo", Of: &treecol.Numeric{Of: treecol.I32}},
			{Name: "hi", Of: &treecol.Numeric{Of: treecol.I32}},
		},
	}}, nil
}

func (h *pairHandler) Decode(node *PlanNode, c *rbuf.Cursor, n int) (*RawNested, error) {
	lo := &RawNested{Of: treecol.I32}
	hi := &RawNested{Of: treecol.I32}
	for i := 0; i < n; i++ {
		b, err := c.Bytes(8)
		if err != nil {
			return nil, err
		}
		lo.Content = append(lo.Content, b[:4]...)
		hi.Content = append(hi.Content, b[4:]...)
	}
	return &RawNested{Names: []string{"lo", "hi"}, Kids: []*RawNested{lo, hi}}, nil
}

func (h *pairHandler) Reconstruct(node *PlanNode, raw *RawNested) (treecol.Result, error) {
	return raw.Result()
}

// decliner never claims anything.
type decliner struct{}

func (*decliner) BuildPlan(*Context) (*PlanNode, error) { return nil, nil }
func (*decliner) Decode(*PlanNode, *rbuf.Cursor, int) (*RawNested, error) {
	panic("decode on declined handler")
}
func (*decliner) Reconstruct(*PlanNode, *RawNested) (treecol.Result, error) {
	panic("reconstruct on declined handler")
}

func TestPriorityOrder(t *testing.T) {
	r := NewRegistry()
	low := &pairHandler{name: "low"}
	high := &pairHandler{name: "high"}
	r.Register(MatchClass("Pair"), low, 1)
	r.Register(MatchClass("Pair"), high, 10)

	node, h, err := r.BuildPlan(&Context{Class: "Pair"})
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Same(t, Handler(high), h)
	assert.Equal(t, "high", node.State)
}

func TestTiesByRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	first := &pairHandler{name: "first"}
	second := &pairHandler{name: "second"}
	r.Register(MatchClass("Pair"), first, 5)
	r.Register(MatchClass("Pair"), second, 5)

	node, _, err := r.BuildPlan(&Context{Class: "Pair"})
	require.NoError(t, err)
	assert.Equal(t, "first", node.State)
}

func TestDeclineFallsThrough(t *testing.T) {
	r := NewRegistry()
	claimer := &pairHandler{name: "claimer"}
	r.Register(MatchClass("Pair"), &decliner{}, 10)
	r.Register(func(string) bool { return true }, claimer, 1)

	node, h, err := r.BuildPlan(&Context{Class: "Pair"})
	require.NoError(t, err)
	assert.Same(t, Handler(claimer), h)
	assert.Equal(t, "claimer", node.State)

	node, h, err = r.BuildPlan(&Context{Class: "Other"})
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Other", node.Class)
	_ = h
}

func TestNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(MatchClass("Pair"), &pairHandler{}, 0)
	node, h, err := r.BuildPlan(&Context{Class: "Unclaimed"})
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.Nil(t, h)
}

func TestDecodeReconstruct(t *testing.T) {
	h := &pairHandler{}
	node, err := h.BuildPlan(&Context{Class: "Pair"})
	require.NoError(t, err)

	var b rbuf.Builder
	for _, v := range []int32{1, 2, 3, 4, 5, 6} {
		b.AppendI32(v)
	}
	raw, err := h.Decode(node, rbuf.New(b.Bytes()), 3)
	require.NoError(t, err)

	res, err := h.Reconstruct(node, raw)
	require.NoError(t, err)
	g := res.(*treecol.Group)
	lo, err := g.Elem("lo")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3, 5}, lo.(*treecol.Flat).Int32s())
	hi, err := g.Elem("hi")
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 4, 6}, hi.(*treecol.Flat).Int32s())
}
