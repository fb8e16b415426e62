package rplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/streamer"
)

type eventFixture struct {
	n    int32
	x    float64
	pos  [2]float32
	name string
	hits []float32
	ptr  []int32
	vx   float64
	vy   float64
}

func appendEvent(b *rbuf.Builder, ev eventFixture) {
	mark := b.BeginByteCount(2)
	b.AppendI32(ev.n)
	b.AppendF64(ev.x)
	b.AppendF32(ev.pos[0])
	b.AppendF32(ev.pos[1])
	b.AppendString(ev.name)
	stl := b.BeginByteCount(6)
	b.AppendI32(int32(len(ev.hits)))
	for _, h := range ev.hits {
		b.AppendF32(h)
	}
	b.EndByteCount(stl)
	b.AppendU8(1)
	for _, v := range ev.ptr {
		b.AppendI32(v)
	}
	sub := b.BeginByteCount(1)
	b.AppendF64(ev.vx)
	b.AppendF64(ev.vy)
	b.EndByteCount(sub)
	b.EndByteCount(mark)
}

func TestDecodeEntries(t *testing.T) {
	events := []eventFixture{
		{n: 2, x: 1.5, pos: [2]float32{1, 2}, name: "first",
			hits: []float32{0.5}, ptr: []int32{7, 8}, vx: 0.1, vy: 0.2},
		{n: 0, x: -3.25, pos: [2]float32{3, 4}, name: "",
			hits: nil, ptr: nil, vx: 0.3, vy: 0.4},
		{n: 1, x: 9, pos: [2]float32{5, 6}, name: "third",
			hits: []float32{1.5, 2.5, 3.5}, ptr: []int32{-1}, vx: 0.5, vy: 0.6},
	}
	var b rbuf.Builder
	for _, ev := range events {
		appendEvent(&b, ev)
	}

	r := NewResolver(testRegistry())
	plan, err := r.Plan("Event", -1)
	require.NoError(t, err)
	d := NewDecoder(plan)
	c := rbuf.New(b.Bytes())
	for range events {
		require.NoError(t, d.DecodeEntry(c))
	}
	assert.Equal(t, 0, c.Len())

	g := d.Result()

	fn, err := g.Elem("fN")
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 0, 1}, fn.(*treecol.Flat).Int32s())

	fx, err := g.Elem("fX")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -3.25, 9}, fx.(*treecol.Flat).Float64s())

	fpos, err := g.Elem("fPos")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, fpos.(*treecol.Flat).Float32s())

	fname, err := g.Elem("fName")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "", "third"}, fname.(*treecol.StringArray).Values)

	fhits, err := g.Elem("fHits")
	require.NoError(t, err)
	hits := fhits.(*treecol.JaggedArray)
	assert.Equal(t, []int64{0, 1, 1, 4}, hits.Offsets)
	assert.Equal(t, []float32{0.5, 1.5, 2.5, 3.5}, hits.Content.(*treecol.Flat).Float32s())

	fptr, err := g.Elem("fPtr")
	require.NoError(t, err)
	ptr := fptr.(*treecol.JaggedArray)
	assert.Equal(t, []int64{0, 2, 2, 3}, ptr.Offsets)
	assert.Equal(t, []int32{7, 8, -1}, ptr.Content.(*treecol.Flat).Int32s())

	fvert, err := g.Elem("fVert")
	require.NoError(t, err)
	vert := fvert.(*treecol.Group)
	vx, err := vert.Elem("fX")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3, 0.5}, vx.(*treecol.Flat).Float64s())
	vy, err := vert.Elem("fY")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.4, 0.6}, vy.(*treecol.Flat).Float64s())
}

func TestDecodeTruncatedEntry(t *testing.T) {
	var b rbuf.Builder
	appendEvent(&b, eventFixture{n: 1, name: "x", ptr: []int32{5}})
	raw := b.Bytes()[:b.Len()-6]

	r := NewResolver(testRegistry())
	plan, err := r.Plan("Event", -1)
	require.NoError(t, err)
	err = NewDecoder(plan).DecodeEntry(rbuf.New(raw))
	require.ErrorIs(t, err, rbuf.ErrTruncated)
	assert.Contains(t, err.Error(), "Event")
}

func TestDecodeByteCountMismatch(t *testing.T) {
	var b rbuf.Builder
	appendEvent(&b, eventFixture{n: 0, name: "y"})
	raw := append([]byte{}, b.Bytes()...)
	// Overstate the byte count by one.
	raw[3]++

	r := NewResolver(testRegistry())
	plan, err := r.Plan("Event", -1)
	require.NoError(t, err)
	err = NewDecoder(plan).DecodeEntry(rbuf.New(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Event")
}

func TestDecodeMapMemberwise(t *testing.T) {
	reg := testRegistry()
	reg.Add(&streamer.Info{
		Name:    "Tagged",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "fTags", Kind: streamer.KindSTL, TypeName: "map<int,int>", STLType: 4},
		},
	})
	r := NewResolver(reg)
	plan, err := r.Plan("Tagged", -1)
	require.NoError(t, err)

	// One entry holding {1: 10, 2: 20}, keys then values.
	var b rbuf.Builder
	mark := b.BeginByteCount(1)
	stl := b.BeginByteCount(6)
	b.AppendBytes(make([]byte, 6))
	b.AppendI32(2)
	b.AppendI32(1)
	b.AppendI32(2)
	b.AppendI32(10)
	b.AppendI32(20)
	b.EndByteCount(stl)
	b.EndByteCount(mark)

	d := NewDecoder(plan)
	require.NoError(t, d.DecodeEntry(rbuf.New(b.Bytes())))

	g := d.Result()
	fmap, err := g.Elem("fTags")
	require.NoError(t, err)
	m := fmap.(*treecol.Group)
	keys, err := m.Elem("keys")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2}, keys.(*treecol.JaggedArray).Offsets)
	assert.Equal(t, []int32{1, 2}, keys.(*treecol.JaggedArray).Content.(*treecol.Flat).Int32s())
	vals, err := m.Elem("vals")
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20}, vals.(*treecol.JaggedArray).Content.(*treecol.Flat).Int32s())
}
