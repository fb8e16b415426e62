package rplan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treecol/treecol"
	"github.com/treecol/treecol/streamer"
)

func testRegistry() *streamer.Registry {
	r := streamer.NewRegistry()
	r.Add(&streamer.Info{
		Name:    "Vertex",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "fX", Kind: streamer.KindDouble, Size: 8, TypeName: "Double_t"},
			{Name: "fY", Kind: streamer.KindDouble, Size: 8, TypeName: "Double_t"},
		},
	})
	r.Add(&streamer.Info{
		Name:    "Event",
		Version: 2,
		Elements: []*streamer.Element{
			{Name: "fN", Kind: streamer.KindCounter, Size: 4, TypeName: "Int_t"},
			{Name: "fX", Kind: streamer.KindDouble, Size: 8, TypeName: "Double_t"},
			{
				Name: "fPos", Kind: streamer.KindFloat + streamer.ArrayMark,
				Size: 8, ArrayLen: 2, TypeName: "Float_t",
			},
			{Name: "fName", Kind: streamer.KindTString, TypeName: "TString"},
			{Name: "fHits", Kind: streamer.KindSTL, TypeName: "vector<float>", STLType: 1},
			{
				Name: "fPtr", Kind: streamer.KindInt + streamer.PointerMark,
				TypeName: "Int_t*", CountName: "fN",
			},
			{Name: "fVert", Kind: streamer.KindAny, TypeName: "Vertex", ClassRef: "Vertex"},
		},
	})
	return r
}

func TestGenericPlan(t *testing.T) {
	r := NewResolver(testRegistry())
	plan, err := r.Plan("Event", -1)
	require.NoError(t, err)
	assert.True(t, plan.HasHeader)
	require.Len(t, plan.Steps, 7)
	assert.Equal(t, &ReadBasic{Field: "fN", Of: treecol.I32}, plan.Steps[0])
	assert.Equal(t, &ReadBasic{Field: "fX", Of: treecol.F64}, plan.Steps[1])
	assert.Equal(t, &ReadBasicArray{Field: "fPos", Of: treecol.F32, N: 2}, plan.Steps[2])
	assert.Equal(t, &ReadString{Field: "fName"}, plan.Steps[3])
	stl := plan.Steps[4].(*ReadSTL)
	assert.Equal(t, "fHits", stl.Field)
	assert.Equal(t, &ReadCountedPtr{Field: "fPtr", Of: treecol.I32, Count: "fN"}, plan.Steps[5])
	obj := plan.Steps[6].(*ReadObject)
	assert.Equal(t, "fVert", obj.Field)
	require.Len(t, obj.Plan.Steps, 2)
}

func TestBuiltinWinsOverStreamer(t *testing.T) {
	// A registered schema for a built-in class must not shadow the
	// hand-written plan, which knows the headerless layout.
	reg := streamer.NewRegistry()
	reg.Add(&streamer.Info{
		Name:    "TString",
		Version: 2,
		Elements: []*streamer.Element{
			{Name: "fBogus", Kind: streamer.KindInt, TypeName: "Int_t"},
		},
	})
	r := NewResolver(reg)
	plan, err := r.Plan("TString", -1)
	require.NoError(t, err)
	assert.False(t, plan.HasHeader)
	require.Len(t, plan.Steps, 1)
	assert.IsType(t, &ReadString{}, plan.Steps[0])
}

func TestBaseClassInlining(t *testing.T) {
	reg := testRegistry()
	reg.Add(&streamer.Info{
		Name:    "Derived",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "Vertex", Kind: streamer.KindBase, TypeName: "BASE", ClassRef: "Vertex"},
			{Name: "fW", Kind: streamer.KindDouble, Size: 8, TypeName: "Double_t"},
		},
	})
	r := NewResolver(reg)
	plan, err := r.Plan("Derived", -1)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, &ReadBasic{Field: "fX", Of: treecol.F64}, plan.Steps[0])
	assert.Equal(t, &ReadBasic{Field: "fY", Of: treecol.F64}, plan.Steps[1])
	assert.Equal(t, &ReadBasic{Field: "fW", Of: treecol.F64}, plan.Steps[2])
}

func TestMultipleInheritance(t *testing.T) {
	reg := testRegistry()
	reg.Add(&streamer.Info{
		Name:    "Diamond",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "Vertex", Kind: streamer.KindBase, TypeName: "BASE", ClassRef: "Vertex"},
			{Name: "Event", Kind: streamer.KindBase, TypeName: "BASE", ClassRef: "Event"},
		},
	})
	r := NewResolver(reg)
	_, err := r.Plan("Diamond", -1)
	require.ErrorIs(t, err, treecol.ErrUnsupportedLayout)
	assert.Contains(t, err.Error(), "Diamond")
}

func TestUnknownClass(t *testing.T) {
	r := NewResolver(streamer.NewRegistry())
	_, err := r.Plan("NoSuch", -1)
	require.ErrorIs(t, err, treecol.ErrUnknownClass)
	assert.Contains(t, err.Error(), "NoSuch")
}

func TestPlanMemoized(t *testing.T) {
	r := NewResolver(testRegistry())
	first, err := r.Plan("Event", -1)
	require.NoError(t, err)

	// Concurrent resolution converges on the published plan.
	var wg sync.WaitGroup
	plans := make([]*Plan, 16)
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i], _ = r.Plan("Event", -1)
		}(i)
	}
	wg.Wait()
	for _, p := range plans {
		assert.Same(t, first, p)
	}
}

func TestFailedBuildNotPublished(t *testing.T) {
	reg := streamer.NewRegistry()
	reg.Add(&streamer.Info{
		Name:    "Broken",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "fSub", Kind: streamer.KindAny, TypeName: "Missing", ClassRef: "Missing"},
		},
	})
	r := NewResolver(reg)
	_, err := r.Plan("Broken", -1)
	require.ErrorIs(t, err, treecol.ErrUnknownClass)

	// Registering the missing class afterwards lets the same resolver
	// succeed: the failed build left no partial plan behind.
	reg.Add(&streamer.Info{
		Name:    "Missing",
		Version: 1,
		Elements: []*streamer.Element{
			{Name: "fV", Kind: streamer.KindInt, TypeName: "Int_t"},
		},
	})
	plan, err := r.Plan("Broken", -1)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
}

func TestResolverInterp(t *testing.T) {
	r := NewResolver(testRegistry())
	in, err := r.Interp("Vertex")
	require.NoError(t, err)
	g, ok := in.(*treecol.Grouped)
	require.True(t, ok)
	assert.Equal(t, "Vertex", g.Class)
	require.Len(t, g.Fields, 2)
	assert.Equal(t, "fX", g.Fields[0].Name)
	assert.Equal(t, &treecol.Numeric{Of: treecol.F64}, g.Fields[0].Of)
	assert.Equal(t, 16, g.ItemSize())

	in, err = r.Interp("vector<Vertex>")
	require.NoError(t, err)
	stl := in.(*treecol.STL)
	assert.IsType(t, &treecol.Grouped{}, stl.Key)
}
