package streamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treecol/treecol"
)

func eventInfo() *Info {
	return &Info{
		Name:    "Event",
		Version: 2,
		Elements: []*Element{
			{Name: "fCount", Kind: KindInt, Size: 4, TypeName: "Int_t"},
			{Name: "fEnergy", Kind: KindDouble, Size: 8, TypeName: "Double_t"},
			{Name: "fHits", Kind: KindSTL, TypeName: "vector<float>", STLType: 1, CType: 5},
			{Name: "fVertex", Kind: KindAny, TypeName: "Vertex", ClassRef: "Vertex"},
		},
	}
}

func vertexInfo() *Info {
	return &Info{
		Name:    "Vertex",
		Version: 1,
		Elements: []*Element{
			{Name: "fX", Kind: KindDouble, Size: 8, TypeName: "Double_t"},
			{Name: "fY", Kind: KindDouble, Size: 8, TypeName: "Double_t"},
		},
	}
}

func TestMarshalRegisterRoundTrip(t *testing.T) {
	raw := Marshal([]*Info{eventInfo(), vertexInfo()})
	r := NewRegistry()
	require.NoError(t, r.Register(raw))
	require.Equal(t, 2, r.Len())

	info, err := r.Resolve("Event", -1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), info.Version)
	require.Len(t, info.Elements, 4)
	assert.Equal(t, "fCount", info.Elements[0].Name)
	assert.Equal(t, KindInt, info.Elements[0].Kind)
	assert.Equal(t, "vector<float>", info.Elements[2].TypeName)
	assert.Equal(t, int32(1), info.Elements[2].STLType)
}

func TestForwardReference(t *testing.T) {
	// Event is registered first and references Vertex, which is defined
	// later in the same record set.
	raw := Marshal([]*Info{eventInfo(), vertexInfo()})
	r := NewRegistry()
	require.NoError(t, r.Register(raw))

	event, err := r.Resolve("Event", -1)
	require.NoError(t, err)
	ref, err := r.ResolveRef(event.Elements[3])
	require.NoError(t, err)
	assert.Equal(t, "Vertex", ref.Name)
	assert.Len(t, ref.Elements, 2)
}

func TestDeferredReference(t *testing.T) {
	// A reference to a class that is never defined does not block
	// registration; it fails only when resolved.
	raw := Marshal([]*Info{eventInfo()})
	r := NewRegistry()
	require.NoError(t, r.Register(raw))

	event, err := r.Resolve("Event", -1)
	require.NoError(t, err)
	_, err = r.ResolveRef(event.Elements[3])
	require.ErrorIs(t, err, treecol.ErrUnknownClass)

	// Registering the missing class afterwards makes the same lookup
	// succeed.
	r.Add(vertexInfo())
	ref, err := r.ResolveRef(event.Elements[3])
	require.NoError(t, err)
	assert.Equal(t, "Vertex", ref.Name)
}

func TestResolveVersion(t *testing.T) {
	r := NewRegistry()
	v1 := vertexInfo()
	v1.Version = 1
	v3 := vertexInfo()
	v3.Version = 3
	r.Add(v1)
	r.Add(v3)

	info, err := r.Resolve("Vertex", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), info.Version)

	info, err = r.Resolve("Vertex", -1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), info.Version)

	_, err = r.Resolve("Vertex", 7)
	require.ErrorIs(t, err, treecol.ErrUnknownClass)

	_, err = r.Resolve("NoSuch", -1)
	require.ErrorIs(t, err, treecol.ErrUnknownClass)
	assert.Contains(t, err.Error(), "NoSuch")
}

func TestBaseElementClassRef(t *testing.T) {
	derived := &Info{
		Name:    "Derived",
		Version: 1,
		Elements: []*Element{
			{Name: "Vertex", Kind: KindBase, TypeName: "BASE", BaseVersion: 1},
			{Name: "fW", Kind: KindDouble, Size: 8, TypeName: "Double_t"},
		},
	}
	raw := Marshal([]*Info{derived, vertexInfo()})
	r := NewRegistry()
	require.NoError(t, r.Register(raw))

	info, err := r.Resolve("Derived", -1)
	require.NoError(t, err)
	base := info.Elements[0]
	assert.Equal(t, KindBase, base.Kind)
	assert.Equal(t, "Vertex", base.ClassRef)
	ref, err := r.ResolveRef(base)
	require.NoError(t, err)
	assert.Equal(t, "Vertex", ref.Name)
}

func TestKindHelpers(t *testing.T) {
	basic, ok := KindInt.Basic()
	assert.True(t, ok)
	assert.Equal(t, KindInt, basic)

	arr := KindInt + ArrayMark
	assert.True(t, arr.IsArray())
	basic, ok = arr.Basic()
	assert.True(t, ok)
	assert.Equal(t, KindInt, basic)

	_, ok = KindObject.Basic()
	assert.False(t, ok)
}
