package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treecol/treecol"
)

func TestArrayCache(t *testing.T) {
	c, err := NewArray(2, prometheus.NewRegistry())
	require.NoError(t, err)

	_, ok := c.Get("a")
	assert.False(t, ok)

	want := treecol.NewFlat(treecol.I32, []byte{0, 0, 0, 7})
	c.Put("a", want)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Same(t, treecol.Result(want), got)

	// Bounded: the oldest entry is evicted.
	c.Put("b", want)
	c.Put("c", want)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestObjectCache(t *testing.T) {
	c, err := NewObject(4, nil)
	require.NoError(t, err)
	c.Put("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestFingerprint(t *testing.T) {
	id := ksuid.New()
	in := &treecol.STL{Kind: treecol.STLVector, Key: &treecol.Numeric{Of: treecol.F32}}
	a := Fingerprint(id, "hits", 0, 100, in)
	assert.Contains(t, a, "hits[0:100]")
	assert.Contains(t, a, "vector<f32>")

	// Any differing component changes the key.
	assert.NotEqual(t, a, Fingerprint(id, "hits", 1, 100, in))
	assert.NotEqual(t, a, Fingerprint(id, "misses", 0, 100, in))
	assert.NotEqual(t, a, Fingerprint(ksuid.New(), "hits", 0, 100, in))
}
