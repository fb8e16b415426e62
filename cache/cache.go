// Package cache implements the engine's caching collaborators: two
// size-bounded LRU stores, one for decoded objects (schema records, plans)
// and one for decoded column arrays.  Both are safe for concurrent use and
// advisory only; the engine recomputes on any miss.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/ksuid"
	"github.com/treecol/treecol"
)

// Object caches decoded objects by fingerprint.
type Object struct {
	lru    *lru.Cache[string, any]
	hits   prometheus.Counter
	misses prometheus.Counter
}

func NewObject(size int, registerer prometheus.Registerer) (*Object, error) {
	l, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	hits, misses := counters(registerer, "object")
	return &Object{lru: l, hits: hits, misses: misses}, nil
}

func (c *Object) Get(key string) (any, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return v, ok
}

func (c *Object) Put(key string, v any) {
	c.lru.Add(key, v)
}

// Array caches decoded column results by fingerprint.
type Array struct {
	lru    *lru.Cache[string, treecol.Result]
	hits   prometheus.Counter
	misses prometheus.Counter
}

func NewArray(size int, registerer prometheus.Registerer) (*Array, error) {
	l, err := lru.New[string, treecol.Result](size)
	if err != nil {
		return nil, err
	}
	hits, misses := counters(registerer, "array")
	return &Array{lru: l, hits: hits, misses: misses}, nil
}

func (c *Array) Get(key string) (treecol.Result, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return v, ok
}

func (c *Array) Put(key string, v treecol.Result) {
	c.lru.Add(key, v)
}

func counters(registerer prometheus.Registerer, kind string) (hits, misses prometheus.Counter) {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	hits = factory.NewCounter(prometheus.CounterOpts{
		Name: fmt.Sprintf("treecol_%s_cache_hits_total", kind),
		Help: "Number of hits for a cache lookup.",
	})
	misses = factory.NewCounter(prometheus.CounterOpts{
		Name: fmt.Sprintf("treecol_%s_cache_misses_total", kind),
		Help: "Number of misses for a cache lookup.",
	})
	return hits, misses
}

// Fingerprint builds the array-cache key for one column read.  The source
// identity distinguishes reopens of mutable paths; the interpretation's
// string form pins the decode behavior.
func Fingerprint(src ksuid.KSUID, column string, start, stop int64, interp treecol.Interp) string {
	return fmt.Sprintf("%s/%s[%d:%d]/%s", src, column, start, stop, interp)
}
