// Package custom is the extension point for user-supplied class decoders.
// A handler claims a class by building a plan node for it; the engine then
// delegates basket decoding to the handler but keeps compression, basket
// slicing, and result assembly for itself.  Handlers are consulted before
// the generic class model resolver, mirroring the built-in-over-generic
// preference order.
package custom

import (
	"sort"
	"sync"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/streamer"
)

// Context carries what a handler may need to decide whether it claims a
// column and to build its plan.
type Context struct {
	Column   string
	Class    string
	Version  int
	TypeName string
	Registry *streamer.Registry
}

// PlanNode is a handler-built decode plan for one column.  State is the
// handler's own; Interp describes the output shape for cache fingerprints
// and shape prediction.
type PlanNode struct {
	Class  string
	Interp treecol.Interp
	State  any
}

// Handler decodes one class.  BuildPlan returns nil to decline, letting
// the next handler or the generic resolver try.  Decode consumes n entries
// from the cursor into the intermediate nested form; Reconstruct turns
// that form into the final result.
type Handler interface {
	BuildPlan(ctx *Context) (*PlanNode, error)
	Decode(node *PlanNode, c *rbuf.Cursor, n int) (*RawNested, error)
	Reconstruct(node *PlanNode, raw *RawNested) (treecol.Result, error)
}

// Matcher reports whether a handler should be consulted for a class.
type Matcher func(class string) bool

// MatchClass matches one exact class name.
func MatchClass(name string) Matcher {
	return func(class string) bool { return class == name }
}

type entry struct {
	match    Matcher
	handler  Handler
	priority int
	seq      int
}

// Registry holds handlers in descending priority order, ties broken by
// registration order.  Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(m Matcher, h Handler, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{m, h, priority, len(r.entries)})
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].priority != r.entries[j].priority {
			return r.entries[i].priority > r.entries[j].priority
		}
		return r.entries[i].seq < r.entries[j].seq
	})
}

// BuildPlan asks each matching handler in order; the first non-nil plan
// wins.  A nil plan with a nil error means every handler declined.
func (r *Registry) BuildPlan(ctx *Context) (*PlanNode, Handler, error) {
	r.mu.RLock()
	entries := r.entries
	r.mu.RUnlock()
	for _, e := range entries {
		if !e.match(ctx.Class) {
			continue
		}
		node, err := e.handler.BuildPlan(ctx)
		if err != nil {
			return nil, nil, err
		}
		if node != nil {
			return node, e.handler, nil
		}
	}
	return nil, nil, nil
}
