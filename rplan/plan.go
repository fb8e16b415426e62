// Package rplan implements the class model resolver: it turns a class
// schema into an executable reader plan, an ordered list of member-decode
// steps.  Well-known framework classes get hand-written plans from a
// built-in table, consulted before the generic path; everything else is
// synthesized from the class's streamer elements.  Plans are memoized per
// (class, version) for the lifetime of the resolver.
package rplan

import (
	"fmt"
	"sync"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/streamer"
)

// Step is one member-decode action.  The variants form a closed set
// dispatched by type switch.
type Step interface {
	step()
}

// ReadBasic consumes one fixed-width big-endian scalar.
type ReadBasic struct {
	Field string
	Of    treecol.DType
}

// ReadBasicArray consumes N fixed-width scalars.
type ReadBasicArray struct {
	Field string
	Of    treecol.DType
	N     int
}

// ReadCountedArray consumes a 4-byte length followed by that many scalars
// (the framework's own array classes).
type ReadCountedArray struct {
	Field string
	Of    treecol.DType
}

// ReadCountedPtr consumes a 1-byte marker followed by as many scalars as
// an earlier counter member of the same entry holds.
type ReadCountedPtr struct {
	Field string
	Of    treecol.DType
	Count string
}

// ReadString consumes one length-prefixed string.
type ReadString struct {
	Field string
}

// ReadSTL consumes one standard container, interpreted per the type
// algebra.
type ReadSTL struct {
	Field string
	Of    treecol.Interp
}

// ReadObject recurses into a nested class plan.
type ReadObject struct {
	Field string
	Plan  *Plan
}

// SkipBase consumes a serialized base-object header without producing
// output.
type SkipBase struct{}

func (*ReadBasic) step()        {}
func (*ReadBasicArray) step()   {}
func (*ReadCountedArray) step() {}
func (*ReadCountedPtr) step()   {}
func (*ReadString) step()       {}
func (*ReadSTL) step()          {}
func (*ReadObject) step()       {}
func (*SkipBase) step()         {}

// Plan is the memoized decode recipe for one class version.  Plans are
// immutable once published and shared across all instances of the class.
type Plan struct {
	Class   string
	Version int
	// HasHeader reports whether instances carry the byte-count+version
	// object header (built-in framework classes do; see the built-in
	// table for the quirky ones).
	HasHeader bool
	Steps     []Step
}

type planKey struct {
	class   string
	version int
}

// Resolver builds and caches reader plans against a schema registry.
// Safe for concurrent use: first-time resolution of the same class from
// several goroutines converges on one published plan (first writer wins);
// a failed build publishes nothing.
type Resolver struct {
	reg  *streamer.Registry
	mu   sync.RWMutex
	memo map[planKey]*Plan
}

func NewResolver(reg *streamer.Registry) *Resolver {
	return &Resolver{reg: reg, memo: make(map[planKey]*Plan)}
}

// Plan returns the reader plan for a class, building it on first use.
// version < 0 selects the latest registered version.
func (r *Resolver) Plan(class string, version int) (*Plan, error) {
	return r.plan(class, version, make(map[planKey]bool))
}

func (r *Resolver) plan(class string, version int, inProgress map[planKey]bool) (*Plan, error) {
	key := planKey{class, version}
	r.mu.RLock()
	plan, ok := r.memo[key]
	r.mu.RUnlock()
	if ok {
		return plan, nil
	}
	// Built outside the lock; concurrent builders race benignly and the
	// first to publish wins.
	plan, err := r.build(class, version, inProgress)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if published, ok := r.memo[key]; ok {
		return published, nil
	}
	r.memo[key] = plan
	return plan, nil
}

func (r *Resolver) build(class string, version int, inProgress map[planKey]bool) (*Plan, error) {
	if builtin, ok := builtinPlans[class]; ok {
		return builtin(), nil
	}
	key := planKey{class, version}
	if inProgress[key] {
		return nil, fmt.Errorf("class %s: recursive by-value layout: %w",
			class, treecol.ErrUnsupportedLayout)
	}
	inProgress[key] = true
	defer delete(inProgress, key)

	info, err := r.reg.Resolve(class, version)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Class: info.Name, Version: int(info.Version), HasHeader: true}
	var bases int
	for _, e := range info.Elements {
		steps, isBase, err := r.buildElement(e, inProgress)
		if err != nil {
			return nil, fmt.Errorf("class %s version %d member %s: %w",
				info.Name, info.Version, e.Name, err)
		}
		if isBase {
			if bases++; bases > 1 {
				return nil, fmt.Errorf("class %s version %d: multiple inheritance: %w",
					info.Name, info.Version, treecol.ErrUnsupportedLayout)
			}
		}
		plan.Steps = append(plan.Steps, steps...)
	}
	return plan, nil
}

func (r *Resolver) buildElement(e *streamer.Element, inProgress map[planKey]bool) ([]Step, bool, error) {
	if e.Kind == streamer.KindBase {
		// Single-inheritance flattening: the base class's steps are
		// inlined at the marker's position.
		base, err := r.reg.ResolveRef(e)
		if err != nil {
			return nil, true, err
		}
		sub, err := r.build(base.Name, int(base.Version), inProgress)
		if err != nil {
			return nil, true, err
		}
		return sub.Steps, true, nil
	}
	if basic, ok := e.Kind.Basic(); ok {
		dtype, err := kindDType(basic)
		if err != nil {
			return nil, false, err
		}
		if e.Kind.IsArray() || e.ArrayLen > 0 {
			n := int(e.ArrayLen)
			if n == 0 {
				return nil, false, fmt.Errorf("array member without a length: %w",
					treecol.ErrUnsupportedLayout)
			}
			return []Step{&ReadBasicArray{Field: e.Name, Of: dtype, N: n}}, false, nil
		}
		return []Step{&ReadBasic{Field: e.Name, Of: dtype}}, false, nil
	}
	if e.Kind > streamer.PointerMark && e.Kind < streamer.KindObject {
		basic, ok := (e.Kind - streamer.PointerMark).Basic()
		if !ok {
			return nil, false, fmt.Errorf("counted pointer kind %v: %w",
				e.Kind, treecol.ErrUnsupportedLayout)
		}
		dtype, err := kindDType(basic)
		if err != nil {
			return nil, false, err
		}
		if e.CountName == "" {
			return nil, false, fmt.Errorf("counted pointer without a counter: %w",
				treecol.ErrUnsupportedLayout)
		}
		return []Step{&ReadCountedPtr{Field: e.Name, Of: dtype, Count: e.CountName}}, false, nil
	}
	switch e.Kind {
	case streamer.KindTString:
		return []Step{&ReadString{Field: e.Name}}, false, nil
	case streamer.KindTObject:
		return []Step{&SkipBase{}}, false, nil
	case streamer.KindSTL, streamer.KindSTLstring, streamer.KindSTLp:
		in, err := treecol.Parse(e.TypeName)
		if err != nil {
			return nil, false, err
		}
		// Class-typed container elements need their layouts now, so the
		// decoder never meets an unresolved reference.
		if in, err = r.expand(in, inProgress); err != nil {
			return nil, false, err
		}
		return []Step{&ReadSTL{Field: e.Name, Of: in}}, false, nil
	case streamer.KindObject, streamer.KindAny, streamer.KindTNamed:
		sub, err := r.buildRef(e, inProgress)
		if err != nil {
			return nil, false, err
		}
		return []Step{&ReadObject{Field: e.Name, Plan: sub}}, false, nil
	case streamer.KindObjectp, streamer.KindObjectP:
		return nil, false, fmt.Errorf("pointer member of class %s: %w",
			e.ClassRef, treecol.ErrUnsupportedLayout)
	}
	return nil, false, fmt.Errorf("element kind %v: %w", e.Kind, treecol.ErrUnsupportedLayout)
}

func (r *Resolver) buildRef(e *streamer.Element, inProgress map[planKey]bool) (*Plan, error) {
	if _, ok := builtinPlans[e.ClassRef]; ok {
		return r.build(e.ClassRef, -1, inProgress)
	}
	info, err := r.reg.ResolveRef(e)
	if err != nil {
		return nil, err
	}
	return r.build(info.Name, int(info.Version), inProgress)
}

func kindDType(k streamer.Kind) (treecol.DType, error) {
	switch k {
	case streamer.KindBool:
		return treecol.Bool, nil
	case streamer.KindChar, streamer.KindLegacyChar:
		return treecol.I8, nil
	case streamer.KindUChar:
		return treecol.U8, nil
	case streamer.KindShort:
		return treecol.I16, nil
	case streamer.KindUShort:
		return treecol.U16, nil
	case streamer.KindInt, streamer.KindCounter:
		return treecol.I32, nil
	case streamer.KindUInt, streamer.KindBits:
		return treecol.U32, nil
	case streamer.KindLong, streamer.KindLong64:
		return treecol.I64, nil
	case streamer.KindULong, streamer.KindULong64:
		return treecol.U64, nil
	case streamer.KindFloat, streamer.KindFloat16:
		return treecol.F32, nil
	case streamer.KindDouble:
		return treecol.F64, nil
	case streamer.KindDouble32:
		// Stored truncated to 32 bits on disk.
		return treecol.F32, nil
	}
	return 0, fmt.Errorf("basic kind %v: %w", k, treecol.ErrUnsupportedLayout)
}
