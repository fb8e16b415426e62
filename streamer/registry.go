package streamer

import (
	"fmt"
	"sync"

	"github.com/treecol/treecol"
)

// Info is one versioned class schema: an ordered list of member elements.
// Infos are parsed once per file, immutable afterward, and shared read-only
// by every column of that class.
type Info struct {
	Name     string
	Title    string
	CheckSum uint32
	Version  int32
	Elements []*Element

	id int // arena id within the registry
}

// Registry maps (class name, version) to streamer infos.  Every info is
// assigned a stable integer id at parse time and cross-references between
// classes are stored as ids, so no fully linked graph is required before
// any class can be read.  Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	infos  []*Info          // arena; ids are indexes
	byName map[string][]int // ids in registration order
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string][]int)}
}

// Add registers an already-parsed info and links what it can.  Elements
// whose class references are still unknown stay deferred and resolve on
// first use.
func (r *Registry) Add(info *Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addWithLock(info)
	r.linkWithLock()
}

func (r *Registry) addWithLock(info *Info) {
	info.id = len(r.infos)
	r.infos = append(r.infos, info)
	r.byName[info.Name] = append(r.byName[info.Name], info.id)
	for _, e := range info.Elements {
		e.classID = -1
	}
}

// linkWithLock resolves element class references against everything
// registered so far.  Unresolvable references are left deferred, not
// treated as fatal: a class the caller never reads must not block opening
// the file.
func (r *Registry) linkWithLock() {
	for _, info := range r.infos {
		for _, e := range info.Elements {
			if e.classID >= 0 || e.ClassRef == "" {
				continue
			}
			if ids := r.byName[e.ClassRef]; len(ids) > 0 {
				e.classID = ids[len(ids)-1]
			}
		}
	}
}

// Resolve returns the info for the class, matching version exactly when
// version >= 0 and otherwise returning the latest registered one.  A miss
// fails with treecol.ErrUnknownClass naming the class.
func (r *Registry) Resolve(name string, version int) (*Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byName[name]
	if len(ids) == 0 {
		return nil, fmt.Errorf("class %q: %w", name, treecol.ErrUnknownClass)
	}
	if version < 0 {
		return r.infos[ids[len(ids)-1]], nil
	}
	for _, id := range ids {
		if int(r.infos[id].Version) == version {
			return r.infos[id], nil
		}
	}
	return nil, fmt.Errorf("class %q version %d: %w", name, version, treecol.ErrUnknownClass)
}

// ResolveRef returns the info an element's class reference points at,
// performing the deferred lookup if the link pass could not resolve it.
func (r *Registry) ResolveRef(e *Element) (*Info, error) {
	r.mu.RLock()
	if e.classID >= 0 {
		info := r.infos[e.classID]
		r.mu.RUnlock()
		return info, nil
	}
	r.mu.RUnlock()
	info, err := r.Resolve(e.ClassRef, -1)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	e.classID = info.id
	r.mu.Unlock()
	return info, nil
}

// Names returns the registered class names in first-registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, info := range r.infos {
		if !seen[info.Name] {
			seen[info.Name] = true
			names = append(names, info.Name)
		}
	}
	return names
}

// Len returns the number of registered infos.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.infos)
}
