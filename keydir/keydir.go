// Package keydir provides the directory collaborator: the table that maps
// an object name and cycle number to its location and class within a
// source.  The engine consults it to find schema records and column basket
// indexes; it never writes to it.
package keydir

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrKeyNotFound = errors.New("key not found")

// Key locates one named object.
type Key struct {
	Name      string
	Cycle     int
	ClassName string
	Offset    int64
	Length    int
}

// Directory resolves names to keys.  Cycle < 0 selects the highest cycle
// of the name.
type Directory interface {
	Lookup(name string, cycle int) (Key, error)
	Keys() []Key
}

// Mem is an in-memory directory.  Safe for concurrent use.
type Mem struct {
	mu   sync.RWMutex
	keys map[string][]Key // per name, ascending cycle
}

var _ Directory = (*Mem)(nil)

func NewMem() *Mem {
	return &Mem{keys: make(map[string][]Key)}
}

func (m *Mem) Put(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := append(m.keys[k.Name], k)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Cycle < keys[j].Cycle })
	m.keys[k.Name] = keys
}

func (m *Mem) Lookup(name string, cycle int) (Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := m.keys[name]
	if len(keys) == 0 {
		return Key{}, fmt.Errorf("object %q: %w", name, ErrKeyNotFound)
	}
	if cycle < 0 {
		return keys[len(keys)-1], nil
	}
	for _, k := range keys {
		if k.Cycle == cycle {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("object %q cycle %d: %w", name, cycle, ErrKeyNotFound)
}

func (m *Mem) Keys() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Key
	for _, keys := range m.keys {
		out = append(out, keys...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Cycle < out[j].Cycle
	})
	return out
}
