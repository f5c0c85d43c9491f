// Package fleet holds the in-memory registry of user-defined satellites.
// Orbits are validated on the way in, so downstream consumers (the screener
// in particular) only ever see in-domain elements.
package fleet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/orbit/orbitwatch/internal/orbit"
)

// Registry is a name-keyed set of user orbits, safe for concurrent use.
// Orbits are immutable once added; changing one means remove-then-add.
type Registry struct {
	mu     sync.RWMutex
	orbits map[string]orbit.UserOrbit
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{orbits: make(map[string]orbit.UserOrbit)}
}

// Add validates o and inserts it. Duplicate names are rejected.
func (r *Registry) Add(o orbit.UserOrbit) error {
	if err := orbit.Validate(o); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orbits[o.Name]; exists {
		return fmt.Errorf("orbit %q already exists", o.Name)
	}
	r.orbits[o.Name] = o
	return nil
}

// Remove deletes the orbit with the given name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orbits[name]; !exists {
		return fmt.Errorf("orbit %q not found", name)
	}
	delete(r.orbits, name)
	return nil
}

// Get returns the orbit with the given name.
func (r *Registry) Get(name string) (orbit.UserOrbit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orbits[name]
	return o, ok
}

// List returns all orbits sorted by name. The stable order keeps screening
// iteration (and therefore tie-breaking) deterministic across passes.
func (r *Registry) List() []orbit.UserOrbit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]orbit.UserOrbit, 0, len(r.orbits))
	for _, o := range r.orbits {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered orbits.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orbits)
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Added    int      `json:"added"`
	Rejected []string `json:"rejected,omitempty"`
}

// Import adds a batch of orbits, collecting per-entry rejections instead of
// failing the batch. Entries that validate and don't collide are added.
func (r *Registry) Import(orbits []orbit.UserOrbit) ImportResult {
	var res ImportResult
	for _, o := range orbits {
		if err := r.Add(o); err != nil {
			res.Rejected = append(res.Rejected, err.Error())
			continue
		}
		res.Added++
	}
	return res
}
