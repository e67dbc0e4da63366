package provider

import (
	"fmt"
	"sync"
)

// Descriptor is a registered provider with its effective priority.
// Lower priorities are tried first.
type Descriptor struct {
	Provider
	Priority int
}

// Registry holds providers per category in priority order.
// Registration order is the built-in order; SetPriority overrides it.
type Registry struct {
	mu         sync.RWMutex
	registered map[Category][]Provider
	priority   map[Category][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		registered: make(map[Category][]Provider),
		priority:   make(map[Category][]string),
	}
}

// Register appends p to its category. Names must be unique within a category.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.registered[p.Category()] {
		if existing.Name() == p.Name() {
			return fmt.Errorf("provider %q already registered for %s", p.Name(), p.Category())
		}
	}
	r.registered[p.Category()] = append(r.registered[p.Category()], p)
	return nil
}

// SetPriority sets the preferred order for a category. Named providers come
// first in the given order; unnamed ones keep their built-in order after them.
// Unknown names are rejected and leave the current order unchanged.
func (r *Registry) SetPriority(c Category, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return fmt.Errorf("provider %q listed twice in %s priority", name, c)
		}
		seen[name] = true
		if r.lookup(c, name) == nil {
			return fmt.Errorf("unknown %s provider %q", c, name)
		}
	}

	r.priority[c] = append([]string(nil), names...)
	return nil
}

// Ordered returns the category's providers sorted by effective priority.
func (r *Registry) Ordered(c Category) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.registered[c]))
	placed := make(map[string]bool)

	for _, name := range r.priority[c] {
		if p := r.lookup(c, name); p != nil {
			out = append(out, Descriptor{Provider: p, Priority: len(out)})
			placed[name] = true
		}
	}
	for _, p := range r.registered[c] {
		if !placed[p.Name()] {
			out = append(out, Descriptor{Provider: p, Priority: len(out)})
		}
	}
	return out
}

// Names returns the provider names of a category in effective order.
func (r *Registry) Names(c Category) []string {
	ordered := r.Ordered(c)
	names := make([]string, len(ordered))
	for i, d := range ordered {
		names[i] = d.Name()
	}
	return names
}

func (r *Registry) lookup(c Category, name string) Provider {
	for _, p := range r.registered[c] {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
