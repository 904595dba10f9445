package provider

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when two providers register the same ID.
var ErrDuplicateID = errors.New("duplicate provider id")

// Registry holds the ordered provider collection for one handler. It is
// populated during Build and frozen before the handler serves traffic;
// after Freeze all reads are lock-free.
type Registry struct {
	ordered []Provider
	byID    map[string]Provider
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Provider)}
}

// Register appends p preserving insertion order. Registration after Freeze
// panics; that is a wiring bug, not a runtime condition.
func (r *Registry) Register(p Provider) error {
	if r.frozen {
		panic("provider registry is frozen")
	}
	if p == nil || p.ID() == "" {
		return errors.New("provider requires an id")
	}
	if _, exists := r.byID[p.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID())
	}

	r.byID[p.ID()] = p
	r.ordered = append(r.ordered, p)
	return nil
}

// Freeze marks the registry read-only.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns providers in registration order. The slice is a copy.
func (r *Registry) List() []Provider {
	out := make([]Provider, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.ordered)
}
