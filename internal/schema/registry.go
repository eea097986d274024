// Package schema turns static entity type declarations into the registry
// the lifecycle engine consults.
//
// Declarations come from two sources: Go code handing over descriptor
// literals, or CUE files compiled at startup. Both paths validate the
// descriptors once, at construction; after that the registry is immutable
// and lookups are lock-free.
package schema

import (
	"fmt"

	"github.com/stratadb/strata/internal/entity"
)

// Registry resolves entity types to their descriptors. Immutable after
// construction; safe for concurrent use.
type Registry struct {
	descriptors map[string]*entity.Descriptor
	names       []string
}

// NewRegistry validates the given descriptors and indexes them by name.
// Duplicate names and structurally invalid descriptors are rejected.
func NewRegistry(descs ...entity.Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]*entity.Descriptor, len(descs)),
		names:       make([]string, 0, len(descs)),
	}
	for i := range descs {
		d := descs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.descriptors[d.Name]; exists {
			return nil, fmt.Errorf("schema: duplicate entity type %q", d.Name)
		}
		r.descriptors[d.Name] = &d
		r.names = append(r.names, d.Name)
	}
	return r, nil
}

// Descriptor returns the descriptor registered under entityType.
func (r *Registry) Descriptor(entityType string) (*entity.Descriptor, bool) {
	d, ok := r.descriptors[entityType]
	return d, ok
}

// Types returns the registered type names in declaration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.names)
}
