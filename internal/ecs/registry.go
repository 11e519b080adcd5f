// Package ecs provides the component registry and the application context
// that every system receives.
package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

var ErrNotFound = errors.New("component not found")

// Entity is an opaque identifier grouping component records.
type Entity uint32

// Registry stores at most one component of each type per entity.
// It performs no locking; all access happens on the update loop.
type Registry struct {
	next       Entity
	components map[Entity]map[reflect.Type]any
}

func NewRegistry() *Registry {
	return &Registry{components: make(map[Entity]map[reflect.Type]any)}
}

// Create allocates a new entity with no components.
func (r *Registry) Create() Entity {
	r.next++
	r.components[r.next] = make(map[reflect.Type]any)
	return r.next
}

// Destroy drops an entity and all of its components.
func (r *Registry) Destroy(e Entity) {
	delete(r.components, e)
}

// Register installs component on e, replacing any prior value of the same type.
func Register[T any](r *Registry, e Entity, component T) error {
	comps, ok := r.components[e]
	if !ok {
		return fmt.Errorf("register %T: unknown entity %d", component, e)
	}
	comps[reflect.TypeOf((*T)(nil)).Elem()] = component
	return nil
}

// Get returns the component of type T attached to e.
func Get[T any](r *Registry, e Entity) (T, error) {
	var zero T
	comps, ok := r.components[e]
	if !ok {
		return zero, fmt.Errorf("%w: entity %d", ErrNotFound, e)
	}
	c, ok := comps[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, fmt.Errorf("%w: %v on entity %d", ErrNotFound, reflect.TypeOf((*T)(nil)).Elem(), e)
	}
	return c.(T), nil
}
