// Package isolation tracks memory identities that are intentionally shared
// between execution contexts, so accidental sharing can be flagged.
//
// The registry is a diagnostic aid, not a safety guarantee: an identity that
// was never registered is invisible to it. It is an injected service rather
// than ambient process state, and is safe for concurrent use.
package isolation

import (
	"reflect"
	"sync"
)

// Registry is a concurrency-safe set of shared memory identities.
type Registry struct {
	mu     sync.Mutex
	shared map[uintptr]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{shared: make(map[uintptr]struct{})}
}

// RegisterShared records a value as intentionally shared infrastructure
// (pools, caches, and the like). Values without a stable memory identity
// (plain structs, strings, numbers) are ignored and reported as false.
func (r *Registry) RegisterShared(v any) bool {
	id, ok := identityOf(v)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shared[id] = struct{}{}
	return true
}

// IsShared reports whether the value's identity has been registered.
// Values without a stable identity are never shared.
func (r *Registry) IsShared(v any) bool {
	id, ok := identityOf(v)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.shared[id]
	return found
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shared)
}

// Reset drops all registered identities. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shared = make(map[uintptr]struct{})
}

// identityOf returns a stable memory identity for reference-shaped values.
func identityOf(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}
