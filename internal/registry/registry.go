// Package registry implements the process-wide refcounted singleton
// registration of spec.md §9's "Global per-process state" design note:
// OpenSL's engine object and similar backend-global resources must be
// created once per process and torn down exactly when the last
// referencing Context releases it.
package registry

import "sync"

// Factory constructs a singleton resource the first time it's needed.
type Factory func() (any, error)

// Teardown releases a singleton when its refcount reaches zero.
type Teardown func(any)

type entry struct {
	resource any
	refs     int
	teardown Teardown
}

// Registry is a keyed table of refcounted singletons, one per backend
// identifier. Safe for concurrent use; a per-backend lock would add
// nothing here since acquisitions are rare (one per Context init/uninit)
// and contention is not a concern.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire increments key's refcount, constructing the resource via
// build on the first acquisition. The registry's mutex serializes
// concurrent Acquire calls, so the build-or-reuse decision does not race.
// It is called from a backend's CtxInit; dev_init is not serialized here.
func (r *Registry) Acquire(key string, build Factory, teardown Teardown) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.refs++
		return e.resource, nil
	}

	res, err := build()
	if err != nil {
		return nil, err
	}
	r.entries[key] = &entry{resource: res, refs: 1, teardown: teardown}
	return res, nil
}

// Release decrements key's refcount, tearing the resource down exactly
// when the count reaches zero.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		if e.teardown != nil {
			e.teardown(e.resource)
		}
		delete(r.entries, key)
	}
}

// RefCount reports key's current refcount, 0 if absent. Exposed for
// tests and diagnostics only.
func (r *Registry) RefCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.refs
	}
	return 0
}
