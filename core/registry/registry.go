// Package registry caches derived models by entity name. Models are
// memoized on first build and rebuilt wholesale after invalidation;
// handlers already holding a model keep it until they finish.
package registry

import (
	"sort"
	"sync"

	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/core/schema"
)

// Registry is the process-wide model cache.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*convention.Model
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models: make(map[string]*convention.Model),
	}
}

// GetOrBuild returns the cached model for an entity, deriving and
// memoizing it on first need. The build never fails: an empty field
// schema yields a model with only system-managed fields.
func (r *Registry) GetOrBuild(entity string, cfg schema.Entity) *convention.Model {
	r.mu.RLock()
	m, ok := r.models[entity]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another builder may have won.
	if m, ok := r.models[entity]; ok {
		return m
	}

	m = convention.Derive(entity, cfg)
	r.models[entity] = m
	return m
}

// Get returns the cached model, if any.
func (r *Registry) Get(entity string) (*convention.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[entity]
	return m, ok
}

// Invalidate drops cached models so the next GetOrBuild rebuilds them.
// With no arguments the whole cache is cleared; a schema swap always
// clears everything so no entity is served by a half-migrated model.
func (r *Registry) Invalidate(entities ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(entities) == 0 {
		r.models = make(map[string]*convention.Model)
		return
	}
	for _, name := range entities {
		delete(r.models, name)
	}
}

// List returns all cached models sorted by entity name.
func (r *Registry) List() []*convention.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]*convention.Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Entity < models[j].Entity
	})
	return models
}

// Len returns the number of cached models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
