// Package binding owns the process-wide route table: one binding per
// entity, mapping its name to its mount path and router. A schema swap
// builds the entire replacement table off to the side and installs it
// with a single atomic pointer update, so no request ever observes a
// half-migrated table and no stale binding survives an update.
package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/router"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/core/storage"
	"github.com/artpar/schemagate/ports"
)

// ErrMalformedSchema rejects a runtime schema update whose top-level
// 'record' object is missing. Unlike startup loading, updates fail fast.
var ErrMalformedSchema = errors.New("schema update rejected: missing top-level 'record' object")

// RouteEntry describes one mounted binding.
type RouteEntry struct {
	Entity string `json:"entity"`
	Route  string `json:"route"`
}

// table is one immutable binding snapshot. Replaced wholesale, never
// patched, so in-flight requests finish on the definitions they started
// with.
type table struct {
	doc     *schema.Document
	routes  []RouteEntry
	handler chi.Router
}

// Config wires a Binder.
type Config struct {
	Store    storage.Store
	Registry *registry.Registry
	Clock    ports.Clock
	Logger   zerolog.Logger

	// Persist writes the active document to durable storage. Nil
	// disables persistence (tests).
	Persist func(*schema.Document) error

	// OnRebind is called after each successful swap with the new
	// binding count (metrics hook). Optional.
	OnRebind func(entities int)
}

// Binder holds the current binding table and performs schema swaps.
// The table is a single atomic reference: snapshot() to read, one store
// to replace. Rebinds are serialized by a mutex; reads never block.
type Binder struct {
	cfg     Config
	mu      sync.Mutex // serializes rebinds
	current atomic.Pointer[table]
}

// New creates a binder with an empty table.
func New(cfg Config) *Binder {
	b := &Binder{cfg: cfg}
	b.current.Store(&table{
		doc:     &schema.Document{Record: map[string]schema.Entity{}},
		routes:  []RouteEntry{},
		handler: chi.NewRouter(),
	})
	return b
}

// snapshot returns the current table.
func (b *Binder) snapshot() *table {
	return b.current.Load()
}

// ServeHTTP delegates to the current snapshot's router. The delegation
// is the only coupling between live traffic and a schema swap.
func (b *Binder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.snapshot().handler.ServeHTTP(w, r)
}

// Document returns the active schema document.
func (b *Binder) Document() *schema.Document {
	return b.snapshot().doc
}

// Routes returns the active route table.
func (b *Binder) Routes() []RouteEntry {
	return b.snapshot().routes
}

// Load installs a document at process start. An invalid document falls
// back to the hard-coded default, with every validation error logged:
// the process never fails to start over a bad schema file.
func (b *Binder) Load(ctx context.Context, doc *schema.Document) []RouteEntry {
	result := schema.Validate(doc)
	if !result.Valid {
		for _, msg := range result.Errors {
			b.cfg.Logger.Error().Str("problem", msg).Msg("schema validation failed")
		}
		b.cfg.Logger.Warn().Msg("falling back to default schema")
		doc = schema.Default()
	}
	for _, msg := range result.Warnings {
		b.cfg.Logger.Warn().Str("warning", msg).Msg("schema validation warning")
	}

	routes, err := b.rebind(ctx, doc, false)
	if err != nil {
		// rebind only fails on a missing record object, which the
		// default document always carries.
		b.cfg.Logger.Error().Err(err).Msg("initial bind failed")
		return nil
	}
	return routes
}

// Apply performs a runtime schema update: fail fast on a missing
// 'record', persist the document, clear every model and binding, build
// the replacement table, and swap it in atomically. Returns the new
// route table.
func (b *Binder) Apply(ctx context.Context, doc *schema.Document) ([]RouteEntry, error) {
	return b.rebind(ctx, doc, true)
}

func (b *Binder) rebind(ctx context.Context, doc *schema.Document, persist bool) ([]RouteEntry, error) {
	if doc == nil || doc.Record == nil {
		return nil, ErrMalformedSchema
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A rebind persists the document, and persistence trips the file
	// watcher, which reloads the same document. Skip the echo.
	if cur := b.snapshot(); equalDocuments(cur.doc, doc) {
		b.cfg.Logger.Debug().Msg("schema unchanged, skipping rebind")
		return cur.routes, nil
	}

	if persist && b.cfg.Persist != nil {
		if err := b.cfg.Persist(doc); err != nil {
			return nil, err
		}
	}

	// Clear everything; the registry is repopulated below, never
	// partially patched.
	b.cfg.Registry.Invalidate()

	mux := chi.NewRouter()
	routes := make([]RouteEntry, 0, len(doc.Record))
	claimed := make(map[string]string)

	for _, name := range sortedEntities(doc.Record) {
		cfg := doc.Record[name]

		if !schema.Bindable(cfg) {
			b.cfg.Logger.Warn().
				Str("entity", name).
				Msg("skipping entity missing route or backend")
			continue
		}

		if owner, taken := claimed[cfg.Route]; taken {
			b.cfg.Logger.Warn().
				Str("entity", name).
				Str("route", cfg.Route).
				Str("claimed_by", owner).
				Msg("skipping entity with duplicate route")
			continue
		}

		model := b.cfg.Registry.GetOrBuild(name, cfg)
		if err := b.cfg.Store.EnsureCollection(ctx, model); err != nil {
			b.cfg.Logger.Warn().
				Err(err).
				Str("entity", name).
				Msg("skipping entity, collection setup failed")
			continue
		}

		er := router.New(model, b.cfg.Store, b.cfg.Clock, b.cfg.Logger)
		mux.Mount(cfg.Route, er.Routes())

		claimed[cfg.Route] = name
		routes = append(routes, RouteEntry{Entity: name, Route: cfg.Route})
	}

	b.current.Store(&table{
		doc:     doc,
		routes:  routes,
		handler: mux,
	})

	b.cfg.Logger.Info().
		Int("entities", len(routes)).
		Msg("route table rebound")

	if b.cfg.OnRebind != nil {
		b.cfg.OnRebind(len(routes))
	}

	return routes, nil
}

func sortedEntities(record map[string]schema.Entity) []string {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// equalDocuments compares documents structurally. JSON encoding of maps
// is key-sorted, so the comparison is order-insensitive.
func equalDocuments(a, b *schema.Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
