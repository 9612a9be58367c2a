// Package web exposes the schema management and health surfaces. The UI
// renderers (forms, tables) are external collaborators: they consume the
// schema document and the JSON envelopes and never reach into model or
// route internals.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/binding"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/core/storage"
)

// Handler serves /api/schema, /api/schema/update and /health.
type Handler struct {
	binder *binding.Binder
	store  storage.Store
	logger zerolog.Logger
}

// NewHandler creates the management handler.
func NewHandler(binder *binding.Binder, store storage.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		binder: binder,
		store:  store,
		logger: logger,
	}
}

// Register mounts the management routes on a router. They are
// registered directly so the entity catch-all mounted at "/" never
// shadows them.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/schema", h.GetSchema)
	r.Post("/api/schema/update", h.UpdateSchema)
	r.Get("/health", h.Health)
}

// Routes returns the management routes on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// GetSchema returns the active schema document.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.binder.Document())
}

// UpdateSchema replaces the active schema document and rebinds every
// entity route. The update is atomic: a missing 'record' object rejects
// it wholesale and the prior bindings stay in effect.
func (h *Handler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	var doc schema.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}

	routes, err := h.binder.Apply(r.Context(), &doc)
	if err != nil {
		if errors.Is(err, binding.ErrMalformedSchema) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		h.logger.Error().Err(err).Msg("schema update failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "schema update failed",
		})
		return
	}

	entities := make([]string, 0, len(routes))
	routeTable := make(map[string]string, len(routes))
	for _, entry := range routes {
		entities = append(entities, entry.Entity)
		routeTable[entry.Entity] = entry.Route
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"entities": entities,
		"routes":   routeTable,
	})
}

// Health reports process status, which storage backend is serving
// requests, and the active route table.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	database := "memory"
	if h.store.Kind() == "sqlite" {
		database = "connected"
	}

	routes := h.binder.Routes()
	routeTable := make(map[string]string, len(routes))
	for _, entry := range routes {
		routeTable[entry.Entity] = entry.Route
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": database,
		"entities": len(routes),
		"routes":   routeTable,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
