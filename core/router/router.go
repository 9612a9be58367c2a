// Package router builds the per-entity REST surface: five CRUD handlers
// bound to one (entity, model, store) triple. Storage errors are
// translated into the response taxonomy at this boundary; nothing
// propagates raw to HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/idgen"
	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/core/storage"
	"github.com/artpar/schemagate/core/validation"
	"github.com/artpar/schemagate/ports"
)

// List pagination bounds.
const (
	defaultLimit = 10
	maxLimit     = 100
)

// EntityRouter serves the REST surface for one entity. It closes over
// the model it was built with: requests in flight during a schema swap
// finish against the definitions they started with.
type EntityRouter struct {
	model  *convention.Model
	store  storage.Store
	clock  ports.Clock
	logger zerolog.Logger
}

// New builds an entity router.
func New(model *convention.Model, store storage.Store, clock ports.Clock, logger zerolog.Logger) *EntityRouter {
	return &EntityRouter{
		model:  model,
		store:  store,
		clock:  clock,
		logger: logger.With().Str("entity", model.Entity).Logger(),
	}
}

// Model returns the model this router is bound to.
func (er *EntityRouter) Model() *convention.Model {
	return er.model
}

// Routes returns the mounted CRUD handlers.
func (er *EntityRouter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", er.handleList)
	r.Post("/", er.handleCreate)
	r.Get("/{id}", er.handleGet)
	r.Put("/{id}", er.handleUpdate)
	r.Delete("/{id}", er.handleDelete)
	return r
}

func (er *EntityRouter) handleList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	opts := storage.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
		Search: r.URL.Query().Get("search"),
	}

	records, total, err := er.store.List(r.Context(), er.model, opts)
	if err != nil {
		er.writeStorageError(w, err)
		return
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	writeList(w, records, Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

func (er *EntityRouter) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := er.resolveRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		er.writeStorageError(w, err)
		return
	}
	writeData(w, http.StatusOK, record)
}

func (er *EntityRouter) handleCreate(w http.ResponseWriter, r *http.Request) {
	data, ok := er.decodePayload(w, r)
	if !ok {
		return
	}

	er.model.Normalize(data)
	er.model.ApplyDefaults(data, er.clock.Now)

	if result := validation.ValidateCreate(er.model, data); !result.Valid {
		writeValidationError(w, result.Messages())
		return
	}

	record, err := er.store.Create(r.Context(), er.model, data)
	if err != nil {
		er.writeStorageError(w, err)
		return
	}

	writeData(w, http.StatusCreated, record)
}

func (er *EntityRouter) handleUpdate(w http.ResponseWriter, r *http.Request) {
	data, ok := er.decodePayload(w, r)
	if !ok {
		return
	}

	existing, err := er.resolveRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		er.writeStorageError(w, err)
		return
	}

	er.model.Normalize(data)

	// Merge the partial payload over the existing record and validate
	// the merged result, so constraints hold on what will persist.
	merged := make(map[string]any, len(existing)+len(data))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	if result := validation.ValidateUpdate(er.model, merged); !result.Valid {
		writeValidationError(w, result.Messages())
		return
	}

	id, _ := existing[convention.SurrogateField].(string)
	record, err := er.store.Update(r.Context(), er.model, id, data)
	if err != nil {
		er.writeStorageError(w, err)
		return
	}

	writeData(w, http.StatusOK, record)
}

func (er *EntityRouter) handleDelete(w http.ResponseWriter, r *http.Request) {
	existing, err := er.resolveRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		er.writeStorageError(w, err)
		return
	}

	id, _ := existing[convention.SurrogateField].(string)
	if err := er.store.Delete(r.Context(), er.model, id); err != nil {
		er.writeStorageError(w, err)
		return
	}

	writeMessage(w, er.model.Entity+" deleted")
}

// resolveRecord resolves an id token in fixed order: surrogate-key
// lookup first (when the token has surrogate shape), then the entity's
// declared "id" field with numeric coercion. No further fallbacks.
func (er *EntityRouter) resolveRecord(ctx context.Context, token string) (map[string]any, error) {
	if idgen.IsSurrogate(token) {
		record, err := er.store.Get(ctx, er.model, convention.SurrogateField, token)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	idField, ok := er.model.IDField()
	if !ok {
		return nil, storage.ErrNotFound
	}

	var value any = token
	if idField.Kind == convention.KindNumber {
		if n, err := strconv.ParseFloat(token, 64); err == nil {
			value = n
		}
	}

	return er.store.Get(ctx, er.model, "id", value)
}

func (er *EntityRouter) decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if data == nil {
		data = make(map[string]any)
	}

	// System-managed fields are never writable through the payload.
	delete(data, convention.SurrogateField)
	delete(data, convention.CreatedField)
	delete(data, convention.UpdatedField)

	return data, true
}

// writeStorageError maps a storage error onto the response taxonomy.
func (er *EntityRouter) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, er.model.Entity+" not found")
	default:
		if field, ok := storage.IsConflict(err); ok {
			writeConflict(w, field)
			return
		}
		if msg, ok := storage.IsConstraint(err); ok {
			writeValidationError(w, []string{msg})
			return
		}
		er.logger.Error().Err(err).Msg("storage operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
