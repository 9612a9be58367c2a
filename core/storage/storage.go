// Package storage provides record persistence for derived models. It
// dynamically creates collections and performs CRUD operations from the
// resolved field table. Two implementations exist behind one contract:
// SQLite (primary) and in-memory (fallback), so callers never branch on
// which backend is active.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/schemagate/core/convention"
)

// Store provides generic CRUD operations for any derived model.
type Store interface {
	// EnsureCollection prepares storage for a model's collection.
	EnsureCollection(ctx context.Context, m *convention.Model) error

	// Create inserts a new record and returns it with its surrogate key
	// and timestamps filled in.
	Create(ctx context.Context, m *convention.Model, data map[string]any) (map[string]any, error)

	// Get retrieves a single record by field value. Returns ErrNotFound
	// when no record matches.
	Get(ctx context.Context, m *convention.Model, field string, value any) (map[string]any, error)

	// List retrieves records with search and pagination, sorted by
	// creation order descending (newest first). Returns the page and
	// the total match count.
	List(ctx context.Context, m *convention.Model, opts ListOptions) ([]map[string]any, int64, error)

	// Update modifies the record with the given surrogate key and
	// returns the updated record.
	Update(ctx context.Context, m *convention.Model, id string, data map[string]any) (map[string]any, error)

	// Delete removes the record with the given surrogate key.
	Delete(ctx context.Context, m *convention.Model, id string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Kind identifies the backend ("sqlite" or "memory").
	Kind() string

	// Close closes the storage connection.
	Close() error
}

// ListOptions configures list queries.
type ListOptions struct {
	// Limit is the maximum number of records to return.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// Search is a free-text query matched case-insensitively as a
	// substring across every String-kind field. With zero String
	// fields no filter is applied.
	Search string
}

// ErrNotFound is returned when id resolution finds no record.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable marks backend-level failures (unreachable, locked,
// I/O). The failover layer degrades to the in-memory store on it; it is
// never surfaced to an API caller as an error.
var ErrUnavailable = errors.New("storage unavailable")

// ConflictError reports a unique constraint collision, naming the
// offending field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %q", e.Field)
}

// IsConflict reports whether err is a unique constraint collision and
// returns the offending field.
func IsConflict(err error) (field string, ok bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field, true
	}
	return "", false
}

// ConstraintError reports a record rejected by a storage-level
// constraint backstop (CHECK, NOT NULL). It is a payload problem, not a
// backend failure: the failover layer must never degrade on it.
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string {
	return e.Message
}

// IsConstraint reports whether err is a constraint rejection and
// returns its message.
func IsConstraint(err error) (message string, ok bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Message, true
	}
	return "", false
}
