package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/ports"
)

// MemoryStore is the in-process fallback store, used when the primary
// backend is unreachable. Records live in an append-only list per
// collection; writes are visible immediately to subsequent reads in the
// same process. Uniqueness is not enforced here.
type MemoryStore struct {
	ids   ports.IDGenerator
	clock ports.Clock

	mu          sync.RWMutex
	collections map[string][]map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ids ports.IDGenerator, clock ports.Clock) *MemoryStore {
	return &MemoryStore{
		ids:         ids,
		clock:       clock,
		collections: make(map[string][]map[string]any),
	}
}

// EnsureCollection prepares an empty collection.
func (s *MemoryStore) EnsureCollection(ctx context.Context, m *convention.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[m.Collection]; !ok {
		s.collections[m.Collection] = make([]map[string]any, 0)
	}
	return nil
}

// Create appends a new record.
func (s *MemoryStore) Create(ctx context.Context, m *convention.Model, data map[string]any) (map[string]any, error) {
	record := make(map[string]any, len(data)+3)
	for k, v := range data {
		record[k] = v
	}

	record[convention.SurrogateField] = s.ids.New()
	if m.Timestamps {
		now := s.clock.Now().UTC().Format(timeLayout)
		record[convention.CreatedField] = now
		record[convention.UpdatedField] = now
	}

	s.mu.Lock()
	s.collections[m.Collection] = append(s.collections[m.Collection], record)
	s.mu.Unlock()

	return clone(record), nil
}

// Get retrieves a record by field value.
func (s *MemoryStore) Get(ctx context.Context, m *convention.Model, field string, value any) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.collections[m.Collection] {
		if valuesEqual(record[field], value) {
			return clone(record), nil
		}
	}
	return nil, ErrNotFound
}

// List retrieves records newest first with substring search.
func (s *MemoryStore) List(ctx context.Context, m *convention.Model, opts ListOptions) ([]map[string]any, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[m.Collection]

	var matched []map[string]any
	needle := strings.ToLower(opts.Search)
	// Append order is creation order; walk backwards for newest first.
	for i := len(records) - 1; i >= 0; i-- {
		if needle != "" && !matchesSearch(m, records[i], needle) {
			continue
		}
		matched = append(matched, records[i])
	}

	total := int64(len(matched))

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]map[string]any, 0, end-start)
	for _, record := range matched[start:end] {
		page = append(page, clone(record))
	}
	return page, total, nil
}

// Update modifies a record by surrogate key.
func (s *MemoryStore) Update(ctx context.Context, m *convention.Model, id string, data map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.collections[m.Collection] {
		if record[convention.SurrogateField] != id {
			continue
		}
		for k, v := range data {
			if k == convention.SurrogateField || k == convention.CreatedField {
				continue
			}
			record[k] = v
		}
		if m.Timestamps {
			record[convention.UpdatedField] = s.clock.Now().UTC().Format(timeLayout)
		}
		return clone(record), nil
	}
	return nil, ErrNotFound
}

// Delete removes a record by surrogate key.
func (s *MemoryStore) Delete(ctx context.Context, m *convention.Model, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[m.Collection]
	for i, record := range records {
		if record[convention.SurrogateField] == id {
			s.collections[m.Collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Ping always succeeds; the fallback store is in-process.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Kind identifies the backend.
func (s *MemoryStore) Kind() string {
	return "memory"
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// matchesSearch reports whether any declared String-kind field contains
// the lowercased needle. Implicit fields (surrogate key, timestamps)
// are never search targets.
func matchesSearch(m *convention.Model, record map[string]any, needle string) bool {
	for _, name := range m.StringFields() {
		if s, ok := record[name].(string); ok {
			if strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
	}
	return false
}

// valuesEqual compares a stored value with a lookup value, tolerating
// the numeric type drift JSON decoding introduces.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func clone(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
