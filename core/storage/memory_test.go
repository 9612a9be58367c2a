package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/schemagate/adapters/clock"
	"github.com/artpar/schemagate/adapters/idgen"
	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/core/storage"
)

func testModel() *convention.Model {
	return convention.Derive("user", schema.Entity{
		Route: "/api/users",
		Backend: schema.Backend{
			Schema: map[string]schema.Field{
				"name":  {Type: "String", Required: true},
				"email": {Type: "String", Unique: true},
				"age":   {Type: "Number"},
			},
		},
	})
}

func newMemory(t *testing.T) (*storage.MemoryStore, *convention.Model) {
	t.Helper()
	s := storage.NewMemoryStore(idgen.NewSequential("mem-"), clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	m := testModel()
	if err := s.EnsureCollection(context.Background(), m); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	return s, m
}

func TestMemoryCreate_AssignsSurrogateAndTimestamps(t *testing.T) {
	s, m := newMemory(t)

	record, err := s.Create(context.Background(), m, map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if record[convention.SurrogateField] != "mem-1" {
		t.Errorf("_id = %v, want mem-1", record[convention.SurrogateField])
	}
	if record[convention.CreatedField] == nil || record[convention.UpdatedField] == nil {
		t.Error("timestamps not set on create")
	}
	if record[convention.CreatedField] != record[convention.UpdatedField] {
		t.Error("created_at != updated_at on a fresh record")
	}
}

func TestMemoryGet_ByFieldValue(t *testing.T) {
	s, m := newMemory(t)

	created, _ := s.Create(context.Background(), m, map[string]any{"name": "Alice", "email": "a@x.io"})

	got, err := s.Get(context.Background(), m, convention.SurrogateField, created[convention.SurrogateField])
	if err != nil {
		t.Fatalf("Get(_id) error = %v", err)
	}
	if got["name"] != "Alice" {
		t.Errorf("name = %v, want Alice", got["name"])
	}

	if _, err := s.Get(context.Background(), m, "email", "a@x.io"); err != nil {
		t.Errorf("Get(email) error = %v", err)
	}

	if _, err := s.Get(context.Background(), m, convention.SurrogateField, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryGet_NumericDriftTolerated(t *testing.T) {
	s, m := newMemory(t)

	s.Create(context.Background(), m, map[string]any{"name": "Alice", "age": float64(30)})

	// Lookup with an int must match the float64 the JSON decoder stored.
	if _, err := s.Get(context.Background(), m, "age", 30); err != nil {
		t.Errorf("Get(age, int 30) error = %v", err)
	}
}

func TestMemoryList_NewestFirstAndPaged(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		s.Create(ctx, m, map[string]any{"name": name})
	}

	page, total, err := s.List(ctx, m, storage.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 || page[0]["name"] != "e" || page[1]["name"] != "d" {
		t.Errorf("page = %v, want [e d]", page)
	}

	page, _, _ = s.List(ctx, m, storage.ListOptions{Limit: 2, Offset: 4})
	if len(page) != 1 || page[0]["name"] != "a" {
		t.Errorf("last page = %v, want [a]", page)
	}

	// Offset past the end is empty, not an error.
	page, total, err = s.List(ctx, m, storage.ListOptions{Limit: 10, Offset: 50})
	if err != nil || len(page) != 0 || total != 5 {
		t.Errorf("past-end List() = (%v, %d, %v), want empty page with total 5", page, total, err)
	}
}

func TestMemoryList_Search(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	s.Create(ctx, m, map[string]any{"name": "Alice Smith", "email": "alice@x.io"})
	s.Create(ctx, m, map[string]any{"name": "Bob Jones", "email": "bob@y.io"})
	s.Create(ctx, m, map[string]any{"name": "Carol Smith", "email": "carol@z.io"})

	page, total, err := s.List(ctx, m, storage.ListOptions{Limit: 10, Search: "SMITH"})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 (case-insensitive substring)", total)
	}
	if len(page) != 2 || page[0]["name"] != "Carol Smith" {
		t.Errorf("page = %v, want Carol first (newest)", page)
	}

	_, total, _ = s.List(ctx, m, storage.ListOptions{Limit: 10, Search: "bob@"})
	if total != 1 {
		t.Errorf("email search total = %d, want 1", total)
	}
}

func TestMemoryUpdate(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, m, map[string]any{"name": "Alice"})
	id := created[convention.SurrogateField].(string)

	updated, err := s.Update(ctx, m, id, map[string]any{"name": "Alicia"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated["name"] != "Alicia" {
		t.Errorf("name = %v, want Alicia", updated["name"])
	}
	if updated[convention.SurrogateField] != id {
		t.Error("surrogate key changed on update")
	}

	if _, err := s.Update(ctx, m, "ghost", map[string]any{"name": "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryUpdate_ProtectsSystemFields(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, m, map[string]any{"name": "Alice"})
	id := created[convention.SurrogateField].(string)

	updated, _ := s.Update(ctx, m, id, map[string]any{
		convention.SurrogateField: "hijacked",
		convention.CreatedField:   "1970-01-01T00:00:00Z",
		"name":                    "Alicia",
	})

	if updated[convention.SurrogateField] != id {
		t.Error("update overwrote the surrogate key")
	}
	if updated[convention.CreatedField] != created[convention.CreatedField] {
		t.Error("update overwrote created_at")
	}
}

func TestMemoryDelete(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, m, map[string]any{"name": "Alice"})
	id := created[convention.SurrogateField].(string)

	if err := s.Delete(ctx, m, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, m, convention.SurrogateField, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, m, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryList_SearchIgnoresImplicitFields(t *testing.T) {
	s, m := newMemory(t)
	ctx := context.Background()

	s.Create(ctx, m, map[string]any{"name": "Alice"})
	s.Create(ctx, m, map[string]any{"name": "Bob"})

	// Every timestamp carries "2024" here, but implicit fields are not
	// search targets: only declared String fields match.
	_, total, err := s.List(ctx, m, storage.ListOptions{Limit: 10, Search: "2024"})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if total != 0 {
		t.Errorf("search on timestamp substring total = %d, want 0", total)
	}

	_, total, _ = s.List(ctx, m, storage.ListOptions{Limit: 10, Search: "ali"})
	if total != 1 {
		t.Errorf("search %q total = %d, want 1", "ali", total)
	}
}

func TestMemoryKind(t *testing.T) {
	s, _ := newMemory(t)
	if s.Kind() != "memory" {
		t.Errorf("Kind() = %q, want memory", s.Kind())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
