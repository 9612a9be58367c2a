package convention

import (
	"sort"
	"time"

	"github.com/artpar/schemagate/core/schema"
)

// System-managed field names.
const (
	SurrogateField = "_id"
	CreatedField   = "created_at"
	UpdatedField   = "updated_at"
)

// Model is the derived runtime representation of one entity. Models are
// built wholesale and never mutated in place; a schema update replaces
// them so no handler closes over a stale field table.
type Model struct {
	// Entity is the schema key this model was derived from.
	Entity string

	// Route is the REST mount path.
	Route string

	// Collection is the canonical storage collection name.
	Collection string

	// Fields is the resolved field table in declaration-name order,
	// including implicit system fields.
	Fields []ResolvedField

	// Timestamps enables created_at/updated_at management.
	Timestamps bool

	// Strict rejects unknown fields on write.
	Strict bool

	fieldsByName map[string]ResolvedField
}

// Derive builds a Model from an entity configuration. An empty field
// schema is permitted: the model then accepts only system-managed fields
// (a metadata-only entity).
func Derive(entity string, cfg schema.Entity) *Model {
	m := &Model{
		Entity:     entity,
		Route:      cfg.Route,
		Collection: Pluralize(entity),
		Timestamps: cfg.Backend.Options.TimestampsEnabled(),
		Strict:     cfg.Backend.Options.Strict,
	}

	names := make([]string, 0, len(cfg.Backend.Schema))
	for name := range cfg.Backend.Schema {
		names = append(names, name)
	}
	sort.Strings(names)

	m.Fields = make([]ResolvedField, 0, len(names)+3)
	m.Fields = append(m.Fields, ResolvedField{
		Name:     SurrogateField,
		Kind:     KindObjectID,
		Unique:   true,
		Implicit: true,
	})

	for _, name := range names {
		m.Fields = append(m.Fields, ResolveField(name, cfg.Backend.Schema[name]))
	}

	if m.Timestamps {
		m.Fields = append(m.Fields,
			ResolvedField{Name: CreatedField, Kind: KindDate, Implicit: true},
			ResolvedField{Name: UpdatedField, Kind: KindDate, Implicit: true},
		)
	}

	m.fieldsByName = make(map[string]ResolvedField, len(m.Fields))
	for _, f := range m.Fields {
		m.fieldsByName[f.Name] = f
	}

	return m
}

// Field returns the resolved field with the given name.
func (m *Model) Field(name string) (ResolvedField, bool) {
	f, ok := m.fieldsByName[name]
	return f, ok
}

// IDField returns the user-declared "id" field, if the schema defines
// one. It is the secondary lookup path after the surrogate key.
func (m *Model) IDField() (ResolvedField, bool) {
	f, ok := m.fieldsByName["id"]
	if !ok || f.Implicit {
		return ResolvedField{}, false
	}
	return f, true
}

// StringFields returns the names of all declared String-kind fields,
// the targets for substring search.
func (m *Model) StringFields() []string {
	var names []string
	for _, f := range m.Fields {
		if !f.Implicit && f.Kind == KindString {
			names = append(names, f.Name)
		}
	}
	return names
}

// DeclaredFields returns all non-implicit fields.
func (m *Model) DeclaredFields() []ResolvedField {
	var fields []ResolvedField
	for _, f := range m.Fields {
		if !f.Implicit {
			fields = append(fields, f)
		}
	}
	return fields
}

// Normalize applies trim and casing transforms to every known string
// field in data, in place.
func (m *Model) Normalize(data map[string]any) {
	for name, value := range data {
		f, ok := m.fieldsByName[name]
		if !ok || f.Implicit {
			continue
		}
		data[name] = f.Normalize(value)
	}
}

// ApplyDefaults fills omitted fields that carry a default. Deferred
// "Date.now" providers fire here, at write time, so two consecutive
// creates observe distinct instants.
func (m *Model) ApplyDefaults(data map[string]any, now func() time.Time) {
	for _, f := range m.Fields {
		if f.Implicit || !f.HasDefault {
			continue
		}
		if _, exists := data[f.Name]; exists {
			continue
		}
		data[f.Name] = f.DefaultValue(now)
	}
}
