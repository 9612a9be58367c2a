// Package schema defines the declarative schema document that drives the
// CRUD scaffold. A document maps entity names to their route, field table,
// and UI hints; everything else is derived from it.
package schema

import "encoding/json"

// Document is the root schema document.
type Document struct {
	// Record maps entity name to its configuration.
	Record map[string]Entity `json:"record"`
}

// Entity is the declarative description for one entity.
type Entity struct {
	// Route is the mount path for this entity's REST surface.
	// Must start with "/".
	Route string `json:"route"`

	// Backend holds the field schema and collection options.
	Backend Backend `json:"backend"`

	// Frontend carries UI-only hints (form fields, table columns).
	// Opaque to the engine beyond existence-checking; consumed by the
	// form/table renderers.
	Frontend json.RawMessage `json:"frontend,omitempty"`
}

// Backend holds the data definition for one entity.
type Backend struct {
	// Schema maps field name to its definition.
	Schema map[string]Field `json:"schema"`

	// Options are collection-level flags.
	Options Options `json:"options,omitempty"`
}

// Options are collection-level flags.
type Options struct {
	// Timestamps enables created_at/updated_at management. Default true.
	Timestamps *bool `json:"timestamps,omitempty"`

	// Strict rejects unknown fields on write. Default false.
	Strict bool `json:"strict,omitempty"`
}

// TimestampsEnabled returns the effective timestamps flag.
func (o Options) TimestampsEnabled() bool {
	if o.Timestamps == nil {
		return true
	}
	return *o.Timestamps
}

// Field defines a data field in an entity's schema.
type Field struct {
	// Type is the field type token. Unknown tokens resolve to String.
	// See convention.KindOf for the vocabulary.
	Type string `json:"type"`

	// Required indicates this field must be provided on create.
	Required bool `json:"required,omitempty"`

	// Unique indicates this field must have unique values.
	Unique bool `json:"unique,omitempty"`

	// Index requests a storage index on this field.
	Index bool `json:"index,omitempty"`

	// Sparse relaxes unique/index enforcement for absent values.
	Sparse bool `json:"sparse,omitempty"`

	// Trim strips surrounding whitespace on write.
	Trim bool `json:"trim,omitempty"`

	// Lowercase folds the value to lower case on write.
	Lowercase bool `json:"lowercase,omitempty"`

	// Uppercase folds the value to upper case on write.
	Uppercase bool `json:"uppercase,omitempty"`

	// Min is the minimum numeric value.
	Min *float64 `json:"min,omitempty"`

	// Max is the maximum numeric value.
	Max *float64 `json:"max,omitempty"`

	// Enum lists the permitted values.
	Enum []string `json:"enum,omitempty"`

	// Default is the default value. The sentinel "Date.now" means
	// "current instant at write time"; "true"/"false" mean literal
	// booleans (schema documents travel as text and cannot always
	// carry native booleans).
	Default any `json:"default,omitempty"`
}
