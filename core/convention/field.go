// Package convention derives runtime models from declarative entity
// configurations: field type resolution, default sentinel handling,
// implicit fields, and collection naming.
package convention

import (
	"strings"
	"time"

	"github.com/artpar/schemagate/core/schema"
)

// Kind is the closed set of supported field kinds. Type tokens are
// resolved to a Kind exactly once, at model-build time; handlers and
// storage dispatch on the Kind, never on the raw token.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDate
	KindArray
	KindObject
	KindMixed
	KindObjectID
)

// String returns the canonical type token for the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindMixed:
		return "Mixed"
	case KindObjectID:
		return "ObjectId"
	default:
		return "String"
	}
}

// KindOf maps a declarative type token to a Kind. Unknown tokens resolve
// to KindString with ok=false: schema authoring stays forgiving, and the
// fallback is an explicit branch rather than a silent default.
func KindOf(token string) (kind Kind, ok bool) {
	switch token {
	case "String":
		return KindString, true
	case "Number":
		return KindNumber, true
	case "Boolean":
		return KindBoolean, true
	case "Date":
		return KindDate, true
	case "Array":
		return KindArray, true
	case "Object":
		return KindObject, true
	case "Mixed":
		return KindMixed, true
	case "ObjectId":
		return KindObjectID, true
	default:
		return KindString, false
	}
}

// DefaultNowSentinel is the schema token meaning "current instant at
// write time". It resolves to a deferred provider, never a snapshot.
const DefaultNowSentinel = "Date.now"

// ResolvedField is the fully-resolved form of a schema field, produced
// once at model-build time.
type ResolvedField struct {
	// Name of the field.
	Name string

	// Kind is the resolved field kind.
	Kind Kind

	// KnownType is false when the declared token fell back to String.
	KnownType bool

	// Constraint metadata, passed through for the storage and
	// validation layers to enforce.
	Required  bool
	Unique    bool
	Index     bool
	Sparse    bool
	Trim      bool
	Lowercase bool
	Uppercase bool
	Min       *float64
	Max       *float64
	Enum      []string

	// HasDefault indicates a default exists (literal or deferred).
	HasDefault bool

	// Default is the resolved literal default. Nil when DefaultNow.
	Default any

	// DefaultNow marks the "Date.now" sentinel: the default is the
	// current instant at each write, provided by a clock.
	DefaultNow bool

	// Implicit marks system-managed fields (_id, created_at, updated_at).
	Implicit bool
}

// DefaultValue returns the effective default at write time. now supplies
// the current instant for deferred defaults.
func (f ResolvedField) DefaultValue(now func() time.Time) any {
	if !f.HasDefault {
		return nil
	}
	if f.DefaultNow {
		return now().UTC().Format(time.RFC3339Nano)
	}
	return f.Default
}

// ResolveField resolves a declarative field definition. Pure and total:
// it never fails, whatever the input.
func ResolveField(name string, def schema.Field) ResolvedField {
	kind, known := KindOf(def.Type)

	rf := ResolvedField{
		Name:      name,
		Kind:      kind,
		KnownType: known,
		Required:  def.Required,
		Unique:    def.Unique,
		Index:     def.Index,
		Sparse:    def.Sparse,
		Trim:      def.Trim,
		Lowercase: def.Lowercase,
		Uppercase: def.Uppercase,
		Min:       def.Min,
		Max:       def.Max,
		Enum:      def.Enum,
	}

	if def.Default != nil {
		rf.HasDefault = true
		rf.Default = resolveDefault(def.Default, &rf)
	}

	return rf
}

// resolveDefault resolves default sentinels once, at build time. The
// "Date.now" token becomes a deferred provider; "true"/"false" become
// literal booleans (text-transported documents cannot carry native
// booleans in all authoring paths).
func resolveDefault(raw any, rf *ResolvedField) any {
	s, isString := raw.(string)
	if !isString {
		return raw
	}

	switch s {
	case DefaultNowSentinel:
		rf.DefaultNow = true
		return nil
	case "true":
		return true
	case "false":
		return false
	default:
		return s
	}
}

// Normalize applies string casing and trim transforms to a value.
func (f ResolvedField) Normalize(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if f.Trim {
		s = strings.TrimSpace(s)
	}
	if f.Lowercase {
		s = strings.ToLower(s)
	}
	if f.Uppercase {
		s = strings.ToUpper(s)
	}
	return s
}
