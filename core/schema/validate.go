package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Result holds the outcome of validating a schema document.
// Errors are fatal; warnings are advisory.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records a fatal problem and marks the result invalid.
func (r *Result) AddError(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a non-fatal problem.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Error returns a combined error message.
func (r Result) Error() string {
	if r.Valid {
		return ""
	}
	return strings.Join(r.Errors, "; ")
}

// Validate checks a candidate document for structural correctness.
// It never fails and never short-circuits: a caller editing a large
// document gets the complete problem list in one pass.
func Validate(doc *Document) Result {
	result := Result{Valid: true}

	if doc == nil {
		result.AddError("document is missing")
		return result
	}

	if doc.Record == nil {
		result.AddError("document has no 'record' object")
		return result
	}

	if len(doc.Record) == 0 {
		result.AddWarning("'record' defines no entities")
	}

	for name, entity := range doc.Record {
		if strings.TrimSpace(name) == "" {
			result.AddError("entity with empty name")
			continue
		}
		if !isIdentifier(name) {
			result.AddError("entity %q: name must contain only letters, digits, and underscores", name)
		}

		if entity.Route == "" {
			result.AddError("entity %q: route is missing", name)
		} else if !strings.HasPrefix(entity.Route, "/") {
			result.AddError("entity %q: route %q must start with '/'", name, entity.Route)
		}

		if entity.Backend.Schema == nil {
			result.AddError("entity %q: backend.schema is missing", name)
		} else if len(entity.Backend.Schema) == 0 {
			result.AddError("entity %q: backend.schema has no fields", name)
		}

		if len(entity.Frontend) == 0 {
			result.AddWarning("entity %q: no frontend section", name)
		}
	}

	return result
}

// isIdentifier reports whether s works as an entity key: letters,
// digits, and underscores, not starting with a digit. Entity keys name
// routes and storage collections, so anything looser is rejected.
func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return s != ""
}

// Bindable reports whether an entity carries enough definition to be
// mounted: a '/'-prefixed route and a backend section. Entities failing
// this check are skipped (with a warning) during binding, not fatal.
func Bindable(entity Entity) bool {
	return strings.HasPrefix(entity.Route, "/") && entity.Backend.Schema != nil
}
