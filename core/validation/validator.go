// Package validation enforces schema constraints on record payloads
// before storage operations. All violations are collected in one pass so
// the caller gets the complete list, never one at a time.
package validation

import (
	"fmt"
	"strings"

	"github.com/artpar/schemagate/core/convention"
)

// FieldError represents a single constraint violation.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result holds all violations for one payload.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// AddError records a violation.
func (r *Result) AddError(field, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{
		Field:      field,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Messages returns the human-readable violation list.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

// Error returns a combined error message.
func (r Result) Error() string {
	return strings.Join(r.Messages(), "; ")
}

// ValidateCreate validates a full payload against a model. Required
// fields with a default are not violations; the default fills them.
func ValidateCreate(m *convention.Model, data map[string]any) Result {
	result := Result{Valid: true}

	checkUnknownFields(&result, m, data)

	for _, field := range m.Fields {
		if field.Implicit {
			continue
		}

		value, hasValue := data[field.Name]

		if !hasValue || value == nil {
			if field.Required && !field.HasDefault {
				result.AddError(field.Name, "required", nil, "field is required")
			}
			continue
		}

		validateValue(&result, field, value)
	}

	return result
}

// ValidateUpdate validates a merged record after a partial update has
// been applied, so constraints hold on the record as it will persist.
func ValidateUpdate(m *convention.Model, merged map[string]any) Result {
	result := Result{Valid: true}

	checkUnknownFields(&result, m, merged)

	for _, field := range m.Fields {
		if field.Implicit {
			continue
		}

		value, hasValue := merged[field.Name]

		if !hasValue || value == nil {
			if field.Required {
				result.AddError(field.Name, "required", nil, "field is required")
			}
			continue
		}

		validateValue(&result, field, value)
	}

	return result
}

// checkUnknownFields rejects fields outside the schema in strict mode.
// Non-strict models tolerate them.
func checkUnknownFields(result *Result, m *convention.Model, data map[string]any) {
	if !m.Strict {
		return
	}
	for name := range data {
		if _, ok := m.Field(name); !ok {
			result.AddError(name, "unknown_field", nil,
				fmt.Sprintf("unknown field %q - not defined in schema", name))
		}
	}
}

// validateValue checks one value against its field's kind and constraints.
func validateValue(result *Result, field convention.ResolvedField, value any) {
	switch field.Kind {
	case convention.KindString:
		if _, ok := value.(string); !ok {
			result.AddError(field.Name, "type", value, "must be a string")
			return
		}
	case convention.KindNumber:
		if _, ok := numericValue(value); !ok {
			result.AddError(field.Name, "type", value, "must be a number")
			return
		}
	case convention.KindBoolean:
		if _, ok := value.(bool); !ok {
			result.AddError(field.Name, "type", value, "must be a boolean")
			return
		}
	}

	if len(field.Enum) > 0 {
		if s, ok := value.(string); ok && !containsString(field.Enum, s) {
			result.AddError(field.Name, "enum", value,
				fmt.Sprintf("must be one of: %s", strings.Join(field.Enum, ", ")))
		}
	}

	if num, ok := numericValue(value); ok {
		if field.Min != nil && num < *field.Min {
			result.AddError(field.Name, "min", value,
				fmt.Sprintf("must be at least %v", *field.Min))
		}
		if field.Max != nil && num > *field.Max {
			result.AddError(field.Name, "max", value,
				fmt.Sprintf("must be at most %v", *field.Max))
		}
	}
}

func numericValue(v any) (float64, bool) {
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

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
