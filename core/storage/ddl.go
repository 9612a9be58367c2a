package storage

import (
	"fmt"
	"strings"

	"github.com/artpar/schemagate/core/convention"
)

// BuildCreateTableSQL generates CREATE TABLE SQL from a derived model.
// Constraints the validation layer already enforces (enum, min, max,
// unique) are repeated here as a storage-level backstop.
func BuildCreateTableSQL(m *convention.Model) string {
	var columns []string
	var constraints []string

	for _, f := range m.Fields {
		columns = append(columns, buildColumnDef(f))

		if f.Unique && f.Name != convention.SurrogateField {
			constraints = append(constraints, fmt.Sprintf("UNIQUE(%s)", quoteIdent(f.Name)))
		}

		if len(f.Enum) > 0 {
			values := make([]string, len(f.Enum))
			for i, v := range f.Enum {
				values[i] = quoteLiteral(v)
			}
			constraints = append(constraints, fmt.Sprintf(
				"CHECK(%s IS NULL OR %s IN (%s))",
				quoteIdent(f.Name), quoteIdent(f.Name), strings.Join(values, ", "),
			))
		}

		if f.Min != nil {
			constraints = append(constraints, fmt.Sprintf(
				"CHECK(%s IS NULL OR %s >= %v)", quoteIdent(f.Name), quoteIdent(f.Name), *f.Min,
			))
		}
		if f.Max != nil {
			constraints = append(constraints, fmt.Sprintf(
				"CHECK(%s IS NULL OR %s <= %v)", quoteIdent(f.Name), quoteIdent(f.Name), *f.Max,
			))
		}
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		quoteIdent(m.Collection),
		strings.Join(columns, ",\n  "),
	)
	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}
	sql += "\n)"

	return sql
}

// BuildIndexSQL generates CREATE INDEX statements for indexed fields.
func BuildIndexSQL(m *convention.Model) []string {
	var indexes []string

	for _, f := range m.Fields {
		if !f.Index || f.Name == convention.SurrogateField {
			continue
		}
		indexes = append(indexes, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("idx_"+m.Collection+"_"+f.Name),
			quoteIdent(m.Collection), quoteIdent(f.Name),
		))
	}

	return indexes
}

func buildColumnDef(f convention.ResolvedField) string {
	parts := []string{quoteIdent(f.Name), sqlType(f.Kind)}

	if f.Name == convention.SurrogateField {
		parts = append(parts, "PRIMARY KEY")
	}

	if f.HasDefault && !f.DefaultNow {
		if lit := formatDefault(f.Default); lit != "" {
			parts = append(parts, "DEFAULT "+lit)
		}
	}

	return strings.Join(parts, " ")
}

// sqlType maps a field kind to its SQLite column type.
func sqlType(k convention.Kind) string {
	switch k {
	case convention.KindNumber:
		return "REAL"
	case convention.KindBoolean:
		return "INTEGER"
	default:
		// Dates as RFC3339 text; Array/Object/Mixed as JSON text
		return "TEXT"
	}
}

func formatDefault(val any) string {
	switch v := val.(type) {
	case string:
		return quoteLiteral(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
