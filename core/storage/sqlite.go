package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/ports"
)

// SQLiteStore implements Store with SQLite, creating one table per
// collection from the resolved field table.
type SQLiteStore struct {
	db    *sql.DB
	ids   ports.IDGenerator
	clock ports.Clock

	mu sync.RWMutex
	// models maps collection names to the model that owns them
	models map[string]*convention.Model
}

// NewSQLiteStore opens a SQLite database at path.
func NewSQLiteStore(path string, ids ports.IDGenerator, clock ports.Clock) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		ids:    ids,
		clock:  clock,
		models: make(map[string]*convention.Model),
	}, nil
}

// EnsureCollection creates the table and indexes for a model.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, m *convention.Model) error {
	s.mu.Lock()
	s.models[m.Collection] = m
	s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, BuildCreateTableSQL(m)); err != nil {
		return fmt.Errorf("create table %s: %w", m.Collection, classify(err))
	}

	for _, indexSQL := range BuildIndexSQL(m) {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", classify(err))
		}
	}

	return nil
}

// Create inserts a new record.
func (s *SQLiteStore) Create(ctx context.Context, m *convention.Model, data map[string]any) (map[string]any, error) {
	record := make(map[string]any, len(data)+3)
	for _, f := range m.Fields {
		if f.Implicit {
			continue
		}
		if val, ok := data[f.Name]; ok {
			record[f.Name] = val
		}
	}

	record[convention.SurrogateField] = s.ids.New()
	if m.Timestamps {
		now := s.clock.Now().UTC().Format(timeLayout)
		record[convention.CreatedField] = now
		record[convention.UpdatedField] = now
	}

	var columns []string
	var placeholders []string
	var values []any
	for _, f := range m.Fields {
		val, ok := record[f.Name]
		if !ok {
			continue
		}
		columns = append(columns, quoteIdent(f.Name))
		placeholders = append(placeholders, "?")
		values = append(values, toDB(val, f))
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(m.Collection),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, insertSQL, values...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", m.Collection, classify(err))
	}

	return record, nil
}

// Get retrieves a record by field value.
func (s *SQLiteStore) Get(ctx context.Context, m *convention.Model, field string, value any) (map[string]any, error) {
	f, ok := m.Field(field)
	if !ok {
		return nil, ErrNotFound
	}

	columns := columnList(m)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		strings.Join(columns, ", "),
		quoteIdent(m.Collection),
		quoteIdent(field),
	)

	row := s.db.QueryRowContext(ctx, query, toDB(value, f))
	record, err := scanRecord(row, m)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select from %s: %w", m.Collection, classify(err))
	}
	return record, nil
}

// List retrieves records, newest first.
func (s *SQLiteStore) List(ctx context.Context, m *convention.Model, opts ListOptions) ([]map[string]any, int64, error) {
	var whereClause string
	var args []any

	// Disjunctive case-insensitive substring match across String fields.
	// No String fields means no filter even when a search is given.
	if opts.Search != "" {
		stringFields := m.StringFields()
		if len(stringFields) > 0 {
			var conditions []string
			pattern := "%" + likeEscaper.Replace(strings.ToLower(opts.Search)) + "%"
			for _, name := range stringFields {
				conditions = append(conditions, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, quoteIdent(name)))
				args = append(args, pattern)
			}
			whereClause = " WHERE " + strings.Join(conditions, " OR ")
		}
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(m.Collection), whereClause)
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", m.Collection, classify(err))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	columns := columnList(m)
	querySQL := fmt.Sprintf(
		// rowid preserves insertion order; descending = newest first
		"SELECT %s FROM %s%s ORDER BY rowid DESC LIMIT %d OFFSET %d",
		strings.Join(columns, ", "),
		quoteIdent(m.Collection),
		whereClause,
		limit,
		opts.Offset,
	)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select from %s: %w", m.Collection, classify(err))
	}
	defer rows.Close()

	results := make([]map[string]any, 0)
	for rows.Next() {
		record, err := scanRecord(rows, m)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", m.Collection, classify(err))
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", m.Collection, classify(err))
	}

	return results, total, nil
}

// Update modifies a record by surrogate key and returns the result.
func (s *SQLiteStore) Update(ctx context.Context, m *convention.Model, id string, data map[string]any) (map[string]any, error) {
	var sets []string
	var values []any

	for _, f := range m.Fields {
		if f.Implicit {
			continue
		}
		val, ok := data[f.Name]
		if !ok {
			continue
		}
		sets = append(sets, quoteIdent(f.Name)+" = ?")
		values = append(values, toDB(val, f))
	}

	if m.Timestamps {
		sets = append(sets, quoteIdent(convention.UpdatedField)+" = ?")
		values = append(values, s.clock.Now().UTC().Format(timeLayout))
	}

	if len(sets) > 0 {
		values = append(values, id)
		updateSQL := fmt.Sprintf(
			"UPDATE %s SET %s WHERE %s = ?",
			quoteIdent(m.Collection),
			strings.Join(sets, ", "),
			quoteIdent(convention.SurrogateField),
		)

		result, err := s.db.ExecContext(ctx, updateSQL, values...)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", m.Collection, classify(err))
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.Get(ctx, m, convention.SurrogateField, id)
}

// Delete removes a record by surrogate key.
func (s *SQLiteStore) Delete(ctx context.Context, m *convention.Model, id string) error {
	deleteSQL := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ?",
		quoteIdent(m.Collection),
		quoteIdent(convention.SurrogateField),
	)

	result, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", m.Collection, classify(err))
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", unavailable(err))
	}
	return nil
}

// Kind identifies the backend.
func (s *SQLiteStore) Kind() string {
	return "sqlite"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func columnList(m *convention.Model) []string {
	columns := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		columns = append(columns, quoteIdent(f.Name))
	}
	return columns
}

func scanRecord(row rowScanner, m *convention.Model) (map[string]any, error) {
	values := make([]any, len(m.Fields))
	scanDest := make([]any, len(m.Fields))
	for i := range values {
		scanDest[i] = &values[i]
	}

	if err := row.Scan(scanDest...); err != nil {
		return nil, err
	}

	record := make(map[string]any, len(m.Fields))
	for i, f := range m.Fields {
		if values[i] == nil {
			continue
		}
		record[f.Name] = fromDB(values[i], f)
	}
	return record, nil
}

// toDB converts a record value to its column representation.
func toDB(val any, f convention.ResolvedField) any {
	if val == nil {
		return nil
	}

	switch f.Kind {
	case convention.KindBoolean:
		switch v := val.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if v == "true" || v == "1" {
				return 1
			}
			return 0
		default:
			return 0
		}
	case convention.KindArray, convention.KindObject, convention.KindMixed:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(encoded)
	default:
		return val
	}
}

// fromDB converts a column value back to its record representation.
func fromDB(val any, f convention.ResolvedField) any {
	switch f.Kind {
	case convention.KindBoolean:
		switch v := val.(type) {
		case int64:
			return v != 0
		case int:
			return v != 0
		case bool:
			return v
		default:
			return false
		}
	case convention.KindArray, convention.KindObject, convention.KindMixed:
		var text string
		switch v := val.(type) {
		case []byte:
			text = string(v)
		case string:
			text = v
		default:
			return val
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return text
		}
		return decoded
	default:
		if b, ok := val.([]byte); ok {
			return string(b)
		}
		return val
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// uniqueViolation extracts the offending field from a SQLite UNIQUE
// constraint error ("UNIQUE constraint failed: table.column").
func uniqueViolation(err error) (string, bool) {
	msg := err.Error()
	marker := "UNIQUE constraint failed: "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return "", false
	}
	qualified := strings.TrimSpace(msg[idx+len(marker):])
	if comma := strings.IndexByte(qualified, ','); comma >= 0 {
		qualified = qualified[:comma]
	}
	if dot := strings.LastIndexByte(qualified, '.'); dot >= 0 {
		return qualified[dot+1:], true
	}
	return qualified, true
}

// likeEscaper neutralizes LIKE wildcards so a search term always
// matches as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// classify maps a driver error onto the storage taxonomy. Constraint
// failures are domain errors about the record, never grounds for the
// failover layer to abandon the backend: UNIQUE becomes ConflictError,
// the remaining constraint classes (the CHECK/NOT NULL backstops from
// the generated DDL) become ConstraintError. Everything else, driver or
// not, is a backend-level failure tagged ErrUnavailable.
func classify(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return unavailable(err)
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		if field, ok := uniqueViolation(err); ok {
			return &ConflictError{Field: field}
		}
		return &ConflictError{}
	default:
		return &ConstraintError{Message: se.Error()}
	}
}

// unavailable tags backend-level errors so the failover layer can
// distinguish them from domain errors.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
