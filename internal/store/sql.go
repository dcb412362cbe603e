package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archestra/guard/pkg/models"
)

// Dialect selects the placeholder style and any dialect-specific error
// matching. Both backends run the same Schema DDL (schema.go).
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqlStore implements every Store sub-interface against a *sql.DB. Query
// text is written with '?' placeholders and rebound per dialect at exec
// time, the way sqlx.Rebind works, so the SQL is authored once.
type sqlStore struct {
	db      *sql.DB
	dialect Dialect
}

func newSQLStore(db *sql.DB, dialect Dialect) *sqlStore {
	return &sqlStore{db: db, dialect: dialect}
}

// rebind rewrites '?' placeholders to '$1', '$2', ... for Postgres; SQLite
// accepts '?' natively and is returned unchanged.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func marshalJSON(v models.RawJSON) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string) (models.RawJSON, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// --- Agents -----------------------------------------------------------

type agentStore struct{ *sqlStore }

func (s *agentStore) Create(ctx context.Context, a *models.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := a.CreatedAt
	if now.IsZero() {
		now = timeNow()
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.exec(ctx, `INSERT INTO agents (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *agentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	row := s.queryRow(ctx, `SELECT id, name, created_at, updated_at FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

func (s *agentStore) GetByName(ctx context.Context, name string) (*models.Agent, error) {
	row := s.queryRow(ctx, `SELECT id, name, created_at, updated_at FROM agents WHERE name = ?`, name)
	return scanAgent(row)
}

func scanAgent(row *sql.Row) (*models.Agent, error) {
	var a models.Agent
	if err := row.Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

func (s *agentStore) List(ctx context.Context) ([]*models.Agent, error) {
	rows, err := s.query(ctx, `SELECT id, name, created_at, updated_at FROM agents ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *agentStore) Update(ctx context.Context, a *models.Agent) error {
	a.UpdatedAt = timeNow()
	res, err := s.exec(ctx, `UPDATE agents SET name = ?, updated_at = ? WHERE id = ?`, a.Name, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *agentStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return checkRowsAffected(res)
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver doesn't support RowsAffected; assume success
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func timeNow() time.Time {
	return time.Now().UTC()
}
