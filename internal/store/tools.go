package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/archestra/guard/pkg/models"
)

type toolStore struct{ *sqlStore }

func (s *toolStore) Create(ctx context.Context, t *models.Tool) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := timeNow()
	t.CreatedAt, t.UpdatedAt = now, now
	params, err := marshalJSON(t.Parameters)
	if err != nil {
		return fmt.Errorf("marshal tool parameters: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO tools (id, agent_id, name, description, parameters, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentID, t.Name, t.Description, params, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create tool: %w", err)
	}
	return nil
}

func (s *toolStore) Get(ctx context.Context, id string) (*models.Tool, error) {
	row := s.queryRow(ctx, `SELECT id, agent_id, name, description, parameters, created_at, updated_at FROM tools WHERE id = ?`, id)
	return scanTool(row)
}

func (s *toolStore) GetByName(ctx context.Context, name string) (*models.Tool, error) {
	row := s.queryRow(ctx, `SELECT id, agent_id, name, description, parameters, created_at, updated_at FROM tools WHERE name = ?`, name)
	return scanTool(row)
}

func scanTool(row *sql.Row) (*models.Tool, error) {
	var t models.Tool
	var description sql.NullString
	var params string
	if err := row.Scan(&t.ID, &t.AgentID, &t.Name, &description, &params, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tool: %w", err)
	}
	t.Description = description.String
	parsed, err := unmarshalJSON(params)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tool parameters: %w", err)
	}
	t.Parameters = parsed
	return &t, nil
}

func (s *toolStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Tool, error) {
	rows, err := s.query(ctx,
		`SELECT id, agent_id, name, description, parameters, created_at, updated_at FROM tools WHERE agent_id = ? ORDER BY created_at ASC, id ASC`,
		agentID)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	var out []*models.Tool
	for rows.Next() {
		var t models.Tool
		var description sql.NullString
		var params string
		if err := rows.Scan(&t.ID, &t.AgentID, &t.Name, &description, &params, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		t.Description = description.String
		parsed, err := unmarshalJSON(params)
		if err != nil {
			return nil, fmt.Errorf("unmarshal tool parameters: %w", err)
		}
		t.Parameters = parsed
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *toolStore) Update(ctx context.Context, t *models.Tool) error {
	t.UpdatedAt = timeNow()
	params, err := marshalJSON(t.Parameters)
	if err != nil {
		return fmt.Errorf("marshal tool parameters: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE tools SET name = ?, description = ?, parameters = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Description, params, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update tool: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *toolStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM tools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tool: %w", err)
	}
	return checkRowsAffected(res)
}
