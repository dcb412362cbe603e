package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/archestra/guard/pkg/models"
)

type trustedDataPolicyStore struct{ *sqlStore }

func (s *trustedDataPolicyStore) Create(ctx context.Context, p *models.TrustedDataPolicy) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	value, err := marshalJSON(p.Value)
	if err != nil {
		return fmt.Errorf("marshal policy value: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO trusted_data_policies (id, tool_id, description, attribute_path, operator, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ToolID, p.Description, p.AttributePath, p.Operator, value, timeNow())
	if err != nil {
		return fmt.Errorf("create trusted data policy: %w", err)
	}
	return nil
}

func (s *trustedDataPolicyStore) Get(ctx context.Context, id string) (*models.TrustedDataPolicy, error) {
	row := s.queryRow(ctx,
		`SELECT id, tool_id, description, attribute_path, operator, value, created_at FROM trusted_data_policies WHERE id = ?`, id)
	return scanTrustedDataPolicy(row)
}

func scanTrustedDataPolicy(row *sql.Row) (*models.TrustedDataPolicy, error) {
	var p models.TrustedDataPolicy
	var value string
	if err := row.Scan(&p.ID, &p.ToolID, &p.Description, &p.AttributePath, &p.Operator, &value, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get trusted data policy: %w", err)
	}
	parsed, err := unmarshalJSON(value)
	if err != nil {
		return nil, fmt.Errorf("unmarshal policy value: %w", err)
	}
	p.Value = parsed
	return &p, nil
}

func (s *trustedDataPolicyStore) List(ctx context.Context) ([]*models.TrustedDataPolicy, error) {
	return s.listWhere(ctx, "", nil)
}

func (s *trustedDataPolicyStore) ListByTool(ctx context.Context, toolID string) ([]*models.TrustedDataPolicy, error) {
	return s.listWhere(ctx, "WHERE tool_id = ?", []any{toolID})
}

func (s *trustedDataPolicyStore) listWhere(ctx context.Context, where string, args []any) ([]*models.TrustedDataPolicy, error) {
	query := `SELECT id, tool_id, description, attribute_path, operator, value, created_at
	          FROM trusted_data_policies ` + where + ` ORDER BY created_at ASC, id ASC`
	return s.queryTrustedDataPolicies(ctx, query, args...)
}

func (s *trustedDataPolicyStore) Update(ctx context.Context, p *models.TrustedDataPolicy) error {
	value, err := marshalJSON(p.Value)
	if err != nil {
		return fmt.Errorf("marshal policy value: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE trusted_data_policies SET description = ?, attribute_path = ?, operator = ?, value = ? WHERE id = ?`,
		p.Description, p.AttributePath, p.Operator, value, p.ID)
	if err != nil {
		return fmt.Errorf("update trusted data policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *trustedDataPolicyStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM trusted_data_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trusted data policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *trustedDataPolicyStore) Assign(ctx context.Context, agentID, policyID string) error {
	_, err := s.exec(ctx, `INSERT INTO agent_trusted_data_policies (agent_id, policy_id) VALUES (?, ?)`, agentID, policyID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("assign trusted data policy: %w", err)
	}
	return nil
}

func (s *trustedDataPolicyStore) Unassign(ctx context.Context, agentID, policyID string) error {
	res, err := s.exec(ctx, `DELETE FROM agent_trusted_data_policies WHERE agent_id = ? AND policy_id = ?`, agentID, policyID)
	if err != nil {
		return fmt.Errorf("unassign trusted data policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *trustedDataPolicyStore) ListForAgent(ctx context.Context, agentID string) ([]*models.TrustedDataPolicy, error) {
	query := `SELECT p.id, p.tool_id, p.description, p.attribute_path, p.operator, p.value, p.created_at
	          FROM trusted_data_policies p
	          JOIN agent_trusted_data_policies j ON j.policy_id = p.id
	          WHERE j.agent_id = ?
	          ORDER BY p.created_at ASC, p.id ASC`
	return s.queryTrustedDataPolicies(ctx, query, agentID)
}

// ListForAgentAndTool is the single join query the trusted-data evaluator
// calls on every inbound tool result.
func (s *trustedDataPolicyStore) ListForAgentAndTool(ctx context.Context, agentID, toolName string) ([]*models.TrustedDataPolicy, error) {
	query := `SELECT p.id, p.tool_id, p.description, p.attribute_path, p.operator, p.value, p.created_at
	          FROM trusted_data_policies p
	          JOIN agent_trusted_data_policies j ON j.policy_id = p.id
	          JOIN tools t ON t.id = p.tool_id
	          WHERE j.agent_id = ? AND t.name = ?
	          ORDER BY p.created_at ASC, p.id ASC`
	return s.queryTrustedDataPolicies(ctx, query, agentID, toolName)
}

func (s *trustedDataPolicyStore) queryTrustedDataPolicies(ctx context.Context, query string, args ...any) ([]*models.TrustedDataPolicy, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trusted data policies: %w", err)
	}
	defer rows.Close()

	var out []*models.TrustedDataPolicy
	for rows.Next() {
		var p models.TrustedDataPolicy
		var value string
		if err := rows.Scan(&p.ID, &p.ToolID, &p.Description, &p.AttributePath, &p.Operator, &value, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trusted data policy: %w", err)
		}
		parsed, err := unmarshalJSON(value)
		if err != nil {
			return nil, fmt.Errorf("unmarshal policy value: %w", err)
		}
		p.Value = parsed
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *trustedDataPolicyStore) ListAgentsForPolicy(ctx context.Context, policyID string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT agent_id FROM agent_trusted_data_policies WHERE policy_id = ?`, policyID)
	if err != nil {
		return nil, fmt.Errorf("list agents for policy: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var agentID string
		if err := rows.Scan(&agentID); err != nil {
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		out = append(out, agentID)
	}
	return out, rows.Err()
}
