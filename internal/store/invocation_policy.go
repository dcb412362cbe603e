package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/archestra/guard/pkg/models"
)

type invocationPolicyStore struct{ *sqlStore }

func (s *invocationPolicyStore) Create(ctx context.Context, p *models.ToolInvocationPolicy) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	value, err := marshalJSON(p.Value)
	if err != nil {
		return fmt.Errorf("marshal policy value: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO tool_invocation_policies (id, tool_id, description, argument_name, operator, value, action, block_prompt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ToolID, p.Description, p.ArgumentName, p.Operator, value, p.Action, p.BlockPrompt, timeNow())
	if err != nil {
		return fmt.Errorf("create tool invocation policy: %w", err)
	}
	return nil
}

func (s *invocationPolicyStore) Get(ctx context.Context, id string) (*models.ToolInvocationPolicy, error) {
	row := s.queryRow(ctx,
		`SELECT id, tool_id, description, argument_name, operator, value, action, block_prompt, created_at
		 FROM tool_invocation_policies WHERE id = ?`, id)
	return scanInvocationPolicy(row)
}

func scanInvocationPolicy(row *sql.Row) (*models.ToolInvocationPolicy, error) {
	var p models.ToolInvocationPolicy
	var value string
	var blockPrompt sql.NullString
	if err := row.Scan(&p.ID, &p.ToolID, &p.Description, &p.ArgumentName, &p.Operator, &value, &p.Action, &blockPrompt, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tool invocation policy: %w", err)
	}
	p.BlockPrompt = blockPrompt.String
	parsed, err := unmarshalJSON(value)
	if err != nil {
		return nil, fmt.Errorf("unmarshal policy value: %w", err)
	}
	p.Value = parsed
	return &p, nil
}

func (s *invocationPolicyStore) List(ctx context.Context) ([]*models.ToolInvocationPolicy, error) {
	return s.listWhere(ctx, "", nil)
}

func (s *invocationPolicyStore) ListByTool(ctx context.Context, toolID string) ([]*models.ToolInvocationPolicy, error) {
	return s.listWhere(ctx, "WHERE tool_id = ?", []any{toolID})
}

func (s *invocationPolicyStore) listWhere(ctx context.Context, where string, args []any) ([]*models.ToolInvocationPolicy, error) {
	query := `SELECT id, tool_id, description, argument_name, operator, value, action, block_prompt, created_at
	          FROM tool_invocation_policies ` + where + ` ORDER BY created_at ASC, id ASC`
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tool invocation policies: %w", err)
	}
	defer rows.Close()

	var out []*models.ToolInvocationPolicy
	for rows.Next() {
		var p models.ToolInvocationPolicy
		var value string
		var blockPrompt sql.NullString
		if err := rows.Scan(&p.ID, &p.ToolID, &p.Description, &p.ArgumentName, &p.Operator, &value, &p.Action, &blockPrompt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool invocation policy: %w", err)
		}
		p.BlockPrompt = blockPrompt.String
		parsed, err := unmarshalJSON(value)
		if err != nil {
			return nil, fmt.Errorf("unmarshal policy value: %w", err)
		}
		p.Value = parsed
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *invocationPolicyStore) Update(ctx context.Context, p *models.ToolInvocationPolicy) error {
	value, err := marshalJSON(p.Value)
	if err != nil {
		return fmt.Errorf("marshal policy value: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE tool_invocation_policies SET description = ?, argument_name = ?, operator = ?, value = ?, action = ?, block_prompt = ? WHERE id = ?`,
		p.Description, p.ArgumentName, p.Operator, value, p.Action, p.BlockPrompt, p.ID)
	if err != nil {
		return fmt.Errorf("update tool invocation policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *invocationPolicyStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM tool_invocation_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tool invocation policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *invocationPolicyStore) Assign(ctx context.Context, agentID, policyID string) error {
	_, err := s.exec(ctx, `INSERT INTO agent_tool_invocation_policies (agent_id, policy_id) VALUES (?, ?)`, agentID, policyID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("assign tool invocation policy: %w", err)
	}
	return nil
}

func (s *invocationPolicyStore) Unassign(ctx context.Context, agentID, policyID string) error {
	res, err := s.exec(ctx, `DELETE FROM agent_tool_invocation_policies WHERE agent_id = ? AND policy_id = ?`, agentID, policyID)
	if err != nil {
		return fmt.Errorf("unassign tool invocation policy: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *invocationPolicyStore) ListForAgent(ctx context.Context, agentID string) ([]*models.ToolInvocationPolicy, error) {
	query := `SELECT p.id, p.tool_id, p.description, p.argument_name, p.operator, p.value, p.action, p.block_prompt, p.created_at
	          FROM tool_invocation_policies p
	          JOIN agent_tool_invocation_policies j ON j.policy_id = p.id
	          WHERE j.agent_id = ?
	          ORDER BY p.created_at ASC, p.id ASC`
	return s.queryInvocationPolicies(ctx, query, agentID)
}

// ListForAgentAndTool is the single join query the proxy pipeline calls on
// every turn: policies applicable to the given agent AND whose tool_id
// resolves to a tool named toolName.
func (s *invocationPolicyStore) ListForAgentAndTool(ctx context.Context, agentID, toolName string) ([]*models.ToolInvocationPolicy, error) {
	query := `SELECT p.id, p.tool_id, p.description, p.argument_name, p.operator, p.value, p.action, p.block_prompt, p.created_at
	          FROM tool_invocation_policies p
	          JOIN agent_tool_invocation_policies j ON j.policy_id = p.id
	          JOIN tools t ON t.id = p.tool_id
	          WHERE j.agent_id = ? AND t.name = ?
	          ORDER BY p.created_at ASC, p.id ASC`
	return s.queryInvocationPolicies(ctx, query, agentID, toolName)
}

func (s *invocationPolicyStore) queryInvocationPolicies(ctx context.Context, query string, args ...any) ([]*models.ToolInvocationPolicy, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tool invocation policies: %w", err)
	}
	defer rows.Close()

	var out []*models.ToolInvocationPolicy
	for rows.Next() {
		var p models.ToolInvocationPolicy
		var value string
		var blockPrompt sql.NullString
		if err := rows.Scan(&p.ID, &p.ToolID, &p.Description, &p.ArgumentName, &p.Operator, &value, &p.Action, &blockPrompt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool invocation policy: %w", err)
		}
		p.BlockPrompt = blockPrompt.String
		parsed, err := unmarshalJSON(value)
		if err != nil {
			return nil, fmt.Errorf("unmarshal policy value: %w", err)
		}
		p.Value = parsed
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *invocationPolicyStore) ListAgentsForPolicy(ctx context.Context, policyID string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT agent_id FROM agent_tool_invocation_policies WHERE policy_id = ?`, policyID)
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
