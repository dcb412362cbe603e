package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/archestra/guard/pkg/models"
)

// --- Dual-LLM config singleton -------------------------------------------

type dualLlmConfigStore struct{ *sqlStore }

func (s *dualLlmConfigStore) Get(ctx context.Context) (*models.DualLlmConfig, error) {
	row := s.queryRow(ctx,
		`SELECT main_agent_prompt, quarantined_agent_prompt, summary_prompt, max_rounds FROM dual_llm_config WHERE id = 'default'`)
	var cfg models.DualLlmConfig
	if err := row.Scan(&cfg.MainAgentPrompt, &cfg.QuarantinedAgentPrompt, &cfg.SummaryPrompt, &cfg.MaxRounds); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dual-llm config: %w", err)
	}
	return &cfg, nil
}

func (s *dualLlmConfigStore) Set(ctx context.Context, cfg *models.DualLlmConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid dual-llm config: %w", err)
	}
	switch s.dialect {
	case DialectPostgres:
		_, err := s.exec(ctx,
			`INSERT INTO dual_llm_config (id, main_agent_prompt, quarantined_agent_prompt, summary_prompt, max_rounds)
			 VALUES ('default', ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   main_agent_prompt = EXCLUDED.main_agent_prompt,
			   quarantined_agent_prompt = EXCLUDED.quarantined_agent_prompt,
			   summary_prompt = EXCLUDED.summary_prompt,
			   max_rounds = EXCLUDED.max_rounds`,
			cfg.MainAgentPrompt, cfg.QuarantinedAgentPrompt, cfg.SummaryPrompt, cfg.MaxRounds)
		if err != nil {
			return fmt.Errorf("set dual-llm config: %w", err)
		}
	default:
		_, err := s.exec(ctx,
			`INSERT INTO dual_llm_config (id, main_agent_prompt, quarantined_agent_prompt, summary_prompt, max_rounds)
			 VALUES ('default', ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   main_agent_prompt = excluded.main_agent_prompt,
			   quarantined_agent_prompt = excluded.quarantined_agent_prompt,
			   summary_prompt = excluded.summary_prompt,
			   max_rounds = excluded.max_rounds`,
			cfg.MainAgentPrompt, cfg.QuarantinedAgentPrompt, cfg.SummaryPrompt, cfg.MaxRounds)
		if err != nil {
			return fmt.Errorf("set dual-llm config: %w", err)
		}
	}
	return nil
}

// --- Dual-LLM result cache ------------------------------------------------

type dualLlmResultStore struct{ *sqlStore }

func (s *dualLlmResultStore) FindByToolCallID(ctx context.Context, toolCallID string) (*models.DualLlmResult, error) {
	row := s.queryRow(ctx,
		`SELECT agent_id, tool_call_id, conversations, result, created_at FROM dual_llm_results WHERE tool_call_id = ?`,
		toolCallID)
	var r models.DualLlmResult
	var conversations sql.NullString
	if err := row.Scan(&r.AgentID, &r.ToolCallID, &conversations, &r.Result, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find dual-llm result: %w", err)
	}
	if conversations.Valid {
		parsed, err := unmarshalJSON(conversations.String)
		if err != nil {
			return nil, fmt.Errorf("unmarshal dual-llm conversations: %w", err)
		}
		r.Conversations = parsed
	}
	return &r, nil
}

// Upsert is idempotent on ToolCallID: re-sanitising the same provider
// tool-call id overwrites the prior row, last-writer-wins.
func (s *dualLlmResultStore) Upsert(ctx context.Context, r *models.DualLlmResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = timeNow()
	}
	conversations, err := marshalJSON(r.Conversations)
	if err != nil {
		return fmt.Errorf("marshal dual-llm conversations: %w", err)
	}

	var query string
	switch s.dialect {
	case DialectPostgres:
		query = `INSERT INTO dual_llm_results (agent_id, tool_call_id, conversations, result, created_at)
		         VALUES (?, ?, ?, ?, ?)
		         ON CONFLICT (tool_call_id) DO UPDATE SET
		           agent_id = EXCLUDED.agent_id,
		           conversations = EXCLUDED.conversations,
		           result = EXCLUDED.result,
		           created_at = EXCLUDED.created_at`
	default:
		query = `INSERT INTO dual_llm_results (agent_id, tool_call_id, conversations, result, created_at)
		         VALUES (?, ?, ?, ?, ?)
		         ON CONFLICT (tool_call_id) DO UPDATE SET
		           agent_id = excluded.agent_id,
		           conversations = excluded.conversations,
		           result = excluded.result,
		           created_at = excluded.created_at`
	}
	if _, err := s.exec(ctx, query, r.AgentID, r.ToolCallID, conversations, r.Result, r.CreatedAt); err != nil {
		return fmt.Errorf("upsert dual-llm result: %w", err)
	}
	return nil
}

func (s *dualLlmResultStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := timeNow().Add(-age)
	res, err := s.exec(ctx, `DELETE FROM dual_llm_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge dual-llm results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
