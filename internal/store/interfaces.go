// Package store is the policy store facade and chat/interaction repository:
// CRUD and lookup over agents, tools, tool-invocation and trusted-data
// policies, their agent joins, chats, interactions, the dual-LLM config
// singleton, and the dual-LLM result cache.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/archestra/guard/pkg/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// AgentStore persists Agent rows.
type AgentStore interface {
	Create(ctx context.Context, agent *models.Agent) error
	Get(ctx context.Context, id string) (*models.Agent, error)
	GetByName(ctx context.Context, name string) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
	Update(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, id string) error
}

// ToolStore persists Tool rows, owned by and cascade-deleted with an agent.
type ToolStore interface {
	Create(ctx context.Context, tool *models.Tool) error
	Get(ctx context.Context, id string) (*models.Tool, error)
	GetByName(ctx context.Context, name string) (*models.Tool, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Tool, error)
	Update(ctx context.Context, tool *models.Tool) error
	Delete(ctx context.Context, id string) error
}

// ToolInvocationPolicyStore persists ToolInvocationPolicy rows and their
// agent joins.
type ToolInvocationPolicyStore interface {
	Create(ctx context.Context, p *models.ToolInvocationPolicy) error
	Get(ctx context.Context, id string) (*models.ToolInvocationPolicy, error)
	List(ctx context.Context) ([]*models.ToolInvocationPolicy, error)
	ListByTool(ctx context.Context, toolID string) ([]*models.ToolInvocationPolicy, error)
	Update(ctx context.Context, p *models.ToolInvocationPolicy) error
	Delete(ctx context.Context, id string) error

	Assign(ctx context.Context, agentID, policyID string) error
	Unassign(ctx context.Context, agentID, policyID string) error
	ListForAgent(ctx context.Context, agentID string) ([]*models.ToolInvocationPolicy, error)
	ListAgentsForPolicy(ctx context.Context, policyID string) ([]string, error)

	// ListForAgentAndTool is the performance-critical read the tool-invocation
	// evaluator calls on every turn: a single join returning only the
	// policies applicable to (agentID, toolName), ordered by createdAt
	// ascending then id, so deny reasons are deterministic.
	ListForAgentAndTool(ctx context.Context, agentID, toolName string) ([]*models.ToolInvocationPolicy, error)
}

// TrustedDataPolicyStore persists TrustedDataPolicy rows and their agent joins.
type TrustedDataPolicyStore interface {
	Create(ctx context.Context, p *models.TrustedDataPolicy) error
	Get(ctx context.Context, id string) (*models.TrustedDataPolicy, error)
	List(ctx context.Context) ([]*models.TrustedDataPolicy, error)
	ListByTool(ctx context.Context, toolID string) ([]*models.TrustedDataPolicy, error)
	Update(ctx context.Context, p *models.TrustedDataPolicy) error
	Delete(ctx context.Context, id string) error

	Assign(ctx context.Context, agentID, policyID string) error
	Unassign(ctx context.Context, agentID, policyID string) error
	ListForAgent(ctx context.Context, agentID string) ([]*models.TrustedDataPolicy, error)
	ListAgentsForPolicy(ctx context.Context, policyID string) ([]string, error)

	// ListForAgentAndTool mirrors ToolInvocationPolicyStore.ListForAgentAndTool
	// for the trusted-data evaluator's hot path.
	ListForAgentAndTool(ctx context.Context, agentID, toolName string) ([]*models.TrustedDataPolicy, error)
}

// ChatStore persists Chat rows.
type ChatStore interface {
	Create(ctx context.Context, chat *models.Chat) error
	Get(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context) ([]*models.Chat, error)
}

// InteractionStore is append-only: no update or delete API.
type InteractionStore interface {
	Append(ctx context.Context, interaction *models.Interaction) error
	ListByChatID(ctx context.Context, chatID string) ([]*models.Interaction, error)
}

// DualLlmConfigStore persists the DualLlmConfig singleton.
type DualLlmConfigStore interface {
	Get(ctx context.Context) (*models.DualLlmConfig, error)
	Set(ctx context.Context, cfg *models.DualLlmConfig) error
}

// DualLlmResultStore persists the dual-LLM sanitisation cache, keyed
// uniquely by toolCallID.
type DualLlmResultStore interface {
	FindByToolCallID(ctx context.Context, toolCallID string) (*models.DualLlmResult, error)
	Upsert(ctx context.Context, result *models.DualLlmResult) error
	// PurgeOlderThan is an operational maintenance hook, not exposed over
	// HTTP; it bounds unbounded cache growth without disturbing any row
	// it doesn't delete.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Store groups every storage dependency the proxy needs.
type Store struct {
	Agents               AgentStore
	Tools                ToolStore
	ToolInvocationPolicy ToolInvocationPolicyStore
	TrustedDataPolicy    TrustedDataPolicyStore
	Chats                ChatStore
	Interactions         InteractionStore
	DualLlmConfig        DualLlmConfigStore
	DualLlmResults       DualLlmResultStore

	closer func() error
}

// Close releases the underlying database connection, if any.
func (s *Store) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
