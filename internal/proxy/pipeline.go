// Package proxy implements the guarded chat-completion pipeline: inbound
// tool-result taint scanning, forwarding to the upstream LLM, and outbound
// tool-invocation gating.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/internal/metrics"
	"github.com/archestra/guard/internal/policyeval"
	"github.com/archestra/guard/internal/quarantine"
	"github.com/archestra/guard/internal/store"
	"github.com/archestra/guard/pkg/models"
)

// ErrKind classifies a pipeline failure for the error envelope's "type"
// field.
type ErrKind string

const (
	ErrInvalidRequest ErrKind = "invalid_request_error"
	ErrNotFound       ErrKind = "not_found"
	ErrToolBlocked    ErrKind = "tool_invocation_blocked"
	ErrConfiguration  ErrKind = "configuration_error"
	ErrUpstream       ErrKind = "api_error"
)

// Error carries a classified failure plus the HTTP status it maps to.
type Error struct {
	Kind    ErrKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// ClientFactory resolves the upstream llmclient.Client for a given provider
// name, typically backed by a small map built at startup from env-sourced
// API keys (internal/config).
type ClientFactory func(provider string) (llmclient.Client, error)

// Pipeline is the guarded proxy. It holds no per-request state: every
// dependency is either the store or a request-scoped argument.
type Pipeline struct {
	Store   *store.Store
	Clients ClientFactory
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// HandleChatCompletion runs the full non-streaming pipeline for one guarded
// chat-completion request.
func (p *Pipeline) HandleChatCompletion(ctx context.Context, provider, chatID string, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, *Error) {
	client, chat, perr := p.prepare(ctx, provider, chatID)
	if perr != nil {
		return nil, perr
	}

	if err := p.ingress(ctx, provider, chat, req); err != nil {
		if errors.Is(err, llmclient.ErrNoAPIKey) {
			return nil, newError(ErrConfiguration, 500, "no API key configured for provider "+provider, err)
		}
		return nil, newError(ErrUpstream, 500, "inbound tool-result processing failed", err)
	}

	if err := p.persistLastUserMessage(ctx, chat.ID, req.Messages); err != nil {
		return nil, newError(ErrUpstream, 500, "failed to persist user message", err)
	}

	resp, err := client.ChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, llmclient.ErrNoAPIKey) {
			return nil, newError(ErrConfiguration, 500, "no API key configured for provider "+provider, err)
		}
		return nil, newError(ErrUpstream, 502, "upstream chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return resp, nil
	}

	assistant := resp.Choices[0].Message
	if perr := p.egressGate(ctx, chat.AgentID, assistant); perr != nil {
		return nil, perr
	}

	if err := p.appendInteraction(ctx, chat.ID, assistant, false, ""); err != nil {
		return nil, newError(ErrUpstream, 500, "failed to persist assistant message", err)
	}
	return resp, nil
}

func (p *Pipeline) prepare(ctx context.Context, provider, chatID string) (llmclient.Client, *models.Chat, *Error) {
	if chatID == "" {
		return nil, nil, newError(ErrInvalidRequest, 400, "missing x-archestra-chat-id header", nil)
	}
	client, err := p.Clients(provider)
	if err != nil {
		return nil, nil, newError(ErrInvalidRequest, 400, "unsupported provider: "+provider, err)
	}
	chat, err := p.Store.Chats.Get(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, newError(ErrNotFound, 404, "unknown chat", nil)
	}
	if err != nil {
		return nil, nil, newError(ErrUpstream, 500, "failed to load chat", err)
	}
	return client, chat, nil
}

// ingress scans inbound messages: for every role=tool message, resolve its
// tool name, evaluate trust, and rewrite the request in place when the
// result is blocked or sanitised.
func (p *Pipeline) ingress(ctx context.Context, provider string, chat *models.Chat, req *models.ChatCompletionRequest) error {
	toolNameByCallID := resolveToolNames(req.Messages)

	for i, msg := range req.Messages {
		if msg.Role != models.RoleTool {
			continue
		}
		original := msg

		toolName, known := toolNameByCallID[msg.ToolCallID]
		if !known {
			// A tool result whose provenance can't be established is never
			// passed through unsanitised — it is tainted and quarantined
			// rather than let through fail-open.
			if err := p.appendInteraction(ctx, chat.ID, original, true, "unknown tool for result"); err != nil {
				return err
			}
			summary, err := p.sanitize(ctx, provider, chat.AgentID, req.Messages, msg.ToolCallID)
			if err != nil {
				return fmt.Errorf("dual-llm sanitise (unknown tool): %w", err)
			}
			req.Messages[i].Content = summary
			continue
		}

		policies, err := p.Store.TrustedDataPolicy.ListForAgentAndTool(ctx, chat.AgentID, toolName)
		if err != nil {
			return fmt.Errorf("list trusted-data policies: %w", err)
		}
		toolResult := parseOrPassthrough(msg.Content)
		result := policyeval.EvaluateTrusted(derefTrusted(policies), toolResult)
		p.Metrics.ObserveTrusted(result.IsTrusted)

		if err := p.appendInteraction(ctx, chat.ID, original, !result.IsTrusted, result.Reason); err != nil {
			return err
		}

		switch {
		case result.IsBlocked:
			req.Messages[i].Content = fmt.Sprintf("[Content blocked by policy: %s]", result.Reason)
		case result.ShouldSanitizeWithDualLlm:
			summary, err := p.sanitize(ctx, provider, chat.AgentID, req.Messages, msg.ToolCallID)
			if err != nil {
				return fmt.Errorf("dual-llm sanitise: %w", err)
			}
			req.Messages[i].Content = summary
		}
	}
	return nil
}

// sanitize is cache-first: a prior sanitisation of the same tool-call id is
// reused verbatim.
func (p *Pipeline) sanitize(ctx context.Context, provider, agentID string, messages []models.ChatMessage, toolCallID string) (string, error) {
	if cached, err := p.Store.DualLlmResults.FindByToolCallID(ctx, toolCallID); err == nil {
		p.Metrics.ObserveCacheHit()
		return cached.Result, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	extracted, err := quarantine.Extract(quarantine.Provider(provider), messages, toolCallID)
	if err != nil {
		return "", err
	}

	cfg, err := p.Store.DualLlmConfig.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load dual-llm config: %w", err)
	}
	client, err := p.Clients(provider)
	if err != nil {
		return "", err
	}

	agent := quarantine.New(client, cfg, agentID)
	summary, conversation, err := agent.Run(ctx, extracted)
	if err != nil {
		return "", err
	}
	p.Metrics.AddDualLLMRounds(len(conversation))

	if err := p.Store.DualLlmResults.Upsert(ctx, &models.DualLlmResult{
		AgentID:       agentID,
		ToolCallID:    toolCallID,
		Conversations: conversation,
		Result:        summary,
	}); err != nil {
		return "", fmt.Errorf("cache dual-llm result: %w", err)
	}
	return summary, nil
}

// egressGate evaluates every function tool call in assistant's reply,
// denying on the first violation.
func (p *Pipeline) egressGate(ctx context.Context, agentID string, assistant models.ChatMessage) *Error {
	for _, tc := range assistant.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		var args any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			// Malformed arguments deny fail-closed, distinct from a
			// well-formed-but-non-matching argument set.
			return newError(ErrToolBlocked, 403, "unparseable tool arguments", nil)
		}

		if tool, err := p.Store.Tools.GetByName(ctx, tc.Function.Name); err == nil {
			version := tool.UpdatedAt.String()
			if err := policyeval.ValidateArguments(tool.ID, version, tool.Parameters, args); err != nil {
				return newError(ErrToolBlocked, 403, "tool arguments do not match declared schema: "+err.Error(), nil)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return newError(ErrUpstream, 500, "load tool", err)
		}

		policies, err := p.Store.ToolInvocationPolicy.ListForAgentAndTool(ctx, agentID, tc.Function.Name)
		if err != nil {
			return newError(ErrUpstream, 500, "list tool-invocation policies", err)
		}
		result := policyeval.EvaluateInvocation(derefInvocation(policies), args)
		p.Metrics.ObserveInvocation(result.IsAllowed)
		if !result.IsAllowed {
			return newError(ErrToolBlocked, 403, result.DenyReason, nil)
		}
	}
	return nil
}

func (p *Pipeline) persistLastUserMessage(ctx context.Context, chatID string, messages []models.ChatMessage) error {
	var last *models.ChatMessage
	for i := range messages {
		if messages[i].Role == models.RoleUser {
			last = &messages[i]
		}
	}
	if last == nil {
		return nil
	}
	return p.appendInteraction(ctx, chatID, *last, false, "")
}

func (p *Pipeline) appendInteraction(ctx context.Context, chatID string, msg models.ChatMessage, tainted bool, reason string) error {
	return p.Store.Interactions.Append(ctx, &models.Interaction{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		Content:     msg,
		Tainted:     tainted,
		TaintReason: reason,
	})
}

// resolveToolNames walks assistant tool_calls to map each tool_call_id to
// the tool name that proposed it, so a later role=tool message can be
// attributed to a tool without re-deriving it from the result itself.
func resolveToolNames(messages []models.ChatMessage) map[string]string {
	out := map[string]string{}
	for _, m := range messages {
		if m.Role != models.RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			out[tc.ID] = tc.Function.Name
		}
	}
	return out
}

func parseOrPassthrough(content models.RawJSON) models.RawJSON {
	s, ok := content.(string)
	if !ok {
		return content
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func derefTrusted(in []*models.TrustedDataPolicy) []models.TrustedDataPolicy {
	out := make([]models.TrustedDataPolicy, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func derefInvocation(in []*models.ToolInvocationPolicy) []models.ToolInvocationPolicy {
	out := make([]models.ToolInvocationPolicy, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}
