package store

import (
	"context"
	"testing"
	"time"

	"github.com/archestra/guard/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAgentAndTool(t *testing.T, s *Store) (agentID, toolID string) {
	t.Helper()
	ctx := context.Background()
	agent := &models.Agent{Name: "support-bot"}
	if err := s.Agents.Create(ctx, agent); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	tool := &models.Tool{AgentID: agent.ID, Name: "send_email"}
	if err := s.Tools.Create(ctx, tool); err != nil {
		t.Fatalf("create tool: %v", err)
	}
	return agent.ID, tool.ID
}

func TestToolInvocationPolicyListForAgentAndTool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, toolID := seedAgentAndTool(t, s)

	policy := &models.ToolInvocationPolicy{
		ToolID:       toolID,
		Description:  "block external recipients",
		ArgumentName: "to",
		Operator:     models.OpEndsWith,
		Value:        "@external.example.com",
		Action:       models.ActionBlock,
	}
	if err := s.ToolInvocationPolicy.Create(ctx, policy); err != nil {
		t.Fatalf("create policy: %v", err)
	}
	if err := s.ToolInvocationPolicy.Assign(ctx, agentID, policy.ID); err != nil {
		t.Fatalf("assign policy: %v", err)
	}

	got, err := s.ToolInvocationPolicy.ListForAgentAndTool(ctx, agentID, "send_email")
	if err != nil {
		t.Fatalf("ListForAgentAndTool: %v", err)
	}
	if len(got) != 1 || got[0].ID != policy.ID {
		t.Fatalf("ListForAgentAndTool = %+v, want [%s]", got, policy.ID)
	}

	// a different tool name must not match.
	none, err := s.ToolInvocationPolicy.ListForAgentAndTool(ctx, agentID, "delete_file")
	if err != nil {
		t.Fatalf("ListForAgentAndTool: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("ListForAgentAndTool(delete_file) = %+v, want empty", none)
	}

	if err := s.ToolInvocationPolicy.Unassign(ctx, agentID, policy.ID); err != nil {
		t.Fatalf("unassign policy: %v", err)
	}
	gone, err := s.ToolInvocationPolicy.ListForAgentAndTool(ctx, agentID, "send_email")
	if err != nil {
		t.Fatalf("ListForAgentAndTool after unassign: %v", err)
	}
	if len(gone) != 0 {
		t.Fatalf("ListForAgentAndTool after unassign = %+v, want empty", gone)
	}
}

func TestTrustedDataPolicyListForAgentAndTool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, toolID := seedAgentAndTool(t, s)

	policy := &models.TrustedDataPolicy{
		ToolID:        toolID,
		Description:   "trust verified sender",
		AttributePath: "sender.domain",
		Operator:      models.OpEqual,
		Value:         "example.com",
	}
	if err := s.TrustedDataPolicy.Create(ctx, policy); err != nil {
		t.Fatalf("create policy: %v", err)
	}
	if err := s.TrustedDataPolicy.Assign(ctx, agentID, policy.ID); err != nil {
		t.Fatalf("assign policy: %v", err)
	}

	got, err := s.TrustedDataPolicy.ListForAgentAndTool(ctx, agentID, "send_email")
	if err != nil {
		t.Fatalf("ListForAgentAndTool: %v", err)
	}
	if len(got) != 1 || got[0].AttributePath != "sender.domain" {
		t.Fatalf("ListForAgentAndTool = %+v", got)
	}
}

func TestInteractionAppendIsOrderedAndAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	agentID, _ := seedAgentAndTool(t, s)
	chat := &models.Chat{AgentID: agentID}
	if err := s.Chats.Create(ctx, chat); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	first := &models.Interaction{ChatID: chat.ID, Content: "hello"}
	if err := s.Interactions.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	second := &models.Interaction{ChatID: chat.ID, Content: "tool result", Tainted: true, TaintReason: "trusted-data policy did not match"}
	if err := s.Interactions.Append(ctx, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Interactions.ListByChatID(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, first.ID, second.ID)
	}
	if !got[1].Tainted || got[1].TaintReason == "" {
		t.Fatalf("second interaction taint invariant violated: %+v", got[1])
	}
	if got[0].Tainted {
		t.Fatalf("first interaction should not be tainted: %+v", got[0])
	}
}

func TestDualLlmResultUpsertIsIdempotentOnToolCallID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := seedAgentAndTool(t, s)

	result := &models.DualLlmResult{AgentID: agentID, ToolCallID: "call-1", Result: "first summary"}
	if err := s.DualLlmResults.Upsert(ctx, result); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated := &models.DualLlmResult{AgentID: agentID, ToolCallID: "call-1", Result: "resanitised summary"}
	if err := s.DualLlmResults.Upsert(ctx, updated); err != nil {
		t.Fatalf("upsert (re-sanitise): %v", err)
	}

	got, err := s.DualLlmResults.FindByToolCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Result != "resanitised summary" {
		t.Fatalf("Result = %q, want last-writer-wins overwrite", got.Result)
	}
}

func TestDualLlmResultPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := seedAgentAndTool(t, s)

	if err := s.DualLlmResults.Upsert(ctx, &models.DualLlmResult{AgentID: agentID, ToolCallID: "call-old", Result: "stale"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DualLlmResults.Upsert(ctx, &models.DualLlmResult{AgentID: agentID, ToolCallID: "call-fresh", Result: "recent"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Both rows were just created, so a 24h retention window is in the past
	// relative to them: nothing is old enough to purge yet.
	n, err := s.DualLlmResults.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 0 {
		t.Fatalf("purged = %d, want 0 (rows are younger than the cutoff)", n)
	}
	if _, err := s.DualLlmResults.FindByToolCallID(ctx, "call-old"); err != nil {
		t.Fatalf("call-old should still exist: %v", err)
	}

	// A negative age pushes the cutoff into the future, so every existing
	// row is now older than it and gets purged.
	n, err = s.DualLlmResults.PurgeOlderThan(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged = %d, want 2 (cutoff is in the future)", n)
	}
	if _, err := s.DualLlmResults.FindByToolCallID(ctx, "call-old"); err != ErrNotFound {
		t.Fatalf("call-old should be purged, got err=%v", err)
	}
}

func TestDualLlmConfigGetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.DualLlmConfig.Get(ctx); err != ErrNotFound {
		t.Fatalf("Get before Set = %v, want ErrNotFound", err)
	}

	cfg := &models.DualLlmConfig{
		MainAgentPrompt:        "You are the privileged assistant.",
		QuarantinedAgentPrompt: "Answer strictly in JSON.",
		SummaryPrompt:          "Summarise the finding.",
		MaxRounds:              3,
	}
	if err := s.DualLlmConfig.Set(ctx, cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.DualLlmConfig.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MaxRounds != 3 || got.SummaryPrompt != cfg.SummaryPrompt {
		t.Fatalf("Get = %+v, want %+v", got, cfg)
	}

	cfg.MaxRounds = 5
	if err := s.DualLlmConfig.Set(ctx, cfg); err != nil {
		t.Fatalf("Set (update): %v", err)
	}
	got, err = s.DualLlmConfig.Get(ctx)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.MaxRounds != 5 {
		t.Fatalf("MaxRounds = %d, want 5", got.MaxRounds)
	}
}

func TestToolCascadeDeletesInvocationPolicy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, toolID := seedAgentAndTool(t, s)

	policy := &models.ToolInvocationPolicy{
		ToolID: toolID, Description: "x", ArgumentName: "a",
		Operator: models.OpEqual, Value: "1", Action: models.ActionAllow,
	}
	if err := s.ToolInvocationPolicy.Create(ctx, policy); err != nil {
		t.Fatalf("create policy: %v", err)
	}
	if err := s.ToolInvocationPolicy.Assign(ctx, agentID, policy.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := s.Tools.Delete(ctx, toolID); err != nil {
		t.Fatalf("delete tool: %v", err)
	}

	if _, err := s.ToolInvocationPolicy.Get(ctx, policy.ID); err != ErrNotFound {
		t.Fatalf("policy survived tool cascade delete: err=%v", err)
	}
}
