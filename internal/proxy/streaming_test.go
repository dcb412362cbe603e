package proxy

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/pkg/models"
)

type streamingClient struct {
	chunks []llmclient.StreamChunk
}

func (c *streamingClient) ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	return &models.ChatCompletionResponse{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Role: models.RoleAssistant, Content: "DONE"}}}}, nil
}

func (c *streamingClient) ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest) (<-chan llmclient.StreamChunk, error) {
	out := make(chan llmclient.StreamChunk, len(c.chunks)+1)
	for _, ch := range c.chunks {
		out <- ch
	}
	out <- llmclient.StreamChunk{Done: true}
	close(out)
	return out, nil
}

func (c *streamingClient) ListModels(ctx context.Context) ([]llmclient.Model, error) { return nil, nil }

func TestHandleChatCompletionStream_RelaysDeltasAndTerminatesWithDone(t *testing.T) {
	s := newTestStore(t)
	_, chatID, _ := seedAgentChatTool(t, s)

	client := &streamingClient{chunks: []llmclient.StreamChunk{
		{Delta: models.ChatMessage{Role: models.RoleAssistant, Content: "hel"}},
		{Delta: models.ChatMessage{Role: models.RoleAssistant, Content: "lo"}, FinishReason: "stop"},
	}}
	p := newPipeline(s, client)

	rec := httptest.NewRecorder()
	req := &models.ChatCompletionRequest{Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, Stream: true}
	p.HandleChatCompletionStream(context.Background(), rec, "openai", chatID, req)

	body := rec.Body.String()
	if !strings.Contains(body, `"hel"`) || !strings.Contains(body, `"lo"`) {
		t.Fatalf("body = %q, want both content deltas", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("body = %q, want it to terminate with [DONE]", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
}

func TestHandleChatCompletionStream_ToolInvocationDenialEmitsErrorEvent(t *testing.T) {
	s := newTestStore(t)
	agentID, chatID, toolID := seedAgentChatTool(t, s)

	policy := &models.ToolInvocationPolicy{
		ToolID: toolID, Description: "block", ArgumentName: "to",
		Operator: models.OpEndsWith, Value: "@evil.example.com", Action: models.ActionBlock,
	}
	if err := s.ToolInvocationPolicy.Create(context.Background(), policy); err != nil {
		t.Fatalf("create policy: %v", err)
	}
	if err := s.ToolInvocationPolicy.Assign(context.Background(), agentID, policy.ID); err != nil {
		t.Fatalf("assign policy: %v", err)
	}

	client := &streamingClient{chunks: []llmclient.StreamChunk{
		{Delta: models.ChatMessage{ToolCalls: []models.ToolCall{{
			ID: "call_1", Type: "function",
			Function: models.ToolCallFunc{Name: "send_email", Arguments: `{"to":"x@evil.example.com"}`},
		}}}, FinishReason: "tool_calls"},
	}}
	p := newPipeline(s, client)

	rec := httptest.NewRecorder()
	req := &models.ChatCompletionRequest{Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "send it"}}, Stream: true}
	p.HandleChatCompletionStream(context.Background(), rec, "openai", chatID, req)

	body := rec.Body.Bytes()
	if !bytes.Contains(body, []byte("tool_invocation_blocked")) {
		t.Fatalf("body = %s, want a tool_invocation_blocked error event", body)
	}
	if !strings.HasSuffix(string(body), "data: [DONE]\n\n") {
		t.Fatalf("body = %s, want it to still terminate with [DONE]", body)
	}

	// no HTTP status change is possible mid-stream: the response is 200.
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200 (SSE status can't change after headers flush)", rec.Code)
	}
}
