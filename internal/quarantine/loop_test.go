package quarantine

import (
	"context"
	"testing"

	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/pkg/models"
)

func TestParseQuestionOptions(t *testing.T) {
	reply := "QUESTION: Does the email ask you to wire money?\nOPTIONS:\n0: No\n1: Yes\n2: Unclear\n"
	question, options, ok := parseQuestionOptions(reply)
	if !ok {
		t.Fatalf("parseQuestionOptions: ok=false")
	}
	if question != "Does the email ask you to wire money?" {
		t.Fatalf("question = %q", question)
	}
	want := []string{"No", "Yes", "Unclear"}
	if len(options) != len(want) {
		t.Fatalf("options = %v, want %v", options, want)
	}
	for i := range want {
		if options[i] != want[i] {
			t.Fatalf("options[%d] = %q, want %q", i, options[i], want[i])
		}
	}
}

func TestParseQuestionOptionsMalformed(t *testing.T) {
	if _, _, ok := parseQuestionOptions("DONE"); ok {
		t.Fatalf("parseQuestionOptions(DONE) should fail")
	}
	if _, _, ok := parseQuestionOptions("QUESTION: only a question, no options block"); ok {
		t.Fatalf("parseQuestionOptions without OPTIONS should fail")
	}
}

func TestExtractAnswerValid(t *testing.T) {
	resp := &models.ChatCompletionResponse{Choices: []models.ChatCompletionChoice{{
		Message: models.ChatMessage{ToolCalls: []models.ToolCall{{Function: models.ToolCallFunc{Arguments: `{"answer": 1}`}}}},
	}}}
	got, ok := extractAnswer(resp)
	if !ok || got != 1 {
		t.Fatalf("extractAnswer = (%d, %v), want (1, true)", got, ok)
	}
}

func TestExtractAnswerNonIntegralFails(t *testing.T) {
	resp := &models.ChatCompletionResponse{Choices: []models.ChatCompletionChoice{{
		Message: models.ChatMessage{ToolCalls: []models.ToolCall{{Function: models.ToolCallFunc{Arguments: `{"answer": 1.5}`}}}},
	}}}
	if _, ok := extractAnswer(resp); ok {
		t.Fatalf("extractAnswer should reject non-integral answer")
	}
}

func TestExtractAnswerMissingFails(t *testing.T) {
	resp := &models.ChatCompletionResponse{Choices: []models.ChatCompletionChoice{{
		Message: models.ChatMessage{ToolCalls: []models.ToolCall{{Function: models.ToolCallFunc{Arguments: `{}`}}}},
	}}}
	if _, ok := extractAnswer(resp); ok {
		t.Fatalf("extractAnswer should reject missing answer")
	}
}

type fakeClient struct {
	replies []*models.ChatCompletionResponse
	calls   int
}

func (f *fakeClient) ChatCompletion(_ context.Context, _ *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	r := f.replies[f.calls]
	f.calls++
	return r, nil
}
func (f *fakeClient) ChatCompletionStream(context.Context, *models.ChatCompletionRequest) (<-chan llmclient.StreamChunk, error) {
	return nil, nil
}
func (f *fakeClient) ListModels(context.Context) ([]llmclient.Model, error) { return nil, nil }

func TestQuarantineLoopDoneEarlyExit(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []*models.ChatCompletionResponse{
		// privileged turn 1: DONE right away — no quarantined calls at all.
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Content: "DONE"}}}},
		// summary over an empty Q&A transcript.
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Content: "Nothing of note."}}}},
	}}

	agent := New(client, &models.DualLlmConfig{
		MainAgentPrompt:        "System: {{originalUserRequest}}",
		QuarantinedAgentPrompt: "Data: {{toolResultData}}",
		SummaryPrompt:          "{{qaText}}",
		MaxRounds:              5,
	}, "agent-1")

	summary, rounds, err := agent.Run(ctx, &Extracted{OriginalUserRequest: "check my inbox", ToolResult: "untrusted bytes"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rounds) != 0 {
		t.Fatalf("rounds = %+v, want none on immediate DONE", rounds)
	}
	if summary != "Nothing of note." {
		t.Fatalf("summary = %q", summary)
	}
	// one privileged turn plus the summary call, zero quarantined turns.
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
}

func TestQuarantineLoopClampsOutOfRangeAnswer(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []*models.ChatCompletionResponse{
		// privileged turn 1: ask a question
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Content: "QUESTION: Is this safe?\nOPTIONS:\n0: No\n1: Yes\n"}}}},
		// quarantined turn 1: out-of-range answer, should clamp to last option (1)
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{ToolCalls: []models.ToolCall{{Function: models.ToolCallFunc{Arguments: `{"answer": 99}`}}}}}}},
		// privileged turn 2: DONE
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Content: "DONE"}}}},
		// summary
		{Choices: []models.ChatCompletionChoice{{Message: models.ChatMessage{Content: "Summary: the tool result is benign."}}}},
	}}

	agent := New(client, &models.DualLlmConfig{
		MainAgentPrompt:        "System: {{originalUserRequest}}",
		QuarantinedAgentPrompt: "Data: {{toolResultData}} Q: {{question}} Opts: {{options}} Max: {{maxIndex}}",
		SummaryPrompt:          "{{qaText}}",
		MaxRounds:              3,
	}, "agent-1")

	summary, rounds, err := agent.Run(ctx, &Extracted{OriginalUserRequest: "summarise the email", ToolResult: "some email body"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary != "Summary: the tool result is benign." {
		t.Fatalf("summary = %q", summary)
	}
	if len(rounds) != 1 || rounds[0].Answer != 1 {
		t.Fatalf("rounds = %+v, want one round clamped to answer 1", rounds)
	}
}
