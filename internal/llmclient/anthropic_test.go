package llmclient

import (
	"encoding/json"
	"testing"
)

func TestToAnthropicToolChoice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, got any)
	}{
		{
			name: "forced function carries the tool name",
			raw:  `{"type":"function","function":{"name":"submit_answer"}}`,
		},
		{
			name: "auto mode",
			raw:  `"auto"`,
		},
		{
			name: "required maps to any",
			raw:  `"required"`,
		},
		{
			name: "none mode",
			raw:  `"none"`,
		},
		{
			name:    "unknown mode is rejected",
			raw:     `"sometimes"`,
			wantErr: true,
		},
		{
			name:    "non-function object is rejected",
			raw:     `{"type":"retrieval"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toAnthropicToolChoice(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("toAnthropicToolChoice(%s): expected error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("toAnthropicToolChoice(%s): %v", tt.raw, err)
			}
		})
	}
}

func TestToAnthropicToolChoiceForcedToolName(t *testing.T) {
	got, err := toAnthropicToolChoice(json.RawMessage(`{"type":"function","function":{"name":"submit_answer"}}`))
	if err != nil {
		t.Fatalf("toAnthropicToolChoice: %v", err)
	}
	if got.OfTool == nil || got.OfTool.Name != "submit_answer" {
		t.Fatalf("got %+v, want a forced-tool choice naming submit_answer", got)
	}
}

func TestToAnthropicTools(t *testing.T) {
	raw := json.RawMessage(`[{
		"type": "function",
		"function": {
			"name": "submit_answer",
			"description": "Submit the index of the best option.",
			"parameters": {"type":"object","properties":{"answer":{"type":"integer"}},"required":["answer"]}
		}
	}]`)

	tools, err := toAnthropicTools(raw)
	if err != nil {
		t.Fatalf("toAnthropicTools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("len(tools) = %d, want 1", len(tools))
	}
	if tools[0].OfTool == nil || tools[0].OfTool.Name != "submit_answer" {
		t.Fatalf("tools[0] = %+v, want a tool named submit_answer", tools[0])
	}
}
