package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/archestra/guard/pkg/models"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient implements Client against the Anthropic messages API. It
// exists for the dual-LLM sanitiser, which must work when the caller's
// conversation is Anthropic-shaped, even though the public forwarding
// surface stays OpenAI-compatible.
type AnthropicClient struct {
	client anthropic.Client
	hasKey bool
	retrier
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	c := &AnthropicClient{retrier: newRetrier()}
	if apiKey == "" {
		return c
	}
	c.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	c.hasKey = true
	return c
}

func (c *AnthropicClient) ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	if !c.hasKey {
		return nil, ErrNoAPIKey
	}
	params, err := toAnthropicParams(req)
	if err != nil {
		return nil, err
	}

	var resp *anthropic.Message
	err = c.retrier.do(ctx, func() error {
		var callErr error
		resp, callErr = c.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	return fromAnthropicMessage(resp), nil
}

// ChatCompletionStream is a single-chunk degenerate stream: Anthropic is
// only used for non-streaming sanitiser turns here, not live forwarding.
func (c *AnthropicClient) ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest) (<-chan StreamChunk, error) {
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, 2)
	if len(resp.Choices) > 0 {
		out <- StreamChunk{Delta: resp.Choices[0].Message, FinishReason: resp.Choices[0].FinishReason}
	}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

func (c *AnthropicClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{ID: "claude-sonnet-4-20250514"},
		{ID: "claude-opus-4-20250514"},
	}, nil
}

func toAnthropicParams(req *models.ChatCompletionRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := int64(1024)
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
	}

	if len(req.Tools) > 0 {
		tools, err := toAnthropicTools(req.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}
	if len(req.ToolChoice) > 0 {
		choice, err := toAnthropicToolChoice(req.ToolChoice)
		if err != nil {
			return params, err
		}
		params.ToolChoice = choice
	}

	for _, m := range req.Messages {
		if m.Role == models.RoleSystem {
			text, err := contentToString(m.Content)
			if err != nil {
				return params, fmt.Errorf("convert system message: %w", err)
			}
			params.System = []anthropic.TextBlockParam{{Type: "text", Text: text}}
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		if m.Role == models.RoleTool {
			text, err := contentToString(m.Content)
			if err != nil {
				return params, fmt.Errorf("convert tool result: %w", err)
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(m.ToolCallID, text, false))
		} else {
			text, err := contentToString(m.Content)
			if err != nil {
				return params, fmt.Errorf("convert message content: %w", err)
			}
			if text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
						return params, fmt.Errorf("invalid tool call arguments: %w", err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}
		}

		if m.Role == models.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}
	return params, nil
}

// toAnthropicTools converts the OpenAI-shaped tool list carried on the wire
// into Anthropic tool definitions.
func toAnthropicTools(raw json.RawMessage) ([]anthropic.ToolUnionParam, error) {
	var defs []struct {
		Type     string `json:"type"`
		Function struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Parameters  json.RawMessage `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}

	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Type != "function" {
			continue
		}
		var schema anthropic.ToolInputSchemaParam
		if len(def.Function.Parameters) > 0 {
			if err := json.Unmarshal(def.Function.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("invalid tool schema for %s: %w", def.Function.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, def.Function.Name)
		if param.OfTool != nil && def.Function.Description != "" {
			param.OfTool.Description = anthropic.String(def.Function.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// toAnthropicToolChoice maps the OpenAI-shaped tool_choice value — a mode
// string or a {"type":"function","function":{"name":...}} object — onto the
// Anthropic equivalent. Forcing a named tool must survive this conversion:
// the quarantined LLM's structured reply depends on it.
func toAnthropicToolChoice(raw json.RawMessage) (anthropic.ToolChoiceUnionParam, error) {
	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case "auto":
			return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, nil
		case "required":
			return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}, nil
		case "none":
			return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, nil
		default:
			return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("unsupported tool_choice %q", mode)
		}
	}

	var choice struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &choice); err != nil {
		return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("decode tool_choice: %w", err)
	}
	if choice.Type != "function" || choice.Function.Name == "" {
		return anthropic.ToolChoiceUnionParam{}, fmt.Errorf("unsupported tool_choice type %q", choice.Type)
	}
	return anthropic.ToolChoiceParamOfTool(choice.Function.Name), nil
}

func fromAnthropicMessage(msg *anthropic.Message) *models.ChatCompletionResponse {
	out := &models.ChatCompletionResponse{ID: msg.ID, Model: string(msg.Model)}
	chatMsg := models.ChatMessage{Role: models.RoleAssistant}

	var text string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			toolUse := block.AsToolUse()
			args, _ := json.Marshal(toolUse.Input)
			chatMsg.ToolCalls = append(chatMsg.ToolCalls, models.ToolCall{
				ID:   toolUse.ID,
				Type: "function",
				Function: models.ToolCallFunc{
					Name:      toolUse.Name,
					Arguments: string(args),
				},
			})
		}
	}
	chatMsg.Content = text

	out.Choices = []models.ChatCompletionChoice{{
		Index:        0,
		Message:      chatMsg,
		FinishReason: string(msg.StopReason),
	}}
	out.Usage = &models.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return out
}
