package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/archestra/guard/pkg/models"
)

// OpenAIClient implements Client against the OpenAI chat-completions API.
// It is also the adapter used for any OpenAI-compatible upstream (the proxy
// never assumes the host is literally api.openai.com).
type OpenAIClient struct {
	client *openai.Client
	retrier
}

// NewOpenAIClient constructs a Client bound to apiKey. An empty apiKey
// yields a client that fails every call with ErrNoAPIKey, rather than
// panicking, so misconfiguration surfaces as a normal request error.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	c := &OpenAIClient{retrier: newRetrier()}
	if apiKey != "" {
		client := openai.NewClient(apiKey)
		c.client = client
	}
	return c
}

// ErrNoAPIKey is returned when a Client was constructed without credentials.
var ErrNoAPIKey = errors.New("llmclient: no API key configured")

func (c *OpenAIClient) ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	if c.client == nil {
		return nil, ErrNoAPIKey
	}
	oaiReq, err := toOpenAIRequest(req)
	if err != nil {
		return nil, err
	}
	oaiReq.Stream = false

	var resp openai.ChatCompletionResponse
	err = c.retrier.do(ctx, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, oaiReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return fromOpenAIResponse(&resp), nil
}

func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest) (<-chan StreamChunk, error) {
	if c.client == nil {
		return nil, ErrNoAPIKey
	}
	oaiReq, err := toOpenAIRequest(req)
	if err != nil {
		return nil, err
	}
	oaiReq.Stream = true

	var stream *openai.ChatCompletionStream
	err = c.retrier.do(ctx, func() error {
		var callErr error
		stream, callErr = c.client.CreateChatCompletionStream(ctx, oaiReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion stream: %w", err)
	}

	out := make(chan StreamChunk)
	go relayOpenAIStream(ctx, stream, out)
	return out, nil
}

func relayOpenAIStream(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- StreamChunk) {
	defer close(out)
	defer stream.Close()

	// toolCalls accumulates fragments keyed by the provider's tool-call
	// index, since argument JSON arrives incrementally across chunks.
	toolCalls := map[int]*models.ToolCall{}

	for {
		select {
		case <-ctx.Done():
			out <- StreamChunk{Err: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				out <- StreamChunk{Done: true}
				return
			}
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			out <- StreamChunk{Delta: models.ChatMessage{Role: models.RoleAssistant, Content: delta.Content}}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			existing, ok := toolCalls[index]
			if !ok {
				existing = &models.ToolCall{Type: "function"}
				toolCalls[index] = existing
			}
			if tc.ID != "" {
				existing.ID = tc.ID
			}
			if tc.Function.Name != "" {
				existing.Function.Name = tc.Function.Name
			}
			existing.Function.Arguments += tc.Function.Arguments
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			var calls []models.ToolCall
			for _, tc := range toolCalls {
				calls = append(calls, *tc)
			}
			out <- StreamChunk{
				Delta:        models.ChatMessage{Role: models.RoleAssistant, ToolCalls: calls},
				FinishReason: string(choice.FinishReason),
			}
			toolCalls = map[int]*models.ToolCall{}
		} else if choice.FinishReason != "" {
			out <- StreamChunk{FinishReason: string(choice.FinishReason)}
		}
	}
}

func (c *OpenAIClient) ListModels(ctx context.Context) ([]Model, error) {
	if c.client == nil {
		return nil, ErrNoAPIKey
	}
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	out := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, Model{ID: m.ID})
	}
	return out, nil
}

// defaultOpenAIModel is used for internally-originated calls (the dual-LLM
// loop) that don't carry a client-chosen model.
const defaultOpenAIModel = openai.GPT4oMini

func toOpenAIRequest(req *models.ChatCompletionRequest) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		content, err := contentToString(m.Content)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("convert message content: %w", err)
		}
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		messages = append(messages, oaiMsg)
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if out.Model == "" {
		out.Model = defaultOpenAIModel
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		if err := json.Unmarshal(req.Tools, &out.Tools); err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("decode tools: %w", err)
		}
	}
	if len(req.ToolChoice) > 0 {
		var choice any
		if err := json.Unmarshal(req.ToolChoice, &choice); err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("decode tool_choice: %w", err)
		}
		out.ToolChoice = choice
	}
	return out, nil
}

func fromOpenAIResponse(resp *openai.ChatCompletionResponse) *models.ChatCompletionResponse {
	out := &models.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	for _, choice := range resp.Choices {
		msg := models.ChatMessage{
			Role:    models.Role(choice.Message.Role),
			Content: choice.Message.Content,
		}
		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: models.ToolCallFunc{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, models.ChatCompletionChoice{
			Index:        choice.Index,
			Message:      msg,
			FinishReason: string(choice.FinishReason),
		})
	}
	return out
}

// contentToString accepts either a plain string or an already-decoded JSON
// value (e.g. a multimodal content array) and returns the string OpenAI's
// non-vision fields expect; multimodal content is passed through the
// provider's MultiContent field only by the dedicated vision path, which
// this proxy's guardrail surface does not need to inspect.
func contentToString(v models.RawJSON) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
