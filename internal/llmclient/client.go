// Package llmclient is the typed upstream LLM collaborator interface:
// chatCompletion, chatCompletionStream, and listModels, implemented once per
// provider shape (OpenAI, Anthropic) and selected by name at the proxy edge.
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/archestra/guard/pkg/models"
)

// ErrUnsupportedProvider is returned by New when provider isn't recognised.
var ErrUnsupportedProvider = errors.New("llmclient: unsupported provider")

// StreamChunk is one increment of a streamed chat completion: either a text
// delta, a (possibly partial) tool-call delta, or a terminal error.
type StreamChunk struct {
	Delta        models.ChatMessage
	FinishReason string
	Done         bool
	Err          error
}

// Model is a passthrough model listing entry.
type Model struct {
	ID string `json:"id"`
}

// Client is the per-provider upstream collaborator. Implementations own
// their own retry and error-classification policy.
type Client interface {
	ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
	ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest) (<-chan StreamChunk, error)
	ListModels(ctx context.Context) ([]Model, error)
}

// New constructs the Client for provider ("openai" or "anthropic") using
// apiKey. Anthropic exists primarily for the dual-LLM sanitiser; the
// forwarding path is OpenAI-compatible.
func New(provider, apiKey string) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey), nil
	case "anthropic":
		return NewAnthropicClient(apiKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}
