// Package quarantine implements the dual-LLM sub-agent: a privileged LLM
// that only ever sees quarantined-LLM summaries of untrusted tool output,
// never the untrusted bytes themselves.
package quarantine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/archestra/guard/pkg/models"
)

// ErrNoOriginalRequest is returned when no user message can be found to
// anchor the sanitisation loop.
var ErrNoOriginalRequest = errors.New("quarantine: no original user request found")

// ErrAnchorNotFound is returned when anchor (tool_call_id / tool_use_id)
// does not resolve to a tool-result message in the conversation.
var ErrAnchorNotFound = errors.New("quarantine: anchor does not resolve to a tool result")

// Provider selects the message-shape adapter used to extract the two
// strings the sub-agent reasons over.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Extracted holds the two values pulled out of the host conversation before
// the quarantine loop starts.
type Extracted struct {
	OriginalUserRequest string
	ToolResult          models.RawJSON
}

// Extract pulls the original user request and the anchored tool result out
// of messages, following the shape-specific rules of provider.
func Extract(provider Provider, messages []models.ChatMessage, anchor string) (*Extracted, error) {
	switch provider {
	case ProviderAnthropic:
		return extractAnthropic(messages, anchor)
	default:
		return extractOpenAI(messages, anchor)
	}
}

// extractOpenAI: original user request = content of the last role=user
// message (stringified if multimodal); tool result = the role=tool message
// whose tool_call_id equals anchor, JSON-parsed when possible.
func extractOpenAI(messages []models.ChatMessage, anchor string) (*Extracted, error) {
	var request string
	var haveRequest bool
	var result models.RawJSON
	var haveResult bool

	for _, m := range messages {
		if m.Role == models.RoleUser {
			s, err := stringify(m.Content)
			if err != nil {
				return nil, fmt.Errorf("stringify user message: %w", err)
			}
			request, haveRequest = s, true
		}
		if m.Role == models.RoleTool && m.ToolCallID == anchor {
			result, haveResult = parseOrPassthrough(m.Content), true
		}
	}
	if !haveRequest {
		return nil, ErrNoOriginalRequest
	}
	if !haveResult {
		return nil, ErrAnchorNotFound
	}
	return &Extracted{OriginalUserRequest: request, ToolResult: result}, nil
}

// anthropicContentBlock is the minimal shape this package needs from an
// Anthropic-style content array entry; content is otherwise treated as
// opaque RawJSON elsewhere in the proxy.
type anthropicContentBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content"`
}

// extractAnthropic: original user request = last role=user message whose
// content contains a text block that is not a tool result; tool result =
// the tool_result content block whose tool_use_id equals anchor.
func extractAnthropic(messages []models.ChatMessage, anchor string) (*Extracted, error) {
	var request string
	var haveRequest bool
	var result models.RawJSON
	var haveResult bool

	for _, m := range messages {
		blocks, ok := asContentBlocks(m.Content)
		if !ok {
			continue
		}
		if m.Role == models.RoleUser {
			for _, b := range blocks {
				if b.Type == "text" && b.Text != "" {
					request, haveRequest = b.Text, true
				}
				if b.Type == "tool_result" && b.ToolUseID == anchor {
					result, haveResult = parseOrPassthrough(toRawJSON(b.Content)), true
				}
			}
		}
	}
	if !haveRequest {
		return nil, ErrNoOriginalRequest
	}
	if !haveResult {
		return nil, ErrAnchorNotFound
	}
	return &Extracted{OriginalUserRequest: request, ToolResult: result}, nil
}

func asContentBlocks(content models.RawJSON) ([]anthropicContentBlock, bool) {
	arr, ok := content.([]any)
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(arr)
	if err != nil {
		return nil, false
	}
	var blocks []anthropicContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

func toRawJSON(v any) models.RawJSON {
	return v
}

// stringify renders message content as a string: content is passed through
// unchanged if already a string, else marshalled to its JSON form (the
// multimodal case).
func stringify(content models.RawJSON) (string, error) {
	switch c := content.(type) {
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

// parseOrPassthrough JSON-decodes a string payload when it parses as JSON;
// otherwise (or for non-string content) it is returned unchanged.
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
