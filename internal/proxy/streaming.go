package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/pkg/models"
)

// sseFrame is one "data: <json>\n\n" wire frame, matching the provider's own
// chat.completion.chunk envelope closely enough for clients that only look
// at choices[0].delta and choices[0].finish_reason.
type sseFrame struct {
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Index        int                `json:"index"`
	Delta        models.ChatMessage `json:"delta"`
	FinishReason string             `json:"finish_reason,omitempty"`
}

type sseErrorFrame struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// HandleChatCompletionStream runs the streaming egress path. Headers are
// written once, up front; after that every failure (including a
// tool-invocation denial) is surfaced as a terminal SSE event rather than an
// HTTP status change, since none is possible once the body has started.
//
// The tool-invocation gate can't run per-delta — arguments arrive in
// fragments — so tool-call deltas are buffered and reassembled into the
// final tool_calls list once the upstream stream reports finish_reason, then
// evaluated exactly as the non-streaming egress gate does.
func (p *Pipeline) HandleChatCompletionStream(ctx context.Context, w http.ResponseWriter, provider, chatID string, req *models.ChatCompletionRequest) {
	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	client, chat, perr := p.prepare(ctx, provider, chatID)
	if perr != nil {
		writeSSEError(w, perr.Message, string(perr.Kind))
		flush()
		writeSSEDone(w)
		flush()
		return
	}

	if err := p.ingress(ctx, provider, chat, req); err != nil {
		writeSSEError(w, "inbound tool-result processing failed", string(ErrUpstream))
		flush()
		writeSSEDone(w)
		flush()
		return
	}
	if err := p.persistLastUserMessage(ctx, chat.ID, req.Messages); err != nil {
		p.log().Error("persist user message failed", "error", err)
	}

	stream, err := client.ChatCompletionStream(ctx, req)
	if err != nil {
		kind, message := ErrUpstream, "upstream chat completion stream failed"
		if errors.Is(err, llmclient.ErrNoAPIKey) {
			kind, message = ErrConfiguration, "no API key configured for provider "+provider
		}
		writeSSEError(w, message, string(kind))
		flush()
		writeSSEDone(w)
		flush()
		return
	}

	assembled := models.ChatMessage{Role: models.RoleAssistant}
	for chunk := range stream {
		if chunk.Err != nil {
			writeSSEError(w, chunk.Err.Error(), string(ErrUpstream))
			flush()
			writeSSEDone(w)
			flush()
			return
		}
		if chunk.Done {
			break
		}
		if len(chunk.Delta.ToolCalls) > 0 {
			assembled.ToolCalls = append(assembled.ToolCalls, chunk.Delta.ToolCalls...)
		}
		if s, ok := chunk.Delta.Content.(string); ok && s != "" {
			if s2, ok2 := assembled.Content.(string); ok2 {
				assembled.Content = s2 + s
			} else {
				assembled.Content = s
			}
		}
		writeSSEFrame(w, chunk.Delta, chunk.FinishReason)
		flush()
	}

	if perr := p.egressGate(ctx, chat.AgentID, assembled); perr != nil {
		writeSSEError(w, perr.Message, string(perr.Kind))
		flush()
		writeSSEDone(w)
		flush()
		return
	}

	if err := p.appendInteraction(ctx, chat.ID, assembled, false, ""); err != nil {
		p.log().Error("persist assistant message failed", "error", err)
	}

	writeSSEDone(w)
	flush()
}

func writeSSEFrame(w http.ResponseWriter, delta models.ChatMessage, finishReason string) {
	frame := sseFrame{Choices: []sseChoice{{Delta: delta, FinishReason: finishReason}}}
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func writeSSEError(w http.ResponseWriter, message, kind string) {
	var frame sseErrorFrame
	frame.Error.Message = message
	frame.Error.Type = kind
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func writeSSEDone(w http.ResponseWriter) {
	fmt.Fprint(w, "data: [DONE]\n\n")
}
