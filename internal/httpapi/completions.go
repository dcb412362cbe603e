package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/archestra/guard/internal/proxy"
	"github.com/archestra/guard/pkg/models"
)

// chatIDHeader carries the caller's chat handle: the proxy is stateless
// across requests except for what this header resolves.
const chatIDHeader = "X-Archestra-Chat-Id"

// handleChatCompletion dispatches POST /v1/{provider}/chat/completions to
// either the streaming or non-streaming pipeline depending on the request
// body's "stream" field, mirroring the upstream API's own dispatch rule.
func (s *Server) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	chatID := r.Header.Get(chatIDHeader)

	var req models.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, string(proxy.ErrInvalidRequest), "malformed request body")
		return
	}

	if req.Stream {
		s.Pipeline.HandleChatCompletionStream(r.Context(), w, provider, chatID, &req)
		return
	}

	resp, perr := s.Pipeline.HandleChatCompletion(r.Context(), provider, chatID, &req)
	if perr != nil {
		writeError(w, s.log(), perr.Status, string(perr.Kind), perr.Message)
		return
	}
	writeJSON(w, s.log(), http.StatusOK, resp)
}

// handleListModels proxies the upstream provider's model listing, applying
// no guardrail logic — this is a plain passthrough route.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	client, err := s.Pipeline.Clients(provider)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, string(proxy.ErrInvalidRequest), "unsupported provider: "+provider)
		return
	}
	list, err := client.ListModels(r.Context())
	if err != nil {
		writeError(w, s.log(), http.StatusBadGateway, string(proxy.ErrUpstream), "upstream model listing failed")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"object": "list", "data": list})
}
