package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/archestra/guard/internal/policyeval"
	"github.com/archestra/guard/pkg/models"
)

// handleEvaluateInvocation is a policy dry-run endpoint: it runs
// EvaluateInvocation against sample arguments without a live chat
// completion, for an operator testing a tool-invocation policy set.
func (s *Server) handleEvaluateInvocation(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	toolName := r.PathValue("tool")

	var body struct {
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "malformed request body")
		return
	}
	args, err := models.ParseJSON(body.Arguments)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "arguments must be valid JSON")
		return
	}

	policies, err := s.Store.ToolInvocationPolicy.ListForAgentAndTool(r.Context(), agentID, toolName)
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list policies")
		return
	}
	result := policyeval.EvaluateInvocation(derefInvocation(policies), args)
	writeJSON(w, s.log(), http.StatusOK, result)
}

// handleEvaluateTrusted is the trusted-data companion to
// handleEvaluateInvocation: a dry-run over EvaluateTrusted.
func (s *Server) handleEvaluateTrusted(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	toolName := r.PathValue("tool")

	var body struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "malformed request body")
		return
	}
	toolResult, err := models.ParseJSON(body.Result)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "result must be valid JSON")
		return
	}

	policies, err := s.Store.TrustedDataPolicy.ListForAgentAndTool(r.Context(), agentID, toolName)
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list policies")
		return
	}
	result := policyeval.EvaluateTrusted(derefTrusted(policies), toolResult)
	writeJSON(w, s.log(), http.StatusOK, result)
}

func derefInvocation(in []*models.ToolInvocationPolicy) []models.ToolInvocationPolicy {
	out := make([]models.ToolInvocationPolicy, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func derefTrusted(in []*models.TrustedDataPolicy) []models.TrustedDataPolicy {
	out := make([]models.TrustedDataPolicy, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}
