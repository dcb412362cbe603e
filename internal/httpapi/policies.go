package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/archestra/guard/internal/store"
	"github.com/archestra/guard/pkg/models"
)

type invocationPolicyRequest struct {
	ToolID       string              `json:"tool_id"`
	Description  string              `json:"description"`
	ArgumentName string              `json:"argument_name"`
	Operator     models.Operator     `json:"operator"`
	Value        json.RawMessage     `json:"value"`
	Action       models.PolicyAction `json:"action"`
	BlockPrompt  string              `json:"block_prompt"`
}

func (s *Server) handleCreateInvocationPolicy(w http.ResponseWriter, r *http.Request) {
	var req invocationPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "malformed request body")
		return
	}
	if !req.Operator.Valid() {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "unknown operator")
		return
	}
	value, err := models.ParseJSON(req.Value)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "value must be valid JSON")
		return
	}
	p := &models.ToolInvocationPolicy{
		ID:           uuid.NewString(),
		ToolID:       req.ToolID,
		Description:  req.Description,
		ArgumentName: req.ArgumentName,
		Operator:     req.Operator,
		Value:        value,
		Action:       req.Action,
		BlockPrompt:  req.BlockPrompt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.ToolInvocationPolicy.Create(r.Context(), p); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to create policy")
		return
	}
	writeJSON(w, s.log(), http.StatusCreated, p)
}

func (s *Server) handleListInvocationPolicies(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.ToolInvocationPolicy.List(r.Context())
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list policies")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleUpdateInvocationPolicy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.Store.ToolInvocationPolicy.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown policy")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load policy")
		return
	}
	var req invocationPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Operator.Valid() {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "invalid policy body")
		return
	}
	value, err := models.ParseJSON(req.Value)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "value must be valid JSON")
		return
	}
	p.Description = req.Description
	p.ArgumentName = req.ArgumentName
	p.Operator = req.Operator
	p.Value = value
	p.Action = req.Action
	p.BlockPrompt = req.BlockPrompt
	if err := s.Store.ToolInvocationPolicy.Update(r.Context(), p); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to update policy")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, p)
}

func (s *Server) handleDeleteInvocationPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.ToolInvocationPolicy.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to delete policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignInvocationPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.ToolInvocationPolicy.Assign(r.Context(), r.PathValue("id"), r.PathValue("policyID")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to assign policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignInvocationPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.ToolInvocationPolicy.Unassign(r.Context(), r.PathValue("id"), r.PathValue("policyID")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to unassign policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type trustedPolicyRequest struct {
	ToolID        string          `json:"tool_id"`
	Description   string          `json:"description"`
	AttributePath string          `json:"attribute_path"`
	Operator      models.Operator `json:"operator"`
	Value         json.RawMessage `json:"value"`
}

func (s *Server) handleCreateTrustedPolicy(w http.ResponseWriter, r *http.Request) {
	var req trustedPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Operator.Valid() {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "invalid policy body")
		return
	}
	value, err := models.ParseJSON(req.Value)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "value must be valid JSON")
		return
	}
	p := &models.TrustedDataPolicy{
		ID:            uuid.NewString(),
		ToolID:        req.ToolID,
		Description:   req.Description,
		AttributePath: req.AttributePath,
		Operator:      req.Operator,
		Value:         value,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Store.TrustedDataPolicy.Create(r.Context(), p); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to create policy")
		return
	}
	writeJSON(w, s.log(), http.StatusCreated, p)
}

func (s *Server) handleListTrustedPolicies(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.TrustedDataPolicy.List(r.Context())
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list policies")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleUpdateTrustedPolicy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.Store.TrustedDataPolicy.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown policy")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load policy")
		return
	}
	var req trustedPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Operator.Valid() {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "invalid policy body")
		return
	}
	value, err := models.ParseJSON(req.Value)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "value must be valid JSON")
		return
	}
	p.Description = req.Description
	p.AttributePath = req.AttributePath
	p.Operator = req.Operator
	p.Value = value
	if err := s.Store.TrustedDataPolicy.Update(r.Context(), p); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to update policy")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, p)
}

func (s *Server) handleDeleteTrustedPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.TrustedDataPolicy.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to delete policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignTrustedPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.TrustedDataPolicy.Assign(r.Context(), r.PathValue("id"), r.PathValue("policyID")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to assign policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignTrustedPolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.TrustedDataPolicy.Unassign(r.Context(), r.PathValue("id"), r.PathValue("policyID")); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to unassign policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
