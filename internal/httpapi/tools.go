package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/archestra/guard/internal/policyeval"
	"github.com/archestra/guard/internal/store"
	"github.com/archestra/guard/pkg/models"
)

type toolRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if _, err := s.Store.Agents.Get(r.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown agent")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load agent")
		return
	}

	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}
	params, err := models.ParseJSON(req.Parameters)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "parameters must be valid JSON Schema")
		return
	}
	if err := policyeval.ValidateSchemaDocument(params); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	now := time.Now().UTC()
	tool := &models.Tool{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Name:        req.Name,
		Description: req.Description,
		Parameters:  params,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Tools.Create(r.Context(), tool); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, s.log(), http.StatusConflict, "already_exists", "tool name already in use")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to create tool")
		return
	}
	writeJSON(w, s.log(), http.StatusCreated, tool)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.Store.Tools.ListByAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list tools")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": tools})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.Store.Tools.Get(r.Context(), r.PathValue("toolID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown tool")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load tool")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, tool)
}

func (s *Server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("toolID")
	tool, err := s.Store.Tools.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown tool")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load tool")
		return
	}
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}
	params, err := models.ParseJSON(req.Parameters)
	if err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "parameters must be valid JSON Schema")
		return
	}
	if err := policyeval.ValidateSchemaDocument(params); err != nil {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	tool.Name = req.Name
	tool.Description = req.Description
	tool.Parameters = params
	tool.UpdatedAt = time.Now().UTC()
	if err := s.Store.Tools.Update(r.Context(), tool); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to update tool")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, tool)
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Tools.Delete(r.Context(), r.PathValue("toolID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown tool")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to delete tool")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
