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

type agentRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}
	now := time.Now().UTC()
	agent := &models.Agent{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Agents.Create(r.Context(), agent); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, s.log(), http.StatusConflict, "already_exists", "agent name already in use")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to create agent")
		return
	}
	writeJSON(w, s.log(), http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.Store.Agents.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown agent")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load agent")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, agent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.Store.Agents.List(r.Context())
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list agents")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": agents})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	agent, err := s.Store.Agents.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown agent")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load agent")
		return
	}
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}
	agent.Name = req.Name
	agent.UpdatedAt = time.Now().UTC()
	if err := s.Store.Agents.Update(r.Context(), agent); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to update agent")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Agents.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown agent")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
