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

type createChatRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		writeError(w, s.log(), http.StatusBadRequest, "invalid_request_error", "agent_id is required")
		return
	}
	if _, err := s.Store.Agents.Get(r.Context(), req.AgentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown agent")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load agent")
		return
	}

	now := time.Now().UTC()
	chat := &models.Chat{
		ID:        uuid.NewString(),
		AgentID:   req.AgentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Chats.Create(r.Context(), chat); err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to create chat")
		return
	}
	writeJSON(w, s.log(), http.StatusCreated, map[string]string{"chatId": chat.ID})
}

// chatWithInteractions is the read shape for chat routes: the chat row
// joined with its interaction log ordered by createdAt ascending.
type chatWithInteractions struct {
	*models.Chat
	Interactions []*models.Interaction `json:"interactions"`
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.Store.Chats.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown chat")
		return
	}
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load chat")
		return
	}
	interactions, err := s.Store.Interactions.ListByChatID(r.Context(), chat.ID)
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list interactions")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, chatWithInteractions{Chat: chat, Interactions: interactions})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.Store.Chats.List(r.Context())
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list chats")
		return
	}
	out := make([]chatWithInteractions, 0, len(chats))
	for _, chat := range chats {
		interactions, err := s.Store.Interactions.ListByChatID(r.Context(), chat.ID)
		if err != nil {
			writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list interactions")
			return
		}
		out = append(out, chatWithInteractions{Chat: chat, Interactions: interactions})
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": out})
}

// handleListInteractions exposes the append-only interaction log for a chat,
// including each row's taint verdict, for audit/debugging.
func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if _, err := s.Store.Chats.Get(r.Context(), chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, s.log(), http.StatusNotFound, "not_found", "unknown chat")
			return
		}
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to load chat")
		return
	}
	interactions, err := s.Store.Interactions.ListByChatID(r.Context(), chatID)
	if err != nil {
		writeError(w, s.log(), http.StatusInternalServerError, "api_error", "failed to list interactions")
		return
	}
	writeJSON(w, s.log(), http.StatusOK, map[string]any{"data": interactions})
}
