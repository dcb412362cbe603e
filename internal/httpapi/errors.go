// Package httpapi mounts the OpenAI-compatible guarded proxy surface and
// the agent/policy management API on net/http.ServeMux. It is the thin
// edge: all guardrail logic lives in internal/proxy, internal/policyeval,
// internal/quarantine, and internal/store.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorEnvelope is the {error:{message,type}} body returned for every
// user-visible error.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, kind, message string) {
	var env errorEnvelope
	env.Error.Message = message
	env.Error.Type = kind
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
