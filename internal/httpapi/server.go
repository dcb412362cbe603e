package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/archestra/guard/internal/proxy"
	"github.com/archestra/guard/internal/store"
)

// Server wires the guarded completion proxy and the agent/policy management
// API onto a single net/http.ServeMux, mounting /metrics, /healthz, and the
// REST surface together.
type Server struct {
	Store    *store.Store
	Pipeline *proxy.Pipeline
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

func (s *Server) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Mount builds the full route table and returns it as an http.Handler.
func (s *Server) Mount() http.Handler {
	mux := http.NewServeMux()

	if s.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /health", s.handleHealthz)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)

	mux.HandleFunc("POST /v1/{provider}/chat/completions", s.handleChatCompletion)
	mux.HandleFunc("GET /v1/{provider}/models", s.handleListModels)

	mux.HandleFunc("POST /api/chats", s.handleCreateChat)
	mux.HandleFunc("GET /api/chats", s.handleListChats)
	mux.HandleFunc("GET /api/chats/{id}", s.handleGetChat)
	mux.HandleFunc("GET /api/chats/{id}/interactions", s.handleListInteractions)

	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PUT /api/agents/{id}", s.handleUpdateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDeleteAgent)

	mux.HandleFunc("POST /api/agents/{id}/tools", s.handleCreateTool)
	mux.HandleFunc("GET /api/agents/{id}/tools", s.handleListTools)
	mux.HandleFunc("GET /api/tools/{toolID}", s.handleGetTool)
	mux.HandleFunc("PUT /api/tools/{toolID}", s.handleUpdateTool)
	mux.HandleFunc("DELETE /api/tools/{toolID}", s.handleDeleteTool)

	mux.HandleFunc("POST /api/tool-invocation-policies", s.handleCreateInvocationPolicy)
	mux.HandleFunc("GET /api/tool-invocation-policies", s.handleListInvocationPolicies)
	mux.HandleFunc("PUT /api/tool-invocation-policies/{id}", s.handleUpdateInvocationPolicy)
	mux.HandleFunc("DELETE /api/tool-invocation-policies/{id}", s.handleDeleteInvocationPolicy)
	mux.HandleFunc("POST /api/agents/{id}/tool-invocation-policies/{policyID}", s.handleAssignInvocationPolicy)
	mux.HandleFunc("DELETE /api/agents/{id}/tool-invocation-policies/{policyID}", s.handleUnassignInvocationPolicy)

	mux.HandleFunc("POST /api/trusted-data-policies", s.handleCreateTrustedPolicy)
	mux.HandleFunc("GET /api/trusted-data-policies", s.handleListTrustedPolicies)
	mux.HandleFunc("PUT /api/trusted-data-policies/{id}", s.handleUpdateTrustedPolicy)
	mux.HandleFunc("DELETE /api/trusted-data-policies/{id}", s.handleDeleteTrustedPolicy)
	mux.HandleFunc("POST /api/agents/{id}/trusted-data-policies/{policyID}", s.handleAssignTrustedPolicy)
	mux.HandleFunc("DELETE /api/agents/{id}/trusted-data-policies/{policyID}", s.handleUnassignTrustedPolicy)

	mux.HandleFunc("POST /api/agents/{id}/tools/{tool}/evaluate", s.handleEvaluateInvocation)
	mux.HandleFunc("POST /api/agents/{id}/tools/{tool}/evaluate-result", s.handleEvaluateTrusted)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log(), http.StatusOK, map[string]string{"status": "ok"})
}
