package httpapi

import "net/http"

// openAPIDocument is a hand-built OpenAPI 3.0 skeleton covering the route
// table Mount builds. It is a static document rather than one derived from
// the mux at startup.
const openAPIDocument = `{
  "openapi": "3.0.3",
  "info": {
    "title": "archestra-proxy",
    "version": "1.0.0",
    "description": "Guarded OpenAI-compatible chat-completions reverse proxy: tool-invocation policy, trusted-data policy, and dual-LLM quarantine sanitisation."
  },
  "paths": {
    "/v1/{provider}/chat/completions": {
      "post": {
        "summary": "Guarded chat completion, streaming or not",
        "parameters": [
          {"name": "provider", "in": "path", "required": true, "schema": {"type": "string", "enum": ["openai", "anthropic"]}},
          {"name": "X-Archestra-Chat-Id", "in": "header", "required": true, "schema": {"type": "string"}}
        ]
      }
    },
    "/v1/{provider}/models": {
      "get": {"summary": "List upstream models"}
    },
    "/api/chats": {
      "post": {"summary": "Create a chat bound to an agent"},
      "get": {"summary": "List chats"}
    },
    "/api/chats/{id}": {
      "get": {"summary": "Get a chat"}
    },
    "/api/chats/{id}/interactions": {
      "get": {"summary": "List a chat's append-only interaction log"}
    },
    "/api/agents": {
      "post": {"summary": "Create an agent"},
      "get": {"summary": "List agents"}
    },
    "/api/agents/{id}": {
      "get": {"summary": "Get an agent"},
      "put": {"summary": "Update an agent"},
      "delete": {"summary": "Delete an agent"}
    },
    "/api/agents/{id}/tools": {
      "post": {"summary": "Create a tool owned by an agent"},
      "get": {"summary": "List an agent's tools"}
    },
    "/api/tools/{toolID}": {
      "get": {"summary": "Get a tool"},
      "put": {"summary": "Update a tool"},
      "delete": {"summary": "Delete a tool"}
    },
    "/api/tool-invocation-policies": {
      "post": {"summary": "Create a tool-invocation policy"},
      "get": {"summary": "List tool-invocation policies"}
    },
    "/api/tool-invocation-policies/{id}": {
      "put": {"summary": "Update a tool-invocation policy"},
      "delete": {"summary": "Delete a tool-invocation policy"}
    },
    "/api/trusted-data-policies": {
      "post": {"summary": "Create a trusted-data policy"},
      "get": {"summary": "List trusted-data policies"}
    },
    "/api/trusted-data-policies/{id}": {
      "put": {"summary": "Update a trusted-data policy"},
      "delete": {"summary": "Delete a trusted-data policy"}
    },
    "/api/agents/{id}/tools/{tool}/evaluate": {
      "post": {"summary": "Dry-run a tool-invocation policy decision"}
    },
    "/api/agents/{id}/tools/{tool}/evaluate-result": {
      "post": {"summary": "Dry-run a trusted-data policy decision"}
    },
    "/health": {
      "get": {"summary": "Liveness probe"}
    },
    "/healthz": {
      "get": {"summary": "Liveness probe (alias)"}
    },
    "/metrics": {
      "get": {"summary": "Prometheus metrics"}
    }
  }
}
`

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(openAPIDocument))
}
