// Package models provides the domain types for the guardrail proxy: agents,
// tools, policies, chats, interactions, and the dual-LLM quarantine cache.
package models

import "time"

// Agent is a named security scope. Every policy and every chat is bound to
// exactly one agent.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tool is owned by an agent and cascade-deletes with it. Name is globally
// unique so that the toolName on the wire uniquely identifies a tool.
type Tool struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parameters  JSONSchema `json:"parameters"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// JSONSchema is stored and transmitted as a raw JSON document; it is
// compiled lazily by policyeval's tool-schema cache, not parsed into a Go
// struct.
type JSONSchema = RawJSON
