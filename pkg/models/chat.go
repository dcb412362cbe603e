package models

import "time"

// Chat is an opaque conversation handle; it carries no content of its own.
// AgentID pins down which agent's policies govern every turn in the chat
// and is fixed at creation.
type Chat struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Interaction is one append-only turn in a chat: a user message, an
// assistant message, or an inbound tool result. Content is the raw
// provider-shaped JSON message as it was persisted (pre- or
// post-sanitisation, per the caller).
type Interaction struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	Content     RawJSON   `json:"content"`
	Tainted     bool      `json:"tainted"`
	TaintReason string    `json:"taint_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
