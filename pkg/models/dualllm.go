package models

import (
	"errors"
	"fmt"
	"time"
)

// DualLlmConfig is the singleton configuration for the quarantine sub-agent.
// Prompts contain literal placeholders substituted by string replacement,
// never a templating language — see the quarantine package's substitute.
type DualLlmConfig struct {
	MainAgentPrompt        string `json:"main_agent_prompt"`
	QuarantinedAgentPrompt string `json:"quarantined_agent_prompt"`
	SummaryPrompt          string `json:"summary_prompt"`
	MaxRounds              int    `json:"max_rounds"`
}

// MaxPromptBytes bounds the size of any DualLlmConfig prompt field; prompts
// are untrusted strings sourced from the store and must not be allowed to
// blow up token usage.
const MaxPromptBytes = 16 * 1024

// Validate rejects a config whose prompts exceed MaxPromptBytes or whose
// round bound is non-positive.
func (c *DualLlmConfig) Validate() error {
	if c.MaxRounds < 1 {
		return errors.New("max_rounds must be >= 1")
	}
	for name, prompt := range map[string]string{
		"main_agent_prompt":        c.MainAgentPrompt,
		"quarantined_agent_prompt": c.QuarantinedAgentPrompt,
		"summary_prompt":           c.SummaryPrompt,
	} {
		if len(prompt) > MaxPromptBytes {
			return fmt.Errorf("%s exceeds %d bytes", name, MaxPromptBytes)
		}
	}
	return nil
}

// DualLlmResult caches the sanitised summary for a given provider tool-call
// id, so re-sanitising the same call returns the same bytes.
type DualLlmResult struct {
	AgentID       string    `json:"agent_id"`
	ToolCallID    string    `json:"tool_call_id"`
	Conversations RawJSON   `json:"conversations"`
	Result        string    `json:"result"`
	CreatedAt     time.Time `json:"created_at"`
}
