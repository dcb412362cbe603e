package quarantine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/archestra/guard/internal/llmclient"
	"github.com/archestra/guard/pkg/models"
)

// answerSchemaDoc is the JSON Schema the quarantined LLM's structured reply
// must satisfy: {"answer": <integer>}.
const answerSchemaDoc = `{
	"type": "object",
	"properties": { "answer": { "type": "integer" } },
	"required": ["answer"]
}`

var answerSchema = mustCompileAnswerSchema()

func mustCompileAnswerSchema() *jsonschema.Schema {
	s, err := jsonschema.CompileString("quarantine_answer", answerSchemaDoc)
	if err != nil {
		panic(fmt.Sprintf("quarantine: invalid answer schema: %v", err))
	}
	return s
}

// answerTool is the function-call definition that forces the quarantined
// LLM's reply into the shape answerSchema validates.
var answerTool = json.RawMessage(`[{
	"type": "function",
	"function": {
		"name": "submit_answer",
		"description": "Submit the index of the option that answers the question.",
		"parameters": ` + answerSchemaDoc + `
	}
}]`)

// answerToolChoice forces the quarantined LLM to call submit_answer rather
// than reply free-form.
var answerToolChoice = json.RawMessage(`{"type": "function", "function": {"name": "submit_answer"}}`)

// Agent runs the dual-LLM quarantine loop.
type Agent struct {
	client  llmclient.Client
	config  *models.DualLlmConfig
	agentID string
}

// New constructs a quarantine Agent around a caller-supplied
// llmclient.Client; both the privileged and quarantined turns use that
// same client.
func New(client llmclient.Client, config *models.DualLlmConfig, agentID string) *Agent {
	return &Agent{client: client, config: config, agentID: agentID}
}

// Round is one accumulated question/answer exchange, used both to drive the
// next privileged turn and to build the final summarisation text; the slice
// of rounds is what gets persisted as DualLlmResult.Conversations.
type Round struct {
	Question string
	Options  []string
	Answer   int
}

// Run executes the quarantine loop for a single extraction and returns the
// sanitised summary plus the flattened conversation persisted alongside it.
// It does not check or write the DualLlmResult cache; callers must do that.
func (a *Agent) Run(ctx context.Context, extracted *Extracted) (summary string, conversation []Round, err error) {
	if err := a.config.Validate(); err != nil {
		return "", nil, fmt.Errorf("dual-llm config: %w", err)
	}
	toolResultText, err := stringify(extracted.ToolResult)
	if err != nil {
		return "", nil, fmt.Errorf("stringify tool result: %w", err)
	}

	maxRounds := a.config.MaxRounds

	var rounds []Round
	privilegedHistory := []models.ChatMessage{{
		Role:    models.RoleSystem,
		Content: substitute(a.config.MainAgentPrompt, map[string]string{"originalUserRequest": extracted.OriginalUserRequest}),
	}}

	for round := 0; round < maxRounds; round++ {
		reply, err := a.privilegedTurn(ctx, privilegedHistory)
		if err != nil {
			return "", nil, fmt.Errorf("privileged turn: %w", err)
		}
		if strings.Contains(reply, "DONE") {
			break
		}

		question, options, ok := parseQuestionOptions(reply)
		if !ok {
			// malformed privileged output terminates the loop gracefully.
			break
		}

		answer, err := a.quarantinedTurn(ctx, toolResultText, question, options)
		if err != nil {
			return "", nil, fmt.Errorf("quarantined turn: %w", err)
		}

		rounds = append(rounds, Round{Question: question, Options: options, Answer: answer})
		privilegedHistory = append(privilegedHistory, models.ChatMessage{
			Role:    models.RoleAssistant,
			Content: reply,
		}, models.ChatMessage{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("Answer: %d (%s)", answer, options[answer]),
		})
	}

	summary, err = a.summarise(ctx, rounds)
	if err != nil {
		return "", nil, fmt.Errorf("summarise: %w", err)
	}
	return summary, rounds, nil
}

func (a *Agent) privilegedTurn(ctx context.Context, history []models.ChatMessage) (string, error) {
	zero := 0.0
	resp, err := a.client.ChatCompletion(ctx, &models.ChatCompletionRequest{
		Messages:    history,
		Temperature: &zero,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty privileged response")
	}
	text, err := stringify(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (a *Agent) quarantinedTurn(ctx context.Context, toolResultData, question string, options []string) (int, error) {
	zero := 0.0
	maxIndex := len(options) - 1

	var optionsText strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&optionsText, "%d: %s\n", i, opt)
	}

	prompt := substitute(a.config.QuarantinedAgentPrompt, map[string]string{
		"toolResultData": toolResultData,
		"question":       question,
		"options":        optionsText.String(),
		"maxIndex":       strconv.Itoa(maxIndex),
	})

	resp, err := a.client.ChatCompletion(ctx, &models.ChatCompletionRequest{
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: prompt}},
		Temperature: &zero,
		Tools:       answerTool,
		ToolChoice:  answerToolChoice,
	})
	if err != nil {
		return 0, err
	}

	answer, ok := extractAnswer(resp)
	if !ok || answer < 0 || answer > maxIndex {
		return maxIndex, nil // clamp: absent/non-integral/out-of-range => last option
	}
	return answer, nil
}

// extractAnswer pulls {"answer": int} out of either a forced tool call or
// (fallback) the raw message content, validating against answerSchema.
func extractAnswer(resp *models.ChatCompletionResponse) (int, bool) {
	if len(resp.Choices) == 0 {
		return 0, false
	}
	msg := resp.Choices[0].Message

	var raw string
	if len(msg.ToolCalls) > 0 {
		raw = msg.ToolCalls[0].Function.Arguments
	} else if s, ok := msg.Content.(string); ok {
		raw = s
	}
	if raw == "" {
		return 0, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return 0, false
	}
	if err := answerSchema.Validate(decoded); err != nil {
		return 0, false
	}

	var payload struct {
		Answer *float64 `json:"answer"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.Answer == nil {
		return 0, false
	}
	if *payload.Answer != float64(int(*payload.Answer)) {
		return 0, false // not integral
	}
	return int(*payload.Answer), true
}

func (a *Agent) summarise(ctx context.Context, rounds []Round) (string, error) {
	var qaText strings.Builder
	for _, r := range rounds {
		fmt.Fprintf(&qaText, "Q: %s\nA: %s\n", r.Question, r.Options[r.Answer])
	}

	zero := 0.0
	prompt := substitute(a.config.SummaryPrompt, map[string]string{"qaText": qaText.String()})
	resp, err := a.client.ChatCompletion(ctx, &models.ChatCompletionRequest{
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: prompt}},
		Temperature: &zero,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty summary response")
	}
	return stringify(resp.Choices[0].Message.Content)
}

// parseQuestionOptions parses:
//
//	QUESTION: <one line>
//	OPTIONS:
//	0: <text>
//	1: <text>
//	...
func parseQuestionOptions(reply string) (question string, options []string, ok bool) {
	lines := strings.Split(strings.TrimSpace(reply), "\n")
	idx := 0
	for idx < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[idx]), "QUESTION:") {
		idx++
	}
	if idx >= len(lines) {
		return "", nil, false
	}
	question = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[idx]), "QUESTION:"))
	idx++
	for idx < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[idx]), "OPTIONS:") {
		idx++
	}
	if idx >= len(lines) {
		return "", nil, false
	}
	idx++

	for ; idx < len(lines); idx++ {
		line := strings.TrimSpace(lines[idx])
		if line == "" {
			continue
		}
		sep := strings.Index(line, ":")
		if sep < 0 {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSpace(line[:sep])); err != nil {
			continue
		}
		options = append(options, strings.TrimSpace(line[sep+1:]))
	}
	if question == "" || len(options) == 0 {
		return "", nil, false
	}
	return question, options, true
}
