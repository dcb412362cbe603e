package policyeval

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/archestra/guard/pkg/models"
)

func args(t *testing.T, raw string) models.RawJSON {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode(%q): %v", raw, err)
	}
	return v
}

func TestEvaluateInvocationBlockBySuffix(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{
			Description:  "no external emails",
			ArgumentName: "to",
			Operator:     models.OpEndsWith,
			Value:        "@grafana.com",
			Action:       models.ActionBlock,
		},
	}
	result := EvaluateInvocation(policies, args(t, `{"to":"x@grafana.com","body":"hi"}`))
	if result.IsAllowed {
		t.Fatalf("expected deny, got allow")
	}
	if result.DenyReason != "Policy violation: no external emails" {
		t.Errorf("unexpected deny reason: %q", result.DenyReason)
	}
}

func TestEvaluateInvocationAllowMissingArgument(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{
			Description:  "path must be in home dir",
			ArgumentName: "path",
			Operator:     models.OpStartsWith,
			Value:        "/home/",
			Action:       models.ActionAllow,
		},
	}
	result := EvaluateInvocation(policies, args(t, `{}`))
	if result.IsAllowed {
		t.Fatalf("expected deny, got allow")
	}
	if !strings.Contains(result.DenyReason, "path") {
		t.Errorf("deny reason should mention argument name, got %q", result.DenyReason)
	}
}

func TestEvaluateInvocationBlockSkipsOnAbsentArgument(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{
			Description:  "deny if to is external",
			ArgumentName: "to",
			Operator:     models.OpEndsWith,
			Value:        "@evil.com",
			Action:       models.ActionBlock,
		},
	}
	result := EvaluateInvocation(policies, args(t, `{"body":"hi"}`))
	if !result.IsAllowed {
		t.Fatalf("block rule should not fire on an absent argument, got deny: %q", result.DenyReason)
	}
}

func TestEvaluateInvocationFirstDenialWinsDeterministically(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{Description: "first", ArgumentName: "a", Operator: models.OpEqual, Value: "x", Action: models.ActionAllow},
		{Description: "second", ArgumentName: "b", Operator: models.OpEqual, Value: "y", Action: models.ActionAllow},
	}
	doc := args(t, `{"a":"not-x","b":"not-y"}`)

	r1 := EvaluateInvocation(policies, doc)
	r2 := EvaluateInvocation(policies, doc)
	if r1.DenyReason != r2.DenyReason {
		t.Fatalf("deny reason should be deterministic across repeated evaluation: %q vs %q", r1.DenyReason, r2.DenyReason)
	}
	if r1.DenyReason != "Policy violation: first" {
		t.Errorf("expected first policy to win, got %q", r1.DenyReason)
	}
}

func TestEvaluateInvocationAllowConjunctive(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{Description: "a", ArgumentName: "a", Operator: models.OpEqual, Value: "x", Action: models.ActionAllow},
		{Description: "b", ArgumentName: "b", Operator: models.OpEqual, Value: "y", Action: models.ActionAllow},
	}
	result := EvaluateInvocation(policies, args(t, `{"a":"x","b":"y"}`))
	if !result.IsAllowed {
		t.Fatalf("expected allow when all allow-policies match, got deny: %q", result.DenyReason)
	}
}

func TestEvaluateInvocationBlockPromptOverridesDescription(t *testing.T) {
	policies := []models.ToolInvocationPolicy{
		{
			Description:  "internal description",
			ArgumentName: "to",
			Operator:     models.OpEndsWith,
			Value:        "@evil.com",
			Action:       models.ActionBlock,
			BlockPrompt:  "Sending to this domain is not permitted.",
		},
	}
	result := EvaluateInvocation(policies, args(t, `{"to":"x@evil.com"}`))
	if result.DenyReason != "Sending to this domain is not permitted." {
		t.Errorf("expected block prompt to be used, got %q", result.DenyReason)
	}
}
