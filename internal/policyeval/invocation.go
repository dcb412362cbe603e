package policyeval

import (
	"fmt"

	"github.com/archestra/guard/pkg/models"
)

// InvocationResult is the outcome of evaluating a tool call against its
// applicable tool-invocation policies.
type InvocationResult struct {
	IsAllowed  bool
	DenyReason string
}

// EvaluateInvocation evaluates applicable policies in the order given
// (store order, stable by createdAt then id);
// the first denial wins. Allow policies are conjunctive (deny on the first
// one that doesn't match); block policies are "any matches" (deny on the
// first one that does).
func EvaluateInvocation(policies []models.ToolInvocationPolicy, toolArguments models.RawJSON) InvocationResult {
	for _, p := range policies {
		v, present := Lookup(toolArguments, p.ArgumentName)
		if !present {
			if p.Action == models.ActionBlock {
				// A block rule cannot fire on an absent argument.
				continue
			}
			return InvocationResult{
				IsAllowed:  false,
				DenyReason: fmt.Sprintf("Missing required argument: %s", p.ArgumentName),
			}
		}

		matched, ok := Evaluate(p.Operator, v, p.Value)
		if !ok {
			// Bad regex or unknown operator: skip this policy, don't fail the request.
			continue
		}

		switch p.Action {
		case models.ActionBlock:
			if matched {
				return InvocationResult{IsAllowed: false, DenyReason: denyReason(p)}
			}
		case models.ActionAllow:
			if !matched {
				return InvocationResult{IsAllowed: false, DenyReason: denyReason(p)}
			}
		}
	}
	return InvocationResult{IsAllowed: true}
}

func denyReason(p models.ToolInvocationPolicy) string {
	if p.BlockPrompt != "" {
		return p.BlockPrompt
	}
	return "Policy violation: " + p.Description
}
