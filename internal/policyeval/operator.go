// Package policyeval implements the pure decision logic of the guardrail
// proxy: operator evaluation, JSON path extraction, and the tool-invocation
// and trusted-data evaluators built on top of them. Nothing in this package
// touches the network or the store; callers supply already-fetched policy
// rows.
package policyeval

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/archestra/guard/pkg/models"
)

// Evaluate applies op to (left, right) per the closed operator table.
// A non-string left operand under a string operator evaluates
// to false, never an error; a regex that fails to compile is reported via
// ok=false so the caller can skip the policy and log a warning instead of
// failing the request.
func Evaluate(op models.Operator, left, right models.RawJSON) (matched bool, ok bool) {
	switch op {
	case models.OpEqual:
		return jsonEqual(left, right), true
	case models.OpNotEqual:
		return !jsonEqual(left, right), true
	case models.OpContains:
		l, r, strOK := asStrings(left, right)
		return strOK && strings.Contains(l, r), true
	case models.OpNotContains:
		l, r, strOK := asStrings(left, right)
		if !strOK {
			return false, true
		}
		return !strings.Contains(l, r), true
	case models.OpStartsWith:
		l, r, strOK := asStrings(left, right)
		return strOK && strings.HasPrefix(l, r), true
	case models.OpEndsWith:
		l, r, strOK := asStrings(left, right)
		return strOK && strings.HasSuffix(l, r), true
	case models.OpRegex:
		return evaluateRegex(left, right)
	default:
		return false, false
	}
}

// jsonEqual compares two decoded JSON values structurally. Numbers compare
// as float64 (the shape json.Unmarshal into `any` always produces), so
// 1 and 1.0 are structurally equal JSON values.
func jsonEqual(a, b models.RawJSON) bool {
	am, errA := json.Marshal(a)
	bm, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(am) == string(bm) || canonicalEqual(a, b)
}

// canonicalEqual is a fallback for the case where map key ordering makes a
// byte-for-byte json.Marshal comparison unreliable (Go's encoding/json
// sorts map[string]any keys, so in practice this never triggers, but the
// fallback keeps the equality check robust to that assumption changing).
func canonicalEqual(a, b models.RawJSON) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, exists := bv[k]
			if !exists || !canonicalEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !canonicalEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func asStrings(left, right models.RawJSON) (l, r string, ok bool) {
	ls, lok := left.(string)
	if !lok {
		return "", "", false
	}
	rs, rok := right.(string)
	if !rok {
		return "", "", false
	}
	return ls, rs, true
}

func evaluateRegex(left, right models.RawJSON) (matched bool, ok bool) {
	s, isStr := left.(string)
	if !isStr {
		return false, true
	}
	pattern, isStr := right.(string)
	if !isStr {
		return false, true
	}
	re, err := compileRegex(pattern)
	if err != nil {
		slog.Warn("policy regex failed to compile, skipping policy", "pattern", pattern, "error", err)
		return false, false
	}
	return re.MatchString(s), true
}
