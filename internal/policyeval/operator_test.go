package policyeval

import (
	"testing"

	"github.com/archestra/guard/pkg/models"
)

func TestEvaluateStringOperators(t *testing.T) {
	tests := []struct {
		name    string
		op      models.Operator
		left    models.RawJSON
		right   models.RawJSON
		matched bool
		ok      bool
	}{
		{"equal strings", models.OpEqual, "a", "a", true, true},
		{"equal numbers", models.OpEqual, 1.0, 1.0, true, true},
		{"notEqual", models.OpNotEqual, "a", "b", true, true},
		{"contains hit", models.OpContains, "hello world", "world", true, true},
		{"contains miss", models.OpContains, "hello world", "xyz", false, true},
		{"notContains", models.OpNotContains, "hello world", "xyz", true, true},
		{"startsWith", models.OpStartsWith, "hello world", "hello", true, true},
		{"endsWith", models.OpEndsWith, "x@grafana.com", "@grafana.com", true, true},
		{"endsWith miss", models.OpEndsWith, "x@evil.com", "@grafana.com", false, true},
		{"non-string left under string op", models.OpStartsWith, 5.0, "5", false, true},
		{"regex match", models.OpRegex, "abc123", "^abc[0-9]+$", true, true},
		{"regex miss", models.OpRegex, "abcxyz", "^abc[0-9]+$", false, true},
		{"regex invalid pattern", models.OpRegex, "abc", "(", false, false},
		{"unknown operator", models.Operator("nope"), "a", "a", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, ok := Evaluate(tt.op, tt.left, tt.right)
			if matched != tt.matched || ok != tt.ok {
				t.Errorf("Evaluate(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tt.op, tt.left, tt.right, matched, ok, tt.matched, tt.ok)
			}
		})
	}
}

func TestEvaluateEqualStructural(t *testing.T) {
	left := map[string]any{"a": 1.0, "b": []any{"x", "y"}}
	right := map[string]any{"a": 1.0, "b": []any{"x", "y"}}
	matched, ok := Evaluate(models.OpEqual, left, right)
	if !ok || !matched {
		t.Fatalf("expected structural equality to match, got matched=%v ok=%v", matched, ok)
	}

	right["b"] = []any{"x", "z"}
	matched, ok = Evaluate(models.OpEqual, left, right)
	if !ok || matched {
		t.Fatalf("expected structural inequality, got matched=%v ok=%v", matched, ok)
	}
}

func TestRegexCacheReusesCompiledPattern(t *testing.T) {
	pattern := "^cached-[0-9]+$"
	re1, err1 := compileRegex(pattern)
	re2, err2 := compileRegex(pattern)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected compile errors: %v %v", err1, err2)
	}
	if re1 != re2 {
		t.Fatalf("expected cached regex to be reused by pointer identity")
	}
}
