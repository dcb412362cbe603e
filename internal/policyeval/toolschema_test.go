package policyeval

import "testing"

func TestValidateSchemaDocumentRejectsInvalidSchema(t *testing.T) {
	if err := ValidateSchemaDocument(nil); err != nil {
		t.Fatalf("nil schema should validate, got %v", err)
	}
	if err := ValidateSchemaDocument(map[string]any{"type": "not-a-real-type"}); err == nil {
		t.Fatal("expected an invalid-schema error, got nil")
	}
	if err := ValidateSchemaDocument(map[string]any{
		"type":       "object",
		"properties": map[string]any{"to": map[string]any{"type": "string"}},
		"required":   []any{"to"},
	}); err != nil {
		t.Fatalf("well-formed schema should validate, got %v", err)
	}
}

func TestValidateArgumentsEnforcesDeclaredSchema(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"to": map[string]any{"type": "string"}},
		"required":   []any{"to"},
	}

	if err := ValidateArguments("tool-1", "v1", schema, args(t, `{"to":"a@example.com"}`)); err != nil {
		t.Fatalf("expected valid arguments to pass, got %v", err)
	}
	if err := ValidateArguments("tool-1", "v1", schema, args(t, `{}`)); err == nil {
		t.Fatal("expected missing required property to fail validation")
	}
	if err := ValidateArguments("tool-1", "v1", nil, args(t, `{}`)); err != nil {
		t.Fatalf("nil schema should accept anything, got %v", err)
	}
}

func TestValidateArgumentsCachesCompiledSchemaByVersion(t *testing.T) {
	schema := map[string]any{"type": "object"}
	if err := ValidateArguments("tool-2", "v1", schema, args(t, `{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A different version for the same tool id recompiles rather than
	// reusing a stale cache entry.
	newSchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"x": map[string]any{"type": "string"}},
		"required":   []any{"x"},
	}
	if err := ValidateArguments("tool-2", "v2", newSchema, args(t, `{}`)); err == nil {
		t.Fatal("expected the updated schema to be recompiled and enforced")
	}
}
