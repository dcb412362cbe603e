package policyeval

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/archestra/guard/pkg/models"
)

// schemaCache holds compiled Tool.Parameters schemas keyed by tool id, so the
// egress gate doesn't recompile a tool's schema on every turn. Entries are
// invalidated by ValidateArguments's caller passing a fresh version string
// (the tool's UpdatedAt, stringified) alongside the id.
type schemaCache struct {
	mu    sync.Mutex
	items map[string]cachedSchema
}

type cachedSchema struct {
	version string
	schema  *jsonschema.Schema
	err     error
}

var defaultSchemaCache = &schemaCache{items: make(map[string]cachedSchema)}

// ValidateSchemaDocument reports whether raw is a compilable JSON Schema
// document, used at tool-registration time (POST/PUT /api/.../tools) to
// reject an unusable Tool.Parameters value before it's ever matched against
// a real tool call.
func ValidateSchemaDocument(raw models.RawJSON) error {
	if raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if _, err := jsonschema.CompileString("tool_parameters.json", string(b)); err != nil {
		return fmt.Errorf("invalid JSON Schema: %w", err)
	}
	return nil
}

// ValidateArguments validates decoded tool-call arguments against a tool's
// Parameters JSON Schema. A nil/empty schema always validates (a tool that
// declares no parameters schema accepts anything). toolID+version key the
// compiled-schema cache so a hot tool's schema is compiled once.
func ValidateArguments(toolID, version string, schema models.RawJSON, args models.RawJSON) error {
	if schema == nil {
		return nil
	}
	compiled, err := compiledSchema(toolID, version, schema)
	if err != nil {
		// An uncompilable schema can't gate anything; treat as permissive
		// rather than failing every call through a misconfigured tool.
		return nil
	}
	return compiled.Validate(args)
}

func compiledSchema(toolID, version string, schema models.RawJSON) (*jsonschema.Schema, error) {
	defaultSchemaCache.mu.Lock()
	if entry, ok := defaultSchemaCache.items[toolID]; ok && entry.version == version {
		defaultSchemaCache.mu.Unlock()
		return entry.schema, entry.err
	}
	defaultSchemaCache.mu.Unlock()

	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	resourceName := "tool_" + toolID + ".json"
	compiled, err := jsonschema.CompileString(resourceName, string(b))
	defaultSchemaCache.store(toolID, version, compiled, err)
	return compiled, err
}

func (c *schemaCache) store(toolID, version string, schema *jsonschema.Schema, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[toolID] = cachedSchema{version: version, schema: schema, err: err}
}
