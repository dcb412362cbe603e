package models

import "encoding/json"

// RawJSON is a decoded JSON value kept in its generic Go representation
// (map[string]any, []any, string, float64, bool, or nil) so that the policy
// operators and the JSON path extractor can operate on it without a schema.
type RawJSON = any

// ParseJSON decodes raw bytes into a RawJSON value. Returns nil, err on
// malformed input; callers that need "absent vs malformed" distinctions
// check the error, not the returned value.
func ParseJSON(data []byte) (RawJSON, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
