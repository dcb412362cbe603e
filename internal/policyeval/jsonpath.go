package policyeval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/archestra/guard/pkg/models"
)

// pathSegment is one step of a parsed path: a field name, an array index,
// or a wildcard fan-out over an array.
type pathSegment struct {
	field      string
	index      int
	isIndex    bool
	isWildcard bool
}

// ParsePath parses a dotted/bracketed path such as "emails[*].from" or
// "items[3].name.first" into an ordered list of segments.
func ParsePath(path string) ([]pathSegment, error) {
	var segments []pathSegment
	var field strings.Builder

	flushField := func() {
		if field.Len() > 0 {
			segments = append(segments, pathSegment{field: field.String()})
			field.Reset()
		}
	}

	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			flushField()
			i++
		case '[':
			flushField()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket in path %q", path)
			}
			inner := path[i+1 : i+end]
			if inner == "*" {
				segments = append(segments, pathSegment{isWildcard: true})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("invalid array index %q in path %q", inner, path)
				}
				segments = append(segments, pathSegment{index: idx, isIndex: true})
			}
			i += end + 1
		default:
			field.WriteByte(c)
			i++
		}
	}
	flushField()
	return segments, nil
}

// ExtractLeaves resolves path against value, returning every leaf reached.
// Zero leaves are returned, never an error, when the path can't be resolved
// against the given document shape (missing field, out-of-range index, or
// non-array under a wildcard): an unresolvable path means "no match", not
// a failure.
func ExtractLeaves(value models.RawJSON, path string) []models.RawJSON {
	segments, err := ParsePath(path)
	if err != nil {
		return nil
	}
	return walk([]models.RawJSON{value}, segments)
}

func walk(current []models.RawJSON, segments []pathSegment) []models.RawJSON {
	if len(segments) == 0 {
		return current
	}
	seg := segments[0]
	rest := segments[1:]

	var next []models.RawJSON
	for _, v := range current {
		switch {
		case seg.isWildcard:
			arr, ok := v.([]any)
			if !ok {
				continue
			}
			next = append(next, arr...)
		case seg.isIndex:
			arr, ok := v.([]any)
			if !ok || seg.index < 0 || seg.index >= len(arr) {
				continue
			}
			next = append(next, arr[seg.index])
		default:
			obj, ok := v.(map[string]any)
			if !ok {
				continue
			}
			leaf, exists := obj[seg.field]
			if !exists {
				continue
			}
			next = append(next, leaf)
		}
	}
	return walk(next, rest)
}

// Lookup resolves a scalar, dotted-only path (no wildcards expected) against
// toolArguments, as used by the tool-invocation evaluator for argument
// lookup. Returns ok=false if the path yields zero leaves or
// more than one leaf (ambiguous for a scalar argument lookup).
func Lookup(value models.RawJSON, path string) (leaf models.RawJSON, ok bool) {
	leaves := ExtractLeaves(value, path)
	if len(leaves) != 1 {
		return nil, false
	}
	return leaves[0], true
}
