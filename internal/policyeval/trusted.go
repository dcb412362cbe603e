package policyeval

import "github.com/archestra/guard/pkg/models"

// NoApplicablePolicyReason is the fixed reason returned when no
// trusted-data policy matches a tool result.
const NoApplicablePolicyReason = "no applicable trusted-data policy matched"

// TrustedResult is the outcome of evaluating a tool result against its
// applicable trusted-data policies.
type TrustedResult struct {
	IsTrusted                 bool
	IsBlocked                 bool
	ShouldSanitizeWithDualLlm bool
	Reason                    string
}

// EvaluateTrusted marks a tool result trusted iff at least one applicable
// trusted-data policy matches under the JSON path extractor's
// all-leaves-match semantics. The data model carries no per-policy block
// action on trusted-data, so IsBlocked is always false here; it is reserved
// for a future policy-row extension and callers must still branch on it
// first, so that wiring the field later doesn't require touching call
// sites.
func EvaluateTrusted(policies []models.TrustedDataPolicy, toolResult models.RawJSON) TrustedResult {
	for _, p := range policies {
		if policyMatches(p, toolResult) {
			return TrustedResult{IsTrusted: true, Reason: p.Description}
		}
	}
	return TrustedResult{
		IsTrusted:                 false,
		ShouldSanitizeWithDualLlm: true,
		Reason:                    NoApplicablePolicyReason,
	}
}

// policyMatches reports whether every leaf reached by p.AttributePath
// satisfies p.Operator against p.Value. Zero leaves never match — an
// absent path cannot be used to trust a result.
func policyMatches(p models.TrustedDataPolicy, toolResult models.RawJSON) bool {
	leaves := ExtractLeaves(toolResult, p.AttributePath)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		matched, ok := Evaluate(p.Operator, leaf, p.Value)
		if !ok || !matched {
			return false
		}
	}
	return true
}
