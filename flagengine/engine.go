package flagengine

import (
	"time"

	"github.com/flagvault/flagvault-go/flagengine/flags"
)

// EvaluationResult is the outcome of evaluating one flag against one context.
type EvaluationResult struct {
	// Enabled is the final decision for the request.
	Enabled bool `json:"enabled"`
	// MatchedRule is the rule that produced the decision, nil when the
	// decision fell back to the flag's global default.
	MatchedRule *flags.Rule `json:"matched_rule,omitempty"`
	// FallbackToDefault is true iff no rule matched and Enabled came from
	// the flag's default.
	FallbackToDefault bool `json:"fallback_to_default"`
	// EvaluationTime is the wall-clock duration of the call. Diagnostic
	// only; it never influences the decision.
	EvaluationTime time.Duration `json:"evaluation_time"`
}

// Evaluate decides whether a flag is active for the given context.
//
// Rules are scanned in stored order and the first match wins. When no rule
// matches — or the inputs are unusable — the result degrades to the flag's
// global default with FallbackToDefault set. Evaluate never fails: a decision
// is always returned.
func Evaluate(flag *flags.FeatureFlag, ec flags.EvaluationContext) EvaluationResult {
	start := time.Now()
	result := evaluate(flag, ec)
	result.EvaluationTime = time.Since(start)
	return result
}

func evaluate(flag *flags.FeatureFlag, ec flags.EvaluationContext) EvaluationResult {
	if flag == nil {
		return EvaluationResult{FallbackToDefault: true}
	}
	if !ec.Valid() {
		return EvaluationResult{Enabled: flag.Enabled, FallbackToDefault: true}
	}
	for i := range flag.Rules {
		if ruleMatches(&flag.Rules[i], ec) {
			return EvaluationResult{Enabled: true, MatchedRule: &flag.Rules[i]}
		}
	}
	return EvaluationResult{Enabled: flag.Enabled, FallbackToDefault: true}
}

// ruleMatches absorbs rule faults: an error or panic from a single rule
// counts as a non-match, so one bad rule cannot block flag evaluation.
func ruleMatches(r *flags.Rule, ec flags.EvaluationContext) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	matched, err := r.Evaluate(ec)
	if err != nil {
		return false
	}
	return matched
}

// EvaluateBatch evaluates each flag independently against the same context.
// Results preserve input order and length; a nil flag degrades to a fallback
// result like any other top-level evaluation failure.
func EvaluateBatch(population []*flags.FeatureFlag, ec flags.EvaluationContext) []EvaluationResult {
	results := make([]EvaluationResult, len(population))
	for i, flag := range population {
		results[i] = Evaluate(flag, ec)
	}
	return results
}
