// Package rules implements the domain invariants checked against generated
// artifacts: non-repetition windows, ingredient exclusions, cook-time
// ceilings, variety scoring and macro-ratio estimation. Every rule is a pure
// function returning findings; rules never short-circuit each other, so one
// pass reports every issue at once.
package rules

// Severity ranks a finding by how the pipeline must react to it.
type Severity string

const (
	// SeverityViolation is a hard breach; the artifact must be rejected.
	SeverityViolation Severity = "violation"
	// SeverityWarning is reported but does not reject the artifact.
	SeverityWarning Severity = "warning"
	// SeverityRecommendation is advisory output for the user.
	SeverityRecommendation Severity = "recommendation"
)

// Reason codes carried by findings. Machine-checkable counterparts to the
// human-readable messages.
const (
	CodeIntoleranceViolation = "intolerance_violation"
	CodeDislikedIngredient   = "disliked_ingredient"
	CodeRecentlyUsed         = "used_in_past_4_weeks"
	CodeReplacementInvalid   = "replacement_still_recent"
	CodeReplacementDuplicate = "replacement_duplicate"
	CodeCookTimeExceeded     = "cook_time_exceeded"
	CodeDayMissing           = "day_missing"
	CodeDayDuplicated        = "day_duplicated"
	CodeUnknownDay           = "unknown_day"
	CodeUnknownRecipe        = "unknown_recipe"
	CodeMainOverused         = "main_ingredient_overused"
	CodeMacroImbalance       = "macro_imbalance"
)

// Finding is one typed result from a rule evaluation.
type Finding struct {
	Rule       string
	Severity   Severity
	Code       string
	Message    string
	Day        string
	RecipeID   string
	Ingredient string
}

// HasViolations reports whether any finding is a hard violation.
func HasViolations(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityViolation {
			return true
		}
	}
	return false
}

// Messages collects the human-readable text of findings at the given
// severity, preserving order.
func Messages(findings []Finding, sev Severity) []string {
	var out []string
	for _, f := range findings {
		if f.Severity == sev {
			out = append(out, f.Message)
		}
	}
	return out
}
