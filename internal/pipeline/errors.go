package pipeline

import "fmt"

// Reason identifies why a run fell back, machine-checkable and carried on
// every degraded result.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonGenerationTransient Reason = "generation_transient_error"
	ReasonGenerationPermanent Reason = "generation_permanent_error"
	ReasonMalformedOutput     Reason = "malformed_output"
	ReasonSchemaViolation     Reason = "schema_violation"
	ReasonRuleViolation       Reason = "rule_violation"
	ReasonCanceled            Reason = "canceled"
	ReasonInternal            Reason = "internal_error"
)

// InputError marks a request whose top-level structure is unusable. It is
// the only failure surfaced to the caller as an outright error: no
// request-shaped output can be produced from it, so no fallback is attempted.
type InputError struct {
	Field string
	Msg   string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Msg)
	}
	return fmt.Sprintf("invalid input: field %q: %s", e.Field, e.Msg)
}

// NewInputError builds an InputError for a specific field.
func NewInputError(field, msg string) *InputError {
	return &InputError{Field: field, Msg: msg}
}
