// Package pipeline implements the shared execution path behind every use
// case: build a prompt, invoke the generation backend once, sanitize and
// parse the reply, validate it against the use case's schema manifest and
// domain rules, and fall back to a deterministic substitute when anything
// past input validation fails. The pipeline is total: every valid request
// terminates in either a finalized artifact or a schema-valid fallback.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meal-agents/internal/gateway"
	"meal-agents/internal/llm"
	"meal-agents/internal/rules"
)

// State names a position in the run's lifecycle. Finalized and Fallback are
// the only terminal states.
type State string

const (
	StateBuilt     State = "built"
	StateInvoked   State = "invoked"
	StateSanitized State = "sanitized"
	StateParsed    State = "parsed"
	StateValidated State = "validated"
	StateFinalized State = "finalized"
	StateFallback  State = "fallback"
)

// Invoker is the gateway contract the pipeline depends on.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, p llm.Params) (llm.ContentResponse, error)
}

// UseCase configures one run of the generic pipeline: a prompt builder, a
// schema manifest, a rule review step and a fallback synthesizer. The six
// meal-planning use cases are values of this type, not separate code paths.
type UseCase[I, O any] struct {
	Name   string
	Params llm.Params

	// BuildPrompt renders the deterministic request payload. No timestamps,
	// no randomness: identical input must yield an identical prompt.
	BuildPrompt func(in I) (string, error)

	// Manifest declares the required fields of the backend's reply.
	Manifest Manifest

	// ApplyDefaults fills documented defaults for missing optional fields
	// before schema validation. Optional.
	ApplyDefaults func(in I, doc any) any

	// Decode converts the validated document into the typed artifact.
	Decode func(doc any) (O, error)

	// Review runs the use case's domain rules against the decoded artifact
	// and may finalize it in place (recompute metrics, stamp ids, re-sort).
	// Any violation finding routes the run to fallback. Optional.
	Review func(in I, out *O) []rules.Finding

	// Fallback produces the deterministic, schema-valid substitute artifact.
	// It must compute only from the structured input, never invent
	// generative content.
	Fallback func(in I, reason Reason, msg string) O
}

// Result is the outcome of one pipeline run.
type Result[O any] struct {
	Artifact     O
	State        State
	Findings     []rules.Finding
	FallbackUsed bool
	Reason       Reason
	Usage        llm.TokenUsage
	Latency      time.Duration
}

// DecodeAs converts a decoded JSON document into a typed value by
// round-tripping through encoding/json. Use cases use it as their Decode.
func DecodeAs[O any](doc any) (O, error) {
	var out O
	data, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("failed to re-encode document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// Run executes the use case against one input. It always terminates in
// Finalized or Fallback; errors from the backend onward never escape as
// failures.
func Run[I, O any](ctx context.Context, inv Invoker, uc UseCase[I, O], in I, log *zap.Logger) Result[O] {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("useCase", uc.Name))
	start := time.Now()

	fallback := func(reason Reason, msg string, usage llm.TokenUsage, findings []rules.Finding) Result[O] {
		log.Warn("pipeline falling back",
			zap.String("reason", string(reason)),
			zap.String("detail", msg),
		)
		return Result[O]{
			Artifact:     uc.Fallback(in, reason, msg),
			State:        StateFallback,
			Findings:     findings,
			FallbackUsed: true,
			Reason:       reason,
			Usage:        usage,
			Latency:      time.Since(start),
		}
	}

	prompt, err := uc.BuildPrompt(in)
	if err != nil {
		return fallback(ReasonInternal, fmt.Sprintf("prompt build failed: %v", err), llm.TokenUsage{}, nil)
	}
	log.Debug("state transition", zap.String("state", string(StateBuilt)))

	resp, err := inv.Invoke(ctx, prompt, uc.Params)
	if err != nil {
		var genErr *gateway.GenerationError
		reason := ReasonGenerationTransient
		if errors.As(err, &genErr) {
			switch genErr.Kind {
			case gateway.KindPermanent:
				reason = ReasonGenerationPermanent
			case gateway.KindCanceled:
				reason = ReasonCanceled
			}
		}
		return fallback(reason, err.Error(), llm.TokenUsage{}, nil)
	}
	log.Debug("state transition", zap.String("state", string(StateInvoked)))

	payload := Sanitize(resp.Content)
	log.Debug("state transition", zap.String("state", string(StateSanitized)))

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return fallback(ReasonMalformedOutput, fmt.Sprintf("unparseable payload: %v", err), resp.Usage, nil)
	}
	log.Debug("state transition", zap.String("state", string(StateParsed)))

	if uc.ApplyDefaults != nil {
		doc = uc.ApplyDefaults(in, doc)
	}
	if err := uc.Manifest.Validate(doc); err != nil {
		return fallback(ReasonSchemaViolation, err.Error(), resp.Usage, nil)
	}

	artifact, err := uc.Decode(doc)
	if err != nil {
		return fallback(ReasonSchemaViolation, err.Error(), resp.Usage, nil)
	}
	log.Debug("state transition", zap.String("state", string(StateValidated)))

	var findings []rules.Finding
	if uc.Review != nil {
		findings = uc.Review(in, &artifact)
	}
	if rules.HasViolations(findings) {
		msgs := rules.Messages(findings, rules.SeverityViolation)
		return fallback(ReasonRuleViolation, fmt.Sprintf("hard rule violated: %v", msgs), resp.Usage, findings)
	}
	for _, f := range findings {
		if f.Severity == rules.SeverityWarning {
			log.Warn("rule warning", zap.String("rule", f.Rule), zap.String("msg", f.Message))
		}
	}

	log.Debug("state transition", zap.String("state", string(StateFinalized)))
	return Result[O]{
		Artifact: artifact,
		State:    StateFinalized,
		Findings: findings,
		Usage:    resp.Usage,
		Latency:  time.Since(start),
	}
}
