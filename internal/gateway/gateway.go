// Package gateway owns the single call into the generation backend. It
// classifies failures as transient or permanent, retries transient ones with
// exponential backoff, and gates all invocations through a shared rate
// limiter so concurrent pipeline runs cannot stampede the API.
package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meal-agents/internal/llm"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
)

// Options tune retry and throttling behavior.
type Options struct {
	// MaxRetries is the number of retries after the first attempt for
	// transient failures. Zero disables retries; negative values take the
	// default of 2.
	MaxRetries int
	// BaseDelay is the first backoff interval; it doubles per retry.
	BaseDelay time.Duration
	// RequestsPerMinute caps the call rate into the backend. Zero disables
	// throttling.
	RequestsPerMinute int
}

// Gateway wraps a TextGenerator with the retry, classification and
// throttling policy shared by every use case.
type Gateway struct {
	gen        llm.TextGenerator
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	log        *zap.Logger
}

// New builds a Gateway around gen. A nil logger is replaced with a no-op one.
func New(gen llm.TextGenerator, opts Options, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), opts.RequestsPerMinute)
	}
	return &Gateway{
		gen:        gen,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		log:        log,
	}
}

// Invoke performs one generation call, retrying transient failures up to the
// configured budget. A response that arrives but later fails parsing is never
// retried; that is fallback territory, not the gateway's.
func (g *Gateway) Invoke(ctx context.Context, prompt string, p llm.Params) (llm.ContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.baseDelay << (attempt - 1)
			g.log.Debug("retrying generation call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return llm.ContentResponse{}, &GenerationError{Kind: classify(ctx, ctx.Err()), Err: ctx.Err()}
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return llm.ContentResponse{}, &GenerationError{Kind: classify(ctx, err), Err: err}
			}
		}

		resp, err := g.gen.GenerateContent(ctx, prompt, p)
		if err == nil {
			return resp, nil
		}

		kind := classify(ctx, err)
		if kind != KindTransient {
			return llm.ContentResponse{}, &GenerationError{Kind: kind, Err: err}
		}
		g.log.Warn("transient generation failure",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		lastErr = err
	}
	return llm.ContentResponse{}, &GenerationError{
		Kind: KindTransient,
		Err:  fmt.Errorf("retries exhausted: %w", lastErr),
	}
}
