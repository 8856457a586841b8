// Package app wires the application together: configuration, the generation
// backend, the invocation gateway, run-metrics persistence and the stdin to
// stdout execution path shared by every use case.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"meal-agents/internal/config"
	"meal-agents/internal/database"
	"meal-agents/internal/gateway"
	"meal-agents/internal/llm"
	"meal-agents/internal/metrics"
	"meal-agents/internal/pipeline"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	gateway      pipeline.Invoker
	closer       llm.Closer
	db           *database.DB
	metricsStore *metrics.Store
	log          *zap.Logger
}

// New creates and initializes an App: it connects to the Gemini backend,
// opens the metrics database and builds the shared gateway.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	}

	db, err := database.NewDB(cfg.DBPath, log)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open metrics database: %w", err)
	}

	gw := gateway.New(client, gateway.Options{
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log)

	return &App{
		cfg:          cfg,
		gateway:      gw,
		closer:       client,
		db:           db,
		metricsStore: metrics.NewStore(db.SQL),
		log:          log,
	}, nil
}

// NewWithInvoker builds an App around an existing invoker and metrics store.
// Used by tests to avoid a live backend.
func NewWithInvoker(cfg *config.Config, inv pipeline.Invoker, store *metrics.Store, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{cfg: cfg, gateway: inv, metricsStore: store, log: log}
}

// Close releases the backend client and the database connection.
func (a *App) Close() error {
	var errs []error
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MetricsStore exposes the run-metrics store for the reporting commands.
func (a *App) MetricsStore() *metrics.Store {
	return a.metricsStore
}

// Execute reads one JSON request from r, runs it through the use case and
// writes the artifact to w. Input errors are returned to the caller before
// the pipeline starts; everything downstream resolves to an artifact.
func Execute[I, O any](ctx context.Context, a *App, uc pipeline.UseCase[I, O], parse func([]byte) (I, error), r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	in, err := parse(raw)
	if err != nil {
		return err
	}

	runCtx := ctx
	if a.cfg != nil && a.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.RunTimeout)
		defer cancel()
	}

	result := pipeline.Run(runCtx, a.gateway, uc, in, a.log)
	a.recordRun(ctx, uc.Name, result.State, result.Reason, result.Usage, result.Latency.Milliseconds())

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Artifact); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func (a *App) recordRun(ctx context.Context, useCase string, state pipeline.State, reason pipeline.Reason, usage llm.TokenUsage, latencyMS int64) {
	if a.metricsStore == nil {
		return
	}
	model := ""
	if a.cfg != nil {
		model = a.cfg.Model
	}
	err := a.metricsStore.Record(ctx, metrics.RunMetric{
		UseCase:          useCase,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latencyMS,
		TerminalState:    string(state),
		FallbackReason:   string(reason),
	})
	if err != nil {
		a.log.Warn("failed to record run metric", zap.Error(err))
	}
}
