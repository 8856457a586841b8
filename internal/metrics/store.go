// Package metrics persists per-run pipeline telemetry to SQLite: token
// usage, latency, terminal state and fallback reason for every use-case
// execution.
package metrics

import (
	"context"
	"database/sql"
	"time"
)

// RunMetric records metadata for a single pipeline run.
type RunMetric struct {
	UseCase          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	TerminalState    string
	FallbackReason   string
	Timestamp        time.Time
}

// Store handles persistence of run metrics to SQLite.
type Store struct {
	db *sql.DB
}

// sqliteTime renders a timestamp the way SQLite's date functions expect.
// Binding time.Time through the driver stores Go's String() form, which
// date() cannot parse.
const sqliteTime = "2006-01-02 15:04:05"

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a run metric to the database.
func (s *Store) Record(ctx context.Context, m RunMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(use_case, model, prompt_tokens, completion_tokens, latency_ms, terminal_state, fallback_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UseCase, m.Model, m.PromptTokens, m.CompletionTokens,
		m.LatencyMS, m.TerminalState, m.FallbackReason, ts.UTC().Format(sqliteTime),
	)
	return err
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalRuns       int
	Fallbacks       int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			date(created_at) AS day,
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COUNT(*),
			SUM(CASE WHEN terminal_state = 'fallback' THEN 1 ELSE 0 END)
		FROM pipeline_runs
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day DESC`,
		since.Format(sqliteTime),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalRuns, &u.Fallbacks); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE created_at < ?`, threshold.Format(sqliteTime))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
