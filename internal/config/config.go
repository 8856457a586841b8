package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultModel      = "gemini-2.0-flash-exp"
	defaultDBPath     = "meal-agents.db"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	defaultRPM        = 15
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	Model        string
	DBPath       string

	// Per-run budget covering retries and backoff.
	RunTimeout time.Duration

	// Gateway knobs.
	MaxRetries        int
	RequestsPerMinute int
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	model := os.Getenv("MEAL_AGENTS_MODEL")
	if model == "" {
		model = defaultModel
	}

	dbPath := os.Getenv("MEAL_AGENTS_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	timeout := defaultTimeout
	if raw := os.Getenv("MEAL_AGENTS_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("MEAL_AGENTS_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
		}
		timeout = time.Duration(secs) * time.Second
	}

	maxRetries := defaultMaxRetries
	if raw := os.Getenv("MEAL_AGENTS_MAX_RETRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("MEAL_AGENTS_MAX_RETRIES must be a non-negative integer, got %q", raw)
		}
		maxRetries = n
	}

	rpm := defaultRPM
	if raw := os.Getenv("MEAL_AGENTS_REQUESTS_PER_MINUTE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MEAL_AGENTS_REQUESTS_PER_MINUTE must be a positive integer, got %q", raw)
		}
		rpm = n
	}

	return &Config{
		GeminiAPIKey:      geminiAPIKey,
		Model:             model,
		DBPath:            dbPath,
		RunTimeout:        timeout,
		MaxRetries:        maxRetries,
		RequestsPerMinute: rpm,
	}, nil
}
