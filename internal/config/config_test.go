package config

import (
	"os"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Success", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.Model != "gemini-2.0-flash-exp" {
			t.Errorf("Expected default model, got '%s'", cfg.Model)
		}
		if cfg.RunTimeout != 60*time.Second {
			t.Errorf("Expected default timeout of 60s, got %v", cfg.RunTimeout)
		}
		if cfg.MaxRetries != 2 {
			t.Errorf("Expected default MaxRetries of 2, got %d", cfg.MaxRetries)
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		os.Unsetenv("GEMINI_API_KEY")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("MEAL_AGENTS_MODEL", "gemini-1.5-pro")
		setEnv("MEAL_AGENTS_DB_PATH", "/tmp/runs.db")
		setEnv("MEAL_AGENTS_TIMEOUT_SECONDS", "30")
		setEnv("MEAL_AGENTS_MAX_RETRIES", "0")
		setEnv("MEAL_AGENTS_REQUESTS_PER_MINUTE", "5")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Model != "gemini-1.5-pro" {
			t.Errorf("Expected model override, got '%s'", cfg.Model)
		}
		if cfg.DBPath != "/tmp/runs.db" {
			t.Errorf("Expected DBPath override, got '%s'", cfg.DBPath)
		}
		if cfg.RunTimeout != 30*time.Second {
			t.Errorf("Expected 30s timeout, got %v", cfg.RunTimeout)
		}
		if cfg.MaxRetries != 0 {
			t.Errorf("Expected MaxRetries 0, got %d", cfg.MaxRetries)
		}
		if cfg.RequestsPerMinute != 5 {
			t.Errorf("Expected RequestsPerMinute 5, got %d", cfg.RequestsPerMinute)
		}
	})

	t.Run("BadTimeout", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("MEAL_AGENTS_TIMEOUT_SECONDS", "soon")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for bad MEAL_AGENTS_TIMEOUT_SECONDS, got nil")
		}
	})
}
