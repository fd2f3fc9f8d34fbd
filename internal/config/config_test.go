package config

import (
	"os"
	"testing"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/chemtutor")
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com" {
		t.Fatalf("base url = %q", cfg.GeminiBaseURL)
	}
	if len(cfg.RetryableStatuses) != 1 || cfg.RetryableStatuses[0] != "INVALID_ARGUMENT" {
		t.Fatalf("retryable statuses = %v", cfg.RetryableStatuses)
	}
	if cfg.DropPendingUpdates {
		t.Fatal("DropPendingUpdates must default to false")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/chemtutor")
	// t.Setenv registers the restore, Unsetenv makes the var truly absent.
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for missing GEMINI_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("GEMINI_RETRYABLE_STATUSES", "INVALID_ARGUMENT,FAILED_PRECONDITION")
	t.Setenv("ADMIN_IDS", "42,77")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeminiBaseURL != "http://127.0.0.1:8080" {
		t.Fatalf("base url = %q", cfg.GeminiBaseURL)
	}
	if len(cfg.RetryableStatuses) != 2 {
		t.Fatalf("retryable statuses = %v", cfg.RetryableStatuses)
	}
	if !cfg.IsAdmin(42) || !cfg.IsAdmin(77) || cfg.IsAdmin(1) {
		t.Fatalf("admin ids = %v", cfg.AdminIDs)
	}
}
