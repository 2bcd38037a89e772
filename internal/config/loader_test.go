package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ENVIRONMENT", "QDRANT_PORT", "LLM_PROVIDER", "MONITOR_MAX_CONCURRENT_CRAWLS"} {
		os.Unsetenv(k)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Errorf("Qdrant.Port = %d, want 6334", cfg.Qdrant.Port)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q, want anthropic", cfg.LLM.Provider)
	}
	if cfg.Monitor.MaxConcurrentCrawls != 4 {
		t.Errorf("Monitor.MaxConcurrentCrawls = %d, want 4", cfg.Monitor.MaxConcurrentCrawls)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("QDRANT_PORT", "7000")
	defer os.Unsetenv("QDRANT_PORT")
	os.Setenv("LLM_PROVIDER", "openai")
	defer os.Unsetenv("LLM_PROVIDER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Qdrant.Port != 7000 {
		t.Errorf("Qdrant.Port = %d, want 7000", cfg.Qdrant.Port)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("Embedding.Provider should default to LLM.Provider when unset, got %q", cfg.Embedding.Provider)
	}
}

func TestBoolFromEnvVariants(t *testing.T) {
	os.Setenv("X_BOOL_TEST", "yes")
	defer os.Unsetenv("X_BOOL_TEST")
	if !boolFromEnv("X_BOOL_TEST", false) {
		t.Fatal("expected yes to parse true")
	}
}
