package llm

import (
	"testing"

	"university-query-engine/internal/config"
)

func TestBuildUnsupportedProvider(t *testing.T) {
	_, err := Build(config.LLMConfig{Provider: "watson"}, nil)
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestBuildDefaultsToAnthropic(t *testing.T) {
	p, err := Build(config.LLMConfig{Anthropic: config.AnthropicConfig{APIKey: "test"}}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("expected anthropic provider, got %s", p.Name())
	}
}
