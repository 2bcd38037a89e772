package llm

import (
	"fmt"
	"net/http"

	"university-query-engine/internal/config"
	"university-query-engine/internal/llm/anthropic"
	"university-query-engine/internal/llm/google"
	"university-query-engine/internal/llm/openai"
)

// Build constructs a Provider from configuration. The query engine talks to
// exactly one chat provider at a time; RAG embeddings are configured
// independently (see internal/embedding), since a deployment commonly pairs
// e.g. an Anthropic chat model with an OpenAI embedding model.
func Build(cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return anthropic.New(cfg.Anthropic, httpClient), nil
	case "openai":
		return openai.New(cfg.OpenAI, httpClient), nil
	case "google":
		return google.New(cfg.Google), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
