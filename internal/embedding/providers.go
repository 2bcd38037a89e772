package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"university-query-engine/internal/config"
)

// openAIProvider calls OpenAI's (or an OpenAI-compatible) embeddings endpoint.
type openAIProvider struct {
	client openai.Client
	model  string
	dim    int
}

// NewOpenAIProvider builds a Provider backed by the OpenAI Go SDK.
func NewOpenAIProvider(cfg config.OpenAIConfig, dim int) Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		dim:    dim,
	}
}

func (p *openAIProvider) Name() string   { return "openai:" + p.model }
func (p *openAIProvider) Dimension() int { return p.dim }

func (p *openAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: p.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors, want %d", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// googleProvider calls Google's embedding model via the genai SDK. Construction
// is left to the caller (genai.NewClient requires a context), so this takes a
// caller-supplied embed function.
type googleProvider struct {
	newClient func() (embedFunc, error)
	model     string
	dim       int
}

type embedFunc func(ctx context.Context, texts []string, model string) ([][]float32, error)

// NewGoogleProvider builds a Provider around a caller-supplied embed function,
// so the genai client's lifecycle (and its context-taking constructor) stays
// owned by the composition root rather than this package.
func NewGoogleProvider(model string, dim int, embed embedFunc) Provider {
	return &googleProvider{newClient: func() (embedFunc, error) { return embed, nil }, model: model, dim: dim}
}

func (p *googleProvider) Name() string   { return "google:" + p.model }
func (p *googleProvider) Dimension() int { return p.dim }

func (p *googleProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embed, err := p.newClient()
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	vecs, err := embed(ctx, texts, p.model)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return vecs, nil
}
