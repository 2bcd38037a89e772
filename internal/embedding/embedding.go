// Package embedding implements the Embedding Gateway: a provider-agnostic
// port for turning text into dense vectors, fronted by a Redis cache keyed
// on content hash so repeated chunks never re-pay an API call.
package embedding

import (
	"context"

	"university-query-engine/internal/apperr"
)

// Gateway converts text into embedding vectors, batching and caching as
// needed. Implementations must be safe for concurrent use.
type Gateway interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the active provider/model, e.g. "openai:text-embedding-3-small".
	Name() string
	// Dimension returns the embedding dimensionality.
	Dimension() int
	// Ping verifies the provider is reachable.
	Ping(ctx context.Context) error
}

// Provider is the subset of Gateway a concrete SDK-backed client implements,
// before caching and concurrency control are layered on top.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

const component = "embedding"

func wrapProviderErr(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.DependencyUnavailable, component, err)
}
