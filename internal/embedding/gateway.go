package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"university-query-engine/internal/logging"
)

// CachingGateway layers a Redis cache and a bounded-concurrency semaphore
// over a raw Provider, so repeated chunks (common across re-crawled pages
// and re-ingested near-duplicates) never re-pay an API call, and a burst of
// ingestion never floods the provider with unbounded concurrent requests.
type CachingGateway struct {
	provider Provider
	redis    redis.UniversalClient // nil disables caching
	ttl      time.Duration
	sem      *semaphore.Weighted
}

// NewCachingGateway wraps provider with an optional Redis cache (pass a nil
// client to disable caching) and a semaphore bounding in-flight calls to
// maxConcurrent.
func NewCachingGateway(provider Provider, rdb redis.UniversalClient, ttl time.Duration, maxConcurrent int) *CachingGateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &CachingGateway{
		provider: provider,
		redis:    rdb,
		ttl:      ttl,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (g *CachingGateway) Name() string   { return g.provider.Name() }
func (g *CachingGateway) Dimension() int { return g.provider.Dimension() }

func (g *CachingGateway) Ping(ctx context.Context) error {
	_, err := g.EmbedBatch(ctx, []string{"ping"})
	return wrapProviderErr(err)
}

// EmbedBatch resolves each text against the cache first, then calls the
// provider (under the concurrency semaphore) only for the cache misses,
// preserving input order in the result.
func (g *CachingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	keys := make([]string, len(texts))

	log := logging.For("embedding")

	for i, t := range texts {
		key := g.cacheKey(t)
		keys[i] = key
		if v, ok := g.getCached(ctx, key); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, wrapProviderErr(err)
	}
	vecs, err := g.provider.EmbedBatch(ctx, missTexts)
	g.sem.Release(1)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding gateway: provider returned %d vectors for %d inputs", len(vecs), len(missTexts))
	}

	for j, idx := range missIdx {
		out[idx] = vecs[j]
		if err := g.setCached(ctx, keys[idx], vecs[j]); err != nil {
			log.Debug().Err(err).Msg("embedding_cache_set_failed")
		}
	}
	return out, nil
}

// cacheKey is provider|model|sha256(text), so switching models never serves
// stale vectors from a previous embedding space.
func (g *CachingGateway) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%x", g.provider.Name(), sum)
}

func (g *CachingGateway) getCached(ctx context.Context, key string) ([]float32, bool) {
	if g.redis == nil {
		return nil, false
	}
	val, err := g.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(val, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (g *CachingGateway) setCached(ctx context.Context, key string, vec []float32) error {
	if g.redis == nil {
		return nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return g.redis.Set(ctx, key, b, g.ttl).Err()
}
