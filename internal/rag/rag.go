// Package rag implements the RAG Engine (§4.6): it orchestrates the
// Chunker, Embedding Gateway, and Vector Index Adapter to index documents
// and answer retrieval queries, including the deduplicated, optionally
// diversified context a downstream LLM call is built on.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/chunker"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/embedding"
	"university-query-engine/internal/vectorindex"
)

const component = "rag"

// SourceMetadata describes the document being indexed (§4.6 step 2).
type SourceMetadata struct {
	SourceURL   string
	SourceTitle string
	Category    string
	Tags        []string
}

// IndexResult is returned by IndexDocument.
type IndexResult struct {
	SourceID      string
	ChunksCreated int
	VectorIDs     []string
	Collection    string
}

// SearchConfig tunes a Search or BuildContext call; zero values fall back to
// config.RAGConfig defaults supplied at construction.
type SearchConfig struct {
	Collection        string
	TopK              int
	ScoreThreshold    float64
	Deduplicate       *bool
	DedupCapPerSource int
	SearchType        string // "similarity" | "mmr"
	Filter            map[string]string
	ContextCharBudget int
}

// Result is one ranked retrieval hit.
type Result struct {
	ChunkID     string
	SourceID    string
	Content     string
	Score       float64
	Category    string
	SourceURL   string
	SourceTitle string
}

// RAGContext is the output of BuildContext: the ranked results plus a
// rendered, source-cited text block ready to hand to an LLM prompt.
type RAGContext struct {
	Query   string
	Results []Result
	Text    string
}

// Engine is the RAG Engine port (§4.6).
type Engine struct {
	chunks chunker.Chunker
	embed  embedding.Gateway
	index  vectorindex.Index
	defs   config.RAGConfig
}

// New builds an Engine from its three collaborator ports.
func New(chunks chunker.Chunker, embed embedding.Gateway, index vectorindex.Index, defs config.RAGConfig) *Engine {
	return &Engine{chunks: chunks, embed: embed, index: index, defs: defs}
}

// IndexDocument chunks, embeds, and upserts content into collection,
// returning the ordered vector ids produced.
func (e *Engine) IndexDocument(ctx context.Context, sourceID, content, collection string, meta SourceMetadata, chunkOpt chunker.Options) (IndexResult, error) {
	if collection == "" {
		collection = e.defs.DefaultCollection
	}
	chunkOpt.SourceURL = meta.SourceURL
	chunkOpt.SourceTitle = meta.SourceTitle
	chunkOpt.Category = meta.Category
	chunkOpt.Tags = meta.Tags

	chunks, err := e.chunks.Chunk(sourceID, content, chunkOpt)
	if err != nil {
		return IndexResult{}, apperr.Wrap(apperr.Internal, component, err)
	}
	if len(chunks) == 0 {
		return IndexResult{SourceID: sourceID, Collection: collection}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return IndexResult{}, err
	}
	if len(vectors) != len(chunks) {
		return IndexResult{}, apperr.Newf(apperr.Internal, component, "embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]domain.VectorRecord, len(chunks))
	vectorIDs := make([]string, len(chunks))
	for i, c := range chunks {
		id := chunkVectorID(sourceID, c.ChunkIndex)
		vectorIDs[i] = id
		records[i] = domain.VectorRecord{
			ID:         id,
			Vector:     vectors[i],
			Collection: collection,
			Payload: map[string]string{
				"source_id":    c.SourceID,
				"chunk_index":  fmt.Sprintf("%d", c.ChunkIndex),
				"total_chunks": fmt.Sprintf("%d", c.TotalChunks),
				"content":      c.Content,
				"category":     c.Category,
				"source_url":   c.SourceURL,
				"source_title": c.SourceTitle,
			},
		}
	}

	if err := e.index.Upsert(ctx, collection, records); err != nil {
		return IndexResult{}, err
	}

	return IndexResult{
		SourceID:      sourceID,
		ChunksCreated: len(chunks),
		VectorIDs:     vectorIDs,
		Collection:    collection,
	}, nil
}

// DeleteDocument removes every vector belonging to sourceID from collection.
func (e *Engine) DeleteDocument(ctx context.Context, sourceID, collection string) error {
	if collection == "" {
		collection = e.defs.DefaultCollection
	}
	return e.index.DeleteByFilter(ctx, collection, map[string]string{"source_id": sourceID})
}

// Search embeds the query, retrieves nearest neighbors, then applies
// dedup-cap-2 and round-robin diversification per §4.6.
func (e *Engine) Search(ctx context.Context, query string, cfg SearchConfig) ([]Result, error) {
	cfg = e.resolve(cfg)

	vecs, err := e.embed.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, apperr.Newf(apperr.Internal, component, "embedding returned no vector for query")
	}

	fetchK := cfg.TopK
	if cfg.Deduplicate != nil && *cfg.Deduplicate {
		fetchK *= 2
	}
	hits, err := e.index.Search(ctx, cfg.Collection, vecs[0], fetchK, cfg.Filter)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Score < cfg.ScoreThreshold {
			continue
		}
		results = append(results, resultFromHit(h))
	}

	if cfg.Deduplicate != nil && *cfg.Deduplicate {
		results = dedupCap(results, cfg.DedupCapPerSource)
	}
	if cfg.SearchType == "mmr" {
		results = roundRobinBySource(results)
	}

	if len(results) > cfg.TopK {
		results = results[:cfg.TopK]
	}
	return results, nil
}

// BuildContext performs Search, then renders a numbered, source-cited text
// block truncated to fit ContextCharBudget (truncating from the tail).
func (e *Engine) BuildContext(ctx context.Context, query string, cfg SearchConfig) (RAGContext, error) {
	cfg = e.resolve(cfg)
	results, err := e.Search(ctx, query, cfg)
	if err != nil {
		return RAGContext{}, err
	}
	return RAGContext{Query: query, Results: results, Text: renderContext(results, cfg.ContextCharBudget)}, nil
}

func (e *Engine) resolve(cfg SearchConfig) SearchConfig {
	if cfg.Collection == "" {
		cfg.Collection = e.defs.DefaultCollection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = e.defs.TopK
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = e.defs.ScoreThreshold
	}
	if cfg.Deduplicate == nil {
		dedup := e.defs.Deduplicate
		cfg.Deduplicate = &dedup
	}
	if cfg.DedupCapPerSource <= 0 {
		cfg.DedupCapPerSource = e.defs.DedupCapPerSource
		if cfg.DedupCapPerSource <= 0 {
			cfg.DedupCapPerSource = 2
		}
	}
	if cfg.SearchType == "" {
		cfg.SearchType = e.defs.SearchType
	}
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = e.defs.ContextCharBudget
		if cfg.ContextCharBudget <= 0 {
			cfg.ContextCharBudget = 3000 * 4
		}
	}
	return cfg
}

func resultFromHit(h vectorindex.SearchHit) Result {
	return Result{
		ChunkID:     h.ID,
		SourceID:    h.Payload["source_id"],
		Content:     h.Payload["content"],
		Score:       h.Score,
		Category:    h.Payload["category"],
		SourceURL:   h.Payload["source_url"],
		SourceTitle: h.Payload["source_title"],
	}
}

// dedupCap caps the number of results sharing a source_id at cap, preserving
// score order.
func dedupCap(results []Result, cap int) []Result {
	counts := map[string]int{}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if counts[r.SourceID] >= cap {
			continue
		}
		counts[r.SourceID]++
		out = append(out, r)
	}
	return out
}

// roundRobinBySource reorders results by cycling through distinct source_ids
// in their first-seen order, the required MMR baseline (§4.6 step 4).
func roundRobinBySource(results []Result) []Result {
	bySource := map[string][]Result{}
	var order []string
	for _, r := range results {
		if _, ok := bySource[r.SourceID]; !ok {
			order = append(order, r.SourceID)
		}
		bySource[r.SourceID] = append(bySource[r.SourceID], r)
	}

	out := make([]Result, 0, len(results))
	for {
		added := false
		for _, src := range order {
			if len(bySource[src]) == 0 {
				continue
			}
			out = append(out, bySource[src][0])
			bySource[src] = bySource[src][1:]
			added = true
		}
		if !added {
			break
		}
	}
	return out
}

// renderContext numbers each result, cites its source, and truncates from
// the tail once the budget is exceeded.
func renderContext(results []Result, budget int) string {
	var b strings.Builder
	for i, r := range results {
		title := r.SourceTitle
		if title == "" {
			title = r.SourceID
		}
		entry := fmt.Sprintf("[%d] (%s) %s\n", i+1, title, r.Content)
		if b.Len()+len(entry) > budget {
			break
		}
		b.WriteString(entry)
	}
	out := b.String()
	if len(out) > budget {
		out = out[:budget]
	}
	return out
}

func chunkVectorID(sourceID string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourceID, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}
