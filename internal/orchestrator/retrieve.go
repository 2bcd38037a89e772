package orchestrator

import (
	"context"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/rag"
)

// runRetrieve is S3: when rag_config.enabled, embed the query and search
// the vector index, then summarize the hits into a VectorReference. Each
// hit is enriched with its owning Document when a DocumentFetcher is wired,
// so S4/S4.9a can inspect artifacts without a second retrieval pass.
func (o *Orchestrator) runRetrieve(ctx context.Context, req Request) ([]retrieval, domain.VectorReference, error) {
	if !req.EnableRAG || o.RAG == nil {
		return nil, domain.VectorReference{Threshold: o.Config.HighConfidenceThreshold}, nil
	}

	cfg := rag.SearchConfig{
		Collection:     req.Collection,
		TopK:           req.TopK,
		ScoreThreshold: req.SimilarityThreshold,
		Filter:         req.MetadataFilter,
	}
	results, err := o.RAG.Search(ctx, req.Query, cfg)
	if err != nil {
		return nil, domain.VectorReference{}, err
	}

	retrievals := make([]retrieval, len(results))
	for i, r := range results {
		retrievals[i] = retrieval{Result: r}
	}
	o.hydrateDocuments(ctx, retrievals)

	return retrievals, buildVectorReference(results, o.Config.HighConfidenceThreshold), nil
}

// hydrateDocuments resolves each distinct source document at most once,
// skipping entirely when no DocumentFetcher is wired.
func (o *Orchestrator) hydrateDocuments(ctx context.Context, retrievals []retrieval) {
	if o.Docs == nil {
		return
	}
	cache := map[string]*domain.Document{}
	for i := range retrievals {
		sourceID := retrievals[i].SourceID
		doc, ok := cache[sourceID]
		if !ok {
			d, err := o.Docs.GetDocument(ctx, sourceID)
			if err == nil {
				doc = &d
			}
			cache[sourceID] = doc
		}
		retrievals[i].Document = doc
	}
}

func buildVectorReference(results []rag.Result, highConfidenceThreshold float64) domain.VectorReference {
	vref := domain.VectorReference{Threshold: highConfidenceThreshold, ChunkCount: len(results)}
	if len(results) == 0 {
		return vref
	}
	var sum float64
	vref.TopScore = results[0].Score
	for i, r := range results {
		if r.Score > vref.TopScore {
			vref.TopScore = r.Score
		}
		sum += r.Score
		if i < 3 {
			vref.SampleChunks = append(vref.SampleChunks, r.ChunkID)
		}
	}
	vref.AvgScore = sum / float64(len(results))
	vref.HasHighConfidence = vref.TopScore >= highConfidenceThreshold
	return vref
}
