package orchestrator

import (
	"context"
	"time"

	"university-query-engine/internal/domain"
)

// logSideEffects is the post-S6 logging side-effect (§4.15): record a
// Search Log for gap analysis and the full OrchestrationResult, best
// effort. A nil SearchLog/Results collaborator skips its write silently,
// and a write error is swallowed rather than surfaced — logging must
// never fail the response that already went out.
func (o *Orchestrator) logSideEffects(ctx context.Context, req Request, retrievals []retrieval, vref domain.VectorReference, result domain.OrchestrationResult) {
	if o.SearchLog != nil {
		entry := domain.SearchLog{
			Query:           req.Query,
			UserID:          req.UserID,
			SessionID:       req.SessionID,
			Results:         searchResultRefs(retrievals),
			TopScore:        vref.TopScore,
			ResultCount:     vref.ChunkCount,
			ResultQuality:   domain.QualityFromScore(vref.TopScore),
			UsedWebFallback: result.PrimaryTool == domain.ToolSearchWeb,
			Collection:      req.Collection,
			SearchLatencyMS: result.Metrics.ToolExecutionTimeMS,
			Timestamp:       result.CreatedAt,
		}
		_ = o.SearchLog.Log(ctx, entry)
	}

	if o.Results != nil {
		_ = o.Results.Record(ctx, result)
	}
}

func searchResultRefs(retrievals []retrieval) []domain.SearchResultRef {
	refs := make([]domain.SearchResultRef, len(retrievals))
	for i, r := range retrievals {
		refs[i] = domain.SearchResultRef{
			DocumentID: r.SourceID,
			ChunkID:    r.ChunkID,
			Title:      r.SourceTitle,
			Score:      r.Score,
		}
	}
	return refs
}
