package docstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// PutKnowledgeGap inserts or replaces a knowledge gap record. The Search
// Logger & Gap Detector owns ClickHouse for raw log analytics (see
// internal/searchlog); this table is the durable, queryable gap backlog the
// content team triages from.
func (s *Store) PutKnowledgeGap(ctx context.Context, g domain.KnowledgeGap) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO knowledge_gaps (id, topic, sample_queries, query_count, avg_score, status, priority,
    first_detected_at, last_query_at, resolution_notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
    sample_queries = EXCLUDED.sample_queries, query_count = EXCLUDED.query_count,
    avg_score = EXCLUDED.avg_score, status = EXCLUDED.status, priority = EXCLUDED.priority,
    last_query_at = EXCLUDED.last_query_at, resolution_notes = EXCLUDED.resolution_notes
`, g.ID, g.Topic, g.SampleQueries, g.QueryCount, g.AvgScore, g.Status, g.Priority,
		g.FirstDetectedAt, g.LastQueryAt, g.ResolutionNotes)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// GetKnowledgeGapByTopic fetches a knowledge gap by its topic key, or
// ok=false if no gap has been raised for that pattern yet.
func (s *Store) GetKnowledgeGapByTopic(ctx context.Context, topic string) (domain.KnowledgeGap, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, topic, sample_queries, query_count, avg_score, status, priority,
    first_detected_at, last_query_at, resolution_notes
FROM knowledge_gaps WHERE topic = $1`, topic)

	var g domain.KnowledgeGap
	err := row.Scan(&g.ID, &g.Topic, &g.SampleQueries, &g.QueryCount, &g.AvgScore, &g.Status,
		&g.Priority, &g.FirstDetectedAt, &g.LastQueryAt, &g.ResolutionNotes)
	if err == pgx.ErrNoRows {
		return domain.KnowledgeGap{}, false, nil
	}
	if err != nil {
		return domain.KnowledgeGap{}, false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return g, true, nil
}

// ListGapsByStatus returns knowledge gaps with the given status, highest
// priority first.
func (s *Store) ListGapsByStatus(ctx context.Context, status domain.GapStatus, limit int) ([]domain.KnowledgeGap, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, topic, sample_queries, query_count, avg_score, status, priority,
    first_detected_at, last_query_at, resolution_notes
FROM knowledge_gaps WHERE status = $1 ORDER BY priority DESC LIMIT $2`, status, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.KnowledgeGap
	for rows.Next() {
		var g domain.KnowledgeGap
		if err := rows.Scan(&g.ID, &g.Topic, &g.SampleQueries, &g.QueryCount, &g.AvgScore, &g.Status,
			&g.Priority, &g.FirstDetectedAt, &g.LastQueryAt, &g.ResolutionNotes); err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PutOrchestrationResult persists one smart-query run for audit/replay.
func (s *Store) PutOrchestrationResult(ctx context.Context, r domain.OrchestrationResult) error {
	toolCalls, err := json.Marshal(r.ToolCalls)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	vref, err := json.Marshal(r.VectorReference)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO orchestration_results (query, session_id, user_id, tool_calls, primary_tool,
    final_answer, success, error, vector_reference, metrics, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, r.Query, r.SessionID, r.UserID, toolCalls, r.PrimaryTool, r.FinalAnswer, r.Success, r.Error,
		vref, metrics, r.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}
