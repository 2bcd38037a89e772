package docstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// PutPendingUpdate inserts or replaces a triage record.
func (s *Store) PutPendingUpdate(ctx context.Context, p domain.PendingUpdate) error {
	if err := p.Validate(); err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO pending_updates (id, source_id, title, raw_content, content_hash, source_url, category,
    collection, detection_type, similarity_score, matched_doc_id, candidate_doc_ids, llm_summary,
    llm_reason, status, priority, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
    detection_type = EXCLUDED.detection_type, similarity_score = EXCLUDED.similarity_score,
    matched_doc_id = EXCLUDED.matched_doc_id, candidate_doc_ids = EXCLUDED.candidate_doc_ids,
    llm_summary = EXCLUDED.llm_summary, llm_reason = EXCLUDED.llm_reason,
    status = EXCLUDED.status, priority = EXCLUDED.priority, metadata = EXCLUDED.metadata
`, p.ID, p.SourceID, p.Title, p.RawContent, p.ContentHash, p.SourceURL, p.Category, p.Collection,
		p.DetectionType, p.SimilarityScore, p.MatchedDocID, p.CandidateDocIDs, p.LLMSummary, p.LLMReason,
		p.Status, p.Priority, metadata, p.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// ListPendingByStatus returns pending updates with the given status, highest
// priority first.
func (s *Store) ListPendingByStatus(ctx context.Context, status domain.PendingStatus, limit int) ([]domain.PendingUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, source_id, title, raw_content, content_hash, source_url, category, collection,
    detection_type, similarity_score, matched_doc_id, candidate_doc_ids, llm_summary, llm_reason,
    status, priority, metadata, created_at
FROM pending_updates WHERE status = $1 ORDER BY priority DESC, created_at ASC LIMIT $2`, status, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.PendingUpdate
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPendingByContentHash finds an existing pending-update awaiting approval
// for the same content, the early dedup check the Ingestion Pipeline runs
// before invoking the Document Resolver.
func (s *Store) GetPendingByContentHash(ctx context.Context, contentHash string) (domain.PendingUpdate, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, source_id, title, raw_content, content_hash, source_url, category, collection,
    detection_type, similarity_score, matched_doc_id, candidate_doc_ids, llm_summary, llm_reason,
    status, priority, metadata, created_at
FROM pending_updates WHERE content_hash = $1 AND status = 'pending' LIMIT 1`, contentHash)

	p, err := scanPending(row)
	if err == pgx.ErrNoRows {
		return domain.PendingUpdate{}, false, nil
	}
	if err != nil {
		return domain.PendingUpdate{}, false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return p, true, nil
}

// GetPendingUpdate fetches a single pending update by id.
func (s *Store) GetPendingUpdate(ctx context.Context, id string) (domain.PendingUpdate, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, source_id, title, raw_content, content_hash, source_url, category, collection,
    detection_type, similarity_score, matched_doc_id, candidate_doc_ids, llm_summary, llm_reason,
    status, priority, metadata, created_at
FROM pending_updates WHERE id = $1`, id)

	p, err := scanPending(row)
	if err == pgx.ErrNoRows {
		return domain.PendingUpdate{}, apperr.Newf(apperr.NotFound, component, "pending update %q not found", id)
	}
	if err != nil {
		return domain.PendingUpdate{}, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return p, nil
}

func scanPending(row pgx.Row) (domain.PendingUpdate, error) {
	var p domain.PendingUpdate
	var metadata []byte
	if err := row.Scan(&p.ID, &p.SourceID, &p.Title, &p.RawContent, &p.ContentHash, &p.SourceURL, &p.Category,
		&p.Collection, &p.DetectionType, &p.SimilarityScore, &p.MatchedDocID, &p.CandidateDocIDs, &p.LLMSummary,
		&p.LLMReason, &p.Status, &p.Priority, &metadata, &p.CreatedAt); err != nil {
		return domain.PendingUpdate{}, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &p.Metadata)
	}
	return p, nil
}

// SetPendingStatus transitions a pending update's approval status.
func (s *Store) SetPendingStatus(ctx context.Context, id string, status domain.PendingStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pending_updates SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, component, "pending update %q not found", id)
	}
	return nil
}
