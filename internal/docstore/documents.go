package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// PutDocument inserts or fully replaces a document and its artifacts in a
// single transaction, so a reader never observes a document with a partial
// artifact set.
func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	if err := d.Validate(); err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO documents (id, title, file_name, collection, content, metadata, tags, created_by,
    created_at, updated_at, is_active, content_hash, chunk_count, vector_ids, primary_artifact_index)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title, file_name = EXCLUDED.file_name, collection = EXCLUDED.collection,
    content = EXCLUDED.content, metadata = EXCLUDED.metadata, tags = EXCLUDED.tags,
    updated_at = EXCLUDED.updated_at, is_active = EXCLUDED.is_active,
    content_hash = EXCLUDED.content_hash, chunk_count = EXCLUDED.chunk_count,
    vector_ids = EXCLUDED.vector_ids, primary_artifact_index = EXCLUDED.primary_artifact_index
`, d.ID, d.Title, d.FileName, d.Collection, d.Content, metadata, d.Tags, d.CreatedBy,
		d.CreatedAt, d.UpdatedAt, d.IsActive, d.ContentHash, d.ChunkCount, d.VectorIDs, d.PrimaryArtifactIndex)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("upsert document: %w", err))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM artifacts WHERE document_id = $1`, d.ID); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("clear artifacts: %w", err))
	}
	for i, a := range d.Artifacts {
		if _, err := tx.Exec(ctx, `
INSERT INTO artifacts (document_id, idx, storage_key, artifact_type, file_name, mime_type,
    size_bytes, preview_key, is_fillable, fill_fields)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			d.ID, i, a.StorageKey, a.Type, a.FileName, a.MimeType, a.SizeBytes, a.PreviewKey, a.IsFillable, a.FillFields); err != nil {
			return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("insert artifact: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// GetDocument fetches a document with its artifacts, or apperr.NotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, title, file_name, collection, content, metadata, tags, created_by,
    created_at, updated_at, is_active, content_hash, chunk_count, vector_ids, primary_artifact_index
FROM documents WHERE id = $1`, id)

	d, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Document{}, apperr.Newf(apperr.NotFound, component, "document %q not found", id)
		}
		return domain.Document{}, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}

	artifacts, err := s.artifactsFor(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	d.Artifacts = artifacts
	return d, nil
}

func (s *Store) artifactsFor(ctx context.Context, documentID string) ([]domain.Artifact, error) {
	rows, err := s.pool.Query(ctx, `
SELECT storage_key, artifact_type, file_name, mime_type, size_bytes, preview_key, is_fillable, fill_fields
FROM artifacts WHERE document_id = $1 ORDER BY idx`, documentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.StorageKey, &a.Type, &a.FileName, &a.MimeType, &a.SizeBytes, &a.PreviewKey, &a.IsFillable, &a.FillFields); err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var d domain.Document
	var metadata []byte
	if err := row.Scan(&d.ID, &d.Title, &d.FileName, &d.Collection, &d.Content, &metadata, &d.Tags, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt, &d.IsActive, &d.ContentHash, &d.ChunkCount, &d.VectorIDs, &d.PrimaryArtifactIndex); err != nil {
		return domain.Document{}, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &d.Metadata)
	}
	return d, nil
}

// FindByContentHash returns the active document sharing contentHash within
// collection, if any — the fast-path duplicate check used before the more
// expensive nearest-neighbor triage.
func (s *Store) FindByContentHash(ctx context.Context, collection, contentHash string) (domain.Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, title, file_name, collection, content, metadata, tags, created_by,
    created_at, updated_at, is_active, content_hash, chunk_count, vector_ids, primary_artifact_index
FROM documents WHERE collection = $1 AND content_hash = $2 AND is_active LIMIT 1`, collection, contentHash)

	d, err := scanDocument(row)
	if err == pgx.ErrNoRows {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return d, true, nil
}

// ListByCollection returns active documents in collection, most recent
// (updated_at, id) first. cursor is the next_cursor returned by a prior
// call (the last document id on that page), or "" to start from the
// beginning; the returned next_cursor is "" once there is nothing left to
// page through.
func (s *Store) ListByCollection(ctx context.Context, collection, cursor string, limit int) ([]domain.Document, string, error) {
	if limit <= 0 {
		limit = 100
	}
	where := "collection = $1 AND is_active"
	args := []any{collection, limit}
	if cursor != "" {
		where += ` AND (updated_at, id) < (SELECT updated_at, id FROM documents WHERE id = $3)`
		args = append(args, cursor)
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
SELECT id, title, file_name, collection, content, metadata, tags, created_by,
    created_at, updated_at, is_active, content_hash, chunk_count, vector_ids, primary_artifact_index
FROM documents WHERE %s ORDER BY updated_at DESC, id DESC LIMIT $2`, where), args...)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, "", apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, "", apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}

	nextCursor := ""
	if len(out) == limit {
		nextCursor = out[len(out)-1].ID
	}
	return out, nextCursor, nil
}

// SearchByMetadata returns active documents in collection whose metadata is
// a superset of filter (exact-match equality on every given key), most
// recent first.
func (s *Store) SearchByMetadata(ctx context.Context, collection string, filter map[string]string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, component, err)
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, title, file_name, collection, content, metadata, tags, created_by,
    created_at, updated_at, is_active, content_hash, chunk_count, vector_ids, primary_artifact_index
FROM documents WHERE collection = $1 AND is_active AND metadata @> $2::jsonb
ORDER BY updated_at DESC LIMIT $3`, collection, filterJSON, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the number of active documents in collection, or across
// every collection when collection is "".
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	var err error
	if collection == "" {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE is_active`).Scan(&n)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1 AND is_active`, collection).Scan(&n)
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return n, nil
}

// Exists reports whether a document with id exists, active or not.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return exists, nil
}

// DeleteDocument hard-deletes a document row (and, via the artifacts table's
// ON DELETE CASCADE, its artifacts). Vector cleanup is the caller's
// responsibility: a document must have its vectors removed from the Vector
// Index Adapter first, the same cross-store fan-out ownership
// DeactivateDocument already documents for soft delete.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, component, "document %q not found", id)
	}
	return nil
}

// DeactivateDocument soft-deletes a document; vector and object-store cleanup
// are the caller's responsibility (Ingestion Pipeline / RAG Engine own that
// cross-store fan-out, not the store itself).
func (s *Store) DeactivateDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, component, "document %q not found", id)
	}
	return nil
}
