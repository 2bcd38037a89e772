package docstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"university-query-engine/internal/apperr"
)

// Init bootstraps every table the Document Store Adapter owns, using the
// same CREATE-TABLE-IF-NOT-EXISTS / ALTER-TABLE-ADD-COLUMN-IF-NOT-EXISTS
// convention the rest of this codebase's Postgres stores use, so re-running
// it against an already-migrated database is always a no-op.
func Init(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    file_name TEXT NOT NULL DEFAULT '',
    collection TEXT NOT NULL DEFAULT 'default',
    content TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}',
    tags TEXT[] NOT NULL DEFAULT '{}',
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    content_hash TEXT NOT NULL DEFAULT '',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    vector_ids TEXT[] NOT NULL DEFAULT '{}',
    primary_artifact_index INTEGER NOT NULL DEFAULT -1
);

CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents(collection) WHERE is_active;
CREATE INDEX IF NOT EXISTS documents_content_hash_idx ON documents(content_hash);
CREATE INDEX IF NOT EXISTS documents_tags_idx ON documents USING GIN(tags);
CREATE INDEX IF NOT EXISTS documents_fts_idx ON documents USING GIN(to_tsvector('simple', title || ' ' || content));

CREATE TABLE IF NOT EXISTS artifacts (
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    storage_key TEXT NOT NULL,
    artifact_type TEXT NOT NULL,
    file_name TEXT NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    size_bytes BIGINT NOT NULL DEFAULT 0,
    preview_key TEXT NOT NULL DEFAULT '',
    is_fillable BOOLEAN NOT NULL DEFAULT FALSE,
    fill_fields TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (document_id, idx)
);

CREATE TABLE IF NOT EXISTS pending_updates (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    raw_content TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL DEFAULT '',
    source_url TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    collection TEXT NOT NULL DEFAULT 'default',
    detection_type TEXT NOT NULL,
    similarity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    matched_doc_id TEXT NOT NULL DEFAULT '',
    candidate_doc_ids TEXT[] NOT NULL DEFAULT '{}',
    llm_summary TEXT NOT NULL DEFAULT '',
    llm_reason TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    priority INTEGER NOT NULL DEFAULT 5,
    metadata JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS pending_updates_status_idx ON pending_updates(status);
CREATE INDEX IF NOT EXISTS pending_updates_hash_idx ON pending_updates(content_hash);

CREATE TABLE IF NOT EXISTS monitor_targets (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    collection TEXT NOT NULL DEFAULT 'default',
    category TEXT NOT NULL DEFAULT '',
    interval_hours INTEGER NOT NULL DEFAULT 24,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked_at TIMESTAMPTZ,
    last_success_at TIMESTAMPTZ,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    max_failures INTEGER NOT NULL DEFAULT 5,
    last_content_hash TEXT NOT NULL DEFAULT '',
    last_error TEXT NOT NULL DEFAULT '',
    selector TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS monitor_targets_active_idx ON monitor_targets(is_active);

CREATE TABLE IF NOT EXISTS student_profiles (
    user_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    student_id TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    gender TEXT NOT NULL DEFAULT '',
    dob TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    level TEXT NOT NULL DEFAULT '',
    major TEXT NOT NULL DEFAULT '',
    faculty TEXT NOT NULL DEFAULT '',
    class TEXT NOT NULL DEFAULT '',
    year INTEGER NOT NULL DEFAULT 0,
    language TEXT NOT NULL DEFAULT '',
    detail_level TEXT NOT NULL DEFAULT 'medium',
    personality_summary TEXT NOT NULL DEFAULT '',
    personality_traits TEXT[] NOT NULL DEFAULT '{}',
    topics_of_interest JSONB NOT NULL DEFAULT '[]',
    interaction_history JSONB NOT NULL DEFAULT '[]',
    counters JSONB NOT NULL DEFAULT '{}',
    field_confidences JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS knowledge_gaps (
    id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    sample_queries TEXT[] NOT NULL DEFAULT '{}',
    query_count INTEGER NOT NULL DEFAULT 0,
    avg_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'detected',
    priority DOUBLE PRECISION NOT NULL DEFAULT 0,
    first_detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_query_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    resolution_notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS knowledge_gaps_status_priority_idx ON knowledge_gaps(status, priority DESC);

CREATE TABLE IF NOT EXISTS orchestration_results (
    id BIGSERIAL PRIMARY KEY,
    query TEXT NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',
    user_id TEXT NOT NULL DEFAULT '',
    tool_calls JSONB NOT NULL DEFAULT '[]',
    primary_tool TEXT NOT NULL DEFAULT '',
    final_answer TEXT NOT NULL DEFAULT '',
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error TEXT NOT NULL DEFAULT '',
    vector_reference JSONB NOT NULL DEFAULT '{}',
    metrics JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS orchestration_results_session_idx ON orchestration_results(session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS conversation_messages (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS conversation_messages_session_idx ON conversation_messages(session_id, created_at DESC);

ALTER TABLE documents
    ADD COLUMN IF NOT EXISTS primary_artifact_index INTEGER NOT NULL DEFAULT -1;
`)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("init schema: %w", err))
	}
	return nil
}
