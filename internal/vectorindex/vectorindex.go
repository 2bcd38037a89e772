// Package vectorindex adapts Qdrant as the Vector Index Adapter: collection
// management, batched upserts, similarity search, payload updates, and
// deletes, all addressed by caller-supplied string ids.
package vectorindex

import (
	"context"

	"university-query-engine/internal/domain"
)

// PAYLOADIDField is the payload key under which the caller's original string
// id is stored, for records whose id had to be remapped to a UUID because
// the backing store only accepts UUIDs/positive integers as point ids.
const PAYLOADIDField = "_original_id"

// SearchHit is one similarity-search result.
type SearchHit struct {
	ID       string
	Score    float64
	Payload  map[string]string
}

// ScrollRecord is one record returned by Scroll, without a similarity score.
type ScrollRecord struct {
	ID      string
	Payload map[string]string
}

// Index is the Vector Index Adapter port (§4.3).
type Index interface {
	// EnsureCollection creates the named collection if it does not already
	// exist, sized for dimension and using the given distance metric.
	EnsureCollection(ctx context.Context, collection string, dimension int, metric string) error
	// Upsert writes a batch of vector records into collection.
	Upsert(ctx context.Context, collection string, records []domain.VectorRecord) error
	// Search returns the top k nearest neighbors to vector, optionally
	// restricted by an exact-match payload filter.
	Search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]SearchHit, error)
	// Scroll pages through every record in collection in a stable order,
	// optionally restricted by an exact-match payload filter. cursor is the
	// next_cursor returned by a prior call, or "" to start from the
	// beginning; the returned next_cursor is "" once there is nothing left
	// to page through.
	Scroll(ctx context.Context, collection, cursor string, limit int, filter map[string]string) (records []ScrollRecord, nextCursor string, err error)
	// Get fetches a single record's payload by id without a similarity query.
	Get(ctx context.Context, collection, id string) (map[string]string, error)
	// UpdatePayload merges fields into an existing record's payload.
	UpdatePayload(ctx context.Context, collection, id string, fields map[string]string) error
	// DeleteIDs removes specific records by id.
	DeleteIDs(ctx context.Context, collection string, ids []string) error
	// DeleteByFilter removes every record matching an exact-match payload filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error
	// ListCollections returns the names of all known collections.
	ListCollections(ctx context.Context) ([]string, error)
	// Health checks connectivity to the backing store.
	Health(ctx context.Context) error
	// Close releases the underlying client connection.
	Close() error
}
