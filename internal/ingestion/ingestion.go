// Package ingestion implements the Ingestion Pipeline (§4.12): content-hash
// deduplication against both the pending queue and the document store,
// falling through to the Document Resolver for new/update/unrelated
// triage, and persisting the result as a Pending Update. It generalizes the
// teacher's `documents.Distance`/simhash near-duplicate heuristics into an
// exact SHA-256 content-hash check. Each Ingest call triages one payload;
// there is no worker pool here, and the monitor scheduler's concurrent
// crawls each call Ingest directly.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/chunker"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/resolver"
)

const component = "ingestion"

// Payload is a raw crawled document awaiting triage (§4.12).
type Payload struct {
	SourceID   string
	Title      string
	Content    string
	SourceURL  string
	Collection string
	Category   string
	Metadata   map[string]string
	Priority   int
}

// Store is the persistence port ingestion needs: the pending-queue and
// document-store duplicate checks, the pending-update write, and (for
// Promote) the read/write pair that turns an approved pending update into a
// live Document — all satisfied directly by *docstore.Store.
type Store interface {
	GetPendingByContentHash(ctx context.Context, contentHash string) (domain.PendingUpdate, bool, error)
	FindByContentHash(ctx context.Context, collection, contentHash string) (domain.Document, bool, error)
	PutPendingUpdate(ctx context.Context, p domain.PendingUpdate) error
	GetPendingUpdate(ctx context.Context, id string) (domain.PendingUpdate, error)
	SetPendingStatus(ctx context.Context, id string, status domain.PendingStatus) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	PutDocument(ctx context.Context, d domain.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// Indexer is the RAG Engine's indexing port Promote drives, satisfied
// directly by *rag.Engine.
type Indexer interface {
	IndexDocument(ctx context.Context, sourceID, content, collection string, meta rag.SourceMetadata, chunkOpt chunker.Options) (rag.IndexResult, error)
	DeleteDocument(ctx context.Context, sourceID, collection string) error
}

// EventPublisher announces a persisted Pending Update onto the Event Bus
// (§2 A7). Optional: a nil EventPublisher skips publication, since it is a
// downstream-analytics concern the pipeline never blocks ingestion on.
type EventPublisher interface {
	PublishIngestionEvent(ctx context.Context, update domain.PendingUpdate) error
}

// Pipeline is the Ingestion Pipeline (§4.12).
type Pipeline struct {
	Store    Store
	Resolver *resolver.Resolver
	Events   EventPublisher
	// RAG chunks/embeds/upserts a pending update's content on Promote. Left
	// unset, Ingest/persistDuplicate still work; only Promote and HardDelete
	// require it.
	RAG Indexer
}

// New builds a Pipeline from its collaborators.
func New(store Store, r *resolver.Resolver) *Pipeline {
	return &Pipeline{Store: store, Resolver: r}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalize collapses whitespace runs to a single space and strips leading/
// trailing space, the content_hash normalization §4.12 step 1 names.
func normalize(content string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(content, " "))
}

// ContentHash is SHA-256(normalize(content)), hex-encoded.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(normalize(content)))
	return hex.EncodeToString(sum[:])
}

// Ingest runs the full dedup-then-triage pipeline for one payload (§4.12).
func (p *Pipeline) Ingest(ctx context.Context, payload Payload) (domain.PendingUpdate, error) {
	hash := ContentHash(payload.Content)
	now := time.Now()

	if existing, ok, err := p.Store.GetPendingByContentHash(ctx, hash); err != nil {
		return domain.PendingUpdate{}, err
	} else if ok {
		return p.persistDuplicate(ctx, payload, hash, now, "duplicate in pending queue", existing.ID)
	}

	if doc, ok, err := p.Store.FindByContentHash(ctx, payload.Collection, hash); err != nil {
		return domain.PendingUpdate{}, err
	} else if ok {
		return p.persistDuplicate(ctx, payload, hash, now, "duplicate of existing document", doc.ID)
	}

	result := p.Resolver.Resolve(ctx, resolver.Input{
		Title:      payload.Title,
		Content:    payload.Content,
		Collection: payload.Collection,
		SourceURL:  payload.SourceURL,
		Category:   payload.Category,
	})

	detectionType := detectionTypeFor(result.Action)
	status := domain.PendingStatusPending
	if detectionType == domain.DetectionUnrelated {
		status = domain.PendingStatusRejected
	}

	candidateIDs := make([]string, len(result.Candidates))
	var topScore float64
	for i, c := range result.Candidates {
		candidateIDs[i] = c.ID
		if c.Score > topScore {
			topScore = c.Score
		}
	}

	metadata := mergeMetadata(payload.Metadata, map[string]string{
		"summary":    result.Summary,
		"source_url": payload.SourceURL,
	})

	priority := payload.Priority
	if priority < 1 {
		priority = 5
	}

	update := domain.PendingUpdate{
		ID:              uuid.NewString(),
		SourceID:        payload.SourceID,
		Title:           payload.Title,
		RawContent:      payload.Content,
		ContentHash:     hash,
		SourceURL:       payload.SourceURL,
		Category:        payload.Category,
		Collection:      payload.Collection,
		DetectionType:   detectionType,
		SimilarityScore: topScore,
		MatchedDocID:    result.UpdatedID,
		CandidateDocIDs: candidateIDs,
		LLMSummary:      result.Summary,
		LLMReason:       result.Reason,
		Status:          status,
		Priority:         priority,
		Metadata:        metadata,
		CreatedAt:       now,
	}

	if err := p.Store.PutPendingUpdate(ctx, update); err != nil {
		return domain.PendingUpdate{}, err
	}
	p.publish(ctx, update)
	return update, nil
}

func (p *Pipeline) publish(ctx context.Context, update domain.PendingUpdate) {
	if p.Events == nil {
		return
	}
	_ = p.Events.PublishIngestionEvent(ctx, update)
}

func (p *Pipeline) persistDuplicate(ctx context.Context, payload Payload, hash string, now time.Time, reason, matchedID string) (domain.PendingUpdate, error) {
	update := domain.PendingUpdate{
		ID:            uuid.NewString(),
		SourceID:      payload.SourceID,
		Title:         payload.Title,
		RawContent:    payload.Content,
		ContentHash:   hash,
		SourceURL:     payload.SourceURL,
		Category:      payload.Category,
		Collection:    payload.Collection,
		DetectionType: domain.DetectionDuplicate,
		MatchedDocID:  matchedID,
		LLMReason:     reason,
		Status:        domain.PendingStatusRejected,
		Priority:      1,
		Metadata:      mergeMetadata(payload.Metadata, map[string]string{"source_url": payload.SourceURL}),
		CreatedAt:     now,
	}
	if err := p.Store.PutPendingUpdate(ctx, update); err != nil {
		return domain.PendingUpdate{}, err
	}
	p.publish(ctx, update)
	return update, nil
}

// Promote closes the ingestion data flow's last step (§2): it turns an
// approved Pending Update into a live Document, chunking/embedding/upserting
// its content through the RAG Engine (C1+C2+C3) and writing the resulting
// Document (C4). An update detection replaces the matched document's
// existing vectors in place and reuses its id; a new detection gets a fresh
// document id. Idempotent: promoting an already-promoted content_hash
// returns the existing document rather than indexing it twice.
func (p *Pipeline) Promote(ctx context.Context, pendingID string) (domain.Document, error) {
	pending, err := p.Store.GetPendingUpdate(ctx, pendingID)
	if err != nil {
		return domain.Document{}, err
	}
	if pending.Status != domain.PendingStatusApproved {
		return domain.Document{}, apperr.Newf(apperr.InvalidInput, component, "pending update %q is not approved (status=%s)", pendingID, pending.Status)
	}
	if pending.DetectionType == domain.DetectionUnrelated || pending.DetectionType == domain.DetectionDuplicate {
		return domain.Document{}, apperr.Newf(apperr.InvalidInput, component, "pending update %q has detection_type %q and cannot be promoted", pendingID, pending.DetectionType)
	}

	if existing, ok, err := p.Store.FindByContentHash(ctx, pending.Collection, pending.ContentHash); err != nil {
		return domain.Document{}, err
	} else if ok {
		return existing, nil
	}

	docID := pending.MatchedDocID
	if pending.DetectionType == domain.DetectionUpdate && docID != "" {
		if existing, err := p.Store.GetDocument(ctx, docID); err == nil {
			if err := p.RAG.DeleteDocument(ctx, existing.ID, pending.Collection); err != nil {
				return domain.Document{}, err
			}
		}
	} else {
		docID = uuid.NewString()
	}

	result, err := p.RAG.IndexDocument(ctx, docID, pending.RawContent, pending.Collection, rag.SourceMetadata{
		SourceURL:   pending.SourceURL,
		SourceTitle: pending.Title,
		Category:    pending.Category,
	}, chunker.Options{Category: pending.Category, SourceURL: pending.SourceURL, SourceTitle: pending.Title})
	if err != nil {
		return domain.Document{}, err
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:                   docID,
		Title:                pending.Title,
		Collection:           pending.Collection,
		Content:              pending.RawContent,
		Metadata:             pending.Metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
		IsActive:             true,
		ContentHash:          pending.ContentHash,
		ChunkCount:           len(result.VectorIDs),
		VectorIDs:            result.VectorIDs,
		PrimaryArtifactIndex: -1,
	}
	if err := p.Store.PutDocument(ctx, doc); err != nil {
		return domain.Document{}, err
	}
	if err := p.Store.SetPendingStatus(ctx, pendingID, domain.PendingStatusApproved); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// HardDelete removes a document's vectors through the RAG Engine and then
// its row through the Document Store Adapter (§3: a document "may be
// hard-deleted (removes vectors first, then record)"). Unlike
// DeactivateDocument's soft delete, this is irreversible.
func (p *Pipeline) HardDelete(ctx context.Context, id, collection string) error {
	if err := p.RAG.DeleteDocument(ctx, id, collection); err != nil {
		return err
	}
	return p.Store.DeleteDocument(ctx, id)
}

func detectionTypeFor(action resolver.Action) domain.DetectionType {
	switch action {
	case resolver.ActionUpdate:
		return domain.DetectionUpdate
	case resolver.ActionUnrelated:
		return domain.DetectionUnrelated
	default:
		return domain.DetectionNew
	}
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
