package ingestion

import (
	"context"
	"testing"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/chunker"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/resolver"
	"university-query-engine/internal/vectorindex"
)

type memStore struct {
	pendingByHash map[string]domain.PendingUpdate
	pendingByID   map[string]domain.PendingUpdate
	docsByHash    map[string]domain.Document
	docsByID      map[string]domain.Document
	put           []domain.PendingUpdate
}

func newMemStore() *memStore {
	return &memStore{
		pendingByHash: map[string]domain.PendingUpdate{},
		pendingByID:   map[string]domain.PendingUpdate{},
		docsByHash:    map[string]domain.Document{},
		docsByID:      map[string]domain.Document{},
	}
}

func (m *memStore) GetPendingByContentHash(ctx context.Context, contentHash string) (domain.PendingUpdate, bool, error) {
	p, ok := m.pendingByHash[contentHash]
	return p, ok, nil
}

func (m *memStore) FindByContentHash(ctx context.Context, collection, contentHash string) (domain.Document, bool, error) {
	d, ok := m.docsByHash[contentHash]
	return d, ok, nil
}

func (m *memStore) PutPendingUpdate(ctx context.Context, p domain.PendingUpdate) error {
	m.put = append(m.put, p)
	m.pendingByID[p.ID] = p
	if p.ContentHash != "" {
		m.pendingByHash[p.ContentHash] = p
	}
	return nil
}

func (m *memStore) GetPendingUpdate(ctx context.Context, id string) (domain.PendingUpdate, error) {
	p, ok := m.pendingByID[id]
	if !ok {
		return domain.PendingUpdate{}, apperr.Newf(apperr.NotFound, "test", "pending update %q not found", id)
	}
	return p, nil
}

func (m *memStore) SetPendingStatus(ctx context.Context, id string, status domain.PendingStatus) error {
	p, ok := m.pendingByID[id]
	if !ok {
		return apperr.Newf(apperr.NotFound, "test", "pending update %q not found", id)
	}
	p.Status = status
	m.pendingByID[id] = p
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	d, ok := m.docsByID[id]
	if !ok {
		return domain.Document{}, apperr.Newf(apperr.NotFound, "test", "document %q not found", id)
	}
	return d, nil
}

func (m *memStore) PutDocument(ctx context.Context, d domain.Document) error {
	m.docsByID[d.ID] = d
	if d.ContentHash != "" {
		m.docsByHash[d.ContentHash] = d
	}
	return nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id string) error {
	delete(m.docsByID, id)
	return nil
}

// fakeIndexer is a minimal Indexer stub recording the calls Promote makes.
type fakeIndexer struct {
	indexed []string
	deleted []string
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, sourceID, content, collection string, meta rag.SourceMetadata, chunkOpt chunker.Options) (rag.IndexResult, error) {
	f.indexed = append(f.indexed, sourceID)
	return rag.IndexResult{SourceID: sourceID, ChunksCreated: 1, VectorIDs: []string{sourceID + "#0"}, Collection: collection}, nil
}

func (f *fakeIndexer) DeleteDocument(ctx context.Context, sourceID, collection string) error {
	f.deleted = append(f.deleted, sourceID)
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return out, nil
}
func (stubEmbedder) Name() string             { return "stub" }
func (stubEmbedder) Dimension() int           { return 1 }
func (stubEmbedder) Ping(context.Context) error { return nil }

type stubIndex struct{}

func (stubIndex) EnsureCollection(context.Context, string, int, string) error { return nil }
func (stubIndex) Upsert(context.Context, string, []domain.VectorRecord) error { return nil }
func (stubIndex) Search(context.Context, string, []float32, int, map[string]string) ([]vectorindex.SearchHit, error) {
	return nil, nil
}
func (stubIndex) Get(context.Context, string, string) (map[string]string, error) { return nil, nil }
func (stubIndex) UpdatePayload(context.Context, string, string, map[string]string) error {
	return nil
}
func (stubIndex) DeleteIDs(context.Context, string, []string) error        { return nil }
func (stubIndex) DeleteByFilter(context.Context, string, map[string]string) error { return nil }
func (stubIndex) Scroll(context.Context, string, string, int, map[string]string) ([]vectorindex.ScrollRecord, string, error) {
	return nil, "", nil
}
func (stubIndex) ListCollections(context.Context) ([]string, error)        { return nil, nil }
func (stubIndex) Health(context.Context) error                             { return nil }
func (stubIndex) Close() error                                             { return nil }

func newResolverWithTriage(triageJSON string) *resolver.Resolver {
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: "Tóm tắt."},
		{Role: "assistant", Content: triageJSON},
	}}
	return resolver.New(stubEmbedder{}, stubIndex{}, provider, "qa", "reasoning", config.ResolverConfig{
		MaxCandidates: 5, SummaryWordLimit: 80, SummaryInputChars: 4000, FallbackChars: 500,
	})
}

func testPayload() Payload {
	return Payload{
		SourceID: "src-1", Title: "Thông báo", Content: "Nội dung thông báo mới nhất.",
		SourceURL: "https://example.edu.vn/a", Collection: "default", Category: "announcement",
	}
}

func TestIngestRejectsEarlyPendingDuplicate(t *testing.T) {
	store := newMemStore()
	payload := testPayload()
	hash := ContentHash(payload.Content)
	store.pendingByHash[hash] = domain.PendingUpdate{ID: "existing-pending"}

	pipe := New(store, newResolverWithTriage(`{"action":1,"reason":"","updated_id":null}`))
	update, err := pipe.Ingest(context.Background(), payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if update.DetectionType != domain.DetectionDuplicate || update.Status != domain.PendingStatusRejected {
		t.Fatalf("expected rejected duplicate, got %+v", update)
	}
	if update.MatchedDocID != "existing-pending" {
		t.Fatalf("expected matched id to reference the pending entry, got %+v", update)
	}
}

func TestIngestRejectsExistingDocumentDuplicate(t *testing.T) {
	store := newMemStore()
	payload := testPayload()
	hash := ContentHash(payload.Content)
	store.docsByHash[hash] = domain.Document{ID: "doc-7"}

	pipe := New(store, newResolverWithTriage(`{"action":1,"reason":"","updated_id":null}`))
	update, err := pipe.Ingest(context.Background(), payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if update.DetectionType != domain.DetectionDuplicate || update.MatchedDocID != "doc-7" {
		t.Fatalf("expected duplicate matched to doc-7, got %+v", update)
	}
}

func TestIngestCallsResolverWhenNoDuplicateFound(t *testing.T) {
	store := newMemStore()
	pipe := New(store, newResolverWithTriage(`{"action":1,"reason":"mới và hữu ích","updated_id":null}`))

	update, err := pipe.Ingest(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if update.DetectionType != domain.DetectionNew || update.Status != domain.PendingStatusPending {
		t.Fatalf("expected new/pending, got %+v", update)
	}
	if update.Metadata["summary"] != "Tóm tắt." {
		t.Fatalf("expected summary carried into metadata, got %+v", update.Metadata)
	}
}

func TestIngestMapsUnrelatedToRejected(t *testing.T) {
	store := newMemStore()
	pipe := New(store, newResolverWithTriage(`{"action":0,"reason":"không liên quan","updated_id":null}`))

	update, err := pipe.Ingest(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if update.DetectionType != domain.DetectionUnrelated || update.Status != domain.PendingStatusRejected {
		t.Fatalf("expected unrelated/rejected, got %+v", update)
	}
}

func TestIngestMapsUpdateToPendingWithMatchedID(t *testing.T) {
	store := newMemStore()
	pipe := New(store, newResolverWithTriage(`{"action":2,"reason":"cập nhật","updated_id":"doc-42"}`))

	update, err := pipe.Ingest(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if update.DetectionType != domain.DetectionUpdate || update.Status != domain.PendingStatusPending || update.MatchedDocID != "doc-42" {
		t.Fatalf("expected pending update matched to doc-42, got %+v", update)
	}
}

func TestContentHashNormalizesWhitespace(t *testing.T) {
	a := ContentHash("Hello   world  \n\n")
	b := ContentHash("Hello world")
	if a != b {
		t.Fatalf("expected normalized hashes to match: %q vs %q", a, b)
	}
}

func TestPromoteIndexesNewDocument(t *testing.T) {
	store := newMemStore()
	indexer := &fakeIndexer{}
	pipe := &Pipeline{Store: store, RAG: indexer}

	pending := domain.PendingUpdate{
		ID: "pend-1", Title: "Thông báo", RawContent: "Nội dung mới.", ContentHash: "hash-1",
		Collection: "default", DetectionType: domain.DetectionNew, Status: domain.PendingStatusApproved,
	}
	_ = store.PutPendingUpdate(context.Background(), pending)

	doc, err := pipe.Promote(context.Background(), "pend-1")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if doc.ID == "" || len(doc.VectorIDs) != 1 {
		t.Fatalf("expected an indexed document with one vector id, got %+v", doc)
	}
	if len(indexer.indexed) != 1 || len(indexer.deleted) != 0 {
		t.Fatalf("expected one index call and no delete for a new document, got %+v", indexer)
	}
	if _, ok := store.docsByID[doc.ID]; !ok {
		t.Fatalf("expected document persisted in store")
	}
}

func TestPromoteReplacesMatchedDocumentOnUpdate(t *testing.T) {
	store := newMemStore()
	store.docsByID["doc-42"] = domain.Document{ID: "doc-42", VectorIDs: []string{"doc-42#0"}}
	indexer := &fakeIndexer{}
	pipe := &Pipeline{Store: store, RAG: indexer}

	pending := domain.PendingUpdate{
		ID: "pend-2", Title: "Cập nhật", RawContent: "Nội dung cập nhật.", ContentHash: "hash-2",
		Collection: "default", DetectionType: domain.DetectionUpdate, MatchedDocID: "doc-42",
		Status: domain.PendingStatusApproved,
	}
	_ = store.PutPendingUpdate(context.Background(), pending)

	doc, err := pipe.Promote(context.Background(), "pend-2")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if doc.ID != "doc-42" {
		t.Fatalf("expected update to reuse the matched document id, got %q", doc.ID)
	}
	if len(indexer.deleted) != 1 || indexer.deleted[0] != "doc-42" {
		t.Fatalf("expected the old document's vectors deleted before reindexing, got %+v", indexer.deleted)
	}
}

func TestPromoteRejectsUnapprovedPending(t *testing.T) {
	store := newMemStore()
	pipe := &Pipeline{Store: store, RAG: &fakeIndexer{}}
	_ = store.PutPendingUpdate(context.Background(), domain.PendingUpdate{
		ID: "pend-3", Status: domain.PendingStatusPending, DetectionType: domain.DetectionNew,
	})

	if _, err := pipe.Promote(context.Background(), "pend-3"); err == nil {
		t.Fatalf("expected an error promoting a non-approved pending update")
	}
}

func TestPromoteIsIdempotentForAlreadyPromotedContent(t *testing.T) {
	store := newMemStore()
	store.docsByHash["hash-4"] = domain.Document{ID: "doc-99", ContentHash: "hash-4"}
	indexer := &fakeIndexer{}
	pipe := &Pipeline{Store: store, RAG: indexer}

	pending := domain.PendingUpdate{
		ID: "pend-4", ContentHash: "hash-4", Collection: "default",
		DetectionType: domain.DetectionNew, Status: domain.PendingStatusApproved,
	}
	_ = store.PutPendingUpdate(context.Background(), pending)

	doc, err := pipe.Promote(context.Background(), "pend-4")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if doc.ID != "doc-99" {
		t.Fatalf("expected the existing document to be returned, got %+v", doc)
	}
	if len(indexer.indexed) != 0 {
		t.Fatalf("expected no reindexing for already-promoted content")
	}
}

func TestHardDeleteRemovesVectorsBeforeRow(t *testing.T) {
	store := newMemStore()
	store.docsByID["doc-77"] = domain.Document{ID: "doc-77", Collection: "default"}
	indexer := &fakeIndexer{}
	pipe := &Pipeline{Store: store, RAG: indexer}

	if err := pipe.HardDelete(context.Background(), "doc-77", "default"); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if len(indexer.deleted) != 1 || indexer.deleted[0] != "doc-77" {
		t.Fatalf("expected vectors deleted for doc-77, got %+v", indexer.deleted)
	}
	if _, ok := store.docsByID["doc-77"]; ok {
		t.Fatalf("expected document row removed")
	}
}
