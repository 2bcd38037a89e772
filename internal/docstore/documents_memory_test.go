package docstore

import (
	"context"
	"testing"
	"time"

	"university-query-engine/internal/domain"
)

func TestMemoryStoreDocumentLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	doc := domain.Document{
		ID: "doc-1", Title: "Học phí", Collection: "tuition", Content: "...",
		Metadata: map[string]string{"category": "fees"}, IsActive: true,
		ContentHash: "hash-1", ChunkCount: 1, VectorIDs: []string{"doc-1#0"},
		CreatedAt: now, UpdatedAt: now, PrimaryArtifactIndex: -1,
	}
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	got, err := store.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Học phí" {
		t.Fatalf("unexpected document: %+v", got)
	}

	if _, err := store.GetDocument(ctx, "missing"); err == nil {
		t.Fatalf("expected not-found error for missing document")
	}

	found, ok, err := store.FindByContentHash(ctx, "tuition", "hash-1")
	if err != nil || !ok || found.ID != "doc-1" {
		t.Fatalf("FindByContentHash: found=%+v ok=%v err=%v", found, ok, err)
	}

	exists, err := store.Exists(ctx, "doc-1")
	if err != nil || !exists {
		t.Fatalf("Exists: %v %v", exists, err)
	}

	n, err := store.Count(ctx, "tuition")
	if err != nil || n != 1 {
		t.Fatalf("Count: %d %v", n, err)
	}

	matches, err := store.SearchByMetadata(ctx, "tuition", map[string]string{"category": "fees"}, 10)
	if err != nil || len(matches) != 1 {
		t.Fatalf("SearchByMetadata: %+v %v", matches, err)
	}
	if none, _ := store.SearchByMetadata(ctx, "tuition", map[string]string{"category": "other"}, 10); len(none) != 0 {
		t.Fatalf("expected no matches for mismatched metadata, got %+v", none)
	}

	if err := store.DeactivateDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeactivateDocument: %v", err)
	}
	if n, _ := store.Count(ctx, "tuition"); n != 0 {
		t.Fatalf("expected deactivated document excluded from count, got %d", n)
	}
	if _, ok, _ := store.FindByContentHash(ctx, "tuition", "hash-1"); ok {
		t.Fatalf("expected deactivated document excluded from content-hash lookup")
	}

	if err := store.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if exists, _ := store.Exists(ctx, "doc-1"); exists {
		t.Fatalf("expected document gone after hard delete")
	}
	if err := store.DeleteDocument(ctx, "doc-1"); err == nil {
		t.Fatalf("expected not-found deleting an already hard-deleted document")
	}
}

func TestMemoryStoreListByCollectionPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		err := store.PutDocument(ctx, domain.Document{
			ID: id, Collection: "c1", IsActive: true, PrimaryArtifactIndex: -1,
			CreatedAt: base, UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("PutDocument %s: %v", id, err)
		}
	}

	page1, cursor1, err := store.ListByCollection(ctx, "c1", "", 2)
	if err != nil {
		t.Fatalf("ListByCollection page1: %v", err)
	}
	if len(page1) != 2 || cursor1 == "" {
		t.Fatalf("expected a 2-item page with a cursor, got %+v cursor=%q", page1, cursor1)
	}

	page2, cursor2, err := store.ListByCollection(ctx, "c1", cursor1, 2)
	if err != nil {
		t.Fatalf("ListByCollection page2: %v", err)
	}
	if len(page2) != 2 || cursor2 == "" {
		t.Fatalf("expected a second 2-item page with a cursor, got %+v cursor=%q", page2, cursor2)
	}

	page3, cursor3, err := store.ListByCollection(ctx, "c1", cursor2, 2)
	if err != nil {
		t.Fatalf("ListByCollection page3: %v", err)
	}
	if len(page3) != 1 || cursor3 != "" {
		t.Fatalf("expected a final 1-item page with no cursor, got %+v cursor=%q", page3, cursor3)
	}

	seen := map[string]bool{}
	for _, d := range append(append(page1, page2...), page3...) {
		if seen[d.ID] {
			t.Fatalf("document %s returned on more than one page", d.ID)
		}
		seen[d.ID] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected all 5 documents paged exactly once, got %d", len(seen))
	}
}
