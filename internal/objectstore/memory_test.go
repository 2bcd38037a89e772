package objectstore

import (
	"context"
	"strings"
	"testing"
)

func TestMemoryStorePutGetRoundtrip(t *testing.T) {
	s := NewMemoryStore("http://localhost:9000/test")
	ctx := context.Background()

	etag, err := s.Put(ctx, "docs/a.pdf", strings.NewReader("hello"), PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if etag == "" {
		t.Fatal("expected non-empty etag")
	}

	rc, attrs, err := s.Get(ctx, "docs/a.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	if attrs.ContentType != "application/pdf" || attrs.Size != 5 {
		t.Fatalf("unexpected attrs: %+v", attrs)
	}
}

func TestMemoryStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore("")
	if _, _, err := s.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExistsAndDelete(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()
	_, _ = s.Put(ctx, "k", strings.NewReader("x"), PutOptions{})

	ok, err := s.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected exists, got ok=%v err=%v", ok, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = s.Exists(ctx, "k")
	if ok {
		t.Fatal("expected not to exist after delete")
	}
}

func TestMemoryStorePresignRequiresExistingKey(t *testing.T) {
	s := NewMemoryStore("http://localhost:9000/test")
	if _, err := s.Presign(context.Background(), "nope", 0); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
