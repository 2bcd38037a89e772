package docstore

import (
	"context"
	"testing"

	"university-query-engine/internal/domain"
)

func TestMemoryStoreConversationMessages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"Xin chào", "Học phí bao nhiêu?", "Cảm ơn"} {
		if err := store.AppendConversationMessage(ctx, domain.ConversationMessage{SessionID: "s1", Role: "user", Content: content}); err != nil {
			t.Fatalf("AppendConversationMessage: %v", err)
		}
	}

	recent, err := store.RecentConversationMessages(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentConversationMessages: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "Học phí bao nhiêu?" || recent[1].Content != "Cảm ơn" {
		t.Fatalf("expected the last 2 messages oldest-first, got %+v", recent)
	}

	empty, err := store.RecentConversationMessages(ctx, "unknown-session", 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no messages for an unknown session, got %+v err=%v", empty, err)
	}
}

func TestMemoryStoreOrchestrationResultRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.PutOrchestrationResult(ctx, domain.OrchestrationResult{Query: "học phí", Success: true}); err != nil {
		t.Fatalf("PutOrchestrationResult: %v", err)
	}
	if len(store.results) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(store.results))
	}
}
