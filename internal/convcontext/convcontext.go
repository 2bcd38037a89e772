// Package convcontext implements the Conversation Context window (§4.14):
// a bounded slice of a session's recent chat history, folded into S1 of the
// orchestrator's pipeline as purely-additive prompt context. Grounded on the
// teacher's Postgres chat store (chat_store_postgres.go), generalized from
// a paginated session/message API down to the one read this system needs.
package convcontext

import (
	"context"
	"strings"

	"university-query-engine/internal/domain"
)

// Store is the persistence port convcontext needs, satisfied directly by
// *docstore.Store.
type Store interface {
	RecentConversationMessages(ctx context.Context, sessionID string, limit int) ([]domain.ConversationMessage, error)
}

// Window builds the bounded dialogue window.
type Window struct {
	Store Store
}

// New builds a Window from its collaborator.
func New(store Store) *Window {
	return &Window{Store: store}
}

// RecentContext returns the last maxTurns turns (a turn is one user+
// assistant exchange, so up to 2*maxTurns messages) rendered oldest-first,
// trimmed to fit maxChars. Newer turns are kept in full; once the budget is
// exhausted, remaining older messages are dropped and an elision marker is
// prepended. System-role messages, if any reach the store, are dropped —
// they are never part of the dialogue window. Any store error yields an
// empty string, never an error: §4.14 requires this context's absence never
// fail the request.
func (w *Window) RecentContext(ctx context.Context, sessionID string, maxTurns, maxChars int) (string, error) {
	if w == nil || w.Store == nil || sessionID == "" || maxTurns <= 0 {
		return "", nil
	}

	messages, err := w.Store.RecentConversationMessages(ctx, sessionID, maxTurns*2)
	if err != nil {
		return "", nil
	}

	var dialogue []domain.ConversationMessage
	for _, m := range messages {
		if strings.EqualFold(m.Role, "system") {
			continue
		}
		dialogue = append(dialogue, m)
	}
	if len(dialogue) == 0 {
		return "", nil
	}

	lines := make([]string, len(dialogue))
	for i, m := range dialogue {
		lines[i] = renderTurn(m)
	}

	if maxChars <= 0 {
		return strings.Join(lines, "\n"), nil
	}

	// Walk from the newest line backward, keeping whole lines until the
	// budget is spent; older lines beyond the budget are elided.
	kept := make([]string, 0, len(lines))
	total := 0
	elided := false
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if total+len(line)+1 > maxChars && len(kept) > 0 {
			elided = true
			break
		}
		kept = append(kept, line)
		total += len(line) + 1
	}
	// kept was built newest-first; reverse to restore chronological order.
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	if elided {
		kept = append([]string{"[earlier turns omitted]"}, kept...)
	}
	return strings.Join(kept, "\n"), nil
}

func renderTurn(m domain.ConversationMessage) string {
	speaker := "Người dùng"
	if strings.EqualFold(m.Role, "assistant") {
		speaker = "Trợ lý"
	}
	return speaker + ": " + strings.TrimSpace(m.Content)
}
