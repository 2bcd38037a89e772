package docstore

import (
	"context"
	"time"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// AppendConversationMessage records one turn of a session's dialogue.
func (s *Store) AppendConversationMessage(ctx context.Context, m domain.ConversationMessage) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO conversation_messages (session_id, role, content, created_at)
VALUES ($1, $2, $3, $4)`,
		m.SessionID, m.Role, m.Content, createdAt)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// RecentConversationMessages returns the last `limit` messages for a
// session, oldest first, satisfying convcontext.Store.
func (s *Store) RecentConversationMessages(ctx context.Context, sessionID string, limit int) ([]domain.ConversationMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, session_id, role, content, created_at FROM (
    SELECT id, session_id, role, content, created_at
    FROM conversation_messages
    WHERE session_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2
) recent
ORDER BY created_at ASC, id ASC`, sessionID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
