package domain

import "time"

// ConversationMessage is one turn of a session's dialogue history, the unit
// the Conversation Context window (§4.14) folds into S1.
type ConversationMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
