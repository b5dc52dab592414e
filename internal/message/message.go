// Package message persists conversation turns for a file.
//
// Messages are append-only: the chat pipeline writes them and reads them
// back in created_at order, it never updates or deletes. Deleting the
// owning file cascades in the schema.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Role tags used in prompt assembly.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	ID            uuid.UUID
	Text          string
	IsUserMessage bool
	FileID        uuid.UUID
	UserID        string
	CreatedAt     time.Time
}

// Role maps IsUserMessage to a prompt role tag.
func (m Message) Role() string {
	if m.IsUserMessage {
		return RoleUser
	}
	return RoleAssistant
}

// Cursor points just past the last message of a page. The id breaks
// created_at ties, so equal timestamps at a page boundary are never
// skipped. The zero Cursor means "from the newest message".
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// IsZero reports whether the cursor is unset.
func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == uuid.Nil
}

// Page is one cursor-paginated slice of a conversation, newest first.
// NextCursor is zero when there are no older messages.
type Page struct {
	Messages   []Message
	NextCursor Cursor
}
