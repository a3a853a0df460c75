package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message within a conversation.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	ChatID      uuid.UUID   `json:"chatId"`
	Sender      UserSummary `json:"sender"`
	Content     string      `json:"content"`
	Attachments []string    `json:"attachments,omitempty"`
	IsRead      bool        `json:"isRead"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// MessagePage is one page of history as returned by the backend,
// ordered newest-first.
type MessagePage struct {
	Messages   []*Message `json:"messages"`
	Pagination Pagination `json:"pagination"`
}
