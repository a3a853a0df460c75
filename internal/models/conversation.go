package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessagePreview is the last-message summary carried on a conversation.
type MessagePreview struct {
	Content  string    `json:"content"`
	SenderID uuid.UUID `json:"senderId"`
	SentAt   time.Time `json:"sentAt"`
}

// Conversation is a direct (2-party) or community (N-party) chat thread.
type Conversation struct {
	ID           uuid.UUID       `json:"id"`
	Kind         ChatKind        `json:"kind"`
	Name         string          `json:"name,omitempty"`
	Description  string          `json:"description,omitempty"`
	Participants []UserSummary   `json:"participants"`
	LastMessage  *MessagePreview `json:"lastMessage,omitempty"`
	UnreadCount  int             `json:"unreadCount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// OtherParticipant resolves the peer of a direct conversation relative to
// the current user. Returns nil when no other participant exists.
func (c *Conversation) OtherParticipant(currentUser uuid.UUID) *UserSummary {
	for i := range c.Participants {
		if c.Participants[i].ID != currentUser {
			return &c.Participants[i]
		}
	}
	return nil
}

// DisplayName derives the name to render for this conversation. Direct
// conversations use the other participant's username; communities fall back
// to their own name, then description.
func (c *Conversation) DisplayName(currentUser uuid.UUID) string {
	if c.Kind == KindDirect {
		if other := c.OtherParticipant(currentUser); other != nil {
			return other.Username
		}
		return UnknownUserName
	}
	if c.Name != "" {
		return c.Name
	}
	if c.Description != "" {
		return c.Description
	}
	return UnknownUserName
}

// DisplayAvatar derives the avatar to render, with the same fallback rules
// as DisplayName. Communities have no avatar in this model.
func (c *Conversation) DisplayAvatar(currentUser uuid.UUID) string {
	if c.Kind == KindDirect {
		if other := c.OtherParticipant(currentUser); other != nil {
			return other.AvatarURL
		}
	}
	return ""
}

// Matches reports whether the conversation matches a case-insensitive
// substring query over participant names and community name/description.
func (c *Conversation) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, p := range c.Participants {
		if strings.Contains(strings.ToLower(p.Username), q) {
			return true
		}
	}
	if strings.Contains(strings.ToLower(c.Name), q) {
		return true
	}
	return strings.Contains(strings.ToLower(c.Description), q)
}

// LastMessageAt returns the preview timestamp, or the zero time when the
// conversation has no messages yet.
func (c *Conversation) LastMessageAt() time.Time {
	if c.LastMessage == nil {
		return time.Time{}
	}
	return c.LastMessage.SentAt
}
