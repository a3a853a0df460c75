package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UnknownUserName is the display fallback when a direct conversation
// cannot resolve its other participant (self-chat, malformed data).
const UnknownUserName = "Unknown User"

// ChatKind distinguishes two-party direct chats from N-party communities.
type ChatKind int

const (
	KindDirect ChatKind = iota
	KindCommunity
)

func (k ChatKind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindCommunity:
		return "community"
	default:
		return "unknown"
	}
}

func (k ChatKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ChatKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseChatKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseChatKind maps the wire representation to a ChatKind.
func ParseChatKind(s string) (ChatKind, error) {
	switch s {
	case "direct":
		return KindDirect, nil
	case "community", "group":
		return KindCommunity, nil
	default:
		return KindDirect, fmt.Errorf("unknown chat kind %q", s)
	}
}

// UserSummary is the participant view embedded in conversations and messages.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar,omitempty"`
	IsOnline   bool      `json:"isOnline"`
	LastActive time.Time `json:"lastActive,omitempty"`
}

// Pagination describes the server-side paging state of a message history.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// HasMore reports whether older pages remain past the current one.
func (p Pagination) HasMore() bool {
	return p.Page < p.Pages
}
