package transport

import (
	"encoding/json"

	"github.com/google/uuid"

	"pawchat/internal/models"
)

// Event names exchanged over the websocket, as emitted by the backend.
const (
	// Outbound
	EventJoinCommunity    = "join_community"
	EventPrivateMessage   = "private_message"
	EventCommunityMessage = "community_message"
	EventMarkMessagesRead = "mark_messages_read"
	EventTyping           = "typing"

	// Inbound
	EventJoinedCommunity     = "joined_community"
	EventNewMessage          = "new_message"
	EventNewCommunityMessage = "new_community_message"
	EventMessageSent         = "message_sent"
	EventUserStatusChange    = "user_status_change"
	EventError               = "error"
)

// Envelope is the JSON frame carried on the wire: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound payloads

type PrivateMessagePayload struct {
	RecipientID uuid.UUID `json:"recipientId"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
}

type CommunityMessagePayload struct {
	CommunityID uuid.UUID `json:"communityId"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
}

type JoinCommunityPayload struct {
	CommunityID uuid.UUID `json:"communityId"`
}

type MarkMessagesReadPayload struct {
	ChatID uuid.UUID `json:"chatId"`
}

type TypingPayload struct {
	RecipientID uuid.UUID `json:"recipientId"`
	IsTyping    bool      `json:"isTyping"`
}

// Inbound payloads

type JoinedCommunityPayload struct {
	CommunityID uuid.UUID `json:"communityId"`
}

type StatusChangePayload struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEnvelope marshals a payload into a wire frame.
func NewEnvelope(event string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: data}, nil
}

// DecodeEnvelope parses a raw websocket frame.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, err
	}
	return env, nil
}

// Message decodes the payload of a message-bearing event
// (new_message, new_community_message, message_sent).
func (e *Envelope) Message() (*models.Message, error) {
	msg := &models.Message{}
	if err := json.Unmarshal(e.Data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// StatusChange decodes a user_status_change payload.
func (e *Envelope) StatusChange() (*StatusChangePayload, error) {
	payload := &StatusChangePayload{}
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ErrorReason decodes an error payload, tolerating a missing body.
func (e *Envelope) ErrorReason() string {
	payload := &ErrorPayload{}
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return "unknown transport error"
	}
	return payload.Message
}
