package actors

import (
	"log"
	"sort"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"pawchat/internal/models"
	"pawchat/internal/utils"
)

// Message types for DirectoryActor
type (
	// LoadConversationsMsg installs the full conversation list.
	LoadConversationsMsg struct {
		Conversations []*models.Conversation
	}

	// ApplyLiveMessageMsg folds a live inbound message into the matching
	// conversation summary: preview updated, unread incremented.
	ApplyLiveMessageMsg struct {
		Message *models.Message
	}

	// ApplyOwnMessageMsg updates the preview for a message the current user
	// sent, without touching the unread counter.
	ApplyOwnMessageMsg struct {
		Message *models.Message
	}

	// FilterConversationsMsg requests a filtered snapshot. Kind is optional;
	// Query is a case-insensitive substring over names/descriptions.
	FilterConversationsMsg struct {
		Kind  *models.ChatKind
		Query string
	}

	// MarkConversationReadMsg zeroes the unread counter.
	MarkConversationReadMsg struct {
		ConversationID uuid.UUID
	}

	// UpsertConversationMsg adds or replaces one conversation (get-or-create
	// direct chat, community creation).
	UpsertConversationMsg struct {
		Conversation *models.Conversation
	}

	// RemoveConversationMsg drops a conversation after an explicit delete.
	RemoveConversationMsg struct {
		ConversationID uuid.UUID
	}

	// GetConversationsMsg requests the full sorted snapshot.
	GetConversationsMsg struct{}

	// GetConversationMsg looks up a single conversation by id.
	GetConversationMsg struct {
		ConversationID uuid.UUID
	}
)

// DirectoryActor owns the list of the user's conversations: summaries,
// unread counters, and ordering. Single writer by actor boundary.
type DirectoryActor struct {
	conversations map[uuid.UUID]*models.Conversation
	order         []*models.Conversation
}

func NewDirectoryActor() actor.Actor {
	return &DirectoryActor{
		conversations: make(map[uuid.UUID]*models.Conversation),
	}
}

func (a *DirectoryActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *LoadConversationsMsg:
		a.handleLoad(context, msg)
	case *ApplyLiveMessageMsg:
		a.handleLiveMessage(context, msg)
	case *ApplyOwnMessageMsg:
		a.handleOwnMessage(context, msg)
	case *FilterConversationsMsg:
		context.Respond(a.filter(msg))
	case *MarkConversationReadMsg:
		a.handleMarkRead(context, msg)
	case *UpsertConversationMsg:
		a.handleUpsert(context, msg)
	case *RemoveConversationMsg:
		a.handleRemove(context, msg)
	case *GetConversationsMsg:
		context.Respond(a.snapshot())
	case *GetConversationMsg:
		if conv, exists := a.conversations[msg.ConversationID]; exists {
			context.Respond(conv)
		} else {
			context.Respond(utils.NewConversationNotFoundError(msg.ConversationID.String()))
		}
	}
}

func (a *DirectoryActor) handleLoad(context actor.Context, msg *LoadConversationsMsg) {
	a.conversations = make(map[uuid.UUID]*models.Conversation, len(msg.Conversations))
	a.order = make([]*models.Conversation, 0, len(msg.Conversations))
	for _, c := range msg.Conversations {
		if _, exists := a.conversations[c.ID]; exists {
			continue
		}
		a.conversations[c.ID] = c
		a.order = append(a.order, c)
	}
	a.resort()
	context.Respond(a.snapshot())
}

func (a *DirectoryActor) handleLiveMessage(context actor.Context, msg *ApplyLiveMessageMsg) {
	conv, exists := a.conversations[msg.Message.ChatID]
	if !exists {
		// No implicit conversation creation from a live event.
		log.Printf("Directory: dropping live message for unknown conversation %s", msg.Message.ChatID)
		context.Respond(false)
		return
	}
	conv.LastMessage = previewOf(msg.Message)
	conv.UnreadCount++
	a.resort()
	context.Respond(true)
}

func (a *DirectoryActor) handleOwnMessage(context actor.Context, msg *ApplyOwnMessageMsg) {
	conv, exists := a.conversations[msg.Message.ChatID]
	if !exists {
		context.Respond(false)
		return
	}
	conv.LastMessage = previewOf(msg.Message)
	a.resort()
	context.Respond(true)
}

func (a *DirectoryActor) handleMarkRead(context actor.Context, msg *MarkConversationReadMsg) {
	conv, exists := a.conversations[msg.ConversationID]
	if !exists {
		context.Respond(false)
		return
	}
	conv.UnreadCount = 0
	context.Respond(true)
}

func (a *DirectoryActor) handleUpsert(context actor.Context, msg *UpsertConversationMsg) {
	if existing, ok := a.conversations[msg.Conversation.ID]; ok {
		for i, c := range a.order {
			if c == existing {
				a.order[i] = msg.Conversation
				break
			}
		}
	} else {
		a.order = append(a.order, msg.Conversation)
	}
	a.conversations[msg.Conversation.ID] = msg.Conversation
	a.resort()
	context.Respond(msg.Conversation)
}

func (a *DirectoryActor) handleRemove(context actor.Context, msg *RemoveConversationMsg) {
	if _, exists := a.conversations[msg.ConversationID]; !exists {
		context.Respond(false)
		return
	}
	delete(a.conversations, msg.ConversationID)
	for i, c := range a.order {
		if c.ID == msg.ConversationID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	context.Respond(true)
}

// filter returns a fresh slice; the underlying list is never mutated.
func (a *DirectoryActor) filter(msg *FilterConversationsMsg) []*models.Conversation {
	result := make([]*models.Conversation, 0, len(a.order))
	for _, c := range a.order {
		if msg.Kind != nil && c.Kind != *msg.Kind {
			continue
		}
		if !c.Matches(msg.Query) {
			continue
		}
		result = append(result, c)
	}
	return result
}

func (a *DirectoryActor) snapshot() []*models.Conversation {
	result := make([]*models.Conversation, len(a.order))
	copy(result, a.order)
	return result
}

// resort orders by last-message time descending; conversations with no
// messages sort last, keeping their relative order.
func (a *DirectoryActor) resort() {
	sort.SliceStable(a.order, func(i, j int) bool {
		ti, tj := a.order[i].LastMessageAt(), a.order[j].LastMessageAt()
		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}
		return ti.After(tj)
	})
}

func previewOf(m *models.Message) *models.MessagePreview {
	return &models.MessagePreview{
		Content:  m.Content,
		SenderID: m.Sender.ID,
		SentAt:   m.CreatedAt,
	}
}
