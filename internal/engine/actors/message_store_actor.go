package actors

import (
	"log"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"pawchat/internal/models"
)

// Message types for MessageStoreActor
type (
	// TrackConversationMsg resets the store onto a new conversation.
	TrackConversationMsg struct {
		ConversationID uuid.UUID
	}

	// MergeHistoryPageMsg merges one fetched history page. Messages arrive
	// newest-first from the transport and are reversed locally before merge.
	MergeHistoryPageMsg struct {
		ConversationID uuid.UUID
		Messages       []*models.Message
		Pagination     models.Pagination
	}

	// AppendLiveMsg inserts a newly arrived live message at the tail.
	AppendLiveMsg struct {
		Message *models.Message
	}

	// LoadFailedMsg records a failed page fetch; existing state is untouched.
	LoadFailedMsg struct {
		ConversationID uuid.UUID
	}

	// GetLogMsg requests a snapshot of the in-memory log.
	GetLogMsg struct{}

	// GetCursorMsg requests the pagination cursor for the next older page.
	GetCursorMsg struct{}
)

// PageMergeResult reports the outcome of a history merge. SizeDelta is the
// number of messages added at the head, so a UI can keep the previously
// visible message anchored after a prepend.
type PageMergeResult struct {
	SizeDelta int
	HasMore   bool
	Total     int
	Dropped   bool
}

// MessageLogView is a read snapshot of the tracked conversation's log,
// ordered oldest-to-newest.
type MessageLogView struct {
	ConversationID uuid.UUID
	Messages       []*models.Message
	HasMore        bool
	LoadError      bool
}

// PageCursor tells the caller which page to fetch next.
type PageCursor struct {
	NextPage int
	HasMore  bool
}

// MessageStoreActor holds the ordered message log for the conversation the
// user currently has open. Being an actor makes it the single writer of the
// log; merges and live appends are serialized by the mailbox.
type MessageStoreActor struct {
	conversationID uuid.UUID
	tracking       bool
	log            []*models.Message
	seen           map[uuid.UUID]bool
	page           int
	pages          int
	hasMore        bool
	loadError      bool
}

func NewMessageStoreActor() actor.Actor {
	return &MessageStoreActor{
		seen: make(map[uuid.UUID]bool),
	}
}

func (a *MessageStoreActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *TrackConversationMsg:
		a.handleTrack(context, msg)
	case *MergeHistoryPageMsg:
		a.handleMergePage(context, msg)
	case *AppendLiveMsg:
		a.handleAppendLive(context, msg)
	case *LoadFailedMsg:
		a.handleLoadFailed(context, msg)
	case *GetLogMsg:
		context.Respond(a.snapshot())
	case *GetCursorMsg:
		context.Respond(&PageCursor{NextPage: a.page + 1, HasMore: a.hasMore})
	}
}

func (a *MessageStoreActor) handleTrack(context actor.Context, msg *TrackConversationMsg) {
	a.conversationID = msg.ConversationID
	a.tracking = true
	a.log = nil
	a.seen = make(map[uuid.UUID]bool)
	a.page = 0
	a.pages = 0
	a.hasMore = false
	a.loadError = false
	context.Respond(a.snapshot())
}

func (a *MessageStoreActor) handleMergePage(context actor.Context, msg *MergeHistoryPageMsg) {
	// A page arriving for a conversation we no longer track is a stale
	// in-flight fetch; drop it without touching state.
	if !a.tracking || msg.ConversationID != a.conversationID {
		context.Respond(&PageMergeResult{Dropped: true})
		return
	}

	// Reverse newest-first into oldest-first, skipping ids already merged.
	added := make([]*models.Message, 0, len(msg.Messages))
	for i := len(msg.Messages) - 1; i >= 0; i-- {
		m := msg.Messages[i]
		if a.seen[m.ID] {
			continue
		}
		a.seen[m.ID] = true
		added = append(added, m)
	}

	// Initial page installs the log; older pages prepend ahead of it. Live
	// appends only ever touch the tail, so the two paths cannot conflict.
	a.log = append(added, a.log...)

	a.page = msg.Pagination.Page
	a.pages = msg.Pagination.Pages
	a.hasMore = msg.Pagination.HasMore()
	a.loadError = false

	context.Respond(&PageMergeResult{
		SizeDelta: len(added),
		HasMore:   a.hasMore,
		Total:     len(a.log),
	})
}

func (a *MessageStoreActor) handleAppendLive(context actor.Context, msg *AppendLiveMsg) {
	if msg.Message == nil || !a.tracking || msg.Message.ChatID != a.conversationID {
		context.Respond(false)
		return
	}
	if a.seen[msg.Message.ID] {
		// Duplicate delivery, ignore.
		context.Respond(false)
		return
	}
	a.seen[msg.Message.ID] = true
	a.log = append(a.log, msg.Message)
	context.Respond(true)
}

func (a *MessageStoreActor) handleLoadFailed(context actor.Context, msg *LoadFailedMsg) {
	if !a.tracking || msg.ConversationID != a.conversationID {
		context.Respond(false)
		return
	}
	log.Printf("Message store: page fetch failed for conversation %s", msg.ConversationID)
	a.loadError = true
	context.Respond(true)
}

func (a *MessageStoreActor) snapshot() *MessageLogView {
	messages := make([]*models.Message, len(a.log))
	copy(messages, a.log)
	return &MessageLogView{
		ConversationID: a.conversationID,
		Messages:       messages,
		HasMore:        a.hasMore,
		LoadError:      a.loadError,
	}
}
