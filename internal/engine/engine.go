package engine

import (
	"context"
	"log"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"pawchat/internal/auth"
	"pawchat/internal/client"
	"pawchat/internal/config"
	"pawchat/internal/database"
	"pawchat/internal/engine/actors"
	"pawchat/internal/models"
	"pawchat/internal/transport"
	"pawchat/internal/utils"
)

// Engine wires the client core together: one actor per mutable structure
// (message log, directory, presence), the outbound send pipeline, the
// transport manager, and the REST client. It is the only event router;
// every inbound frame is dispatched here to exactly one writer.
type Engine struct {
	system  *actor.ActorSystem
	context *actor.RootContext
	session *auth.Session
	rest    *client.RestClient
	cache   *database.Cache // nil when the history cache is disabled
	metrics *utils.MetricsCollector

	storePID     *actor.PID
	directoryPID *actor.PID
	presencePID  *actor.PID
	outboundPID  *actor.PID

	transport *transport.Manager

	pageSize       int
	settleDelay    time.Duration
	requestTimeout time.Duration
}

// NewEngine creates the engine and spawns its actors. cache may be nil.
func NewEngine(
	system *actor.ActorSystem,
	session *auth.Session,
	rest *client.RestClient,
	cache *database.Cache,
	metrics *utils.MetricsCollector,
	cfg *config.Config,
) *Engine {
	e := &Engine{
		system:         system,
		context:        system.Root,
		session:        session,
		rest:           rest,
		cache:          cache,
		metrics:        metrics,
		pageSize:       cfg.Chat.PageSize,
		settleDelay:    cfg.Chat.SettleDelay,
		requestTimeout: cfg.Chat.RequestTimeout,
	}

	e.storePID = system.Root.Spawn(actor.PropsFromProducer(actors.NewMessageStoreActor))
	e.directoryPID = system.Root.Spawn(actor.PropsFromProducer(actors.NewDirectoryActor))
	e.presencePID = system.Root.Spawn(actor.PropsFromProducer(actors.NewPresenceActor))

	e.transport = transport.NewManager(cfg.Transport, session, e)
	e.outboundPID = system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewOutboundActor(e.transport, metrics)
	}))

	return e
}

// Session exposes the authenticated identity the engine runs as.
func (e *Engine) Session() *auth.Session {
	return e.session
}

// Connected reports whether the live connection is up.
func (e *Engine) Connected() bool {
	return e.transport.Connected()
}

// Run drives the connection lifecycle until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.transport.Run(ctx)
}

// --- transport.Handler ---

// HandleConnected runs when a connection (or reconnection) is established.
// Presence is stale after any gap, so it is reset, and community channels
// are re-joined so live events keep flowing.
func (e *Engine) HandleConnected() {
	e.context.Send(e.presencePID, &actors.ResetPresenceMsg{})

	conversations, err := e.Conversations()
	if err != nil {
		return
	}
	for _, conv := range conversations {
		if conv.Kind == models.KindCommunity {
			e.context.Send(e.outboundPID, &actors.EmitJoinCommunityMsg{CommunityID: conv.ID})
		}
	}
}

func (e *Engine) HandleDisconnected(reason error) {
	log.Printf("Engine: disconnected: %v", reason)
	e.context.Send(e.presencePID, &actors.ResetPresenceMsg{})
}

func (e *Engine) HandleTransportError(reason error) {
	log.Printf("Engine: transport gave up: %v", reason)
	e.metrics.IncrementErrors()
}

// HandleEvent routes one inbound frame to its single writer. Malformed
// payloads and unknown events are dropped, never fatal.
func (e *Engine) HandleEvent(env *transport.Envelope) {
	switch env.Event {
	case transport.EventNewMessage, transport.EventNewCommunityMessage:
		msg, err := env.Message()
		if err != nil {
			log.Printf("Engine: dropping malformed %s payload: %v", env.Event, err)
			return
		}
		e.context.Send(e.directoryPID, &actors.ApplyLiveMessageMsg{Message: msg})
		e.context.Send(e.storePID, &actors.AppendLiveMsg{Message: msg})
		e.cacheMessages(msg.ChatID, []*models.Message{msg})

	case transport.EventMessageSent:
		msg, err := env.Message()
		if err != nil {
			log.Printf("Engine: dropping malformed message_sent payload: %v", err)
			return
		}
		e.context.Send(e.directoryPID, &actors.ApplyOwnMessageMsg{Message: msg})
		e.context.Send(e.storePID, &actors.AppendLiveMsg{Message: msg})
		e.cacheMessages(msg.ChatID, []*models.Message{msg})

	case transport.EventUserStatusChange:
		status, err := env.StatusChange()
		if err != nil {
			log.Printf("Engine: dropping malformed status payload: %v", err)
			return
		}
		e.context.Send(e.presencePID, &actors.SetPresenceMsg{
			UserID:   status.UserID,
			IsOnline: status.IsOnline,
		})

	case transport.EventJoinedCommunity:
		// Subscription confirmed; nothing to update locally.

	case transport.EventError:
		log.Printf("Engine: transport error event: %s", env.ErrorReason())
		e.metrics.IncrementErrors()

	default:
		log.Printf("Engine: dropping unknown event %q", env.Event)
	}
}

// --- Conversation Directory ---

// LoadConversations fetches the full directory and installs it sorted by
// last-message time descending. On fetch failure existing state is left
// untouched.
func (e *Engine) LoadConversations(ctx context.Context) ([]*models.Conversation, error) {
	startTime := time.Now()
	e.metrics.IncrementRequests()

	conversations, err := e.rest.FetchChats(ctx)
	if err != nil {
		e.metrics.IncrementErrors()
		return nil, err
	}

	result, err := e.request(e.directoryPID, &actors.LoadConversationsMsg{Conversations: conversations})
	if err != nil {
		return nil, err
	}
	e.metrics.AddOperationLatency("load_conversations", time.Since(startTime))

	snapshot := result.([]*models.Conversation)
	if e.cache != nil {
		if err := e.cache.SaveConversations(ctx, snapshot); err != nil {
			log.Printf("Engine: conversation cache write failed: %v", err)
		}
	}
	return snapshot, nil
}

// CachedConversations serves the last cached directory snapshot for offline
// display. Fails when no cache is configured.
func (e *Engine) CachedConversations(ctx context.Context) ([]*models.Conversation, error) {
	if e.cache == nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "history cache not configured", nil)
	}
	return e.cache.LoadConversations(ctx)
}

// CachedMessages serves cached history for a conversation, oldest-first,
// for offline display. Fails when no cache is configured.
func (e *Engine) CachedMessages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	if e.cache == nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "history cache not configured", nil)
	}
	return e.cache.LoadMessages(ctx, conversationID)
}

// Conversations returns the current sorted directory snapshot.
func (e *Engine) Conversations() ([]*models.Conversation, error) {
	result, err := e.request(e.directoryPID, &actors.GetConversationsMsg{})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Conversation), nil
}

// FilterConversations returns a filtered snapshot without mutating the
// directory. kind may be nil to match both kinds.
func (e *Engine) FilterConversations(kind *models.ChatKind, query string) ([]*models.Conversation, error) {
	result, err := e.request(e.directoryPID, &actors.FilterConversationsMsg{Kind: kind, Query: query})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Conversation), nil
}

// StartDirectConversation resolves (or creates) the direct chat with a
// recipient and adds it to the directory.
func (e *Engine) StartDirectConversation(ctx context.Context, recipientID uuid.UUID) (*models.Conversation, error) {
	conv, err := e.rest.GetOrCreateDirect(ctx, recipientID)
	if err != nil {
		e.metrics.IncrementErrors()
		return nil, err
	}
	if _, err := e.request(e.directoryPID, &actors.UpsertConversationMsg{Conversation: conv}); err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateCommunity creates a community conversation, adds it to the
// directory, and joins its live channel.
func (e *Engine) CreateCommunity(ctx context.Context, req *client.CreateCommunityRequest) (*models.Conversation, error) {
	conv, err := e.rest.CreateCommunity(ctx, req)
	if err != nil {
		e.metrics.IncrementErrors()
		return nil, err
	}
	if _, err := e.request(e.directoryPID, &actors.UpsertConversationMsg{Conversation: conv}); err != nil {
		return nil, err
	}
	e.context.Send(e.outboundPID, &actors.EmitJoinCommunityMsg{CommunityID: conv.ID})
	return conv, nil
}

// RemoveConversation deletes a conversation on the backend and drops it
// locally, including any cached history.
func (e *Engine) RemoveConversation(ctx context.Context, conversationID uuid.UUID) error {
	if err := e.rest.DeleteChat(ctx, conversationID); err != nil {
		e.metrics.IncrementErrors()
		return err
	}
	if _, err := e.request(e.directoryPID, &actors.RemoveConversationMsg{ConversationID: conversationID}); err != nil {
		return err
	}
	if e.cache != nil {
		if err := e.cache.DeleteConversation(ctx, conversationID); err != nil {
			log.Printf("Engine: cache delete failed: %v", err)
		}
	}
	return nil
}

// MarkConversationRead zeroes the local unread counter and tells the
// backend all messages in the chat were read.
func (e *Engine) MarkConversationRead(ctx context.Context, conversationID uuid.UUID) error {
	if _, err := e.request(e.directoryPID, &actors.MarkConversationReadMsg{ConversationID: conversationID}); err != nil {
		return err
	}
	result, err := e.request(e.outboundPID, &actors.EmitMarkReadMsg{ChatID: conversationID})
	if err != nil {
		return err
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return appErr
	}
	return nil
}

// --- Message Store ---

// OpenConversation points the message store at a conversation and loads its
// most recent history page.
func (e *Engine) OpenConversation(ctx context.Context, conversationID uuid.UUID) (*actors.MessageLogView, error) {
	if _, err := e.request(e.storePID, &actors.TrackConversationMsg{ConversationID: conversationID}); err != nil {
		return nil, err
	}
	return e.LoadInitialPage(ctx, conversationID)
}

// LoadInitialPage fetches the most recent page and installs it oldest-first.
func (e *Engine) LoadInitialPage(ctx context.Context, conversationID uuid.UUID) (*actors.MessageLogView, error) {
	if _, err := e.mergePage(ctx, conversationID, 1); err != nil {
		return nil, err
	}
	return e.MessageLog()
}

// LoadOlderPage fetches the next page into the past and prepends it. The
// returned merge result carries the size delta a UI needs to keep the
// previously visible message anchored.
func (e *Engine) LoadOlderPage(ctx context.Context, conversationID uuid.UUID) (*actors.PageMergeResult, error) {
	result, err := e.request(e.storePID, &actors.GetCursorMsg{})
	if err != nil {
		return nil, err
	}
	cursor := result.(*actors.PageCursor)
	if !cursor.HasMore {
		view, err := e.MessageLog()
		if err != nil {
			return nil, err
		}
		return &actors.PageMergeResult{SizeDelta: 0, HasMore: false, Total: len(view.Messages)}, nil
	}
	return e.mergePage(ctx, conversationID, cursor.NextPage)
}

func (e *Engine) mergePage(ctx context.Context, conversationID uuid.UUID, page int) (*actors.PageMergeResult, error) {
	startTime := time.Now()
	e.metrics.IncrementRequests()

	fetched, err := e.rest.FetchMessages(ctx, conversationID, page, e.pageSize)
	if err != nil {
		e.metrics.IncrementErrors()
		e.context.Send(e.storePID, &actors.LoadFailedMsg{ConversationID: conversationID})
		return nil, err
	}

	result, err := e.request(e.storePID, &actors.MergeHistoryPageMsg{
		ConversationID: conversationID,
		Messages:       fetched.Messages,
		Pagination:     fetched.Pagination,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.AddOperationLatency("load_history_page", time.Since(startTime))

	e.cacheMessages(conversationID, fetched.Messages)
	return result.(*actors.PageMergeResult), nil
}

// MessageLog returns a snapshot of the tracked conversation's log.
func (e *Engine) MessageLog() (*actors.MessageLogView, error) {
	result, err := e.request(e.storePID, &actors.GetLogMsg{})
	if err != nil {
		return nil, err
	}
	return result.(*actors.MessageLogView), nil
}

// --- Outbound Send Pipeline ---

// Send pushes a composed message to the backend. It resolves after a fixed
// settle delay once the frame is handed to the transport; there is no
// delivery acknowledgment, and no optimistic local insert. Precondition
// failures return immediately without mutating any state.
func (e *Engine) Send(ctx context.Context, conversationID uuid.UUID, kind models.ChatKind, content string, attachments []string) error {
	targetID := conversationID
	if kind == models.KindDirect {
		recipient, err := e.directRecipient(conversationID)
		if err != nil {
			return err
		}
		targetID = recipient
	}

	result, err := e.request(e.outboundPID, &actors.SendChatMsg{
		TargetID:    targetID,
		Kind:        kind,
		Content:     content,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return appErr
	}

	// Best-effort settle: the message is considered sent once this delay
	// elapses, not when the server confirms receipt.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.settleDelay):
	}
	return nil
}

// NotifyTyping emits a typing indicator to the peer of a direct chat.
// Community chats carry no typing signal; the call is a no-op for them.
func (e *Engine) NotifyTyping(conversationID uuid.UUID, isTyping bool) error {
	conv, err := e.conversation(conversationID)
	if err != nil {
		return err
	}
	if conv.Kind != models.KindDirect {
		return nil
	}
	recipient := conv.OtherParticipant(e.session.UserID)
	if recipient == nil {
		return utils.NewConversationNotFoundError(conversationID.String())
	}
	result, err := e.request(e.outboundPID, &actors.NotifyTypingMsg{
		RecipientID: recipient.ID,
		IsTyping:    isTyping,
	})
	if err != nil {
		return err
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return appErr
	}
	return nil
}

// --- Presence Tracker ---

// IsOnline reports the last known presence of a user.
func (e *Engine) IsOnline(userID uuid.UUID) (bool, error) {
	result, err := e.request(e.presencePID, &actors.IsOnlineMsg{UserID: userID})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// OnlineUsers returns the ids currently known to be online.
func (e *Engine) OnlineUsers() ([]uuid.UUID, error) {
	result, err := e.request(e.presencePID, &actors.PresenceSnapshotMsg{})
	if err != nil {
		return nil, err
	}
	return result.([]uuid.UUID), nil
}

// --- helpers ---

func (e *Engine) conversation(conversationID uuid.UUID) (*models.Conversation, error) {
	result, err := e.request(e.directoryPID, &actors.GetConversationMsg{ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result.(*models.Conversation), nil
}

func (e *Engine) directRecipient(conversationID uuid.UUID) (uuid.UUID, error) {
	conv, err := e.conversation(conversationID)
	if err != nil {
		return uuid.Nil, err
	}
	recipient := conv.OtherParticipant(e.session.UserID)
	if recipient == nil {
		return uuid.Nil, utils.NewConversationNotFoundError(conversationID.String())
	}
	return recipient.ID, nil
}

func (e *Engine) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := e.context.RequestFuture(pid, msg, e.requestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError(pid.String())
	}
	return result, nil
}

func (e *Engine) cacheMessages(chatID uuid.UUID, messages []*models.Message) {
	if e.cache == nil || len(messages) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cache.SaveMessages(ctx, chatID, messages); err != nil {
			log.Printf("Engine: message cache write failed: %v", err)
		}
	}()
}
