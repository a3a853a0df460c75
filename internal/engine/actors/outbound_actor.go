package actors

import (
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"pawchat/internal/models"
	"pawchat/internal/transport"
	"pawchat/internal/utils"
)

// Sender is the slice of the transport manager the pipeline needs.
type Sender interface {
	Connected() bool
	Send(env *transport.Envelope) error
}

// Message types for OutboundActor
type (
	// SendChatMsg pushes one composed message onto the wire. TargetID is the
	// recipient user for direct chats and the community id otherwise.
	SendChatMsg struct {
		TargetID    uuid.UUID
		Kind        models.ChatKind
		Content     string
		Attachments []string
	}

	// NotifyTypingMsg emits a typing indicator to a direct-chat peer.
	NotifyTypingMsg struct {
		RecipientID uuid.UUID
		IsTyping    bool
	}

	// EmitMarkReadMsg tells the backend all messages in a chat were read.
	EmitMarkReadMsg struct {
		ChatID uuid.UUID
	}

	// EmitJoinCommunityMsg subscribes the connection to a community channel.
	EmitJoinCommunityMsg struct {
		CommunityID uuid.UUID
	}
)

// SendReceipt confirms the message was handed to the transport. It says
// nothing about server receipt; there is no delivery acknowledgment.
type SendReceipt struct {
	QueuedAt time.Time
}

// OutboundActor is the send pipeline: it validates composed content, picks
// the event for the chat kind, and hands the frame to the transport. It
// never inserts the message locally; the message becomes visible only when
// the corresponding live event round-trips.
type OutboundActor struct {
	sender  Sender
	metrics *utils.MetricsCollector
}

func NewOutboundActor(sender Sender, metrics *utils.MetricsCollector) actor.Actor {
	return &OutboundActor{sender: sender, metrics: metrics}
}

func (a *OutboundActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *SendChatMsg:
		a.handleSend(context, msg)
	case *NotifyTypingMsg:
		a.emit(context, transport.EventTyping, &transport.TypingPayload{
			RecipientID: msg.RecipientID,
			IsTyping:    msg.IsTyping,
		})
	case *EmitMarkReadMsg:
		a.emit(context, transport.EventMarkMessagesRead, &transport.MarkMessagesReadPayload{
			ChatID: msg.ChatID,
		})
	case *EmitJoinCommunityMsg:
		a.emit(context, transport.EventJoinCommunity, &transport.JoinCommunityPayload{
			CommunityID: msg.CommunityID,
		})
	}
}

func (a *OutboundActor) handleSend(context actor.Context, msg *SendChatMsg) {
	startTime := time.Now()
	a.metrics.IncrementRequests()

	// Precondition failures are synchronous and mutate nothing, so the
	// caller can restore the draft.
	if strings.TrimSpace(msg.Content) == "" {
		a.metrics.IncrementErrors()
		context.Respond(utils.NewEmptyContentError())
		return
	}
	if !a.sender.Connected() {
		a.metrics.IncrementErrors()
		context.Respond(utils.NewTransportNotReadyError())
		return
	}

	var env *transport.Envelope
	var err error
	switch msg.Kind {
	case models.KindDirect:
		env, err = transport.NewEnvelope(transport.EventPrivateMessage, &transport.PrivateMessagePayload{
			RecipientID: msg.TargetID,
			Content:     msg.Content,
			Attachments: msg.Attachments,
		})
	case models.KindCommunity:
		env, err = transport.NewEnvelope(transport.EventCommunityMessage, &transport.CommunityMessagePayload{
			CommunityID: msg.TargetID,
			Content:     msg.Content,
			Attachments: msg.Attachments,
		})
	default:
		err = utils.NewAppError(utils.ErrInvalidInput, "unknown chat kind", nil)
	}
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "failed to build outbound event", err))
		return
	}

	if err := a.sender.Send(env); err != nil {
		a.metrics.IncrementErrors()
		if appErr, ok := err.(*utils.AppError); ok {
			context.Respond(appErr)
		} else {
			context.Respond(utils.NewAppError(utils.ErrTransportNotReady, "failed to queue outbound event", err))
		}
		return
	}

	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	context.Respond(&SendReceipt{QueuedAt: time.Now()})
}

func (a *OutboundActor) emit(context actor.Context, event string, payload interface{}) {
	if !a.sender.Connected() {
		context.Respond(utils.NewTransportNotReadyError())
		return
	}
	env, err := transport.NewEnvelope(event, payload)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "failed to build outbound event", err))
		return
	}
	if err := a.sender.Send(env); err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			context.Respond(appErr)
			return
		}
		context.Respond(utils.NewAppError(utils.ErrTransportNotReady, "failed to queue outbound event", err))
		return
	}
	context.Respond(true)
}
