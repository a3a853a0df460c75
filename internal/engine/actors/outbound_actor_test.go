package actors

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawchat/internal/models"
	"pawchat/internal/transport"
	"pawchat/internal/utils"
)

// fakeSender captures envelopes instead of writing to a socket.
type fakeSender struct {
	mu        sync.Mutex
	connected bool
	sent      []*transport.Envelope
}

func (f *fakeSender) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSender) Send(env *transport.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeSender) envelopes() []*transport.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*transport.Envelope(nil), f.sent...)
}

func spawnOutbound(t *testing.T, sender *fakeSender) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewOutboundActor(sender, utils.NewMetricsCollector())
	}))
	return system, pid
}

func TestSendDirectSelectsPrivateMessageEvent(t *testing.T) {
	sender := &fakeSender{connected: true}
	system, pid := spawnOutbound(t, sender)
	recipient := uuid.New()

	result := ask(t, system, pid, &SendChatMsg{
		TargetID: recipient,
		Kind:     models.KindDirect,
		Content:  "hello",
	})
	_, ok := result.(*SendReceipt)
	require.True(t, ok, "expected a receipt, got %T", result)

	envelopes := sender.envelopes()
	require.Len(t, envelopes, 1)
	assert.Equal(t, transport.EventPrivateMessage, envelopes[0].Event)

	payload := &transport.PrivateMessagePayload{}
	require.NoError(t, json.Unmarshal(envelopes[0].Data, payload))
	assert.Equal(t, recipient, payload.RecipientID)
	assert.Equal(t, "hello", payload.Content)
}

func TestSendCommunitySelectsCommunityMessageEvent(t *testing.T) {
	sender := &fakeSender{connected: true}
	system, pid := spawnOutbound(t, sender)
	communityID := uuid.New()

	result := ask(t, system, pid, &SendChatMsg{
		TargetID:    communityID,
		Kind:        models.KindCommunity,
		Content:     "vaccination drive on Saturday",
		Attachments: []string{"poster.png"},
	})
	_, ok := result.(*SendReceipt)
	require.True(t, ok)

	envelopes := sender.envelopes()
	require.Len(t, envelopes, 1)
	assert.Equal(t, transport.EventCommunityMessage, envelopes[0].Event)

	payload := &transport.CommunityMessagePayload{}
	require.NoError(t, json.Unmarshal(envelopes[0].Data, payload))
	assert.Equal(t, communityID, payload.CommunityID)
	assert.Equal(t, []string{"poster.png"}, payload.Attachments)
}

func TestSendEmptyContentRejected(t *testing.T) {
	sender := &fakeSender{connected: true}
	system, pid := spawnOutbound(t, sender)

	result := ask(t, system, pid, &SendChatMsg{
		TargetID: uuid.New(),
		Kind:     models.KindDirect,
		Content:  "   ",
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrEmptyContent, appErr.Code)
	assert.Empty(t, sender.envelopes(), "nothing reaches the transport on a precondition failure")
}

func TestSendWithoutConnectionRejected(t *testing.T) {
	sender := &fakeSender{connected: false}
	system, pid := spawnOutbound(t, sender)

	result := ask(t, system, pid, &SendChatMsg{
		TargetID: uuid.New(),
		Kind:     models.KindDirect,
		Content:  "hello",
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrTransportNotReady, appErr.Code)
	assert.Empty(t, sender.envelopes())
}

func TestEmitMarkReadAndTyping(t *testing.T) {
	sender := &fakeSender{connected: true}
	system, pid := spawnOutbound(t, sender)
	chatID := uuid.New()
	peer := uuid.New()

	assert.Equal(t, true, ask(t, system, pid, &EmitMarkReadMsg{ChatID: chatID}))
	assert.Equal(t, true, ask(t, system, pid, &NotifyTypingMsg{RecipientID: peer, IsTyping: true}))

	envelopes := sender.envelopes()
	require.Len(t, envelopes, 2)
	assert.Equal(t, transport.EventMarkMessagesRead, envelopes[0].Event)
	assert.Equal(t, transport.EventTyping, envelopes[1].Event)

	read := &transport.MarkMessagesReadPayload{}
	require.NoError(t, json.Unmarshal(envelopes[0].Data, read))
	assert.Equal(t, chatID, read.ChatID)
}
