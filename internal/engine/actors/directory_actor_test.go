package actors

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawchat/internal/models"
	"pawchat/internal/utils"
)

func spawnDirectory(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(NewDirectoryActor))
	return system, pid
}

func directConversation(a, b models.UserSummary, lastAt time.Time) *models.Conversation {
	conv := &models.Conversation{
		ID:           uuid.New(),
		Kind:         models.KindDirect,
		Participants: []models.UserSummary{a, b},
		CreatedAt:    time.Now().Add(-24 * time.Hour),
	}
	if !lastAt.IsZero() {
		conv.LastMessage = &models.MessagePreview{Content: "hi", SenderID: b.ID, SentAt: lastAt}
	}
	return conv
}

func TestDirectoryOrdering(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "alice"}
	bob := models.UserSummary{ID: uuid.New(), Username: "bob"}
	carol := models.UserSummary{ID: uuid.New(), Username: "carol"}

	base := time.Now()
	older := directConversation(me, alice, base.Add(10*time.Second))
	newer := directConversation(me, bob, base.Add(20*time.Second))
	empty := directConversation(me, carol, time.Time{})

	result := ask(t, system, pid, &LoadConversationsMsg{
		Conversations: []*models.Conversation{older, empty, newer},
	}).([]*models.Conversation)

	require.Len(t, result, 3)
	assert.Equal(t, newer.ID, result[0].ID)
	assert.Equal(t, older.ID, result[1].ID)
	assert.Equal(t, empty.ID, result[2].ID, "conversations with no messages sort last")
}

func TestDirectoryUnreadIncrement(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "alice"}
	conv := directConversation(me, alice, time.Now())
	conv.UnreadCount = 2

	ask(t, system, pid, &LoadConversationsMsg{Conversations: []*models.Conversation{conv}})

	applied := ask(t, system, pid, &ApplyLiveMessageMsg{Message: &models.Message{
		ID:        uuid.New(),
		ChatID:    conv.ID,
		Sender:    alice,
		Content:   "walk time?",
		CreatedAt: time.Now(),
	}}).(bool)
	assert.True(t, applied)

	snapshot := ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 3, snapshot[0].UnreadCount)
	assert.Equal(t, "walk time?", snapshot[0].LastMessage.Content)

	// Unknown conversation: dropped, existing counters untouched.
	applied = ask(t, system, pid, &ApplyLiveMessageMsg{Message: &models.Message{
		ID:        uuid.New(),
		ChatID:    uuid.New(),
		Sender:    alice,
		Content:   "lost",
		CreatedAt: time.Now(),
	}}).(bool)
	assert.False(t, applied)

	snapshot = ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 3, snapshot[0].UnreadCount)
}

func TestDirectoryOwnMessageKeepsUnread(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "alice"}
	conv := directConversation(me, alice, time.Now())

	ask(t, system, pid, &LoadConversationsMsg{Conversations: []*models.Conversation{conv}})
	ask(t, system, pid, &ApplyOwnMessageMsg{Message: &models.Message{
		ID:        uuid.New(),
		ChatID:    conv.ID,
		Sender:    me,
		Content:   "sent by me",
		CreatedAt: time.Now(),
	}})

	snapshot := ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 0, snapshot[0].UnreadCount)
	assert.Equal(t, "sent by me", snapshot[0].LastMessage.Content)
}

func TestDirectoryFilterIsPure(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "Alice Walker"}
	direct := directConversation(me, alice, time.Now())
	community := &models.Conversation{
		ID:          uuid.New(),
		Kind:        models.KindCommunity,
		Name:        "Golden Retriever Owners",
		Description: "All things goldens",
		CreatedAt:   time.Now(),
	}

	ask(t, system, pid, &LoadConversationsMsg{Conversations: []*models.Conversation{direct, community}})

	// Case-insensitive substring over participant names.
	byName := ask(t, system, pid, &FilterConversationsMsg{Query: "alice w"}).([]*models.Conversation)
	require.Len(t, byName, 1)
	assert.Equal(t, direct.ID, byName[0].ID)

	// Community name match.
	byCommunity := ask(t, system, pid, &FilterConversationsMsg{Query: "RETRIEVER"}).([]*models.Conversation)
	require.Len(t, byCommunity, 1)
	assert.Equal(t, community.ID, byCommunity[0].ID)

	// Kind filter.
	kind := models.KindCommunity
	byKind := ask(t, system, pid, &FilterConversationsMsg{Kind: &kind}).([]*models.Conversation)
	require.Len(t, byKind, 1)
	assert.Equal(t, community.ID, byKind[0].ID)

	// Same predicate twice yields equal results and never mutates the list.
	again := ask(t, system, pid, &FilterConversationsMsg{Query: "alice w"}).([]*models.Conversation)
	assert.Equal(t, byName, again)

	snapshot := ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	assert.Len(t, snapshot, 2)
}

func TestDirectoryMarkReadAndRemove(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "alice"}
	conv := directConversation(me, alice, time.Now())
	conv.UnreadCount = 7

	ask(t, system, pid, &LoadConversationsMsg{Conversations: []*models.Conversation{conv}})

	marked := ask(t, system, pid, &MarkConversationReadMsg{ConversationID: conv.ID}).(bool)
	assert.True(t, marked)
	snapshot := ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	assert.Equal(t, 0, snapshot[0].UnreadCount)

	removed := ask(t, system, pid, &RemoveConversationMsg{ConversationID: conv.ID}).(bool)
	assert.True(t, removed)
	snapshot = ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	assert.Empty(t, snapshot)

	// Looking up the removed conversation yields a not-found error.
	result := ask(t, system, pid, &GetConversationMsg{ConversationID: conv.ID})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrConversationNotFound, appErr.Code)
}

func TestDirectoryLiveMessageBumpsOrdering(t *testing.T) {
	system, pid := spawnDirectory(t)
	me := models.UserSummary{ID: uuid.New(), Username: "me"}
	alice := models.UserSummary{ID: uuid.New(), Username: "alice"}
	bob := models.UserSummary{ID: uuid.New(), Username: "bob"}

	base := time.Now()
	first := directConversation(me, alice, base.Add(-time.Hour))
	second := directConversation(me, bob, base)

	ask(t, system, pid, &LoadConversationsMsg{Conversations: []*models.Conversation{first, second}})

	ask(t, system, pid, &ApplyLiveMessageMsg{Message: &models.Message{
		ID:        uuid.New(),
		ChatID:    first.ID,
		Sender:    alice,
		Content:   "bump",
		CreatedAt: base.Add(time.Minute),
	}})

	snapshot := ask(t, system, pid, &GetConversationsMsg{}).([]*models.Conversation)
	require.Len(t, snapshot, 2)
	assert.Equal(t, first.ID, snapshot[0].ID)
}
