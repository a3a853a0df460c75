package actors

import (
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func spawnPresence(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(NewPresenceActor))
	return system, pid
}

func TestPresenceIdempotent(t *testing.T) {
	system, pid := spawnPresence(t)
	userID := uuid.New()

	ask(t, system, pid, &SetPresenceMsg{UserID: userID, IsOnline: true})
	ask(t, system, pid, &SetPresenceMsg{UserID: userID, IsOnline: true})

	online := ask(t, system, pid, &IsOnlineMsg{UserID: userID}).(bool)
	assert.True(t, online)

	snapshot := ask(t, system, pid, &PresenceSnapshotMsg{}).([]uuid.UUID)
	assert.Len(t, snapshot, 1)

	ask(t, system, pid, &SetPresenceMsg{UserID: userID, IsOnline: false})
	ask(t, system, pid, &SetPresenceMsg{UserID: userID, IsOnline: false})

	online = ask(t, system, pid, &IsOnlineMsg{UserID: userID}).(bool)
	assert.False(t, online)
	snapshot = ask(t, system, pid, &PresenceSnapshotMsg{}).([]uuid.UUID)
	assert.Empty(t, snapshot)
}

func TestPresenceUnknownUserOffline(t *testing.T) {
	system, pid := spawnPresence(t)

	online := ask(t, system, pid, &IsOnlineMsg{UserID: uuid.New()}).(bool)
	assert.False(t, online)
}

func TestPresenceResetClearsEverything(t *testing.T) {
	system, pid := spawnPresence(t)
	first := uuid.New()
	second := uuid.New()

	ask(t, system, pid, &SetPresenceMsg{UserID: first, IsOnline: true})
	ask(t, system, pid, &SetPresenceMsg{UserID: second, IsOnline: true})

	ask(t, system, pid, &ResetPresenceMsg{})

	// After a reset everyone is unknown, i.e. offline, until fresh events.
	assert.False(t, ask(t, system, pid, &IsOnlineMsg{UserID: first}).(bool))
	assert.False(t, ask(t, system, pid, &IsOnlineMsg{UserID: second}).(bool))

	ask(t, system, pid, &SetPresenceMsg{UserID: first, IsOnline: true})
	assert.True(t, ask(t, system, pid, &IsOnlineMsg{UserID: first}).(bool))
}
