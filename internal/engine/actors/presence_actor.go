package actors

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for PresenceActor
type (
	// SetPresenceMsg applies one user_status_change event. Idempotent.
	SetPresenceMsg struct {
		UserID   uuid.UUID
		IsOnline bool
	}

	// IsOnlineMsg queries a single user's presence.
	IsOnlineMsg struct {
		UserID uuid.UUID
	}

	// ResetPresenceMsg clears all presence state. Sent on every disconnect:
	// presence is unknown (treated as offline) until fresh events arrive.
	ResetPresenceMsg struct{}

	// PresenceSnapshotMsg requests the set of currently online user ids.
	PresenceSnapshotMsg struct{}
)

// PresenceActor holds the set of currently-online user ids, derived purely
// from the most recent status event per user. Last-write-wins, no history.
type PresenceActor struct {
	online map[uuid.UUID]bool
}

func NewPresenceActor() actor.Actor {
	return &PresenceActor{
		online: make(map[uuid.UUID]bool),
	}
}

func (a *PresenceActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *SetPresenceMsg:
		if msg.IsOnline {
			a.online[msg.UserID] = true
		} else {
			delete(a.online, msg.UserID)
		}
		context.Respond(true)
	case *IsOnlineMsg:
		context.Respond(a.online[msg.UserID])
	case *ResetPresenceMsg:
		a.online = make(map[uuid.UUID]bool)
		context.Respond(true)
	case *PresenceSnapshotMsg:
		ids := make([]uuid.UUID, 0, len(a.online))
		for id := range a.online {
			ids = append(ids, id)
		}
		context.Respond(ids)
	}
}
