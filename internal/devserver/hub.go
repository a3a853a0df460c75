package devserver

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// frameToUser targets a payload at every live connection of one user.
type frameToUser struct {
	TargetUserID uuid.UUID
	Payload      []byte
}

// Hub maintains the set of active websocket sessions and fans frames out to
// them. It also owns server-side presence: a user is online while at least
// one of their connections is registered.
type Hub struct {
	// Registered sessions. Maps user ID to a set of active connections.
	Clients map[uuid.UUID]map[*wsSession]bool

	// Register requests from new sessions.
	Register chan *wsSession

	// Unregister requests from closing sessions.
	Unregister chan *wsSession

	// Channel for sending frames to specific users.
	SendDirect chan *frameToUser

	// presenceFrame builds the user_status_change payload broadcast when a
	// user's first connection arrives or last connection leaves.
	presenceFrame func(userID uuid.UUID, online bool) []byte

	mu sync.RWMutex
}

func NewHub(presenceFrame func(userID uuid.UUID, online bool) []byte) *Hub {
	return &Hub{
		Clients:       make(map[uuid.UUID]map[*wsSession]bool),
		Register:      make(chan *wsSession),
		Unregister:    make(chan *wsSession),
		SendDirect:    make(chan *frameToUser),
		presenceFrame: presenceFrame,
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.Register:
			h.mu.Lock()
			firstConnection := len(h.Clients[session.UserID]) == 0
			if _, ok := h.Clients[session.UserID]; !ok {
				h.Clients[session.UserID] = make(map[*wsSession]bool)
			}
			h.Clients[session.UserID][session] = true

			// Tell the newcomer who is already online, then announce them.
			for userID, sessions := range h.Clients {
				if userID == session.UserID || len(sessions) == 0 {
					continue
				}
				h.queue(session, h.presenceFrame(userID, true))
			}
			if firstConnection {
				h.broadcastLocked(session.UserID, h.presenceFrame(session.UserID, true))
			}
			h.mu.Unlock()
			log.Printf("Devserver: session registered for user %s", session.UserID)

		case session := <-h.Unregister:
			h.mu.Lock()
			if sessions, ok := h.Clients[session.UserID]; ok {
				if _, exists := sessions[session]; exists {
					delete(sessions, session)
					if len(sessions) == 0 {
						delete(h.Clients, session.UserID)
						h.broadcastLocked(session.UserID, h.presenceFrame(session.UserID, false))
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Devserver: session unregistered for user %s", session.UserID)

		case frame := <-h.SendDirect:
			h.mu.RLock()
			if sessions, ok := h.Clients[frame.TargetUserID]; ok {
				for session := range sessions {
					h.queue(session, frame.Payload)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToUser queues a payload for every live connection of one user.
// Users without a connection simply miss the frame.
func (h *Hub) SendToUser(targetUserID uuid.UUID, payload []byte) {
	frame := &frameToUser{TargetUserID: targetUserID, Payload: payload}
	select {
	case h.SendDirect <- frame:
	case <-time.After(1 * time.Second):
		log.Printf("Devserver: timeout queuing frame for user %s", targetUserID)
	}
}

// queue pushes a payload onto one session's send buffer, dropping on overflow.
func (h *Hub) queue(session *wsSession, payload []byte) {
	select {
	case session.Send <- payload:
	default:
		log.Printf("Devserver: send buffer full for user %s, frame dropped", session.UserID)
	}
}

// broadcastLocked fans a payload out to every connected user except origin.
// Callers must hold h.mu.
func (h *Hub) broadcastLocked(origin uuid.UUID, payload []byte) {
	for userID, sessions := range h.Clients {
		if userID == origin {
			continue
		}
		for session := range sessions {
			h.queue(session, payload)
		}
	}
}
