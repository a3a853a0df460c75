// Package devserver is a self-contained in-memory chat backend speaking the
// same REST and websocket protocol as the production API. It backs local
// development, the simulator, and the integration tests; it is not a
// deployment target.
package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"pawchat/internal/auth"
	"pawchat/internal/models"
	"pawchat/internal/transport"
	"pawchat/internal/utils"
)

const defaultPageLimit = 20

// Server bundles the hub, the in-memory store, and the HTTP surface.
type Server struct {
	hub      *Hub
	store    *memoryStore
	secret   string
	mux      *http.ServeMux
	upgrader ws.Upgrader
}

func NewServer(secret string) *Server {
	s := &Server{
		store:  newMemoryStore(),
		secret: secret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.hub = NewHub(s.presenceFrame)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /messages/chats", s.handleListChats)
	mux.HandleFunc("GET /messages/chats/{id}/messages", s.handleChatMessages)
	mux.HandleFunc("DELETE /messages/chats/{id}", s.handleDeleteChat)
	mux.HandleFunc("GET /messages/individual/{recipientId}", s.handleIndividualChat)
	mux.HandleFunc("POST /messages/community", s.handleCreateCommunity)
	s.mux = mux
	return s
}

// Handler returns the HTTP surface. The hub loop must be started separately.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the hub loop; it never returns.
func (s *Server) Run() {
	s.hub.Run()
}

// AddUser registers a user profile so conversations can carry usernames.
// Unknown user ids get a generated name on first contact.
func (s *Server) AddUser(user models.UserSummary) {
	s.store.putUser(user)
}

// IssueToken signs a session token for a user, for tests and the simulator.
func (s *Server) IssueToken(userID uuid.UUID) (string, error) {
	return auth.GenerateToken(userID, s.secret)
}

// --- HTTP handlers ---

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(tokenString, s.secret)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Devserver: upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	s.store.ensureUser(claims.UserID)
	session := &wsSession{
		Hub:    s.hub,
		Server: s,
		UserID: claims.UserID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
	session.Hub.Register <- session

	go session.WritePump()
	go session.ReadPump()
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.store.listConversations(userID))
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}

	result, appErr := s.store.messagePage(chatID, userID, page, limit)
	if appErr != nil {
		http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	if appErr := s.store.deleteConversation(chatID, userID); appErr != nil {
		http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleIndividualChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	recipientID, err := uuid.Parse(r.PathValue("recipientId"))
	if err != nil {
		http.Error(w, "Invalid recipient ID", http.StatusBadRequest)
		return
	}
	conv := s.store.ensureDirect(userID, recipientID)
	writeJSON(w, s.store.viewFor(conv.ID, userID))
}

func (s *Server) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Name         string      `json:"name"`
		Description  string      `json:"description"`
		Participants []uuid.UUID `json:"participants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	conv := s.store.createCommunity(userID, req.Name, req.Description, req.Participants)
	writeJSON(w, s.store.viewFor(conv.ID, userID))
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		http.Error(w, "Missing bearer token", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	claims, err := auth.ValidateToken(header[len(prefix):], s.secret)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	s.store.ensureUser(claims.UserID)
	return claims.UserID, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --- websocket event handling ---

// handleFrame processes one inbound frame from a connected user.
func (s *Server) handleFrame(sender uuid.UUID, raw []byte) {
	env, err := transport.DecodeEnvelope(raw)
	if err != nil {
		s.sendError(sender, "malformed frame")
		return
	}

	switch env.Event {
	case transport.EventPrivateMessage:
		payload := &transport.PrivateMessagePayload{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			s.sendError(sender, "malformed private_message payload")
			return
		}
		conv := s.store.ensureDirect(sender, payload.RecipientID)
		msg := s.store.appendMessage(conv.ID, sender, payload.Content, payload.Attachments)
		s.sendEvent(sender, transport.EventMessageSent, msg)
		s.sendEvent(payload.RecipientID, transport.EventNewMessage, msg)

	case transport.EventCommunityMessage:
		payload := &transport.CommunityMessagePayload{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			s.sendError(sender, "malformed community_message payload")
			return
		}
		members, appErr := s.store.communityMembers(payload.CommunityID, sender)
		if appErr != nil {
			s.sendError(sender, appErr.Message)
			return
		}
		msg := s.store.appendMessage(payload.CommunityID, sender, payload.Content, payload.Attachments)
		s.sendEvent(sender, transport.EventMessageSent, msg)
		for _, member := range members {
			if member != sender {
				s.sendEvent(member, transport.EventNewCommunityMessage, msg)
			}
		}

	case transport.EventJoinCommunity:
		payload := &transport.JoinCommunityPayload{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			s.sendError(sender, "malformed join_community payload")
			return
		}
		if appErr := s.store.addMember(payload.CommunityID, sender); appErr != nil {
			s.sendError(sender, appErr.Message)
			return
		}
		s.sendEvent(sender, transport.EventJoinedCommunity, &transport.JoinedCommunityPayload{CommunityID: payload.CommunityID})

	case transport.EventMarkMessagesRead:
		payload := &transport.MarkMessagesReadPayload{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			s.sendError(sender, "malformed mark_messages_read payload")
			return
		}
		s.store.markRead(payload.ChatID, sender)

	case transport.EventTyping:
		payload := &transport.TypingPayload{}
		if err := json.Unmarshal(env.Data, payload); err != nil {
			s.sendError(sender, "malformed typing payload")
			return
		}
		s.sendEvent(payload.RecipientID, transport.EventTyping, payload)

	default:
		s.sendError(sender, "unknown event "+env.Event)
	}
}

func (s *Server) sendEvent(target uuid.UUID, event string, payload interface{}) {
	env, err := transport.NewEnvelope(event, payload)
	if err != nil {
		log.Printf("Devserver: failed to encode %s event: %v", event, err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	s.hub.SendToUser(target, data)
}

func (s *Server) sendError(target uuid.UUID, message string) {
	s.sendEvent(target, transport.EventError, &transport.ErrorPayload{Message: message})
}

func (s *Server) presenceFrame(userID uuid.UUID, online bool) []byte {
	env, err := transport.NewEnvelope(transport.EventUserStatusChange, &transport.StatusChangePayload{
		UserID:   userID,
		IsOnline: online,
	})
	if err != nil {
		return nil
	}
	data, _ := json.Marshal(env)
	return data
}
