package devserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pawchat/internal/models"
	"pawchat/internal/utils"
)

// storedConversation is the server-side record behind a conversation:
// the shared base plus per-user unread counters.
type storedConversation struct {
	base    *models.Conversation
	members map[uuid.UUID]bool
	unread  map[uuid.UUID]int
}

// memoryStore holds all chat state. Unlike the client core it is touched by
// many connection goroutines, so it carries its own mutex.
type memoryStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.UserSummary
	conversations map[uuid.UUID]*storedConversation
	messages      map[uuid.UUID][]*models.Message // oldest-first
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:         make(map[uuid.UUID]models.UserSummary),
		conversations: make(map[uuid.UUID]*storedConversation),
		messages:      make(map[uuid.UUID][]*models.Message),
	}
}

func (st *memoryStore) putUser(user models.UserSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.users[user.ID] = user
}

func (st *memoryStore) ensureUser(userID uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.ensureUserLocked(userID)
}

func (st *memoryStore) ensureUserLocked(userID uuid.UUID) models.UserSummary {
	if user, ok := st.users[userID]; ok {
		return user
	}
	user := models.UserSummary{
		ID:       userID,
		Username: "user-" + userID.String()[:8],
	}
	st.users[userID] = user
	return user
}

// ensureDirect finds or creates the direct conversation between two users.
func (st *memoryStore) ensureDirect(a, b uuid.UUID) *models.Conversation {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, sc := range st.conversations {
		if sc.base.Kind == models.KindDirect && sc.members[a] && sc.members[b] {
			return sc.base
		}
	}

	userA := st.ensureUserLocked(a)
	userB := st.ensureUserLocked(b)
	conv := &models.Conversation{
		ID:           uuid.New(),
		Kind:         models.KindDirect,
		Participants: []models.UserSummary{userA, userB},
		CreatedAt:    time.Now(),
	}
	st.conversations[conv.ID] = &storedConversation{
		base:    conv,
		members: map[uuid.UUID]bool{a: true, b: true},
		unread:  make(map[uuid.UUID]int),
	}
	return conv
}

func (st *memoryStore) createCommunity(creator uuid.UUID, name, description string, participants []uuid.UUID) *models.Conversation {
	st.mu.Lock()
	defer st.mu.Unlock()

	members := map[uuid.UUID]bool{creator: true}
	for _, p := range participants {
		members[p] = true
	}
	summaries := make([]models.UserSummary, 0, len(members))
	for id := range members {
		summaries = append(summaries, st.ensureUserLocked(id))
	}

	conv := &models.Conversation{
		ID:           uuid.New(),
		Kind:         models.KindCommunity,
		Name:         name,
		Description:  description,
		Participants: summaries,
		CreatedAt:    time.Now(),
	}
	st.conversations[conv.ID] = &storedConversation{
		base:    conv,
		members: members,
		unread:  make(map[uuid.UUID]int),
	}
	return conv
}

func (st *memoryStore) addMember(communityID, userID uuid.UUID) *utils.AppError {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[communityID]
	if !ok || sc.base.Kind != models.KindCommunity {
		return utils.NewConversationNotFoundError(communityID.String())
	}
	if !sc.members[userID] {
		sc.members[userID] = true
		sc.base.Participants = append(sc.base.Participants, st.ensureUserLocked(userID))
	}
	return nil
}

func (st *memoryStore) communityMembers(communityID, sender uuid.UUID) ([]uuid.UUID, *utils.AppError) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[communityID]
	if !ok || sc.base.Kind != models.KindCommunity {
		return nil, utils.NewConversationNotFoundError(communityID.String())
	}
	if !sc.members[sender] {
		return nil, utils.NewAppError(utils.ErrUnauthorized, "not a member of this community", nil)
	}
	members := make([]uuid.UUID, 0, len(sc.members))
	for id := range sc.members {
		members = append(members, id)
	}
	return members, nil
}

// appendMessage records a message, updates the preview, and bumps unread
// counters for every member except the sender.
func (st *memoryStore) appendMessage(chatID, sender uuid.UUID, content string, attachments []string) *models.Message {
	st.mu.Lock()
	defer st.mu.Unlock()

	msg := &models.Message{
		ID:          uuid.New(),
		ChatID:      chatID,
		Sender:      st.ensureUserLocked(sender),
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	st.messages[chatID] = append(st.messages[chatID], msg)

	if sc, ok := st.conversations[chatID]; ok {
		sc.base.LastMessage = &models.MessagePreview{
			Content:  content,
			SenderID: sender,
			SentAt:   msg.CreatedAt,
		}
		for member := range sc.members {
			if member != sender {
				sc.unread[member]++
			}
		}
	}
	return msg
}

func (st *memoryStore) markRead(chatID, userID uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[chatID]
	if !ok {
		return
	}
	sc.unread[userID] = 0
	for _, msg := range st.messages[chatID] {
		if msg.Sender.ID != userID {
			msg.IsRead = true
		}
	}
}

// listConversations returns the user's conversations with their unread view.
func (st *memoryStore) listConversations(userID uuid.UUID) []*models.Conversation {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := make([]*models.Conversation, 0)
	for _, sc := range st.conversations {
		if sc.members[userID] {
			result = append(result, st.viewLocked(sc, userID))
		}
	}
	return result
}

// viewFor builds one user's view of a conversation.
func (st *memoryStore) viewFor(chatID, userID uuid.UUID) *models.Conversation {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[chatID]
	if !ok {
		return nil
	}
	return st.viewLocked(sc, userID)
}

func (st *memoryStore) viewLocked(sc *storedConversation, userID uuid.UUID) *models.Conversation {
	view := *sc.base
	view.UnreadCount = sc.unread[userID]
	return &view
}

// messagePage returns one history page, newest-first.
func (st *memoryStore) messagePage(chatID, userID uuid.UUID, page, limit int) (*models.MessagePage, *utils.AppError) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[chatID]
	if !ok {
		return nil, utils.NewConversationNotFoundError(chatID.String())
	}
	if !sc.members[userID] {
		return nil, utils.NewAppError(utils.ErrUnauthorized, "not a member of this conversation", nil)
	}

	all := st.messages[chatID]
	total := len(all)
	pages := (total + limit - 1) / limit

	// Page 1 is the most recent window; within a page messages run
	// newest-first. The client reverses them locally.
	newestFirst := make([]*models.Message, 0, limit)
	start := total - (page-1)*limit - 1
	for i := start; i >= 0 && i > start-limit; i-- {
		newestFirst = append(newestFirst, all[i])
	}

	return &models.MessagePage{
		Messages: newestFirst,
		Pagination: models.Pagination{
			Total: total,
			Page:  page,
			Pages: pages,
		},
	}, nil
}

func (st *memoryStore) deleteConversation(chatID, userID uuid.UUID) *utils.AppError {
	st.mu.Lock()
	defer st.mu.Unlock()

	sc, ok := st.conversations[chatID]
	if !ok {
		return utils.NewConversationNotFoundError(chatID.String())
	}
	if !sc.members[userID] {
		return utils.NewAppError(utils.ErrUnauthorized, "not a member of this conversation", nil)
	}
	delete(st.conversations, chatID)
	delete(st.messages, chatID)
	return nil
}
