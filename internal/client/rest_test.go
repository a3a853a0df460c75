package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawchat/internal/models"
	"pawchat/internal/utils"
)

const testToken = "test-token"

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
}

func TestFetchChats(t *testing.T) {
	chatID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		assert.Equal(t, "/messages/chats", r.URL.Path)
		json.NewEncoder(w).Encode([]*models.Conversation{
			{ID: chatID, Kind: models.KindCommunity, Name: "Dog Park Regulars", UnreadCount: 3},
		})
	}))
	defer server.Close()

	chats, err := NewRestClient(server.URL, testToken).FetchChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chatID, chats[0].ID)
	assert.Equal(t, models.KindCommunity, chats[0].Kind)
	assert.Equal(t, 3, chats[0].UnreadCount)
}

func TestFetchMessagesPassesPaginationParams(t *testing.T) {
	chatID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		assert.Equal(t, "/messages/chats/"+chatID.String()+"/messages", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(&models.MessagePage{
			Messages: []*models.Message{
				{ID: uuid.New(), ChatID: chatID, Content: "newer", CreatedAt: time.Now()},
				{ID: uuid.New(), ChatID: chatID, Content: "older", CreatedAt: time.Now().Add(-time.Minute)},
			},
			Pagination: models.Pagination{Total: 42, Page: 2, Pages: 3},
		})
	}))
	defer server.Close()

	page, err := NewRestClient(server.URL, testToken).FetchMessages(context.Background(), chatID, 2, 20)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, 42, page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore())
}

func TestGetOrCreateDirect(t *testing.T) {
	recipient := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		assert.Equal(t, "/messages/individual/"+recipient.String(), r.URL.Path)
		json.NewEncoder(w).Encode(&models.Conversation{ID: uuid.New(), Kind: models.KindDirect})
	}))
	defer server.Close()

	conv, err := NewRestClient(server.URL, testToken).GetOrCreateDirect(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, models.KindDirect, conv.Kind)
}

func TestCreateCommunitySendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateCommunityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hamster Owners", req.Name)

		json.NewEncoder(w).Encode(&models.Conversation{
			ID:   uuid.New(),
			Kind: models.KindCommunity,
			Name: req.Name,
		})
	}))
	defer server.Close()

	conv, err := NewRestClient(server.URL, testToken).CreateCommunity(context.Background(), &CreateCommunityRequest{
		Name: "Hamster Owners",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hamster Owners", conv.Name)
}

func TestDeleteChat(t *testing.T) {
	chatID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/messages/chats/"+chatID.String(), r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer server.Close()

	err := NewRestClient(server.URL, testToken).DeleteChat(context.Background(), chatID)
	assert.NoError(t, err)
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusNotFound, utils.ErrNotFound},
		{http.StatusUnauthorized, utils.ErrUnauthorized},
		{http.StatusBadRequest, utils.ErrInvalidInput},
		{http.StatusTooManyRequests, utils.ErrTooManyRequests},
		{http.StatusInternalServerError, utils.ErrFetchFailed},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		_, err := NewRestClient(server.URL, testToken).FetchChats(context.Background())
		server.Close()

		require.Error(t, err, "status %d", tc.status)
		assert.True(t, utils.IsErrorCode(err, tc.code), "status %d should map to %s, got %v", tc.status, tc.code, err)
	}
}

func TestFetchFailureOnUnreachableServer(t *testing.T) {
	c := NewRestClient("http://127.0.0.1:1", testToken)
	_, err := c.FetchChats(context.Background())
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrFetchFailed))
}
