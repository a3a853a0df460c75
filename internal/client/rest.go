package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pawchat/internal/models"
	"pawchat/internal/utils"
)

// CreateCommunityRequest is the body for POST /messages/community.
type CreateCommunityRequest struct {
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Participants []uuid.UUID `json:"participants"`
}

// RestClient consumes the paginated request/response side of the backend:
// conversation summaries and message history.
type RestClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewRestClient(baseURL, token string) *RestClient {
	return &RestClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchChats loads the full list of the user's conversations, both kinds.
func (c *RestClient) FetchChats(ctx context.Context) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	if err := c.do(ctx, http.MethodGet, "/messages/chats", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// FetchMessages loads one history page, newest-first.
func (c *RestClient) FetchMessages(ctx context.Context, chatID uuid.UUID, page, limit int) (*models.MessagePage, error) {
	path := fmt.Sprintf("/messages/chats/%s/messages?page=%d&limit=%d", chatID, page, limit)
	result := &models.MessagePage{}
	if err := c.do(ctx, http.MethodGet, path, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetOrCreateDirect resolves the direct conversation with a recipient,
// creating it server-side on first contact.
func (c *RestClient) GetOrCreateDirect(ctx context.Context, recipientID uuid.UUID) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	if err := c.do(ctx, http.MethodGet, "/messages/individual/"+recipientID.String(), nil, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// CreateCommunity creates a new community conversation.
func (c *RestClient) CreateCommunity(ctx context.Context, req *CreateCommunityRequest) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	if err := c.do(ctx, http.MethodPost, "/messages/community", req, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// DeleteChat removes a conversation.
func (c *RestClient) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/messages/chats/"+chatID.String(), nil, nil)
}

func (c *RestClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return utils.NewAppError(utils.ErrInvalidInput, "failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return utils.NewAppError(utils.ErrInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.NewFetchFailedError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.NewFetchFailedError(path, err)
	}
	return nil
}

func statusError(resp *http.Response) *utils.AppError {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := string(bytes.TrimSpace(payload))
	if message == "" {
		message = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return utils.NewAppError(utils.ErrNotFound, message, nil)
	case http.StatusUnauthorized:
		return utils.NewAppError(utils.ErrUnauthorized, message, nil)
	case http.StatusBadRequest:
		return utils.NewAppError(utils.ErrInvalidInput, message, nil)
	case http.StatusTooManyRequests:
		return utils.NewAppError(utils.ErrTooManyRequests, message, nil)
	default:
		return utils.NewAppError(utils.ErrFetchFailed, message, nil)
	}
}
