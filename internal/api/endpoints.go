package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Login exchanges clinician credentials for tokens. The body is form-encoded
// (the backend's token endpoint does not accept JSON) and the request carries
// no Authorization header even when a stale token is stored.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthTokens, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	var tokens AuthTokens
	if err := c.do(ctx, http.MethodPost, "/auth/login", form, &tokens, WithTokenOverride("")); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Me confirms the stored token and returns the clinician identity.
func (c *Client) Me(ctx context.Context) (*CurrentUser, error) {
	var user CurrentUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListCareTasks fetches up to limit care tasks in server order.
func (c *Client) ListCareTasks(ctx context.Context, limit int) ([]CareTask, error) {
	var tasks []CareTask
	path := fmt.Sprintf("/care-tasks/?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateCareTask creates a new care task and returns it with its server id.
func (c *Client) CreateCareTask(ctx context.Context, req CreateCareTaskRequest) (*CareTask, error) {
	var task CareTask
	if err := c.do(ctx, http.MethodPost, "/care-tasks/", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ChatHistory fetches the persisted turns for a (care task, session) pair.
// Server order is not guaranteed; callers sort by CreatedAt.
func (c *Client) ChatHistory(ctx context.Context, taskID int, sessionID string, limit int) ([]ChatHistoryItem, error) {
	var history []ChatHistoryItem
	path := fmt.Sprintf("/care-tasks/%d/chat/messages?session_id=%s&limit=%d",
		taskID, url.QueryEscape(sessionID), limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Memory fetches the aggregate memory snapshot for a (care task, session) pair.
func (c *Client) Memory(ctx context.Context, taskID int, sessionID string) (*ChatMemory, error) {
	var memory ChatMemory
	path := fmt.Sprintf("/care-tasks/%d/chat/memory?session_id=%s",
		taskID, url.QueryEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

// SendTurn submits a query and returns the full chat response.
func (c *Client) SendTurn(ctx context.Context, taskID int, req SendTurnRequest) (*ChatResponse, error) {
	var resp ChatResponse
	path := fmt.Sprintf("/care-tasks/%d/chat/messages", taskID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
