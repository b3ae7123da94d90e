// Package session implements the conversation/session state synchronizer: one
// process-wide context owns the identity, care task selection, session id,
// fetched history, memory snapshot and last response, and keeps them mutually
// consistent across independently-failing backend calls.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinicops/internal/api"
	"clinicops/internal/auth"
	"clinicops/internal/logging"
)

const (
	taskPageSize     = 100
	historyPageSize  = 100
	sessionIDPrefix  = "session-"
	defaultSpecialty = "general"
)

// Context is the single owner of shared conversation state. Components
// request transitions through its methods; none of them mutate the fields
// directly. Snapshot accessors return copies so callers can render without
// holding the lock.
type Context struct {
	store    *auth.Store
	client   *api.Client
	resolver *auth.Resolver

	mu             sync.Mutex
	identity       *auth.Identity
	tasks          []api.CareTask
	selectedTaskID int // 0 = no selection; server ids are positive
	sessionID      string
	history        []api.ChatHistoryItem
	memory         *api.ChatMemory
	lastResponse   *api.ChatResponse

	// loadGen stamps conversation fetches; a fetch only commits if no newer
	// generation has been issued since it started, so a slow stale response
	// can never overwrite fresher state.
	loadGen uint64
}

// New creates a session context over the given store, transport and resolver,
// with a fresh session id.
func New(store *auth.Store, client *api.Client, resolver *auth.Resolver) *Context {
	return &Context{
		store:     store,
		client:    client,
		resolver:  resolver,
		sessionID: NewSessionID(),
	}
}

// NewSessionID builds a client-chosen opaque session id from the current UTC
// timestamp, minute precision: session-YYYYMMDDHHMM.
func NewSessionID() string {
	return sessionIDPrefix + time.Now().UTC().Format("200601021504")
}

// Store returns the credential store backing this context.
func (c *Context) Store() *auth.Store {
	return c.store
}

// Identity returns the confirmed clinician identity, nil when anonymous.
func (c *Context) Identity() *auth.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Tasks returns a copy of the most recently fetched care task list.
func (c *Context) Tasks() []api.CareTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks := make([]api.CareTask, len(c.tasks))
	copy(tasks, c.tasks)
	return tasks
}

// SelectedTask returns the selected care task, if any.
func (c *Context) SelectedTask() (api.CareTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedTaskLocked()
}

func (c *Context) selectedTaskLocked() (api.CareTask, bool) {
	if c.selectedTaskID == 0 {
		return api.CareTask{}, false
	}
	for _, task := range c.tasks {
		if task.ID == c.selectedTaskID {
			return task, true
		}
	}
	return api.CareTask{}, false
}

// SessionID returns the current session id.
func (c *Context) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetSessionID switches to a different (possibly user-edited) session id.
// The id is not validated against the server. In-flight conversation loads
// for the old session become stale.
func (c *Context) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
	c.loadGen++
	logging.Session("session id set to %s", id)
}

// RotateSession starts a fresh session id and returns it.
func (c *Context) RotateSession() string {
	id := NewSessionID()
	c.SetSessionID(id)
	return id
}

// History returns a copy of the synchronized turn history, ascending by
// creation time.
func (c *Context) History() []api.ChatHistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]api.ChatHistoryItem, len(c.history))
	copy(history, c.history)
	return history
}

// Memory returns the current memory snapshot, nil when none is loaded.
func (c *Context) Memory() *api.ChatMemory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memory
}

// LastResponse returns the most recent turn submission result.
func (c *Context) LastResponse() *api.ChatResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// Login authenticates, confirms identity and performs the initial care task
// refresh.
func (c *Context) Login(ctx context.Context, username, password string) (*auth.Identity, error) {
	identity, err := c.resolver.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
	if err := c.RefreshTasks(ctx); err != nil {
		return identity, fmt.Errorf("authenticated but task refresh failed: %w", err)
	}
	return identity, nil
}

// Validate confirms a previously stored token. On failure the token has been
// wiped by the resolver and all dependent state is reset before the error is
// returned. With no stored token it resets and returns nil.
func (c *Context) Validate(ctx context.Context) (*auth.Identity, error) {
	identity, err := c.resolver.Resolve(ctx)
	if err != nil {
		c.ResetAll()
		return nil, err
	}
	if identity == nil {
		c.ResetAll()
		return nil, nil
	}
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
	if err := c.RefreshTasks(ctx); err != nil {
		return identity, fmt.Errorf("authenticated but task refresh failed: %w", err)
	}
	return identity, nil
}

// Logout clears the token locally and empties every piece of dependent state.
// No server call is made.
func (c *Context) Logout() {
	c.resolver.Logout()
	c.ResetAll()
}

// ResetAll synchronously empties identity, task list, selection, history,
// memory and last response. Credentials gate everything: after this call no
// stale data survives.
func (c *Context) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = nil
	c.tasks = nil
	c.selectedTaskID = 0
	c.history = nil
	c.memory = nil
	c.lastResponse = nil
	c.loadGen++
	logging.Session("state reset")
}
