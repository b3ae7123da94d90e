package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"clinicops/internal/api"
	"clinicops/internal/logging"
)

// ErrTokenInvalid is returned when the identity check fails and the stored
// token has been wiped as a consequence.
var ErrTokenInvalid = errors.New("session token invalid")

// State is the resolver's position in the authentication lifecycle.
type State int

const (
	// StateAnonymous means no token is present.
	StateAnonymous State = iota
	// StateValidating means a token is present and the identity fetch is in flight.
	StateValidating
	// StateAuthenticated means the backend confirmed the identity.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Identity is the confirmed clinician identity. Read-only; recomputed whenever
// credentials change and nil when anonymous.
type Identity struct {
	Username    string
	Specialty   string
	IsSuperuser bool
}

// Resolver confirms a stored token against the backend and owns the resulting
// identity. A failed identity check is treated as token invalidation, not a
// transient error: the token is cleared, never retried. Note this means a
// network-layer outage during validation also forces a logout; the log line
// preserves the underlying cause so the two cases can be told apart.
type Resolver struct {
	store  *Store
	client *api.Client

	mu       sync.RWMutex
	state    State
	identity *Identity
}

// NewResolver creates a resolver over the given store and transport.
func NewResolver(store *Store, client *api.Client) *Resolver {
	return &Resolver{store: store, client: client}
}

// State returns the current lifecycle state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Identity returns the confirmed identity, nil when not authenticated.
func (r *Resolver) Identity() *Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

// Login exchanges username+password for a token, persists it, and resolves
// the identity. Only the access token is retained.
func (r *Resolver) Login(ctx context.Context, username, password string) (*Identity, error) {
	tokens, err := r.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetToken(tokens.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	logging.Auth("login succeeded for %s", username)
	return r.Resolve(ctx)
}

// Resolve confirms the stored token with the backend. With no token present it
// resets to anonymous and returns nil identity without error. On backend
// failure the token is wiped and ErrTokenInvalid is returned.
func (r *Resolver) Resolve(ctx context.Context) (*Identity, error) {
	if !r.store.Authenticated() {
		r.setState(StateAnonymous, nil)
		return nil, nil
	}

	r.setState(StateValidating, nil)

	user, err := r.client.Me(ctx)
	if err != nil {
		// Token invalidation, not a retryable failure
		logging.AuthError("identity check failed, clearing token: %v", err)
		_ = r.store.Clear()
		r.setState(StateAnonymous, nil)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	identity := &Identity{
		Username:    user.Username,
		Specialty:   user.Specialty,
		IsSuperuser: user.IsSuperuser,
	}
	r.setState(StateAuthenticated, identity)
	logging.Auth("identity confirmed: %s (%s)", identity.Username, identity.Specialty)
	return identity, nil
}

// Logout is a pure local reset: the token is cleared and no server call is
// made. Downstream state (tasks, history, memory) is reset by the session
// context, not here.
func (r *Resolver) Logout() {
	_ = r.store.Clear()
	r.setState(StateAnonymous, nil)
	logging.Auth("logged out")
}

func (r *Resolver) setState(state State, identity *Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.identity = identity
}
