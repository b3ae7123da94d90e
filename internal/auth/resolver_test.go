package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinicops/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := NewStoreAt(t.TempDir())
	require.NoError(t, store.SetAPIBase(server.URL))

	client := api.NewClient(store)
	return NewResolver(store, client), store
}

func TestResolver_ResolveWithoutToken(t *testing.T) {
	resolver, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	})

	identity, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Equal(t, StateAnonymous, resolver.State())
}

func TestResolver_ResolveConfirmsIdentity(t *testing.T) {
	resolver, store := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"username":"ana","specialty":"cardiology","is_superuser":true}`))
	})
	require.NoError(t, store.SetToken("tok-abc"))

	identity, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "ana", identity.Username)
	assert.Equal(t, "cardiology", identity.Specialty)
	assert.True(t, identity.IsSuperuser)
	assert.Equal(t, StateAuthenticated, resolver.State())
	assert.Same(t, identity, resolver.Identity())
}

func TestResolver_FailedIdentityCheckWipesToken(t *testing.T) {
	resolver, store := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token expired"}`))
	})
	require.NoError(t, store.SetToken("tok-expired"))

	identity, err := resolver.Resolve(context.Background())
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, identity)
	assert.Equal(t, StateAnonymous, resolver.State())
	// Failure is invalidation, not a retryable condition
	assert.False(t, store.Authenticated())
}

func TestResolver_LoginPersistsOnlyAccessToken(t *testing.T) {
	resolver, store := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(`{"access_token":"tok-new","refresh_token":"tok-refresh","token_type":"bearer"}`))
		case "/auth/me":
			w.Write([]byte(`{"username":"ana","specialty":"general","is_superuser":false}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	identity, err := resolver.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "ana", identity.Username)
	assert.Equal(t, "tok-new", store.Token())
}

func TestResolver_LogoutIsLocalOnly(t *testing.T) {
	requests := 0
	resolver, store := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})
	require.NoError(t, store.SetToken("tok"))

	resolver.Logout()

	assert.Equal(t, 0, requests)
	assert.False(t, store.Authenticated())
	assert.Equal(t, StateAnonymous, resolver.State())
}
