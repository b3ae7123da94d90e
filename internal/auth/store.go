// Package auth owns the clinician credentials (API base URL + bearer token)
// and the identity lifecycle built on top of them. Every other component reads
// credentials through the Store; nothing else mutates them.
package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"clinicops/internal/logging"
)

// DefaultAPIBase targets a local backend, matching the development default.
const DefaultAPIBase = "http://127.0.0.1:8000/api/v1"

const credentialsFile = "credentials.json"

// storedCredentials is the on-disk key-value contract: two independent keys,
// wiped token means unauthenticated.
type storedCredentials struct {
	APIBase string `json:"api_base"`
	Token   string `json:"token"`
}

// Store holds and persists the active credentials.
type Store struct {
	path string

	mu    sync.RWMutex
	creds storedCredentials
}

// ConfigDir returns the directory where clinicops state is stored.
// A project-local .clinicops directory is preferred when present or creatable;
// otherwise the home-level directory is used.
func ConfigDir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".clinicops")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".clinicops"), nil
}

// NewStore loads persisted credentials from the default config directory.
func NewStore() (*Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(dir), nil
}

// NewStoreAt loads persisted credentials from a specific directory.
// A missing file just means a fresh, unauthenticated store.
func NewStoreAt(dir string) *Store {
	s := &Store{path: filepath.Join(dir, credentialsFile)}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		logging.AuthError("failed to load credentials: %v", err)
	}
	return s
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Unmarshal(data, &s.creds)
}

func (s *Store) save() error {
	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// APIBase returns the configured backend base URL.
func (s *Store) APIBase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.APIBase == "" {
		return DefaultAPIBase
	}
	return s.creds.APIBase
}

// Token returns the stored bearer token, empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// Authenticated reports whether a token is present. Presence alone does not
// mean the token is valid; the Resolver confirms that with the backend.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetAPIBase updates and persists the backend base URL.
func (s *Store) SetAPIBase(base string) error {
	s.mu.Lock()
	s.creds.APIBase = base
	s.mu.Unlock()
	return s.save()
}

// SetToken updates and persists the bearer token.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	s.creds.Token = token
	s.mu.Unlock()
	logging.Auth("token updated (present=%v)", token != "")
	return s.save()
}

// Clear wipes the token, keeping the API base. Used on logout and on
// identity-validation failure.
func (s *Store) Clear() error {
	return s.SetToken("")
}
