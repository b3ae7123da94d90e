package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"clinicops/internal/api"
	"clinicops/internal/auth"

	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the clinical backend, covering the
// routes the session layer talks to.
type fakeBackend struct {
	mu sync.Mutex

	user     api.CurrentUser
	tasks    []api.CareTask
	nextID   int
	history  []api.ChatHistoryItem
	memory   api.ChatMemory
	sendResp api.ChatResponse

	created  []api.CreateCareTaskRequest
	sent     []api.SendTurnRequest
	sentTask []int
	calls    map[string]int

	// Optional per-route hooks, called outside the lock before responding.
	beforeHistory func(r *http.Request)
	failMe        bool
	failList      bool
	failMemory    bool
	failHistory   bool
	failSend      bool
	historyFor    func(r *http.Request) []api.ChatHistoryItem
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user:   api.CurrentUser{Username: "ana", Specialty: "cardiology"},
		nextID: 1000,
		calls:  make(map[string]int),
	}
}

func (f *fakeBackend) count(route string) {
	f.mu.Lock()
	f.calls[route]++
	f.mu.Unlock()
}

func (f *fakeBackend) callCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/auth/login":
		f.count("login")
		writeJSON(w, api.AuthTokens{AccessToken: "tok-login", TokenType: "bearer"})

	case path == "/auth/me":
		f.count("me")
		f.mu.Lock()
		fail := f.failMe
		user := f.user
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Token expired"}`))
			return
		}
		writeJSON(w, user)

	case path == "/care-tasks/" && r.Method == http.MethodGet:
		f.count("list")
		f.mu.Lock()
		fail := f.failList
		tasks := append([]api.CareTask(nil), f.tasks...)
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"list unavailable"}`))
			return
		}
		writeJSON(w, tasks)

	case path == "/care-tasks/" && r.Method == http.MethodPost:
		f.count("create")
		var req api.CreateCareTaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.nextID++
		task := api.CareTask{
			ID:               f.nextID,
			Title:            req.Title,
			ClinicalPriority: req.ClinicalPriority,
			Specialty:        req.Specialty,
			PatientReference: req.PatientReference,
		}
		f.tasks = append(f.tasks, task)
		f.created = append(f.created, req)
		f.mu.Unlock()
		writeJSON(w, task)

	case strings.HasSuffix(path, "/chat/messages") && r.Method == http.MethodGet:
		f.count("history")
		f.mu.Lock()
		before := f.beforeHistory
		fail := f.failHistory
		historyFor := f.historyFor
		history := append([]api.ChatHistoryItem(nil), f.history...)
		f.mu.Unlock()
		if before != nil {
			before(r)
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"history unavailable"}`))
			return
		}
		if historyFor != nil {
			writeJSON(w, historyFor(r))
			return
		}
		writeJSON(w, history)

	case strings.HasSuffix(path, "/chat/memory"):
		f.count("memory")
		f.mu.Lock()
		fail := f.failMemory
		memory := f.memory
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"memory unavailable"}`))
			return
		}
		writeJSON(w, memory)

	case strings.HasSuffix(path, "/chat/messages") && r.Method == http.MethodPost:
		f.count("send")
		var req api.SendTurnRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		taskID := taskIDFromPath(path)
		f.mu.Lock()
		fail := f.failSend
		f.sent = append(f.sent, req)
		f.sentTask = append(f.sentTask, taskID)
		resp := f.sendResp
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"detail":"agent unavailable"}`))
			return
		}
		resp.SessionID = req.SessionID
		resp.CareTaskID = taskID
		writeJSON(w, resp)

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found"}`))
	}
}

func taskIDFromPath(path string) int {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "care-tasks" && i+1 < len(parts) {
			id, _ := strconv.Atoi(parts[i+1])
			return id
		}
	}
	return 0
}

// newTestContext builds a session context against the given backend.
func newTestContext(t *testing.T, backend http.Handler) *Context {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	store := auth.NewStoreAt(t.TempDir())
	require.NoError(t, store.SetAPIBase(server.URL))
	require.NoError(t, store.SetToken("tok-test"))

	client := api.NewClient(store)
	resolver := auth.NewResolver(store, client)
	return New(store, client, resolver)
}
