package session

import (
	"context"
	"testing"

	"clinicops/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_RejectsShortQueryLocally(t *testing.T) {
	backend := newFakeBackend()
	sess := newTestContext(t, backend)

	for _, query := range []string{"", "   ", "a", " a \t"} {
		_, err := sess.SendMessage(context.Background(), query, SendOptions{}, nil)
		require.ErrorIs(t, err, ErrEmptyQuery)
	}

	// Local validation never touches the network
	assert.Equal(t, 0, backend.totalCalls())
}

func TestSendMessage_CreatesDefaultCaseWhenNoneSelected(t *testing.T) {
	backend := newFakeBackend()
	backend.sendResp = api.ChatResponse{MessageID: 1, Answer: "ok"}

	sess := newTestContext(t, backend)
	_, ok := sess.SelectedTask()
	require.False(t, ok)

	resp, err := sess.SendMessage(context.Background(), "chest pain workup", SendOptions{
		ConversationMode: ModeAuto,
		Tool:             ToolChat,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	// Exactly one implicit case, and the chat call targets it
	require.Equal(t, 1, backend.callCount("create"))
	require.Len(t, backend.sentTask, 1)
	selected, ok := sess.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, selected.ID, backend.sentTask[0])
}

func TestSendMessage_FixedSubmissionShape(t *testing.T) {
	backend := newFakeBackend()
	backend.tasks = []api.CareTask{{ID: 7, Title: "Ward round"}}
	backend.sendResp = api.ChatResponse{MessageID: 1, Answer: "ok"}

	sess := newTestContext(t, backend)
	require.NoError(t, sess.RefreshTasks(context.Background()))
	sess.SetSessionID("session-202608311200")

	_, err := sess.SendMessage(context.Background(), "  dosing for amoxicillin  ", SendOptions{
		UseWebSources:          false,
		IncludeProtocolCatalog: true,
		ConversationMode:       ModeClinical,
		Tool:                   ToolMedication,
	}, nil)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	assert.Equal(t, "dosing for amoxicillin", sent.Query)
	assert.Equal(t, "session-202608311200", sent.SessionID)
	assert.False(t, sent.UseWebSources)
	assert.Equal(t, 3, sent.MaxWebSources)
	assert.True(t, sent.UseAuthenticatedSpecialtyMode)
	assert.True(t, sent.UsePatientHistory)
	assert.Equal(t, 25, sent.MaxHistoryMessages)
	assert.Equal(t, 40, sent.MaxPatientHistoryMessages)
	assert.True(t, sent.IncludeProtocolCatalog)
	assert.Equal(t, "clinical", sent.ConversationMode)
	assert.Equal(t, "medication", sent.ToolMode)
}

func TestSendMessage_DeepSearchForcesWebSources(t *testing.T) {
	backend := newFakeBackend()
	backend.tasks = []api.CareTask{{ID: 7}}
	backend.sendResp = api.ChatResponse{MessageID: 1}

	sess := newTestContext(t, backend)
	require.NoError(t, sess.RefreshTasks(context.Background()))

	// User turned web sources off; deep search overrides
	_, err := sess.SendMessage(context.Background(), "latest sepsis guidance", SendOptions{
		UseWebSources: false,
		Tool:          ToolDeepSearch,
	}, nil)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	assert.True(t, backend.sent[0].UseWebSources)
	assert.Equal(t, 6, backend.sent[0].MaxWebSources)
}

func TestSendMessage_SuccessRefreshesConversation(t *testing.T) {
	backend := newFakeBackend()
	backend.tasks = []api.CareTask{{ID: 7}}
	backend.sendResp = api.ChatResponse{MessageID: 99, Answer: "the answer", ResponseMode: "clinical"}
	backend.history = []api.ChatHistoryItem{
		{ID: 99, UserQuery: "q", AssistantAnswer: "the answer", CreatedAt: "2026-08-31T10:00:00"},
	}
	backend.memory = api.ChatMemory{InteractionsCount: 1}

	sess := newTestContext(t, backend)
	require.NoError(t, sess.RefreshTasks(context.Background()))

	resp, err := sess.SendMessage(context.Background(), "q about sepsis", SendOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 99, resp.MessageID)

	// The turn shows up via the refresh, never a local append
	require.Len(t, sess.History(), 1)
	assert.Equal(t, 99, sess.History()[0].ID)
	require.NotNil(t, sess.Memory())
	assert.Equal(t, resp, sess.LastResponse())
	assert.Equal(t, 1, backend.callCount("history"))
	assert.Equal(t, 1, backend.callCount("memory"))
}

func TestSendMessage_SubmissionFailureMutatesNothing(t *testing.T) {
	backend := newFakeBackend()
	backend.tasks = []api.CareTask{{ID: 7}}
	backend.failSend = true

	sess := newTestContext(t, backend)
	require.NoError(t, sess.RefreshTasks(context.Background()))

	resp, err := sess.SendMessage(context.Background(), "valid question", SendOptions{}, nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Nil(t, sess.LastResponse())
	assert.Empty(t, sess.History())
	// No refresh is attempted after a rejected submission
	assert.Equal(t, 0, backend.callCount("history"))
}

func TestSendMessage_RefreshFailureReturnsResponseAndError(t *testing.T) {
	backend := newFakeBackend()
	backend.tasks = []api.CareTask{{ID: 7}}
	backend.failHistory = true
	backend.sendResp = api.ChatResponse{MessageID: 5, Answer: "accepted"}

	sess := newTestContext(t, backend)
	require.NoError(t, sess.RefreshTasks(context.Background()))

	resp, err := sess.SendMessage(context.Background(), "valid question", SendOptions{}, nil)
	// The backend accepted the turn but the refresh failed: the response is
	// still returned alongside the error.
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 5, resp.MessageID)
	assert.Equal(t, resp, sess.LastResponse())
	assert.Empty(t, sess.History())
}

func TestSendMessage_PhaseSequence(t *testing.T) {
	backend := newFakeBackend()
	backend.sendResp = api.ChatResponse{MessageID: 1}

	sess := newTestContext(t, backend)

	var phases []SendPhase
	_, err := sess.SendMessage(context.Background(), "first question", SendOptions{}, func(p SendPhase) {
		phases = append(phases, p)
	})
	require.NoError(t, err)

	// No selection: the implicit case creation phase comes first
	assert.Equal(t, []SendPhase{PhaseResolvingCase, PhaseSubmitting, PhaseRefreshing, PhaseIdle}, phases)
}
