package session

import (
	"context"
	"errors"
	"strings"

	"clinicops/internal/api"
	"clinicops/internal/logging"
)

// ErrEmptyQuery rejects queries shorter than two trimmed characters before
// any network call is made.
var ErrEmptyQuery = errors.New("query must be at least 2 characters")

// Fixed submission shape: inclusion ceilings and web-source limits are not
// user-tunable.
const (
	minQueryLength          = 2
	maxHistoryMessages      = 25
	maxPatientHistory       = 40
	maxWebSources           = 3
	maxWebSourcesDeepSearch = 6
)

// SendPhase tracks one submission through the pipeline, mostly for status
// display. Only one submission is expected in flight at a time; the pipeline
// does not defend against concurrent invocation.
type SendPhase int

const (
	PhaseIdle SendPhase = iota
	PhaseResolvingCase
	PhaseSubmitting
	PhaseRefreshing
)

func (p SendPhase) String() string {
	switch p {
	case PhaseResolvingCase:
		return "resolving case"
	case PhaseSubmitting:
		return "submitting"
	case PhaseRefreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// SendOptions are the user-chosen knobs for one submission.
type SendOptions struct {
	UseWebSources          bool
	IncludeProtocolCatalog bool
	ConversationMode       ConversationMode
	Tool                   ToolMode
}

// SendMessage submits one turn. With no case selected, a default case is
// created, the list refreshed and the new case selected before the chat call,
// so the chat call always targets a concrete case id. On success the full
// response becomes the last response and the conversation is re-synchronized
// for the same (case, session): the sent turn is only trusted once it
// round-trips through the history fetch, never appended locally.
//
// The returned response is non-nil whenever the backend accepted the turn,
// even if the follow-up refresh failed; the error then describes the refresh
// failure. onPhase, if non-nil, observes pipeline progress.
func (c *Context) SendMessage(ctx context.Context, rawQuery string, opts SendOptions, onPhase func(SendPhase)) (*api.ChatResponse, error) {
	notify := func(phase SendPhase) {
		if onPhase != nil {
			onPhase(phase)
		}
	}

	query := strings.TrimSpace(rawQuery)
	if len(query) < minQueryLength {
		return nil, ErrEmptyQuery
	}

	taskID := 0
	if task, ok := c.SelectedTask(); ok {
		taskID = task.ID
	} else {
		notify(PhaseResolvingCase)
		task, err := c.CreateDefaultTask(ctx)
		if err != nil {
			notify(PhaseIdle)
			return nil, err
		}
		taskID = task.ID
	}

	useWeb := opts.UseWebSources
	webCeiling := maxWebSources
	if opts.Tool == ToolDeepSearch {
		// Deep search always consults web sources, with a higher ceiling
		useWeb = true
		webCeiling = maxWebSourcesDeepSearch
	}

	req := api.SendTurnRequest{
		Query:                         query,
		SessionID:                     c.SessionID(),
		UseWebSources:                 useWeb,
		UseAuthenticatedSpecialtyMode: true,
		UsePatientHistory:             true,
		MaxHistoryMessages:            maxHistoryMessages,
		MaxPatientHistoryMessages:     maxPatientHistory,
		MaxWebSources:                 webCeiling,
		IncludeProtocolCatalog:        opts.IncludeProtocolCatalog,
		ConversationMode:              string(opts.ConversationMode),
		ToolMode:                      string(opts.Tool),
	}

	notify(PhaseSubmitting)
	logging.Pipeline("submitting turn: task=%d session=%s tool=%s mode=%s", taskID, req.SessionID, req.ToolMode, req.ConversationMode)

	resp, err := c.client.SendTurn(ctx, taskID, req)
	if err != nil {
		notify(PhaseIdle)
		logging.PipelineError("turn submission failed: %v", err)
		return nil, err
	}

	c.mu.Lock()
	c.lastResponse = resp
	c.mu.Unlock()

	notify(PhaseRefreshing)
	if err := c.LoadConversation(ctx, taskID, req.SessionID); err != nil {
		notify(PhaseIdle)
		return resp, err
	}

	notify(PhaseIdle)
	logging.Pipeline("turn %d confirmed: mode=%s tool=%s", resp.MessageID, resp.ResponseMode, resp.ToolMode)
	return resp, nil
}
