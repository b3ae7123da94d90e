package session

import (
	"context"
	"sort"

	"clinicops/internal/api"
	"clinicops/internal/logging"

	"golang.org/x/sync/errgroup"
)

// LoadConversation fetches the ordered history and the memory snapshot for a
// (care task, session) pair. The two fetches run concurrently and have no
// mutual ordering requirement, but the combined operation fails if either
// fails, and history+memory are committed in one step - a partially-updated
// view (new history with old memory or vice versa) is never observable.
//
// Every call takes the next load generation for the context. A call whose
// generation is stale by the time its responses arrive commits nothing: the
// newer call owns the state. The discard is silent success, not an error.
func (c *Context) LoadConversation(ctx context.Context, taskID int, sessionID string) error {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()

	timer := logging.StartTimer(logging.CategorySync, "load conversation")
	defer timer.Stop()

	var (
		history []api.ChatHistoryItem
		memory  *api.ChatMemory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := c.client.ChatHistory(gctx, taskID, sessionID, historyPageSize)
		if err != nil {
			return err
		}
		history = items
		return nil
	})
	g.Go(func() error {
		snapshot, err := c.client.Memory(gctx, taskID, sessionID)
		if err != nil {
			return err
		}
		memory = snapshot
		return nil
	})
	if err := g.Wait(); err != nil {
		logging.SyncWarn("conversation load for task %d session %s failed: %v", taskID, sessionID, err)
		return err
	}

	// Stable sort: createdAt is fixed-width ISO-8601, so string compare is
	// chronological; ties keep server order.
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt < history[j].CreatedAt
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.loadGen {
		logging.SyncWarn("discarding stale conversation load (gen %d, current %d)", gen, c.loadGen)
		return nil
	}

	c.history = history
	c.memory = memory
	logging.Sync("conversation synchronized: task %d session %s turns=%d interactions=%d",
		taskID, sessionID, len(history), memory.InteractionsCount)
	return nil
}

// LoadSelectedConversation loads the conversation for the current selection
// and session id. With no selection it clears nothing and does nothing.
func (c *Context) LoadSelectedConversation(ctx context.Context) error {
	c.mu.Lock()
	taskID := c.selectedTaskID
	sessionID := c.sessionID
	c.mu.Unlock()

	if taskID == 0 {
		return nil
	}
	return c.LoadConversation(ctx, taskID, sessionID)
}
