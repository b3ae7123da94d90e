package session

import (
	"context"
	"fmt"
	"time"

	"clinicops/internal/api"
	"clinicops/internal/logging"
)

// RefreshTasks fetches the care task list in server order. Selection rules:
// an existing selection is kept only while it appears in the fresh list; with
// no selection and a non-empty list the first entry is selected. That is the
// only automatic-selection rule - an explicit selection is never second-guessed.
func (c *Context) RefreshTasks(ctx context.Context) error {
	tasks, err := c.client.ListCareTasks(ctx, taskPageSize)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks = tasks

	if c.selectedTaskID != 0 {
		found := false
		for _, task := range tasks {
			if task.ID == c.selectedTaskID {
				found = true
				break
			}
		}
		if !found {
			logging.Tasks("selected task %d no longer listed, clearing selection", c.selectedTaskID)
			c.selectedTaskID = 0
			c.loadGen++
		}
	}

	if c.selectedTaskID == 0 && len(tasks) > 0 {
		c.selectedTaskID = tasks[0].ID
		logging.Tasks("auto-selected task %d", c.selectedTaskID)
	}

	return nil
}

// SelectTask makes an explicit selection. The id must belong to the most
// recently fetched list. In-flight conversation loads for the previous
// selection become stale.
func (c *Context) SelectTask(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, task := range c.tasks {
		if task.ID == id {
			c.selectedTaskID = id
			c.loadGen++
			logging.Tasks("selected task %d", id)
			return nil
		}
	}
	return fmt.Errorf("care task %d is not in the current list", id)
}

// CreateTask explicitly creates a care task with the given title and optional
// patient reference, refreshes the list and selects the new task.
func (c *Context) CreateTask(ctx context.Context, title, patientReference string) (*api.CareTask, error) {
	var patientRef *string
	if patientReference != "" {
		patientRef = &patientReference
	}
	req := api.CreateCareTaskRequest{
		Title:               title,
		ClinicalPriority:    "high",
		Specialty:           c.specialtyOrDefault(),
		PatientReference:    patientRef,
		SLATargetMinutes:    30,
		HumanReviewRequired: true,
		Completed:           false,
	}
	return c.createAndSelect(ctx, req)
}

// CreateDefaultTask creates the implicit case used when a turn is submitted
// with nothing selected: timestamp title, medium priority, no patient
// reference, fixed SLA/review defaults.
func (c *Context) CreateDefaultTask(ctx context.Context) (*api.CareTask, error) {
	req := api.CreateCareTaskRequest{
		Title:               fmt.Sprintf("Conversation %s", time.Now().Format("2006-01-02 15:04:05")),
		ClinicalPriority:    "medium",
		Specialty:           c.specialtyOrDefault(),
		PatientReference:    nil,
		SLATargetMinutes:    60,
		HumanReviewRequired: true,
		Completed:           false,
	}
	return c.createAndSelect(ctx, req)
}

func (c *Context) createAndSelect(ctx context.Context, req api.CreateCareTaskRequest) (*api.CareTask, error) {
	task, err := c.client.CreateCareTask(ctx, req)
	if err != nil {
		return nil, err
	}
	logging.Tasks("created task %d (%s)", task.ID, task.Title)

	if err := c.RefreshTasks(ctx); err != nil {
		return nil, fmt.Errorf("task %d created but list refresh failed: %w", task.ID, err)
	}

	c.mu.Lock()
	c.selectedTaskID = task.ID
	c.loadGen++
	c.mu.Unlock()

	return task, nil
}

func (c *Context) specialtyOrDefault() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity != nil && c.identity.Specialty != "" {
		return c.identity.Specialty
	}
	return defaultSpecialty
}
