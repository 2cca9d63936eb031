// Package source defines the task source port shared by the digest pipeline
// and the action state machine.
package source

import (
	"context"
	"strings"

	"github.com/harrisonrobin/agenda/pkg/model"
)

// TaskSource reads and mutates tasks in an external system.
type TaskSource interface {
	// Query returns every task matching filter, following pagination.
	Query(ctx context.Context, filter Filter) ([]model.Task, error)
	// Get returns the current state of a single task.
	Get(ctx context.Context, id string) (model.Task, error)
	// Update applies a mutation to a task.
	Update(ctx context.Context, id string, m model.Mutation) error
}

// Filter narrows a query. Empty fields do not constrain it; dates are
// YYYY-MM-DD and inclusive unless noted.
type Filter struct {
	DueOnOrBefore   string
	DueOn           string
	EditedOnOrAfter string
	EditedBefore    string // exclusive
}

// Rules decide which fetched tasks are eligible for a digest.
type Rules struct {
	HighPriorityValues []string
	ClosedStatuses     []string
}

// IsClosed reports whether a task is done, either by its completion flag or
// by carrying a closed status.
func (r Rules) IsClosed(t model.Task) bool {
	if t.Done {
		return true
	}
	return contains(r.ClosedStatuses, t.Status)
}

// IsHighPriority reports whether a task's priority is tracked by the digest.
// An empty list tracks every priority.
func (r Rules) IsHighPriority(t model.Task) bool {
	if len(r.HighPriorityValues) == 0 {
		return true
	}
	return contains(r.HighPriorityValues, t.Priority)
}

// Eligible keeps tasks that have a due date, are open, and are high priority.
func (r Rules) Eligible(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Due == "" || r.IsClosed(t) || !r.IsHighPriority(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func contains(set []string, value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
