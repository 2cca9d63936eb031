// Package actions turns confirmed pending actions into task mutations.
package actions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/pending"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// DeferDayChoices are the day counts offered for a deferral.
var DeferDayChoices = []int{1, 2, 3, 7}

// NewPendingAction builds a proposal for taskID owned by userID. Details are
// validated for the kind; nothing is persisted.
func NewPendingAction(kind pending.Kind, taskID, userID string, details pending.Details, ttl time.Duration, now time.Time) (pending.Action, error) {
	if taskID == "" {
		return pending.Action{}, apperr.New(apperr.Validation, "Select a task first.")
	}
	if userID == "" {
		return pending.Action{}, apperr.New(apperr.Validation, "Unknown user.")
	}

	switch kind {
	case pending.Done:
		details = pending.Details{}
	case pending.Reschedule:
		if !util.IsISODate(details.TargetDate) {
			return pending.Action{}, apperr.New(apperr.Validation, "Invalid date format. Use YYYY-MM-DD.")
		}
		details = pending.Details{TargetDate: details.TargetDate}
	case pending.Defer:
		if details.Days <= 0 {
			return pending.Action{}, apperr.New(apperr.Validation, "Invalid defer days. Pick a positive number of days.")
		}
		details = pending.Details{Days: details.Days}
	default:
		return pending.Action{}, apperr.New(apperr.Validation, "Unsupported action: %s", kind)
	}

	return pending.Action{
		ID:        "pa_" + uuid.NewString(),
		Action:    kind,
		TaskID:    taskID,
		UserID:    userID,
		Details:   details,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// BuildMutation derives the concrete change for a confirmed action from the
// task's current state, along with a one-line summary of it. An unknown kind
// is an unclassified error.
func BuildMutation(a pending.Action, task model.Task) (model.Mutation, string, error) {
	switch a.Action {
	case pending.Done:
		return model.Mutation{MarkDone: true}, fmt.Sprintf("Marked done: %s", task.Title), nil

	case pending.Reschedule:
		if !util.IsISODate(a.Details.TargetDate) {
			return model.Mutation{}, "", apperr.New(apperr.Validation, "Invalid target date. Use YYYY-MM-DD.")
		}
		return model.Mutation{Due: a.Details.TargetDate},
			fmt.Sprintf("Rescheduled: %s -> %s", task.Title, a.Details.TargetDate), nil

	case pending.Defer:
		if a.Details.Days <= 0 {
			return model.Mutation{}, "", apperr.New(apperr.Validation, "Invalid defer days.")
		}
		if !util.IsISODate(task.Due) {
			return model.Mutation{}, "", apperr.New(apperr.Validation, "Task has no valid due date to defer.")
		}
		target, err := util.ShiftDate(task.Due, a.Details.Days)
		if err != nil {
			return model.Mutation{}, "", err
		}
		return model.Mutation{Due: target},
			fmt.Sprintf("Deferred: %s +%dd -> %s", task.Title, a.Details.Days, target), nil
	}

	return model.Mutation{}, "", fmt.Errorf("unsupported action kind %q", a.Action)
}
