package actions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/pending"
	"github.com/harrisonrobin/agenda/pkg/source"
)

// Results reported to an Observer.
const (
	ResultProposed     = "proposed"
	ResultConfirmed    = "confirmed"
	ResultCanceled     = "canceled"
	ResultExpired      = "expired"
	ResultNotFound     = "not_found"
	ResultUnauthorized = "unauthorized"
	ResultFailed       = "failed"
)

// Observer is told the outcome of every transition.
type Observer interface {
	ObserveAction(kind pending.Kind, result string)
}

// Outcome describes a finished Confirm or Cancel.
type Outcome struct {
	Action   pending.Action
	Mutation model.Mutation
	Summary  string
	DryRun   bool
}

// Machine runs the propose, confirm and cancel transitions against a
// pending store and a task source. Transitions are serialized so a pending
// action is consumed at most once.
type Machine struct {
	store    pending.Store
	tasks    source.TaskSource
	ttl      time.Duration
	dryRun   bool
	log      *slog.Logger
	now      func() time.Time
	observer Observer
	mu       sync.Mutex
}

// NewMachine creates a machine whose proposals live for ttl.
func NewMachine(store pending.Store, tasks source.TaskSource, ttl time.Duration, dryRun bool, log *slog.Logger) *Machine {
	return &Machine{
		store:  store,
		tasks:  tasks,
		ttl:    ttl,
		dryRun: dryRun,
		log:    logging.OrDiscard(log),
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// WithObserver registers an outcome observer, typically metrics.
func (m *Machine) WithObserver(o Observer) *Machine {
	m.observer = o
	return m
}

func (m *Machine) observe(kind pending.Kind, result string) {
	if m.observer != nil {
		m.observer.ObserveAction(kind, result)
	}
}

// Prune drops every expired proposal.
func (m *Machine) Prune(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.store.PruneExpired(ctx, m.now())
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.Debug("pruned expired actions", "count", n)
	}
	return nil
}

// Propose validates and persists a new pending action.
func (m *Machine) Propose(ctx context.Context, kind pending.Kind, taskID, userID string, details pending.Details) (pending.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := NewPendingAction(kind, taskID, userID, details, m.ttl, m.now())
	if err != nil {
		return pending.Action{}, err
	}
	if err := m.store.Put(ctx, a); err != nil {
		return pending.Action{}, err
	}
	m.log.Info("action proposed", "id", a.ID, "action", a.Action, "task_id", a.TaskID, "user_id", a.UserID)
	m.observe(a.Action, ResultProposed)
	return a, nil
}

// lookup loads id and checks ownership and expiry. Expired entries are
// deleted. The caller holds m.mu.
func (m *Machine) lookup(ctx context.Context, id, userID string) (*pending.Action, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		m.observe("", ResultNotFound)
		return nil, apperr.New(apperr.NotFound, "This action is no longer pending. Please run /evening again.")
	}
	if a.UserID != userID {
		m.log.Warn("action owner mismatch", "id", id, "owner", a.UserID, "user_id", userID)
		m.observe(a.Action, ResultUnauthorized)
		return nil, apperr.New(apperr.Authorization, "Only the user who initiated this action can confirm it.")
	}
	if a.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		m.observe(a.Action, ResultExpired)
		return nil, apperr.New(apperr.NotFound, "This confirmation has expired. Please start over.")
	}
	return a, nil
}

// Confirm applies the pending action id on behalf of userID. The entry is
// deleted only after the mutation succeeds, so failed confirmations can be
// retried. A failed delete after a successful mutation is logged, not
// returned.
func (m *Machine) Confirm(ctx context.Context, id, userID string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(ctx, id, userID)
	if err != nil {
		return Outcome{}, err
	}

	task, err := m.tasks.Get(ctx, a.TaskID)
	if err != nil {
		m.observe(a.Action, ResultFailed)
		if apperr.Is(err, apperr.NotFound) {
			return Outcome{}, err
		}
		return Outcome{}, apperr.Wrap(apperr.Upstream, err, "fetch task %s", a.TaskID)
	}

	mutation, summary, err := BuildMutation(*a, task)
	if err != nil {
		m.observe(a.Action, ResultFailed)
		return Outcome{}, err
	}

	if m.dryRun {
		m.log.Info("dry run: task update skipped", "task_id", a.TaskID, "summary", summary)
	} else if err := m.tasks.Update(ctx, a.TaskID, mutation); err != nil {
		m.observe(a.Action, ResultFailed)
		return Outcome{}, apperr.Wrap(apperr.Upstream, err, "update task %s", a.TaskID)
	}

	// The task already changed, so report success. A surviving entry would
	// apply the mutation again on the next confirm.
	if err := m.store.Delete(ctx, a.ID); err != nil {
		m.log.Error("pending action not cleared after task update, remove it before it is confirmed again",
			"id", a.ID, "action", a.Action, "task_id", a.TaskID, "error", err)
	}
	m.log.Info("action confirmed", "id", a.ID, "action", a.Action, "task_id", a.TaskID, "dry_run", m.dryRun)
	m.observe(a.Action, ResultConfirmed)
	return Outcome{Action: *a, Mutation: mutation, Summary: summary, DryRun: m.dryRun}, nil
}

// Cancel discards the pending action id without touching the task.
func (m *Machine) Cancel(ctx context.Context, id, userID string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(ctx, id, userID)
	if err != nil {
		return Outcome{}, err
	}
	if err := m.store.Delete(ctx, a.ID); err != nil {
		return Outcome{}, err
	}
	m.log.Info("action canceled", "id", a.ID, "action", a.Action, "task_id", a.TaskID)
	m.observe(a.Action, ResultCanceled)
	return Outcome{Action: *a, Summary: "Canceled. No task changes were made."}, nil
}
