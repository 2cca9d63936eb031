package actions

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/pending"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	tasks     map[string]model.Task
	updates   map[string]model.Mutation
	getErr    error
	updateErr error
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[string]model.Task{}, updates: map[string]model.Mutation{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) Query(context.Context, source.Filter) ([]model.Task, error) { return nil, nil }

func (f *fakeTasks) Get(_ context.Context, id string) (model.Task, error) {
	if f.getErr != nil {
		return model.Task{}, f.getErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, apperr.New(apperr.NotFound, "Task not found.")
	}
	return t, nil
}

func (f *fakeTasks) Update(_ context.Context, id string, m model.Mutation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = m
	return nil
}

type recorder struct{ results []string }

func (r *recorder) ObserveAction(_ pending.Kind, result string) {
	r.results = append(r.results, result)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, dryRun bool) (*Machine, *fakeTasks, pending.Store, *clock, *recorder) {
	t.Helper()
	store := pending.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	tasks := newFakeTasks(model.Task{ID: "task-1", Title: "Ship release", Due: "2026-02-27"})
	c := &clock{t: now}
	rec := &recorder{}
	m := NewMachine(store, tasks, 30*time.Minute, dryRun, nil).WithClock(c.now).WithObserver(rec)
	return m, tasks, store, c, rec
}

func TestProposeConfirmDefer(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, rec := setup(t, false)

	a, err := m.Propose(ctx, pending.Defer, "task-1", "u1", pending.Details{Days: 3})
	require.NoError(t, err)

	out, err := m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", out.Mutation.Due)
	assert.Equal(t, "Deferred: Ship release +3d -> 2026-03-02", out.Summary)
	assert.Equal(t, model.Mutation{Due: "2026-03-02"}, tasks.updates["task-1"])

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{ResultProposed, ResultConfirmed}, rec.results)
}

func TestConfirmTwiceMutatesOnce(t *testing.T) {
	ctx := context.Background()
	m, tasks, _, _, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "task-1", "u1", pending.Details{})
	require.NoError(t, err)

	_, err = m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	delete(tasks.updates, "task-1")

	_, err = m.Confirm(ctx, a.ID, "u1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Contains(t, apperr.Message(err, ""), "no longer pending")
	assert.Empty(t, tasks.updates)
}

func TestConfirmWrongUserKeepsEntry(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "task-1", "u1", pending.Details{})
	require.NoError(t, err)

	for _, op := range []func(context.Context, string, string) (Outcome, error){m.Confirm, m.Cancel} {
		_, err = op(ctx, a.ID, "intruder")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.Authorization))
	}
	assert.Empty(t, tasks.updates)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.True(t, tasks.updates["task-1"].MarkDone)
}

func TestConfirmExpired(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, c, rec := setup(t, false)

	a, err := m.Propose(ctx, pending.Reschedule, "task-1", "u1", pending.Details{TargetDate: "2026-03-10"})
	require.NoError(t, err)

	c.t = a.ExpiresAt
	_, err = m.Confirm(ctx, a.ID, "u1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Contains(t, apperr.Message(err, ""), "expired")
	assert.Empty(t, tasks.updates)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, ResultExpired, rec.results[len(rec.results)-1])
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "task-1", "u1", pending.Details{})
	require.NoError(t, err)

	out, err := m.Cancel(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.Contains(t, out.Summary, "Canceled")
	assert.Empty(t, tasks.updates)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = m.Cancel(ctx, a.ID, "u1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestConfirmDryRun(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, _ := setup(t, true)

	a, err := m.Propose(ctx, pending.Defer, "task-1", "u1", pending.Details{Days: 1})
	require.NoError(t, err)

	out, err := m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.Equal(t, "2026-02-28", out.Mutation.Due)
	assert.Empty(t, tasks.updates)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConfirmUpstreamFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "task-1", "u1", pending.Details{})
	require.NoError(t, err)

	tasks.updateErr = errors.New("502 bad gateway")
	_, err = m.Confirm(ctx, a.ID, "u1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Upstream))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	tasks.updateErr = nil
	_, err = m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.True(t, tasks.updates["task-1"].MarkDone)
}

type stuckStore struct {
	pending.Store
}

func (stuckStore) Delete(context.Context, string) error { return errors.New("disk full") }

func TestConfirmLogsEntryLeftAfterUpdate(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	store := stuckStore{pending.NewFileStore(filepath.Join(t.TempDir(), "state.json"))}
	tasks := newFakeTasks(model.Task{ID: "task-1", Title: "Ship release", Due: "2026-02-27"})
	m := NewMachine(store, tasks, 30*time.Minute, false, logging.New("info", "text", &buf)).
		WithClock(func() time.Time { return now })

	a, err := m.Propose(ctx, pending.Defer, "task-1", "u1", pending.Details{Days: 3})
	require.NoError(t, err)

	out, err := m.Confirm(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Deferred: Ship release +3d -> 2026-03-02", out.Summary)
	assert.Equal(t, model.Mutation{Due: "2026-03-02"}, tasks.updates["task-1"])
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "id="+a.ID)
}

func TestConfirmMissingTask(t *testing.T) {
	ctx := context.Background()
	m, _, _, _, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "gone", "u1", pending.Details{})
	require.NoError(t, err)

	_, err = m.Confirm(ctx, a.ID, "u1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestConfirmDeferWithoutDueKeepsEntry(t *testing.T) {
	ctx := context.Background()
	m, tasks, store, _, _ := setup(t, false)
	tasks.tasks["undated"] = model.Task{ID: "undated", Title: "Someday"}

	a, err := m.Propose(ctx, pending.Defer, "undated", "u1", pending.Details{Days: 2})
	require.NoError(t, err)

	_, err = m.Confirm(ctx, a.ID, "u1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Empty(t, tasks.updates)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestProposeRejectsInvalidWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	m, _, store, c, _ := setup(t, false)

	_, err := m.Propose(ctx, pending.Reschedule, "task-1", "u1", pending.Details{TargetDate: "tomorrow"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))

	n, err := store.PruneExpired(ctx, c.t.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	m, _, store, c, _ := setup(t, false)

	a, err := m.Propose(ctx, pending.Done, "task-1", "u1", pending.Details{})
	require.NoError(t, err)

	c.t = c.t.Add(31 * time.Minute)
	require.NoError(t, m.Prune(ctx))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
