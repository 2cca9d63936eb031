package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	tasks   []model.Task
	edited  []model.Task
	dueOn   []model.Task
	err     error
	filters []source.Filter
}

func (f *fakeSource) Query(_ context.Context, filter source.Filter) ([]model.Task, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	switch {
	case filter.EditedOnOrAfter != "":
		return f.edited, nil
	case filter.DueOn != "":
		return f.dueOn, nil
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.Due == "" || t.Due <= filter.DueOnOrBefore {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) Get(_ context.Context, id string) (model.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, errors.New("not found")
}

func (f *fakeSource) Update(context.Context, string, model.Mutation) error { return nil }

type fakeSummarizer struct {
	note   string
	ranked int
}

func (f *fakeSummarizer) Summarize(_ context.Context, ranked []model.ScoredTask, _ string) string {
	f.ranked = len(ranked)
	return f.note
}

func testConfig() *config.Config {
	return &config.Config{
		Scoring: config.ScoringConfig{
			WPriority:                     0.5,
			WDue:                          0.35,
			WStale:                        0.15,
			StalenessCapDays:              30,
			DueSoonDays:                   3,
			DueWindowDays:                 7,
			ProjectDiversityMaxPerProject: 2,
			HighPriorityValues:            []string{"p0"},
			ClosedStatuses:                []string{"done"},
		},
	}
}

// 2026-02-27 10:00 UTC
var testNow = func() time.Time { return time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC) }

func task(id, due, project string, minutes int) model.Task {
	return model.Task{
		ID: id, Title: "task " + id, Priority: "p0", Status: "Todo",
		Due: due, Project: project, EstimatedMinutes: minutes,
		LastEditedAt: time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeMorning(t *testing.T) {
	src := &fakeSource{tasks: []model.Task{
		task("late", "2026-02-20", "alpha", 60),
		task("today", "2026-02-27", "alpha", 60),
		task("soon", "2026-03-01", "beta", 60),
		task("window-edge", "2026-03-06", "gamma", 30),
		task("beyond", "2026-03-07", "gamma", 30),
		{ID: "closed", Priority: "p0", Status: "Done", Due: "2026-02-27"},
		{ID: "low", Priority: "p2", Status: "Todo", Due: "2026-02-27"},
		{ID: "undated", Priority: "p0", Status: "Todo"},
	}}
	cal := &fakeCalendar{events: []model.CalendarEvent{
		{Start: utcAt(9, 0), End: utcAt(15, 0)},
	}}
	summ := &fakeSummarizer{note: "focus on the late item"}

	svc := NewService(testConfig(), src, newTestPlanner(cal), summ, nil).WithClock(testNow)
	d, err := svc.Compute(context.Background(), model.MORNING)
	require.NoError(t, err)

	require.Len(t, src.filters, 1)
	assert.Equal(t, "2026-03-06", src.filters[0].DueOnOrBefore)

	assert.Equal(t, "2026-02-27", d.Today)
	assert.Equal(t, []string{"late", "today", "soon", "window-edge"}, ids(d.Ranked))
	assert.Equal(t, 1, d.Count(model.OVERDUE))
	assert.Equal(t, 1, d.Count(model.DUE_TODAY))
	assert.Equal(t, 1, d.Count(model.DUE_SOON))
	assert.Equal(t, 1, d.Count(model.LATER))
	assert.Equal(t, []string{"late", "today", "soon"}, ids(d.Top))

	// 540 window - 360 busy - 60 buffer = 120 free vs 180 planned.
	assert.True(t, d.Capacity.Available)
	assert.Equal(t, 120, d.Capacity.FreeMinutes)
	assert.Equal(t, 180, d.Capacity.RequiredMinutes)
	assert.Equal(t, CONSTRAINED_DAY, d.Capacity.Status)
	require.NotNil(t, d.SuggestedDefer)
	assert.Equal(t, "soon", d.SuggestedDefer.ID)

	assert.Equal(t, "focus on the late item", d.AISummary)
	assert.Equal(t, 4, summ.ranked)
	assert.Nil(t, d.Progress)
}

func TestComputeEveningIncludesProgress(t *testing.T) {
	src := &fakeSource{
		tasks: []model.Task{
			task("today", "2026-02-27", "alpha", 30),
			task("tomorrow", "2026-02-28", "alpha", 30),
		},
		edited: []model.Task{
			{ID: "a", Status: "Done"},
			{ID: "b", Done: true},
			{ID: "c", Status: "In progress"},
		},
		dueOn: []model.Task{
			{ID: "d", Status: "Todo"},
			{ID: "e", Status: "done"},
		},
	}

	svc := NewService(testConfig(), src, newTestPlanner(nil), nil, nil).WithClock(testNow)
	d, err := svc.Compute(context.Background(), model.EVENING)
	require.NoError(t, err)

	assert.Equal(t, "2026-02-27", src.filters[0].DueOnOrBefore)
	assert.Equal(t, []string{"today"}, ids(d.Ranked))
	require.NotNil(t, d.Progress)
	assert.Equal(t, 2, d.Progress.CompletedToday)
	assert.Equal(t, 1, d.Progress.PendingDueToday)
	assert.False(t, d.Capacity.Available)
	assert.Nil(t, d.SuggestedDefer)
	assert.Empty(t, d.AISummary)
}

func TestComputeQueryFailureIsFatal(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	svc := NewService(testConfig(), src, newTestPlanner(nil), nil, nil).WithClock(testNow)

	_, err := svc.Compute(context.Background(), model.MORNING)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestComputeDegradesOnCalendarFailure(t *testing.T) {
	src := &fakeSource{tasks: []model.Task{task("today", "2026-02-27", "alpha", 30)}}
	cal := &fakeCalendar{err: errors.New("calendar down")}
	svc := NewService(testConfig(), src, newTestPlanner(cal), nil, nil).WithClock(testNow)

	d, err := svc.Compute(context.Background(), model.MORNING)
	require.NoError(t, err)
	assert.False(t, d.Capacity.Available)
	assert.Equal(t, UNKNOWN_DAY, d.Capacity.Status)
	assert.Equal(t, 30, d.Capacity.RequiredMinutes)
}

func TestComputeEmptySource(t *testing.T) {
	svc := NewService(testConfig(), &fakeSource{}, newTestPlanner(&fakeCalendar{}), nil, nil).WithClock(testNow)
	d, err := svc.Compute(context.Background(), model.MORNING)
	require.NoError(t, err)
	assert.Empty(t, d.Ranked)
	assert.Empty(t, d.Top)
	assert.Equal(t, BALANCED_DAY, d.Capacity.Status)
	assert.Nil(t, d.SuggestedDefer)

	text := Text(d, RenderOptions{MaxLines: 15, MaxTasksPerSection: 2})
	assert.True(t, strings.HasPrefix(text, "DAILY DIGEST | Feb 27, 2026"))
	assert.NotContains(t, text, "TOP 3")
}
