package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/digest"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/metrics"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/orgmode"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/taskwarrior"
)

type staticSource struct{ tasks []model.Task }

func (s *staticSource) Query(context.Context, source.Filter) ([]model.Task, error) { return s.tasks, nil }

func (s *staticSource) Get(context.Context, string) (model.Task, error) { return model.Task{}, nil }

func (s *staticSource) Update(context.Context, string, model.Mutation) error { return nil }

type captureNotifier struct {
	texts []string
	err   error
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return c.err
}

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		LogDir:   t.TempDir(),
		Notifier: config.NotifierConfig{MaxLines: 15, MaxTasksPerSection: 2},
		Scoring: config.ScoringConfig{
			WPriority: 0.5, WDue: 0.35, WStale: 0.15, StalenessCapDays: 30,
			DueSoonDays: 3, DueWindowDays: 7, ProjectDiversityMaxPerProject: 2,
			HighPriorityValues: []string{"p0"},
		},
	}
	today := time.Now().UTC().Format("2006-01-02")
	src := &staticSource{tasks: []model.Task{{ID: "t1", Title: "Ship", Priority: "p0", Due: today, Project: "alpha", EstimatedMinutes: 30}}}
	svc := digest.NewService(cfg, src, digest.NewPlanner(cfg, nil), nil, nil)
	return &App{Config: cfg, Log: logging.Discard(), Tasks: src, Digests: svc, Metrics: metrics.MustNewMetrics(prometheus.NewRegistry())}
}

func TestRunnerPostsThenLogs(t *testing.T) {
	a := testApp(t)
	n := &captureNotifier{}
	r := &Runner{app: a, notifier: n}

	require.NoError(t, r.Run(context.Background(), model.MORNING))
	require.Len(t, n.texts, 1)
	assert.True(t, strings.HasPrefix(n.texts[0], "DAILY DIGEST |"))
	assert.Contains(t, n.texts[0], "Ship")

	entries, err := os.ReadDir(a.Config.LogDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "-morning.json"))
}

func TestRunnerSkipsLogWhenPostFails(t *testing.T) {
	a := testApp(t)
	r := &Runner{app: a, notifier: &captureNotifier{err: errors.New("webhook down")}}

	require.Error(t, r.Run(context.Background(), model.EVENING))
	entries, err := os.ReadDir(a.Config.LogDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewTaskSource(t *testing.T) {
	cfg := &config.Config{Source: config.SourceConfig{Kind: "taskwarrior"}}
	src, err := NewTaskSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &taskwarrior.Source{}, src)

	cfg.Source.Kind = "org"
	src, err = NewTaskSource(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &orgmode.Source{}, src)

	cfg.Source.Kind = "notion"
	_, err = NewTaskSource(cfg, nil)
	assert.True(t, apperr.Is(err, apperr.Configuration))

	cfg.Source.Kind = "jira"
	_, err = NewTaskSource(cfg, nil)
	assert.True(t, apperr.Is(err, apperr.Configuration))
}

func TestOptionalCollaboratorsDegradeToNil(t *testing.T) {
	cfg := &config.Config{Summary: config.SummaryConfig{Enabled: true}}
	assert.Nil(t, NewSummarizer(context.Background(), cfg, nil))
	assert.Nil(t, NewCalendar(context.Background(), cfg, nil))
}

func TestNewBotUsesConfiguredStore(t *testing.T) {
	a := testApp(t)
	a.Config.Bot = config.BotConfig{
		Token: "x", AppID: "app", GuildID: "guild",
		StateBackend: "sqlite", StatePath: filepath.Join(t.TempDir(), "state.db"),
		TTLMinutes: 30, MaxActionTasks: 10,
	}

	discord, store, err := a.NewBot()
	require.NoError(t, err)
	defer store.Close()
	assert.NotNil(t, discord)
	assert.FileExists(t, a.Config.Bot.StatePath)
}
