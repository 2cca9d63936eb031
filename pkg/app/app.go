// Package app wires configuration into the concrete sources, the digest
// pipeline and the bot.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/harrisonrobin/agenda/pkg/actions"
	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/bot"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/dailylog"
	"github.com/harrisonrobin/agenda/pkg/digest"
	"github.com/harrisonrobin/agenda/pkg/google"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/metrics"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/notify"
	"github.com/harrisonrobin/agenda/pkg/notion"
	"github.com/harrisonrobin/agenda/pkg/orgmode"
	"github.com/harrisonrobin/agenda/pkg/pending"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/summary"
	"github.com/harrisonrobin/agenda/pkg/taskwarrior"
)

// NewTaskSource returns the configured task backend.
func NewTaskSource(cfg *config.Config, log *slog.Logger) (source.TaskSource, error) {
	switch cfg.Source.Kind {
	case "notion":
		return notion.New(cfg.Source.Notion, cfg.Scoring.DefaultEstimatedMinutes, log)
	case "taskwarrior":
		client := taskwarrior.NewClient(cfg.Source.Taskwarrior.Binary, nil)
		return taskwarrior.NewSource(client, cfg.Source.Taskwarrior.Filter, cfg.Location(), cfg.Scoring.DefaultEstimatedMinutes, log), nil
	case "org":
		return orgmode.NewSource(cfg.Source.Org.Files, cfg.Location(), cfg.Scoring.DefaultEstimatedMinutes, log), nil
	default:
		return nil, apperr.New(apperr.Configuration, "invalid task source %q: use notion, taskwarrior, or org", cfg.Source.Kind)
	}
}

// NewCalendar returns the calendar source, or nil when none is configured or
// it cannot be reached. Capacity then reports unknown.
func NewCalendar(ctx context.Context, cfg *config.Config, log *slog.Logger) digest.CalendarSource {
	log = logging.OrDiscard(log)
	if !cfg.CalendarConfigured() {
		log.Info("calendar not configured, capacity will be unknown")
		return nil
	}
	cal, err := google.NewClient(ctx, cfg, log)
	if err != nil {
		log.Warn("calendar unavailable, capacity will be unknown", "error", err)
		return nil
	}
	return cal
}

// NewSummarizer returns the AI summarizer, or nil when disabled.
func NewSummarizer(ctx context.Context, cfg *config.Config, log *slog.Logger) digest.Summarizer {
	log = logging.OrDiscard(log)
	if !cfg.Summary.Enabled {
		return nil
	}
	s, err := summary.New(ctx, cfg.Summary, log)
	if err != nil {
		log.Warn("ai summary disabled", "error", err)
		return nil
	}
	return s
}

// App holds the long-lived components shared by every command.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Tasks   source.TaskSource
	Digests *digest.Service
	Metrics *metrics.Metrics
}

// New builds the task source and digest service. m may be nil.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*App, error) {
	log = logging.OrDiscard(log)
	tasks, err := NewTaskSource(cfg, log)
	if err != nil {
		return nil, err
	}
	planner := digest.NewPlanner(cfg, NewCalendar(ctx, cfg, log))
	svc := digest.NewService(cfg, tasks, planner, NewSummarizer(ctx, cfg, log), log)
	return &App{Config: cfg, Log: log, Tasks: tasks, Digests: svc, Metrics: m}, nil
}

// RenderOptions are the configured digest size limits.
func (a *App) RenderOptions() digest.RenderOptions {
	return digest.RenderOptions{
		MaxLines:           a.Config.Notifier.MaxLines,
		MaxTasksPerSection: a.Config.Notifier.MaxTasksPerSection,
	}
}

// Runner computes, posts and logs digests.
type Runner struct {
	app      *App
	notifier notify.Notifier
}

// NewRunner attaches the configured notifier.
func (a *App) NewRunner() (*Runner, error) {
	n, err := notify.New(a.Config, a.Log)
	if err != nil {
		return nil, err
	}
	return &Runner{app: a, notifier: n}, nil
}

// Run produces one digest. The daily log is written only after the post
// succeeds.
func (r *Runner) Run(ctx context.Context, mode model.Mode) error {
	start := time.Now()
	outcome := "sent"
	defer func() {
		r.app.Metrics.ObserveDigest(string(mode), outcome, time.Since(start))
	}()

	d, err := r.app.Digests.Compute(ctx, mode)
	if err != nil {
		outcome = "failed"
		return err
	}
	text := digest.Text(d, r.app.RenderOptions())
	if err := r.notifier.Notify(ctx, text); err != nil {
		outcome = "failed"
		return err
	}

	path, err := dailylog.Write(r.app.Config.LogDir, dailylog.FromDigest(d))
	if err != nil {
		outcome = "failed"
		return err
	}
	r.app.Log.Info("digest posted", "mode", mode, "date", d.Today, "tasks", len(d.Ranked), "log", path)
	return nil
}

// RunLogged runs mode and logs a failure instead of returning it; the
// scheduler uses it.
func (r *Runner) RunLogged(ctx context.Context, mode model.Mode) {
	if err := r.Run(ctx, mode); err != nil {
		r.app.Log.Error("digest failed", "mode", mode, "kind", apperr.KindOf(err).String(), "error", err)
	}
}

// NewBot opens the pending store and wires the Discord bot. The returned
// store must be closed by the caller.
func (a *App) NewBot() (*bot.Discord, pending.Store, error) {
	cfg := a.Config
	store, err := pending.Open(cfg.Bot.StateBackend, cfg.Bot.StatePath)
	if err != nil {
		return nil, nil, err
	}
	machine := actions.NewMachine(store, a.Tasks, time.Duration(cfg.Bot.TTLMinutes)*time.Minute, cfg.DryRun, a.Log)
	if a.Metrics != nil {
		machine = machine.WithObserver(a.Metrics)
	}
	handler := bot.NewHandler(a.Digests, machine, a.RenderOptions(), cfg.Bot.MaxActionTasks, a.Log)
	discord, err := bot.NewDiscord(cfg.Bot, handler, a.Log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return discord, store, nil
}
