// Package schedule runs the morning and evening digests on a cron schedule
// and gates externally scheduled runs to their configured local hour.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
)

// Both selects the morning and the evening digest.
const Both = "both"

// ParseModes expands a digest mode argument.
func ParseModes(mode string) ([]model.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(model.MORNING):
		return []model.Mode{model.MORNING}, nil
	case string(model.EVENING):
		return []model.Mode{model.EVENING}, nil
	case Both, "":
		return []model.Mode{model.MORNING, model.EVENING}, nil
	default:
		return nil, apperr.New(apperr.Validation, "invalid mode %q: use morning, evening, or both", mode)
	}
}

// ShouldRunThisHour reports whether mode is due at the local hour.
func ShouldRunThisHour(mode model.Mode, hour int, cfg config.ScheduleConfig) bool {
	switch mode {
	case model.MORNING:
		return hour == cfg.MorningHour
	case model.EVENING:
		return hour == cfg.EveningHour
	default:
		return hour == cfg.MorningHour || hour == cfg.EveningHour
	}
}

// DueModes keeps the modes whose hour matches now in loc.
func DueModes(modes []model.Mode, now time.Time, loc *time.Location, cfg config.ScheduleConfig) []model.Mode {
	hour := now.In(loc).Hour()
	var out []model.Mode
	for _, m := range modes {
		if ShouldRunThisHour(m, hour, cfg) {
			out = append(out, m)
		}
	}
	return out
}

// RunFunc produces one digest.
type RunFunc func(ctx context.Context, mode model.Mode)

// Scheduler fires RunFunc at the top of the morning and evening hours.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New registers both digests in the configured timezone. Overlapping runs
// of the same job are skipped.
func New(cfg *config.Config, run RunFunc, log *slog.Logger) (*Scheduler, error) {
	log = logging.OrDiscard(log)
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	jobs := []struct {
		mode model.Mode
		hour int
	}{
		{model.MORNING, cfg.Schedule.MorningHour},
		{model.EVENING, cfg.Schedule.EveningHour},
	}
	for _, job := range jobs {
		if job.hour < 0 || job.hour > 23 {
			return nil, apperr.New(apperr.Configuration, "invalid %s hour %d", job.mode, job.hour)
		}
		mode := job.mode
		if _, err := c.AddFunc(Spec(job.hour), func() { run(context.Background(), mode) }); err != nil {
			return nil, apperr.Wrap(apperr.Configuration, err, "unable to schedule %s digest", mode)
		}
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Spec is the cron expression for the top of hour.
func Spec(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// Next returns the upcoming run times, earliest first.
func (s *Scheduler) Next() []time.Time {
	var out []time.Time
	for _, e := range s.cron.Entries() {
		out = append(out, e.Schedule.Next(time.Now()))
	}
	return out
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info("digest scheduler started", "jobs", len(s.cron.Entries()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("digest scheduler stopped")
	return nil
}
