package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// Summarizer writes a short note about the ranked tasks. It is best effort:
// any failure, or being disabled, yields "".
type Summarizer interface {
	Summarize(ctx context.Context, ranked []model.ScoredTask, today string) string
}

// Progress is the evening tally of today's work.
type Progress struct {
	CompletedToday  int
	PendingDueToday int
}

// Digest is the assembled output of one pipeline run. It is not modified
// after Compute returns it.
type Digest struct {
	Mode           model.Mode
	Today          string
	Ranked         []model.ScoredTask
	Top            []model.ScoredTask
	Capacity       Capacity
	SuggestedDefer *model.ScoredTask
	AISummary      string
	Progress       *Progress
}

// Count returns how many ranked tasks fall in bucket.
func (d *Digest) Count(bucket model.Bucket) int {
	n := 0
	for _, t := range d.Ranked {
		if t.Bucket == bucket {
			n++
		}
	}
	return n
}

// InBucket returns the ranked tasks of one bucket, in rank order.
func (d *Digest) InBucket(bucket model.Bucket) []model.ScoredTask {
	var out []model.ScoredTask
	for _, t := range d.Ranked {
		if t.Bucket == bucket {
			out = append(out, t)
		}
	}
	return out
}

// Service runs the pipeline: fetch, preprocess, score, rank, select,
// plan capacity, nominate a deferral and summarize.
type Service struct {
	cfg        *config.Config
	tasks      source.TaskSource
	planner    *Planner
	summarizer Summarizer
	log        *slog.Logger
	now        func() time.Time
}

// NewService wires a digest service. summarizer may be nil.
func NewService(cfg *config.Config, tasks source.TaskSource, planner *Planner, summarizer Summarizer, log *slog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		tasks:      tasks,
		planner:    planner,
		summarizer: summarizer,
		log:        logging.OrDiscard(log),
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) rules() source.Rules {
	return source.Rules{
		HighPriorityValues: s.cfg.Scoring.HighPriorityValues,
		ClosedStatuses:     s.cfg.Scoring.ClosedStatuses,
	}
}

// Compute builds the digest for mode. Only a failed task query is fatal;
// capacity, progress and summary problems degrade their section.
func (s *Service) Compute(ctx context.Context, mode model.Mode) (*Digest, error) {
	today := util.Today(s.now(), s.cfg.Location())

	filter := source.Filter{DueOnOrBefore: today}
	if mode != model.EVENING {
		end, err := util.ShiftDate(today, s.cfg.Scoring.DueWindowDays)
		if err != nil {
			return nil, err
		}
		filter.DueOnOrBefore = end
	}

	fetched, err := s.tasks.Query(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "query tasks")
	}
	eligible := s.rules().Eligible(fetched)

	var progress *Progress
	if mode == model.EVENING {
		progress, err = s.progress(ctx, today)
		if err != nil {
			s.log.Warn("evening progress unavailable", "error", err)
		}
	}

	weights := WeightsFrom(s.cfg.Scoring)
	scored := make([]model.ScoredTask, 0, len(eligible))
	for _, t := range eligible {
		pre, err := Preprocess(t, today, s.cfg.Scoring.DueSoonDays)
		if err != nil {
			s.log.Warn("skipping task with unusable due date", "task_id", t.ID, "error", err)
			continue
		}
		scored = append(scored, Score(pre, weights))
	}

	ranked := Rank(scored)
	top := SelectTop(ranked, s.cfg.Scoring.ProjectDiversityMaxPerProject)

	capacity, err := s.planner.Plan(ctx, today, top)
	if err != nil {
		s.log.Warn("capacity unavailable", "kind", apperr.KindOf(err).String(), "error", err)
	}

	var summary string
	if s.summarizer != nil {
		summary = s.summarizer.Summarize(ctx, ranked, today)
	}

	return &Digest{
		Mode:           mode,
		Today:          today,
		Ranked:         ranked,
		Top:            top,
		Capacity:       capacity,
		SuggestedDefer: SuggestDefer(top, capacity),
		AISummary:      summary,
		Progress:       progress,
	}, nil
}

func (s *Service) progress(ctx context.Context, today string) (*Progress, error) {
	tomorrow, err := util.ShiftDate(today, 1)
	if err != nil {
		return nil, err
	}
	edited, err := s.tasks.Query(ctx, source.Filter{EditedOnOrAfter: today, EditedBefore: tomorrow})
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "query tasks edited today")
	}
	due, err := s.tasks.Query(ctx, source.Filter{DueOn: today})
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "query tasks due today")
	}

	rules := s.rules()
	p := &Progress{}
	for _, t := range edited {
		if rules.IsClosed(t) {
			p.CompletedToday++
		}
	}
	for _, t := range due {
		if !rules.IsClosed(t) {
			p.PendingDueToday++
		}
	}
	return p, nil
}
