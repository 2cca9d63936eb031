package digest

import (
	"fmt"
	"math"

	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// Weights are the scoring constants. They come from configuration and are
// never computed.
type Weights struct {
	Priority         float64
	Due              float64
	Stale            float64
	OverdueBoost     float64
	StalenessCapDays int
}

// WeightsFrom copies the scoring weights out of the configuration.
func WeightsFrom(s config.ScoringConfig) Weights {
	return Weights{
		Priority:         s.WPriority,
		Due:              s.WDue,
		Stale:            s.WStale,
		OverdueBoost:     s.OverdueBoost,
		StalenessCapDays: s.StalenessCapDays,
	}
}

// BucketFor classifies a due offset. DUE_SOON covers 1..dueSoonDays.
func BucketFor(dueInDays, dueSoonDays int) model.Bucket {
	switch {
	case dueInDays < 0:
		return model.OVERDUE
	case dueInDays == 0:
		return model.DUE_TODAY
	case dueInDays <= dueSoonDays:
		return model.DUE_SOON
	default:
		return model.LATER
	}
}

// Preprocess derives the due offset, bucket and staleness of a task relative
// to today. The task must carry a due date; callers filter undated tasks out.
func Preprocess(t model.Task, today string, dueSoonDays int) (model.ScoredTask, error) {
	dueInDays, err := util.DaysBetween(today, t.Due)
	if err != nil {
		return model.ScoredTask{}, fmt.Errorf("task %s: %w", t.ID, err)
	}

	touch := util.DateOf(t.LastEditedAt)
	if touch == "" {
		touch = util.DateOf(t.CreatedAt)
	}
	if touch == "" {
		touch = today
	}
	sinceTouch, err := util.DaysBetween(touch, today)
	if err != nil {
		return model.ScoredTask{}, fmt.Errorf("task %s: %w", t.ID, err)
	}

	sinceCreated := 0
	if created := util.DateOf(t.CreatedAt); created != "" {
		if d, err := util.DaysBetween(created, today); err == nil {
			sinceCreated = max(0, d)
		}
	}

	return model.ScoredTask{
		Task:               t,
		DueInDays:          dueInDays,
		Overdue:            dueInDays < 0,
		DaysSinceLastTouch: max(0, sinceTouch),
		DaysSinceCreated:   sinceCreated,
		Bucket:             BucketFor(dueInDays, dueSoonDays),
	}, nil
}

// Score fills in the weighted priority, due and staleness components.
//
//	pScore = priorityValue / 5
//	dScore = 1 / (max(dueInDays, 0) + 1)
//	sScore = min(1, log1p(daysSinceLastTouch) / log1p(max(1, stalenessCapDays)))
func Score(t model.ScoredTask, w Weights) model.ScoredTask {
	t.PScore = float64(model.PriorityValue(t.Priority)) / 5
	t.DScore = 1 / float64(max(t.DueInDays, 0)+1)
	staleDen := math.Log1p(float64(max(1, w.StalenessCapDays)))
	t.SScore = math.Min(1, math.Log1p(float64(t.DaysSinceLastTouch))/staleDen)

	t.Score = w.Priority*t.PScore + w.Due*t.DScore + w.Stale*t.SScore
	if t.Overdue {
		t.Score += w.OverdueBoost
	}
	return t
}
