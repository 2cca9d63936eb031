package digest

import (
	"context"
	"math"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// Day status values of a CapacitySnapshot.
const (
	BALANCED_DAY    = "balanced_day"
	CONSTRAINED_DAY = "constrained_day"
	UNKNOWN_DAY     = "unknown"
)

// CalendarSource lists the events of one local calendar day.
type CalendarSource interface {
	ListEventsForDay(ctx context.Context, date string) ([]model.CalendarEvent, error)
}

// Capacity compares free focus time today against the planned effort.
// FreeMinutes and BusyMinutes are meaningful only when Available is true.
type Capacity struct {
	Available       bool
	FreeMinutes     int
	RequiredMinutes int
	BusyMinutes     int
	Status          string
}

// Unavailable is the snapshot used when no calendar can be consulted.
func Unavailable(requiredMinutes int) Capacity {
	return Capacity{RequiredMinutes: requiredMinutes, Status: UNKNOWN_DAY}
}

// Planner estimates today's free focus time from calendar busy intervals.
type Planner struct {
	// Calendar is nil when no calendar is configured.
	Calendar           CalendarSource
	Location           *time.Location
	WorkdayStartHour   int
	WorkdayEndHour     int
	FocusBufferMinutes int
}

// NewPlanner builds a planner from configuration. cal may be nil.
func NewPlanner(cfg *config.Config, cal CalendarSource) *Planner {
	return &Planner{
		Calendar:           cal,
		Location:           cfg.Location(),
		WorkdayStartHour:   cfg.Calendar.WorkdayStartHour,
		WorkdayEndHour:     cfg.Calendar.WorkdayEndHour,
		FocusBufferMinutes: cfg.Calendar.FocusBufferMinutes,
	}
}

// WorkWindow returns [start, end) of the work window on date. An empty or
// inverted window is a configuration error.
func (p *Planner) WorkWindow(date string) (time.Time, time.Time, error) {
	if p.WorkdayStartHour < 0 || p.WorkdayEndHour > 24 || p.WorkdayEndHour <= p.WorkdayStartHour {
		return time.Time{}, time.Time{}, apperr.New(apperr.Configuration,
			"invalid workday window %d-%d: end hour must be after start hour", p.WorkdayStartHour, p.WorkdayEndHour)
	}
	start, err := util.AtHour(date, p.WorkdayStartHour, p.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := util.AtHour(date, p.WorkdayEndHour, p.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Plan computes the capacity snapshot for date given the selected tasks.
func (p *Planner) Plan(ctx context.Context, date string, selected []model.ScoredTask) (Capacity, error) {
	required := 0
	for _, t := range selected {
		required += t.EstimatedMinutes
	}
	if p.Calendar == nil {
		return Unavailable(required), nil
	}

	start, end, err := p.WorkWindow(date)
	if err != nil {
		return Unavailable(required), err
	}

	events, err := p.Calendar.ListEventsForDay(ctx, date)
	if err != nil {
		return Unavailable(required), apperr.Wrap(apperr.Upstream, err, "list calendar events")
	}

	busy := BusyMinutes(events, start, end)
	free := max(0, minutesBetween(start, end)-busy-p.FocusBufferMinutes)
	status := CONSTRAINED_DAY
	if required <= free {
		status = BALANCED_DAY
	}
	return Capacity{
		Available:       true,
		FreeMinutes:     free,
		RequiredMinutes: required,
		BusyMinutes:     busy,
		Status:          status,
	}, nil
}

// BusyMinutes sums the parts of timed, accepted events that fall inside
// [start, end). All-day and self-declined events are free time.
func BusyMinutes(events []model.CalendarEvent, start, end time.Time) int {
	busy := 0
	for _, e := range events {
		if e.AllDay || e.SelfDeclined {
			continue
		}
		s := e.Start
		if s.Before(start) {
			s = start
		}
		f := e.End
		if f.After(end) {
			f = end
		}
		if f.After(s) {
			busy += minutesBetween(s, f)
		}
	}
	return busy
}

func minutesBetween(start, end time.Time) int {
	return max(0, int(math.Round(end.Sub(start).Minutes())))
}

// SuggestDefer nominates the lowest scoring task of the top selection when
// the day is known to be over capacity. Ties keep the earlier task.
func SuggestDefer(top []model.ScoredTask, c Capacity) *model.ScoredTask {
	if !c.Available || c.Status != CONSTRAINED_DAY || len(top) == 0 {
		return nil
	}
	pick := top[0]
	for _, t := range top[1:] {
		if t.Score < pick.Score {
			pick = t
		}
	}
	return &pick
}
