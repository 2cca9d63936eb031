// Package google reads busy time from Google Calendar.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/auth"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// CalendarClient lists the events of one calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
	log        *slog.Logger
}

// NewClient authenticates with the configured credentials and resolves the
// calendar, by id or else by its display name.
func NewClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*CalendarClient, error) {
	httpClient, err := auth.CalendarClient(ctx, cfg.Calendar, log)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, apperr.Wrap(apperr.Configuration, err, "unable to create calendar service")
	}

	calendarID := cfg.Calendar.ID
	if calendarID == "" {
		calendarID, err = findCalendarID(ctx, srv, cfg.Calendar.Name)
		if err != nil {
			return nil, err
		}
	}
	return NewCalendarClient(srv, calendarID, cfg.Location(), log), nil
}

// NewCalendarClient wraps an existing service.
func NewCalendarClient(srv *calendar.Service, calendarID string, loc *time.Location, log *slog.Logger) *CalendarClient {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, loc: loc, log: logging.OrDiscard(log)}
}

func findCalendarID(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, err, "unable to retrieve calendar list")
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", apperr.New(apperr.Configuration, "calendar '%s' not found", name)
}

// ListEventsForDay returns the expanded events overlapping the local day.
func (c *CalendarClient) ListEventsForDay(ctx context.Context, date string) ([]model.CalendarEvent, error) {
	dayStart, err := util.AtHour(date, 0, c.loc)
	if err != nil {
		return nil, err
	}
	next, err := util.ShiftDate(date, 1)
	if err != nil {
		return nil, err
	}
	dayEnd, err := util.AtHour(next, 0, c.loc)
	if err != nil {
		return nil, err
	}

	var events []model.CalendarEvent
	call := c.srv.Events.List(c.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			e, err := ToEvent(item)
			if err != nil {
				c.log.Warn("skipping calendar event", "event_id", item.Id, "error", err)
				continue
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return events, nil
}

// ToEvent converts an API event. Events with a date but no time are all-day.
func ToEvent(e *calendar.Event) (model.CalendarEvent, error) {
	out := model.CalendarEvent{Summary: e.Summary}
	if e.Start == nil || e.End == nil {
		return out, fmt.Errorf("event %s has no start or end", e.Id)
	}
	for _, a := range e.Attendees {
		if a.Self {
			out.SelfDeclined = a.ResponseStatus == "declined"
			break
		}
	}
	if e.Start.Date != "" || e.End.Date != "" {
		out.AllDay = true
		return out, nil
	}

	start, err := time.Parse(time.RFC3339, e.Start.DateTime)
	if err != nil {
		return out, err
	}
	end, err := time.Parse(time.RFC3339, e.End.DateTime)
	if err != nil {
		return out, err
	}
	out.Start, out.End = start, end
	return out, nil
}
