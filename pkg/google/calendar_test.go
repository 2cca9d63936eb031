package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func TestToEvent(t *testing.T) {
	timed, err := ToEvent(&calendar.Event{
		Summary: "standup",
		Start:   &calendar.EventDateTime{DateTime: "2026-02-27T09:00:00-08:00"},
		End:     &calendar.EventDateTime{DateTime: "2026-02-27T09:15:00-08:00"},
	})
	require.NoError(t, err)
	assert.False(t, timed.AllDay)
	assert.Equal(t, 15*time.Minute, timed.End.Sub(timed.Start))

	allDay, err := ToEvent(&calendar.Event{
		Start: &calendar.EventDateTime{Date: "2026-02-27"},
		End:   &calendar.EventDateTime{Date: "2026-02-28"},
	})
	require.NoError(t, err)
	assert.True(t, allDay.AllDay)

	declined, err := ToEvent(&calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "2026-02-27T10:00:00Z"},
		End:   &calendar.EventDateTime{DateTime: "2026-02-27T11:00:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "other@example.com", ResponseStatus: "accepted"},
			{Email: "me@example.com", Self: true, ResponseStatus: "declined"},
		},
	})
	require.NoError(t, err)
	assert.True(t, declined.SelfDeclined)

	_, err = ToEvent(&calendar.Event{Id: "broken"})
	assert.Error(t, err)
}

func TestListEventsForDay(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"path":         r.URL.Path,
			"timeMin":      q.Get("timeMin"),
			"timeMax":      q.Get("timeMax"),
			"singleEvents": q.Get("singleEvents"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"a","summary":"review","start":{"dateTime":"2026-02-27T13:00:00Z"},"end":{"dateTime":"2026-02-27T14:00:00Z"}},
			{"id":"b","summary":"holiday","start":{"date":"2026-02-27"},"end":{"date":"2026-02-28"}},
			{"id":"c","summary":"bad","start":{"dateTime":"not a time"},"end":{"dateTime":"2026-02-27T14:00:00Z"}}
		]}`))
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(server.Client()), option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	client := NewCalendarClient(srv, "team@example.com", la, nil)

	events, err := client.ListEventsForDay(ctx, "2026-02-27")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "review", events[0].Summary)
	assert.True(t, events[1].AllDay)

	assert.Equal(t, "/calendars/team@example.com/events", gotQuery["path"])
	assert.Equal(t, "2026-02-27T00:00:00-08:00", gotQuery["timeMin"])
	assert.Equal(t, "2026-02-28T00:00:00-08:00", gotQuery["timeMax"])
	assert.Equal(t, "true", gotQuery["singleEvents"])
}
