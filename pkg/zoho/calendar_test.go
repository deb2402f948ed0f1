package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalendar(t *testing.T, serverURL string) *CalendarClient {
	t.Helper()
	tokens := testTokenManager(t, connectedStore(t), serverURL)
	return NewCalendar(log.New(io.Discard), tokens)
}

func TestFormatEventTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2026, 3, 14, 10, 30, 0, 0, loc)
	assert.Equal(t, "20260314T093000Z", formatEventTime(in))
}

func TestCreateEventTargetsDefaultCalendar(t *testing.T) {
	var payload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zoho-oauthtoken valid-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"calendars":[
			{"uid":"cal-extra","name":"Shared","isdefault":false},
			{"uid":"cal-main","name":"Personal","isdefault":true}
		]}`)
	})
	mux.HandleFunc("/calendars/cal-main/events", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"data":{"uid":"ev-1"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	calendar := testCalendar(t, server.URL)

	start := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	_, err := calendar.CreateEvent(context.Background(), "user-1", Event{
		Title:     "Kickoff",
		Start:     start,
		End:       start.Add(time.Hour),
		Attendees: []string{"jane@acme.com"},
	})
	require.NoError(t, err)

	require.NotNil(t, payload)
	eventData, ok := payload["eventdata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Kickoff", eventData["title"])

	dateAndTime, ok := eventData["dateandtime"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "20260901T150000Z", dateAndTime["start"])
	assert.Equal(t, "20260901T160000Z", dateAndTime["end"])
	assert.Equal(t, "UTC", dateAndTime["timezone"])

	attendees, ok := eventData["attendees"].([]any)
	require.True(t, ok)
	require.Len(t, attendees, 1)
	assert.Equal(t, map[string]any{"email": "jane@acme.com"}, attendees[0])
}

func TestPrimaryCalendarFallsBackToFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"calendars":[
			{"uid":"cal-a","name":"A","isdefault":false},
			{"uid":"cal-b","name":"B","isdefault":false}
		]}`)
	})
	mux.HandleFunc("/calendars/cal-a/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"uid":"ev-1","title":"Standup"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	calendar := testCalendar(t, server.URL)

	events, err := calendar.ListEvents(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
}

func TestNoCalendarsIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"calendars":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	calendar := testCalendar(t, server.URL)

	_, err := calendar.ListEvents(context.Background(), "user-1")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteEventHitsEventURL(t *testing.T) {
	deleted := false
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"calendars":[{"uid":"cal-main","name":"Personal","isdefault":true}]}`)
	})
	mux.HandleFunc("/calendars/cal-main/events/ev-9", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = true
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	calendar := testCalendar(t, server.URL)

	require.NoError(t, calendar.DeleteEvent(context.Background(), "user-1", "ev-9"))
	assert.True(t, deleted)
}

func TestCalendarRetriesOnceWithForcedRefreshOn401(t *testing.T) {
	calendarCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"renewed-token","expires_in":3600}`)
	})
	mux.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
		calendarCalls++
		if r.Header.Get("Authorization") != "Zoho-oauthtoken renewed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid token"}`)
			return
		}
		fmt.Fprint(w, `{"calendars":[{"uid":"cal-main","name":"Personal","isdefault":true}]}`)
	})
	mux.HandleFunc("/calendars/cal-main/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	calendar := testCalendar(t, server.URL)

	events, err := calendar.ListEvents(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, calendarCalls)
}
