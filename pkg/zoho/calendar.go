package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Event is the write-side representation of a calendar event.
type Event struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// Calendar client for the Zoho Calendar API. The calendar API uses the
// Zoho-oauthtoken header scheme where mail uses Bearer; both are opaque
// tokens from the same grant.
type CalendarClient struct {
	apiClient
}

func NewCalendar(logger *log.Logger, tokens *TokenManager) *CalendarClient {
	return &CalendarClient{apiClient: newAPIClient(logger, tokens, "Zoho-oauthtoken")}
}

// primaryCalendarUID selects the calendar flagged as default, else the first.
func (c *CalendarClient) primaryCalendarUID(ctx context.Context, userID string) (string, error) {
	endpoints, err := c.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return "", err
	}

	var resp calendarsResponse
	if err := c.do(ctx, userID, "GET", endpoints.CalendarURL+"/calendars", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch calendars: %w", err)
	}

	for _, cal := range resp.Calendars {
		if cal.IsDefault {
			return cal.UID, nil
		}
	}
	if len(resp.Calendars) > 0 {
		return resp.Calendars[0].UID, nil
	}

	return "", &NotFoundError{What: "calendar"}
}

// formatEventTime serializes to Zoho's compact UTC format, yyyyMMddTHHmmssZ.
func formatEventTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

type eventDateAndTime struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

type eventData struct {
	Title       string           `json:"title"`
	DateAndTime eventDateAndTime `json:"dateandtime"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Attendees   []eventAttendee  `json:"attendees"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventPayload struct {
	EventData eventData `json:"eventdata"`
}

func buildEventPayload(event Event) eventPayload {
	attendees := make([]eventAttendee, 0, len(event.Attendees))
	for _, email := range event.Attendees {
		attendees = append(attendees, eventAttendee{Email: email})
	}

	return eventPayload{
		EventData: eventData{
			Title: event.Title,
			DateAndTime: eventDateAndTime{
				Start:    formatEventTime(event.Start),
				End:      formatEventTime(event.End),
				Timezone: "UTC",
			},
			Description: event.Description,
			Location:    event.Location,
			Attendees:   attendees,
		},
	}
}

// CreateEvent creates an event on the user's primary calendar.
func (c *CalendarClient) CreateEvent(ctx context.Context, userID string, event Event) (json.RawMessage, error) {
	endpoints, err := c.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendarUID, err := c.primaryCalendarUID(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventsURL := fmt.Sprintf("%s/calendars/%s/events", endpoints.CalendarURL, calendarUID)

	var resp rawResponse
	if err := c.do(ctx, userID, "POST", eventsURL, buildEventPayload(event), &resp); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return resp.Data, nil
}

// ListEvents lists the events of the user's primary calendar.
func (c *CalendarClient) ListEvents(ctx context.Context, userID string) ([]EventRecord, error) {
	endpoints, err := c.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendarUID, err := c.primaryCalendarUID(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventsURL := fmt.Sprintf("%s/calendars/%s/events", endpoints.CalendarURL, calendarUID)

	var resp eventsResponse
	if err := c.do(ctx, userID, "GET", eventsURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return resp.Data, nil
}

// UpdateEvent replaces an event on the user's primary calendar.
func (c *CalendarClient) UpdateEvent(ctx context.Context, userID, eventUID string, event Event) (json.RawMessage, error) {
	endpoints, err := c.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendarUID, err := c.primaryCalendarUID(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventURL := fmt.Sprintf("%s/calendars/%s/events/%s", endpoints.CalendarURL, calendarUID, eventUID)

	var resp rawResponse
	if err := c.do(ctx, userID, "PUT", eventURL, buildEventPayload(event), &resp); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return resp.Data, nil
}

// DeleteEvent removes an event from the user's primary calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, userID, eventUID string) error {
	endpoints, err := c.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return err
	}

	calendarUID, err := c.primaryCalendarUID(ctx, userID)
	if err != nil {
		return err
	}

	eventURL := fmt.Sprintf("%s/calendars/%s/events/%s", endpoints.CalendarURL, calendarUID, eventUID)

	if err := c.do(ctx, userID, "DELETE", eventURL, nil, nil); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}
