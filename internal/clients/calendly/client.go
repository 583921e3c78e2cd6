package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receptionist-server/internal/observability"
)

// APIStatusError is returned when Calendly responds with a non-success
// status. Callers classify retryability from the status code.
type APIStatusError struct {
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("calendly: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is worth retrying.
func (e *APIStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AvailableTime is one open slot on an event type's schedule.
type AvailableTime struct {
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	SchedulingURL string    `json:"scheduling_url"`
}

// Invitee identifies who the appointment is booked for.
type Invitee struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// BookingRef references a created booking.
type BookingRef struct {
	// ID is the trailing identifier of the booking URL, spoken to the
	// caller as the confirmation ID.
	ID         string
	BookingURL string
}

// Client is a typed HTTP client for the Calendly v2 API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a Calendly API client.
func NewClient(baseURL, apiToken string, logger *observability.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// ListAvailableTimes fetches the open slots for an event type between from and to.
func (c *Client) ListAvailableTimes(ctx context.Context, eventType string, from, to time.Time) ([]AvailableTime, error) {
	query := url.Values{}
	query.Set("event_type", eventType)
	query.Set("start_time", from.UTC().Format(time.RFC3339))
	query.Set("end_time", to.UTC().Format(time.RFC3339))

	var response struct {
		Collection []AvailableTime `json:"collection"`
	}
	if err := c.do(ctx, http.MethodGet, "/event_type_available_times?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}

	available := make([]AvailableTime, 0, len(response.Collection))
	for _, slot := range response.Collection {
		if slot.Status == "" || slot.Status == "available" {
			available = append(available, slot)
		}
	}
	return available, nil
}

// CreateBooking creates a single-use scheduling link pinned to one slot,
// which reserves the appointment for the invitee.
func (c *Client) CreateBooking(ctx context.Context, eventType string, start, end time.Time, invitee Invitee) (BookingRef, error) {
	payload := map[string]any{
		"owner":           eventType,
		"owner_type":      "EventType",
		"max_event_count": 1,
		"start_time":      start.UTC().Format(time.RFC3339),
		"end_time":        end.UTC().Format(time.RFC3339),
		"invitees":        []Invitee{invitee},
	}

	var response struct {
		Resource struct {
			BookingURL string `json:"booking_url"`
		} `json:"resource"`
	}
	if err := c.do(ctx, http.MethodPost, "/scheduling_links", payload, &response); err != nil {
		return BookingRef{}, err
	}
	if response.Resource.BookingURL == "" {
		return BookingRef{}, fmt.Errorf("calendly: scheduling link response missing booking_url")
	}

	return BookingRef{
		ID:         bookingIDFromURL(response.Resource.BookingURL),
		BookingURL: response.Resource.BookingURL,
	}, nil
}

// CancelEvent cancels a scheduled event.
func (c *Client) CancelEvent(ctx context.Context, eventID, reason string) error {
	payload := map[string]string{"reason": reason}
	path := fmt.Sprintf("/scheduled_events/%s/cancellation", url.PathEscape(eventID))
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("calendly: failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("calendly: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendly: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		apiErr := &APIStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		c.logger.Error(ctx, "calendly API error", apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("calendly: failed to decode response: %w", err)
	}
	return nil
}

func bookingIDFromURL(bookingURL string) string {
	trimmed := strings.TrimRight(bookingURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
