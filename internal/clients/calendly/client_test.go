package calendly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"receptionist-server/internal/observability"
)

func TestListAvailableTimesFiltersUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/event_type_available_times" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"collection":[
			{"status":"available","start_time":"2026-09-01T15:00:00Z","scheduling_url":"https://calendly.com/d/abc"},
			{"status":"unavailable","start_time":"2026-09-01T16:00:00Z","scheduling_url":"https://calendly.com/d/def"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", observability.NewLogger())
	slots, err := client.ListAvailableTimes(context.Background(), "https://api.calendly.com/event_types/et-1",
		time.Now(), time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListAvailableTimes: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if slots[0].SchedulingURL != "https://calendly.com/d/abc" {
		t.Errorf("scheduling URL = %q", slots[0].SchedulingURL)
	}
}

func TestCreateBookingDerivesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/scheduling_links" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"resource":{"booking_url":"https://calendly.com/d/conf-123"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", observability.NewLogger())
	ref, err := client.CreateBooking(context.Background(), "et-1",
		time.Now(), time.Now().Add(30*time.Minute), Invitee{Name: "Pat Doe"})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if ref.ID != "conf-123" {
		t.Errorf("booking ID = %q, want conf-123", ref.ID)
	}
}

func TestAPIStatusErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", observability.NewLogger())
	err := client.CancelEvent(context.Background(), "ev-1", "caller request")
	var apiErr *APIStatusError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIStatusError", err)
	}
	if !apiErr.Retryable() {
		t.Error("502 must be retryable")
	}

	notFound := &APIStatusError{StatusCode: http.StatusNotFound}
	if notFound.Retryable() {
		t.Error("404 must not be retryable")
	}
	tooMany := &APIStatusError{StatusCode: http.StatusTooManyRequests}
	if !tooMany.Retryable() {
		t.Error("429 must be retryable")
	}
}
