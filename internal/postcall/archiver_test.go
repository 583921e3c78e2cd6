package postcall

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"
	"receptionist-server/internal/store"
)

type fakeRecorder struct {
	sessions      int
	bookings      []string
	documents     []string
	sessionErr    error
	transcript    json.RawMessage
	archivedState string
}

func (f *fakeRecorder) CreateCallSession(ctx context.Context, callSID, callerNumber, state string,
	transcript json.RawMessage, startedAt, endedAt time.Time) (*store.CallSessionRecord, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessions++
	f.transcript = transcript
	f.archivedState = state
	return &store.CallSessionRecord{CallSID: callSID}, nil
}

func (f *fakeRecorder) CreateBooking(ctx context.Context, callSID, callerNumber, callerName, action, doctor string,
	slotStart, slotEnd *time.Time, confirmationID string) (*store.Booking, error) {
	f.bookings = append(f.bookings, confirmationID)
	return &store.Booking{ConfirmationID: confirmationID}, nil
}

func (f *fakeRecorder) CreateConfirmationDocument(ctx context.Context, confirmationID string, pdf []byte) (*store.ConfirmationDocument, error) {
	f.documents = append(f.documents, confirmationID)
	return &store.ConfirmationDocument{ConfirmationID: confirmationID}, nil
}

type fakeSMS struct {
	bodies []string
	to     []string
	err    error
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return "SM123", nil
}

type fakeEmail struct {
	attachments [][]byte
	subjects    []string
}

func (f *fakeEmail) SendEmailWithAttachment(ctx context.Context, from, to, subject, htmlContent,
	filename string, attachment []byte) (string, error) {
	f.subjects = append(f.subjects, subject)
	f.attachments = append(f.attachments, attachment)
	return "email-1", nil
}

func confirmedArchive() call.Archive {
	start := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	intent := &call.AppointmentIntent{
		Action:         call.ActionBook,
		Doctor:         "Dr. Smith",
		Chosen:         &call.Slot{Start: start, End: start.Add(30 * time.Minute), Doctor: "Dr. Smith"},
		ConfirmationID: "conf-123",
		Status:         call.ConfirmationConfirmed,
	}
	return call.Archive{
		CallSID:      "CA100",
		CallerNumber: "+15551234567",
		State:        call.StateEnded,
		Turns: []call.Turn{
			{Speaker: call.SpeakerCaller, Utterance: "book me Tuesday at 3pm", At: start},
		},
		Intent:    intent,
		StartedAt: start.Add(-2 * time.Minute),
		EndedAt:   start,
	}
}

func newTestArchiver(recorder *fakeRecorder, sms *fakeSMS, email *fakeEmail) *Archiver {
	return NewArchiver(recorder, sms, email,
		"noreply@clinic.example.com", "frontdesk@clinic.example.com", "Maple Street Clinic",
		observability.NewLogger())
}

func TestArchiveConfirmedBooking(t *testing.T) {
	recorder := &fakeRecorder{}
	sms := &fakeSMS{}
	email := &fakeEmail{}

	err := newTestArchiver(recorder, sms, email).ArchiveSession(context.Background(), confirmedArchive())
	if err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}

	if recorder.sessions != 1 || recorder.archivedState != "ended" {
		t.Errorf("sessions = %d state = %q", recorder.sessions, recorder.archivedState)
	}
	if len(recorder.bookings) != 1 || recorder.bookings[0] != "conf-123" {
		t.Errorf("bookings = %v", recorder.bookings)
	}
	if len(recorder.documents) != 1 {
		t.Errorf("documents = %v", recorder.documents)
	}
	if len(sms.bodies) != 1 || !strings.Contains(sms.bodies[0], "Dr. Smith") ||
		!strings.Contains(sms.bodies[0], "conf-123") {
		t.Errorf("sms = %v", sms.bodies)
	}
	if len(email.attachments) != 1 || !strings.HasPrefix(string(email.attachments[0]), "%PDF") {
		t.Error("clinic email must carry the PDF attachment")
	}

	var turns []call.Turn
	if err := json.Unmarshal(recorder.transcript, &turns); err != nil || len(turns) != 1 {
		t.Errorf("transcript = %s", recorder.transcript)
	}
}

func TestArchiveWithoutBookingSkipsNotifications(t *testing.T) {
	recorder := &fakeRecorder{}
	sms := &fakeSMS{}
	email := &fakeEmail{}

	archive := confirmedArchive()
	archive.Intent = nil
	archive.State = call.StateFailed

	if err := newTestArchiver(recorder, sms, email).ArchiveSession(context.Background(), archive); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if recorder.sessions != 1 {
		t.Errorf("sessions = %d", recorder.sessions)
	}
	if len(recorder.bookings) != 0 || len(sms.bodies) != 0 || len(email.subjects) != 0 {
		t.Error("failed session must not notify anyone")
	}
}

func TestArchiveCancellationSkipsBookingRow(t *testing.T) {
	recorder := &fakeRecorder{}
	sms := &fakeSMS{}

	archive := confirmedArchive()
	archive.Intent.Action = call.ActionCancel
	archive.Intent.Chosen = nil

	if err := newTestArchiver(recorder, sms, &fakeEmail{}).ArchiveSession(context.Background(), archive); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if len(recorder.bookings) != 0 || len(sms.bodies) != 0 {
		t.Errorf("bookings = %v sms = %v", recorder.bookings, sms.bodies)
	}
}

func TestArchiveSurfacesTranscriptWriteFailure(t *testing.T) {
	recorder := &fakeRecorder{sessionErr: errors.New("connection refused")}

	err := newTestArchiver(recorder, &fakeSMS{}, &fakeEmail{}).ArchiveSession(context.Background(), confirmedArchive())
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestArchiveToleratesSMSFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	sms := &fakeSMS{err: errors.New("twilio unavailable")}
	email := &fakeEmail{}

	if err := newTestArchiver(recorder, sms, email).ArchiveSession(context.Background(), confirmedArchive()); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if len(email.attachments) != 1 {
		t.Error("email delivery must proceed past an SMS failure")
	}
}
