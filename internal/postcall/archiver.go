package postcall

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/confirmation"
	"receptionist-server/internal/observability"
	"receptionist-server/internal/store"
)

const smsBodyLimit = 1600

// Recorder is the slice of the store the archiver writes to.
type Recorder interface {
	CreateCallSession(ctx context.Context, callSID, callerNumber, state string,
		transcript json.RawMessage, startedAt, endedAt time.Time) (*store.CallSessionRecord, error)
	CreateBooking(ctx context.Context, callSID, callerNumber, callerName, action, doctor string,
		slotStart, slotEnd *time.Time, confirmationID string) (*store.Booking, error)
	CreateConfirmationDocument(ctx context.Context, confirmationID string, pdf []byte) (*store.ConfirmationDocument, error)
}

// SMSSender delivers the booking confirmation text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// EmailSender delivers the confirmation document to the clinic inbox.
type EmailSender interface {
	SendEmailWithAttachment(ctx context.Context, from, to, subject, htmlContent,
		filename string, attachment []byte) (string, error)
}

// Archiver persists terminal call sessions and delivers booking
// confirmations. The transcript write is the only hard requirement;
// notification failures are logged and swallowed so a flaky SMS or
// email provider never fails the archive.
type Archiver struct {
	recorder    Recorder
	sms         SMSSender
	email       EmailSender
	emailSender string
	clinicEmail string
	clinicName  string
	logger      *observability.Logger
}

func NewArchiver(recorder Recorder, sms SMSSender, email EmailSender,
	emailSender, clinicEmail, clinicName string, logger *observability.Logger) *Archiver {
	return &Archiver{
		recorder:    recorder,
		sms:         sms,
		email:       email,
		emailSender: emailSender,
		clinicEmail: clinicEmail,
		clinicName:  clinicName,
		logger:      logger,
	}
}

func (a *Archiver) ArchiveSession(ctx context.Context, archive call.Archive) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: archive.CallSID})

	transcript, err := json.Marshal(archive.Turns)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if _, err := a.recorder.CreateCallSession(ctx, archive.CallSID, archive.CallerNumber,
		string(archive.State), transcript, archive.StartedAt, archive.EndedAt); err != nil {
		return err
	}

	intent := archive.Intent
	if intent == nil || intent.Status != call.ConfirmationConfirmed || intent.ConfirmationID == "" {
		return nil
	}
	if intent.Action == call.ActionCancel {
		// A cancellation leaves nothing to confirm; the transcript is
		// the record.
		return nil
	}

	a.recordBooking(ctx, archive, intent)
	a.deliverConfirmation(ctx, archive, intent)
	return nil
}

func (a *Archiver) recordBooking(ctx context.Context, archive call.Archive, intent *call.AppointmentIntent) {
	var slotStart, slotEnd *time.Time
	if intent.Chosen != nil {
		slotStart, slotEnd = &intent.Chosen.Start, &intent.Chosen.End
	}
	_, err := a.recorder.CreateBooking(ctx, archive.CallSID, archive.CallerNumber, "",
		string(intent.Action), intent.Doctor, slotStart, slotEnd, intent.ConfirmationID)
	if err != nil {
		a.logger.Error(ctx, "failed to record booking", err)
	}
}

func (a *Archiver) deliverConfirmation(ctx context.Context, archive call.Archive, intent *call.AppointmentIntent) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "confirmation_id", Value: intent.ConfirmationID})

	details := confirmation.Details{
		ClinicName:     a.clinicName,
		CallerNumber:   archive.CallerNumber,
		Doctor:         intent.Doctor,
		ConfirmationID: intent.ConfirmationID,
	}
	if intent.Chosen != nil {
		details.Start, details.End = intent.Chosen.Start, intent.Chosen.End
	}

	if archive.CallerNumber != "" {
		if _, err := a.sms.SendSMS(ctx, archive.CallerNumber, smsBody(details)); err != nil {
			a.logger.Error(ctx, "failed to send confirmation SMS", err)
		}
	}

	pdf, err := confirmation.GeneratePDF(details)
	if err != nil {
		a.logger.Error(ctx, "failed to generate confirmation PDF", err)
		return
	}
	if _, err := a.recorder.CreateConfirmationDocument(ctx, intent.ConfirmationID, pdf); err != nil {
		a.logger.Error(ctx, "failed to store confirmation PDF", err)
	}

	if a.clinicEmail == "" {
		return
	}
	subject := fmt.Sprintf("Appointment booked: %s", intent.ConfirmationID)
	html := fmt.Sprintf("<p>%s booked %s. Confirmation ID %s.</p>",
		archive.CallerNumber, details.Start.Format(time.RFC1123), intent.ConfirmationID)
	filename := fmt.Sprintf("confirmation-%s.pdf", intent.ConfirmationID)
	if _, err := a.email.SendEmailWithAttachment(ctx, a.emailSender, a.clinicEmail,
		subject, html, filename, pdf); err != nil {
		a.logger.Error(ctx, "failed to email confirmation document", err)
	}
}

func smsBody(details confirmation.Details) string {
	doctor := details.Doctor
	if doctor == "" {
		doctor = details.ClinicName
	}
	body := fmt.Sprintf("Your appointment with %s is confirmed for %s. Confirmation ID: %s",
		doctor, details.Start.Format("Monday, January 2 at 3:04 PM"), details.ConfirmationID)
	if len(body) > smsBodyLimit {
		body = body[:smsBodyLimit]
	}
	return body
}
