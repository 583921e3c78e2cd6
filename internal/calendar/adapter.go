package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/clients/calendly"
	"receptionist-server/internal/observability"
)

// Adapter exposes Calendly scheduling as the coordinator's calendar
// operations. Doctor names are descriptive only; every appointment is
// booked against the clinic's single configured event type.
type Adapter struct {
	client    *calendly.Client
	eventType string
	slotLen   time.Duration
	logger    *observability.Logger
}

func NewAdapter(client *calendly.Client, eventType string, slotLen time.Duration,
	logger *observability.Logger) *Adapter {
	return &Adapter{
		client:    client,
		eventType: eventType,
		slotLen:   slotLen,
		logger:    logger,
	}
}

func (a *Adapter) ListAvailability(ctx context.Context, doctor string, from, to time.Time) ([]call.Slot, error) {
	times, err := a.client.ListAvailableTimes(ctx, a.eventType, from, to)
	if err != nil {
		return nil, classify("list availability", err)
	}

	slots := make([]call.Slot, 0, len(times))
	for _, t := range times {
		slots = append(slots, call.Slot{
			Start:  t.StartTime,
			End:    t.StartTime.Add(a.slotLen),
			Doctor: doctor,
		})
	}
	return slots, nil
}

func (a *Adapter) Book(ctx context.Context, slot call.Slot, caller call.CallerInfo) (string, error) {
	invitee := calendly.Invitee{Name: caller.Name, Email: caller.Email}
	if invitee.Name == "" {
		invitee.Name = caller.PhoneNumber
	}

	ref, err := a.client.CreateBooking(ctx, a.eventType, slot.Start, slot.End, invitee)
	if err != nil {
		return "", classify("create booking", err)
	}

	a.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "confirmation_id", Value: ref.ID},
	), "appointment booked")
	return ref.ID, nil
}

func (a *Adapter) Cancel(ctx context.Context, confirmationID string) error {
	if err := a.client.CancelEvent(ctx, confirmationID, "cancelled by caller over the phone"); err != nil {
		return classify("cancel booking", err)
	}
	return nil
}

// Reschedule is a cancel followed by a fresh booking. Calendly has no
// atomic move, so a failure after the cancel leaves the caller with no
// appointment; the new confirmation ID only exists once both steps land.
func (a *Adapter) Reschedule(ctx context.Context, confirmationID string, slot call.Slot) (string, error) {
	if err := a.Cancel(ctx, confirmationID); err != nil {
		return "", fmt.Errorf("reschedule: %w", err)
	}

	ref, err := a.client.CreateBooking(ctx, a.eventType, slot.Start, slot.End, calendly.Invitee{Name: "Rescheduled caller"})
	if err != nil {
		return "", classify("rebook after cancel", err)
	}
	return ref.ID, nil
}

// classify maps provider errors onto the coordinator's retry taxonomy.
// Rate limits and 5xx responses are worth retrying; other API rejections
// are not. Transport errors without a status are assumed transient.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *calendly.APIStatusError
	if errors.As(err, &apiErr) && !apiErr.Retryable() {
		return call.PermanentFailure(op, err)
	}
	return call.TransientFailure(op, err)
}
