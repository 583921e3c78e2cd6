package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID             uuid.UUID      `db:"id"`
	CallSID        string         `db:"call_sid"`
	CallerNumber   string         `db:"caller_number"`
	CallerName     sql.NullString `db:"caller_name"`
	Action         string         `db:"action"`
	Doctor         sql.NullString `db:"doctor"`
	SlotStart      sql.NullTime   `db:"slot_start"`
	SlotEnd        sql.NullTime   `db:"slot_end"`
	ConfirmationID string         `db:"confirmation_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

// sqlCreateBooking relies on the unique index on confirmation_id so a
// confirmed booking is recorded exactly once even if archiving retries.
const sqlCreateBooking = `
INSERT INTO bookings (call_sid, caller_number, caller_name, action, doctor, slot_start, slot_end, confirmation_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (confirmation_id) DO NOTHING
RETURNING id, call_sid, caller_number, caller_name, action, doctor, slot_start, slot_end, confirmation_id, created_at`

func (s *Store) CreateBooking(ctx context.Context, callSID, callerNumber, callerName, action, doctor string,
	slotStart, slotEnd *time.Time, confirmationID string) (*Booking, error) {
	var booking Booking
	err := s.db.GetContext(ctx, &booking, sqlCreateBooking,
		callSID, callerNumber, nullString(callerName), action, nullString(doctor),
		nullTime(slotStart), nullTime(slotEnd), confirmationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict path: the booking row already exists.
			return s.GetBookingByConfirmationID(ctx, confirmationID)
		}
		s.logger.Error(ctx, "failed to create booking", err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return &booking, nil
}

const sqlGetBookingByConfirmationID = `
SELECT * FROM bookings WHERE confirmation_id = $1`

func (s *Store) GetBookingByConfirmationID(ctx context.Context, confirmationID string) (*Booking, error) {
	var booking Booking
	err := s.db.GetContext(ctx, &booking, sqlGetBookingByConfirmationID, confirmationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get booking by confirmation ID", err)
		return nil, fmt.Errorf("failed to get booking by confirmation ID: %w", err)
	}
	return &booking, nil
}

const sqlGetBookingsByCallerNumber = `
SELECT * FROM bookings WHERE caller_number = $1 ORDER BY created_at DESC`

func (s *Store) GetBookingsByCallerNumber(ctx context.Context, callerNumber string) ([]Booking, error) {
	var bookings []Booking
	err := s.db.SelectContext(ctx, &bookings, sqlGetBookingsByCallerNumber, callerNumber)
	if err != nil {
		s.logger.Error(ctx, "failed to get bookings by caller number", err)
		return nil, fmt.Errorf("failed to get bookings by caller number: %w", err)
	}
	return bookings, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
