package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CallSessionRecord struct {
	ID           uuid.UUID       `db:"id"`
	CallSID      string          `db:"call_sid"`
	CallerNumber string          `db:"caller_number"`
	State        string          `db:"state"`
	Transcript   json.RawMessage `db:"transcript"`
	StartedAt    time.Time       `db:"started_at"`
	EndedAt      time.Time       `db:"ended_at"`
	CreatedAt    time.Time       `db:"created_at"`
}

const sqlCreateCallSession = `
INSERT INTO call_sessions (call_sid, caller_number, state, transcript, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, call_sid, caller_number, state, transcript, started_at, ended_at, created_at`

func (s *Store) CreateCallSession(ctx context.Context, callSID, callerNumber, state string,
	transcript json.RawMessage, startedAt, endedAt time.Time) (*CallSessionRecord, error) {
	var record CallSessionRecord
	err := s.db.GetContext(ctx, &record, sqlCreateCallSession,
		callSID, callerNumber, state, transcript, startedAt, endedAt)
	if err != nil {
		s.logger.Error(ctx, "failed to create call session record", err)
		return nil, fmt.Errorf("failed to create call session record: %w", err)
	}
	return &record, nil
}

const sqlGetCallSessionBySID = `
SELECT * FROM call_sessions WHERE call_sid = $1`

func (s *Store) GetCallSessionBySID(ctx context.Context, callSID string) (*CallSessionRecord, error) {
	var record CallSessionRecord
	err := s.db.GetContext(ctx, &record, sqlGetCallSessionBySID, callSID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get call session by SID", err)
		return nil, fmt.Errorf("failed to get call session by SID: %w", err)
	}
	return &record, nil
}

const sqlListRecentCallSessions = `
SELECT * FROM call_sessions ORDER BY started_at DESC LIMIT $1`

func (s *Store) ListRecentCallSessions(ctx context.Context, limit int) ([]CallSessionRecord, error) {
	var records []CallSessionRecord
	err := s.db.SelectContext(ctx, &records, sqlListRecentCallSessions, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to list recent call sessions", err)
		return nil, fmt.Errorf("failed to list recent call sessions: %w", err)
	}
	return records, nil
}
