package call

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the workflow state of a call session. Transitions are owned
// exclusively by the Coordinator; Ended and Failed are terminal.
type State string

const (
	StateListening        State = "listening"
	StateInterpreting     State = "interpreting"
	StateAwaitingCalendar State = "awaiting_calendar_result"
	StateConfirming       State = "confirming"
	StateResponding       State = "responding"
	StateEnded            State = "ended"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transitions are accepted from s.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// Speaker identifies which side of the call produced a turn.
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance in the conversation transcript.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Utterance string    `json:"utterance"`
	At        time.Time `json:"at"`
}

// ActionType is the calendar action the caller wants.
type ActionType string

const (
	ActionBook       ActionType = "book"
	ActionCancel     ActionType = "cancel"
	ActionReschedule ActionType = "reschedule"
)

// ConfirmationStatus tracks whether the caller has confirmed an intent.
type ConfirmationStatus string

const (
	ConfirmationUnconfirmed ConfirmationStatus = "unconfirmed"
	ConfirmationConfirmed   ConfirmationStatus = "confirmed"
	ConfirmationRejected    ConfirmationStatus = "rejected"
)

// Slot is a bookable appointment window.
type Slot struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Doctor string    `json:"doctor,omitempty"`
}

// Spoken renders the slot the way the assistant reads it to the caller.
func (s Slot) Spoken() string {
	spoken := s.Start.Format("Monday January 2 at 3:04 PM")
	if s.Doctor != "" {
		spoken = fmt.Sprintf("%s with %s", spoken, s.Doctor)
	}
	return spoken
}

// CallerInfo identifies the invitee sent to the calendar provider.
type CallerInfo struct {
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

// AppointmentIntent is the caller's desired calendar action. A booking
// mutation is sent at most once per intent instance; re-offers after a
// caller rejection create a fresh instance with a fresh idempotence scope.
type AppointmentIntent struct {
	Action           ActionType         `json:"action"`
	Doctor           string             `json:"doctor,omitempty"`
	Candidates       []Slot             `json:"candidates,omitempty"`
	Chosen           *Slot              `json:"chosen,omitempty"`
	TargetBookingID  string             `json:"target_booking_id,omitempty"`
	ConfirmationID   string             `json:"confirmation_id,omitempty"`
	Status           ConfirmationStatus `json:"status"`
	mutationComplete bool
	rolledBack       bool
}

// CallSession is the per-phone-call state container. It is owned by the
// Coordinator's session worker and must not be mutated elsewhere.
type CallSession struct {
	CallSID      string
	CallerNumber string
	Caller       CallerInfo
	State        State
	Turns        []Turn
	Intent       *AppointmentIntent
	StartedAt    time.Time
	EndedAt      time.Time

	reprompts int
	reoffers  int
}

func (s *CallSession) appendTurn(speaker Speaker, utterance string) {
	s.Turns = append(s.Turns, Turn{Speaker: speaker, Utterance: utterance, At: time.Now().UTC()})
}

// Archive is the immutable record persisted when a session reaches a
// terminal state.
type Archive struct {
	CallSID      string
	CallerNumber string
	State        State
	Turns        []Turn
	Intent       *AppointmentIntent
	StartedAt    time.Time
	EndedAt      time.Time
}

var (
	// ErrSessionNotFound is returned for an unknown or already archived call SID.
	ErrSessionNotFound = errors.New("call session not found")
	// ErrSessionEnded is returned when an utterance arrives for a session
	// in a terminal state.
	ErrSessionEnded = errors.New("call session already ended")
	// ErrPolicyAmbiguous is returned by dialog policies that cannot
	// determine the caller's intent from the utterance.
	ErrPolicyAmbiguous = errors.New("dialog policy could not determine intent")
)

// AdapterError is the tagged outcome of a failed external call. Transient
// failures are retried by the Coordinator with bounded backoff; permanent
// failures end the session with a spoken apology.
type AdapterError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *AdapterError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s adapter failure: %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s adapter failure: %s", kind, e.Reason)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// TransientFailure wraps err as a retryable adapter failure.
func TransientFailure(reason string, err error) error {
	return &AdapterError{Reason: reason, Transient: true, Err: err}
}

// PermanentFailure wraps err as a non-retryable adapter failure.
func PermanentFailure(reason string, err error) error {
	return &AdapterError{Reason: reason, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable adapter failure.
// Context cancellation is never transient: a hung-up call must not retry.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Transient
	}
	return false
}
