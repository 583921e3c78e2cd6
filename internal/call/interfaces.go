package call

//go:generate go run go.uber.org/mock/mockgen@latest -source=interfaces.go -destination=mocks_test.go -package=call

import (
	"context"
	"time"
)

// Snapshot is the read-only view of a session handed to the dialog policy.
type Snapshot struct {
	CallSID      string
	CallerNumber string
	State        State
	Candidates   []Slot
	PendingSlot  *Slot
	Action       ActionType
}

// IntentUpdate is the dialog policy's proposed mutation of the session's
// appointment intent.
type IntentUpdate struct {
	Action          ActionType
	Slot            *Slot
	Doctor          string
	TargetBookingID string
	// Confirmation is set when the policy classified the utterance as an
	// answer to a pending "shall I confirm?" question.
	Confirmation ConfirmationStatus
	CallerName   string
}

// Decision is the dialog policy's output for one caller utterance.
type Decision struct {
	Utterance string
	Intent    *IntentUpdate
	EndCall   bool
}

// DialogPolicy decides the next conversational action. It is an opaque
// classifier; the Coordinator never inspects its internals.
type DialogPolicy interface {
	Decide(ctx context.Context, history []Turn, snapshot Snapshot) (Decision, error)
}

// CalendarAdapter wraps the external scheduling provider. Implementations
// classify failures with TransientFailure or PermanentFailure; the
// Coordinator is the only component applying retry policy.
type CalendarAdapter interface {
	ListAvailability(ctx context.Context, doctor string, from, to time.Time) ([]Slot, error)
	Book(ctx context.Context, slot Slot, caller CallerInfo) (string, error)
	Cancel(ctx context.Context, confirmationID string) error
	Reschedule(ctx context.Context, confirmationID string, slot Slot) (string, error)
}

// Prompt is one caller-facing utterance with its synthesized audio. An
// empty AudioURL means synthesis was unavailable and the telephony layer
// should fall back to provider-native speech.
type Prompt struct {
	Text     string
	AudioURL string
}

// SpeechSynthesizer turns an utterance into playable audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (Prompt, error)
}

// SessionArchiver persists a terminal session and triggers any
// post-call work (confirmation artifact, SMS, email).
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, archive Archive) error
}
