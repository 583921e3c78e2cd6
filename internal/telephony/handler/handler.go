package handler

import (
	"context"

	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"
)

// CallCoordinator is the slice of the call workflow coordinator the
// webhook layer drives.
type CallCoordinator interface {
	StartSession(ctx context.Context, callSID, callerNumber string) error
	HandleUtterance(ctx context.Context, callSID, text string) (call.Reply, error)
	EndCall(ctx context.Context, callSID, reason string) error
}

// SpeechService synthesizes caller-facing prompts and serves their
// cached audio.
type SpeechService interface {
	Synthesize(ctx context.Context, text string) (call.Prompt, error)
	Audio(ctx context.Context, id string) ([]byte, error)
}

// SignatureValidator checks that a webhook request was signed by Twilio.
type SignatureValidator interface {
	ValidateSignature(url string, params map[string]string, signature string) bool
}

type Handler struct {
	coordinator        CallCoordinator
	speech             SpeechService
	validator          SignatureValidator
	publicBaseURL      string
	humanSupportNumber string
	logger             *observability.Logger
}

func New(coordinator CallCoordinator, speech SpeechService, validator SignatureValidator,
	publicBaseURL, humanSupportNumber string, logger *observability.Logger) Handler {
	return Handler{
		coordinator:        coordinator,
		speech:             speech,
		validator:          validator,
		publicBaseURL:      publicBaseURL,
		humanSupportNumber: humanSupportNumber,
		logger:             logger,
	}
}
