package dialog

import (
	"context"
	"errors"
	"time"

	"receptionist-server/internal/call"
	openaiclient "receptionist-server/internal/clients/openai"
	"receptionist-server/internal/observability"
)

// OpenAIPolicy decides the next conversational action with an OpenAI chat
// model.
type OpenAIPolicy struct {
	client       *openaiclient.Client
	slotDuration time.Duration
	logger       *observability.Logger
}

// NewOpenAIPolicy creates an OpenAI-backed dialog policy.
func NewOpenAIPolicy(client *openaiclient.Client, slotDuration time.Duration,
	logger *observability.Logger) *OpenAIPolicy {
	return &OpenAIPolicy{
		client:       client,
		slotDuration: slotDuration,
		logger:       logger,
	}
}

func (p *OpenAIPolicy) Decide(ctx context.Context, history []call.Turn, snapshot call.Snapshot) (call.Decision, error) {
	messages := make([]openaiclient.Message, 0, len(history)+1)
	messages = append(messages, openaiclient.Message{
		Role:    openaiclient.RoleUser,
		Content: buildContext(snapshot),
	})
	for _, turn := range history {
		role := openaiclient.RoleUser
		if turn.Speaker == call.SpeakerAssistant {
			role = openaiclient.RoleAssistant
		}
		messages = append(messages, openaiclient.Message{Role: role, Content: turn.Utterance})
	}

	raw, err := p.client.Complete(ctx, systemInstruction, messages)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return call.Decision{}, err
		}
		return call.Decision{}, call.TransientFailure("openai dialog request", err)
	}

	decision, err := parseDecision(raw, snapshot, p.slotDuration)
	if err != nil {
		p.logger.Warn(observability.WithFields(ctx,
			observability.Field{Key: "model_output", Value: raw},
		), "dialog model output could not be classified")
		return call.Decision{}, err
	}
	return decision, nil
}
