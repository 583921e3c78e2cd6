package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiPolicy decides the next conversational action with a Gemini model.
type GeminiPolicy struct {
	client       *genai.Client
	slotDuration time.Duration
	logger       *observability.Logger
}

// NewGeminiPolicy creates a Gemini-backed dialog policy.
func NewGeminiPolicy(ctx context.Context, apiKey string, slotDuration time.Duration,
	logger *observability.Logger) (*GeminiPolicy, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiPolicy{
		client:       client,
		slotDuration: slotDuration,
		logger:       logger,
	}, nil
}

// Close releases the underlying API client.
func (p *GeminiPolicy) Close() error {
	return p.client.Close()
}

func (p *GeminiPolicy) Decide(ctx context.Context, history []call.Turn, snapshot call.Snapshot) (call.Decision, error) {
	model := p.client.GenerativeModel(geminiModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	prompt := buildContext(snapshot) + "\nTranscript so far:\n" + historyDigest(history)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return call.Decision{}, err
		}
		return call.Decision{}, call.TransientFailure("gemini dialog request", err)
	}

	raw := firstText(resp)
	if raw == "" {
		return call.Decision{}, call.ErrPolicyAmbiguous
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

func firstText(resp *genai.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
