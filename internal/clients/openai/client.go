package openai

import (
	"context"
	"fmt"
	"io"

	"receptionist-server/internal/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI SDK for chat completions and audio transcription.
type Client struct {
	sdk    openai.Client
	logger *observability.Logger
}

// NewClient creates an OpenAI API client.
func NewClient(apiKey string, logger *observability.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &Client{
		sdk:    openai.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}, nil
}

// Complete runs a single chat completion with a system instruction and
// returns the assistant's text.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModelGPT4o,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1),
	}
	params.Messages = append(params.Messages, openai.SystemMessage(system))
	for _, m := range messages {
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
			continue
		}
		params.Messages = append(params.Messages, openai.UserMessage(m.Content))
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error(ctx, "openai chat completion failed", err)
		return "", fmt.Errorf("openai: chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// TranscribeAudio runs Whisper over recorded call audio.
func (c *Client) TranscribeAudio(ctx context.Context, audio io.Reader) (string, error) {
	transcription, err := c.sdk.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		c.logger.Error(ctx, "openai transcription failed", err)
		return "", fmt.Errorf("openai: transcription failed: %w", err)
	}
	return transcription.Text, nil
}

// Message roles for Complete.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn sent to the model.
type Message struct {
	Role    string
	Content string
}
