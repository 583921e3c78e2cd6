package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receptionist-server/internal/observability"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// maxTextLen bounds TTS input so a runaway prompt cannot run up usage.
const maxTextLen = 1000

// APIStatusError is returned when ElevenLabs responds with a non-success
// status. Callers classify retryability from the status code.
type APIStatusError struct {
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is worth retrying.
func (e *APIStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is a typed HTTP client for the ElevenLabs text-to-speech API.
type Client struct {
	baseURL    string
	apiKey     string
	voiceID    string
	model      string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates an ElevenLabs TTS client.
func NewClient(apiKey, voiceID, model string, logger *observability.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		voiceID: voiceID,
		model:   model,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// TextToSpeech synthesizes text and returns MP3 audio bytes.
func (c *Client) TextToSpeech(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("elevenlabs: empty text")
	}
	if len(text) > maxTextLen {
		c.logger.Warn(ctx, "TTS text exceeds limit, truncating")
		text = text[:maxTextLen]
	}

	payload := map[string]any{
		"text":     text,
		"model_id": c.model,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, url.PathEscape(c.voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		apiErr := &APIStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		c.logger.Error(ctx, "elevenlabs API error", apiErr)
		return nil, apiErr
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to read audio: %w", err)
	}
	return audio, nil
}
