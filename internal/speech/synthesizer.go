package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/clients/elevenlabs"
	rediscache "receptionist-server/internal/clients/redis"
	"receptionist-server/internal/observability"
)

const audioTTL = 24 * time.Hour

// Synthesizer renders utterances to MP3 audio and caches the audio in
// Redis keyed by a hash of the text, so repeated prompts (greetings,
// confirmations) are synthesized once. The returned AudioURL points at
// the audio playback endpoint; it is empty when the cache is disabled
// and the telephony layer falls back to provider voice.
type Synthesizer struct {
	tts           *elevenlabs.Client
	cache         *rediscache.Client
	publicBaseURL string
	logger        *observability.Logger
}

func NewSynthesizer(tts *elevenlabs.Client, cache *rediscache.Client, publicBaseURL string,
	logger *observability.Logger) *Synthesizer {
	return &Synthesizer{
		tts:           tts,
		cache:         cache,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (call.Prompt, error) {
	if s.cache == nil || !s.cache.IsEnabled() {
		return call.Prompt{Text: text}, nil
	}

	id := audioID(text)
	key := audioKey(id)

	exists, err := s.cache.Exists(ctx, key)
	if err == nil && exists > 0 {
		return call.Prompt{Text: text, AudioURL: s.audioURL(id)}, nil
	}

	audio, err := s.tts.TextToSpeech(ctx, text)
	if err != nil {
		return call.Prompt{}, classify(err)
	}

	if err := s.cache.SetBytes(ctx, key, audio, audioTTL); err != nil {
		// Playback needs the cache, so an uncached synthesis falls back
		// to plain text rather than a broken audio URL.
		s.logger.Error(ctx, "failed to cache synthesized audio", err)
		return call.Prompt{Text: text}, nil
	}

	return call.Prompt{Text: text, AudioURL: s.audioURL(id)}, nil
}

// Audio returns cached audio bytes for a previously synthesized prompt.
func (s *Synthesizer) Audio(ctx context.Context, id string) ([]byte, error) {
	if s.cache == nil || !s.cache.IsEnabled() {
		return nil, ErrAudioNotFound
	}
	audio, err := s.cache.GetBytes(ctx, audioKey(id))
	if errors.Is(err, rediscache.Nil) {
		return nil, ErrAudioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached audio: %w", err)
	}
	return audio, nil
}

var ErrAudioNotFound = errors.New("audio not found")

func (s *Synthesizer) audioURL(id string) string {
	return s.publicBaseURL + "/audio/" + id
}

func audioID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func audioKey(id string) string {
	return "tts:" + id
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *elevenlabs.APIStatusError
	if errors.As(err, &apiErr) && !apiErr.Retryable() {
		return call.PermanentFailure("speech synthesis", err)
	}
	return call.TransientFailure("speech synthesis", err)
}
