package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"receptionist-server/internal/call"
	"receptionist-server/internal/clients/elevenlabs"
	"receptionist-server/internal/observability"
)

func TestSynthesizeWithoutCacheFallsBackToText(t *testing.T) {
	s := NewSynthesizer(nil, nil, "https://example.com", observability.NewLogger())

	prompt, err := s.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if prompt.Text != "Hello there" || prompt.AudioURL != "" {
		t.Errorf("prompt = %+v, want text only", prompt)
	}
}

func TestAudioWithoutCacheReportsNotFound(t *testing.T) {
	s := NewSynthesizer(nil, nil, "https://example.com", observability.NewLogger())

	_, err := s.Audio(context.Background(), "deadbeef")
	if !errors.Is(err, ErrAudioNotFound) {
		t.Errorf("err = %v, want ErrAudioNotFound", err)
	}
}

func TestAudioIDIsStable(t *testing.T) {
	if audioID("Confirm booking?") != audioID("Confirm booking?") {
		t.Error("same text must hash to the same id")
	}
	if audioID("a") == audioID("b") {
		t.Error("different texts must hash differently")
	}
}

func TestClassifyRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := elevenlabs.NewClient("key", "voice", "model", observability.NewLogger())
	client.SetBaseURL(server.URL)

	_, err := client.TextToSpeech(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !call.IsTransient(classify(err)) {
		t.Errorf("429 should classify as transient, got %v", err)
	}
}

func TestClassifyBadRequestIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := elevenlabs.NewClient("key", "voice", "model", observability.NewLogger())
	client.SetBaseURL(server.URL)

	_, err := client.TextToSpeech(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected an error")
	}
	if call.IsTransient(classify(err)) {
		t.Errorf("400 should classify as permanent, got %v", err)
	}
}
