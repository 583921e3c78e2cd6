package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// mu-law 0xFF decodes to 0, 0x80 decodes to positive full scale.
func quietFrame() []byte { return bytes.Repeat([]byte{0xFF}, 160) }
func loudFrame() []byte  { return bytes.Repeat([]byte{0x80}, 160) }

func TestDecodeMuLawSample(t *testing.T) {
	if got := decodeMuLawSample(0xFF); got != 0 {
		t.Errorf("decode(0xFF) = %d, want 0", got)
	}
	if got := decodeMuLawSample(0x80); got <= 0 {
		t.Errorf("decode(0x80) = %d, want positive full scale", got)
	}
	if got := decodeMuLawSample(0x00); got >= 0 {
		t.Errorf("decode(0x00) = %d, want negative full scale", got)
	}
}

func TestPCMToWAVHeader(t *testing.T) {
	wav := pcmToWAV([]int16{0, 100, -100})
	if !bytes.HasPrefix(wav, []byte("RIFF")) || !bytes.Contains(wav[:16], []byte("WAVE")) {
		t.Errorf("header = %q", wav[:16])
	}
	if len(wav) != 44+6 {
		t.Errorf("len = %d, want 50", len(wav))
	}
}

func TestSegmenterFlushesAfterSilence(t *testing.T) {
	seg := newSegmenter()

	// Leading silence is dropped.
	for i := 0; i < 10; i++ {
		if got := seg.Push(quietFrame()); got != nil {
			t.Fatal("leading silence must not produce an utterance")
		}
	}

	// One second of speech.
	for i := 0; i < frames(1000); i++ {
		if got := seg.Push(loudFrame()); got != nil {
			t.Fatal("utterance must not flush while the caller is speaking")
		}
	}

	// Silence short of the hangover keeps buffering.
	var utterance []byte
	for i := 0; i < seg.hangoverFrames; i++ {
		utterance = seg.Push(quietFrame())
		if utterance != nil {
			break
		}
	}
	if utterance == nil {
		t.Fatal("expected an utterance after the silence hangover")
	}
	if len(utterance) < frames(1000)*160 {
		t.Errorf("utterance dropped speech audio: %d bytes", len(utterance))
	}

	// The segmenter resets for the next utterance.
	if seg.speechFrames != 0 || len(seg.voiced) != 0 {
		t.Error("segmenter did not reset after flushing")
	}
}

func TestSegmenterDropsShortNoise(t *testing.T) {
	seg := newSegmenter()

	for i := 0; i < 2; i++ {
		seg.Push(loudFrame())
	}
	for i := 0; i < seg.hangoverFrames+1; i++ {
		if got := seg.Push(quietFrame()); got != nil {
			t.Fatal("a click must not become an utterance")
		}
	}
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (f *fakeTranscriber) TranscribeAudio(ctx context.Context, audio io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	wav, _ := io.ReadAll(audio)
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		return "", io.ErrUnexpectedEOF
	}
	return f.text, nil
}

type fakeSink struct {
	mu         sync.Mutex
	started    []string
	utterances []string
	ended      []string
	events     []string
}

func (f *fakeSink) StartSession(ctx context.Context, callSID, callerNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, callSID)
	f.events = append(f.events, "start")
	return nil
}

func (f *fakeSink) HandleUtterance(ctx context.Context, callSID, text string) (call.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utterances = append(f.utterances, text)
	f.events = append(f.events, "utterance")
	return call.Reply{Prompt: call.Prompt{Text: "ok"}}, nil
}

func (f *fakeSink) EndCall(ctx context.Context, callSID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, callSID)
	f.events = append(f.events, "end")
	return nil
}

func sendEvent(t *testing.T, conn *websocket.Conn, event MediaEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMediaStreamTranscribesUtterance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	transcriber := &fakeTranscriber{text: "book me Tuesday at 3pm"}
	sink := &fakeSink{}
	h := New(transcriber, sink, observability.NewLogger())

	router := gin.New()
	router.GET("/webhooks/voice/stream", h.HandleMediaStream)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/webhooks/voice/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	start := MediaEvent{Event: "start"}
	start.Start.StreamSid = "MZ1"
	start.Start.CallSid = "CA100"
	sendEvent(t, conn, start)

	media := func(frame []byte) MediaEvent {
		e := MediaEvent{Event: "media"}
		e.Media.Payload = base64.StdEncoding.EncodeToString(frame)
		return e
	}
	for i := 0; i < frames(1000); i++ {
		sendEvent(t, conn, media(loudFrame()))
	}
	for i := 0; i < frames(800); i++ {
		sendEvent(t, conn, media(quietFrame()))
	}

	stop := MediaEvent{Event: "stop"}
	stop.Stop.StreamSid = "MZ1"
	sendEvent(t, conn, stop)

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		done := len(sink.ended) == 1 && len(sink.utterances) == 1
		sink.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			sink.mu.Lock()
			t.Fatalf("started=%v utterances=%v ended=%v", sink.started, sink.utterances, sink.ended)
		case <-time.After(10 * time.Millisecond):
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.started[0] != "CA100" {
		t.Errorf("started = %v", sink.started)
	}
	if sink.utterances[0] != "book me Tuesday at 3pm" {
		t.Errorf("utterances = %v", sink.utterances)
	}
}

func TestStopTranscribesFinalUtteranceBeforeEnding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	transcriber := &fakeTranscriber{text: "yes confirm it"}
	sink := &fakeSink{}
	h := New(transcriber, sink, observability.NewLogger())

	router := gin.New()
	router.GET("/webhooks/voice/stream", h.HandleMediaStream)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/webhooks/voice/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := MediaEvent{Event: "start"}
	start.Start.StreamSid = "MZ2"
	start.Start.CallSid = "CA200"
	sendEvent(t, conn, start)

	// The caller speaks right up to the stop, with no trailing silence to
	// flush the segmenter. Only the stop handling can deliver these words.
	for i := 0; i < frames(1000); i++ {
		e := MediaEvent{Event: "media"}
		e.Media.Payload = base64.StdEncoding.EncodeToString(loudFrame())
		sendEvent(t, conn, e)
	}
	stop := MediaEvent{Event: "stop"}
	stop.Stop.StreamSid = "MZ2"
	sendEvent(t, conn, stop)

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		done := len(sink.ended) == 1
		sink.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			sink.mu.Lock()
			t.Fatalf("utterances=%v ended=%v", sink.utterances, sink.ended)
		case <-time.After(10 * time.Millisecond):
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.utterances) != 1 || sink.utterances[0] != "yes confirm it" {
		t.Fatalf("utterances = %v, want the flushed final utterance", sink.utterances)
	}
	want := []string{"start", "utterance", "end"}
	for i, event := range want {
		if sink.events[i] != event {
			t.Fatalf("events = %v, want %v", sink.events, want)
		}
	}
}
