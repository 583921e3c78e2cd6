package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MediaEvent is one message on a Twilio media stream connection.
type MediaEvent struct {
	Event string `json:"event"`
	Start struct {
		StreamSid string `json:"streamSid"`
		CallSid   string `json:"callSid"`
	} `json:"start,omitempty"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
	Stop struct {
		StreamSid string `json:"streamSid"`
	} `json:"stop,omitempty"`
}

// Transcriber converts one utterance of audio into text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audio io.Reader) (string, error)
}

// UtteranceSink receives transcribed caller utterances.
type UtteranceSink interface {
	StartSession(ctx context.Context, callSID, callerNumber string) error
	HandleUtterance(ctx context.Context, callSID, text string) (call.Reply, error)
	EndCall(ctx context.Context, callSID, reason string) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Twilio does not send a browser Origin header.
		return true
	},
}

// Handler accepts Twilio media stream connections and feeds transcribed
// utterances into the coordinator. It is the fallback input path for
// trunks where webhook speech gathering is unavailable: audio is
// segmented on silence, transcribed, and handled exactly like gathered
// speech. Replies flow back through the regular prompt audio endpoint.
type Handler struct {
	transcriber Transcriber
	sink        UtteranceSink
	logger      *observability.Logger
}

func New(transcriber Transcriber, sink UtteranceSink, logger *observability.Logger) *Handler {
	return &Handler{
		transcriber: transcriber,
		sink:        sink,
		logger:      logger,
	}
}

// HandleMediaStream upgrades the webhook to a WebSocket and runs the
// stream until Twilio stops it or the session ends.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	h.run(ctx, conn)
}

func (h *Handler) run(ctx context.Context, conn *websocket.Conn) {
	type pendingUtterance struct {
		callSID string
		audio   []byte
	}

	var (
		callSID    string
		seg        = newSegmenter()
		wg         sync.WaitGroup
		utterances = make(chan pendingUtterance, 4)
	)
	drain := func() {
		close(utterances)
		wg.Wait()
	}

	// Transcription runs off the read loop so a slow model never backs
	// up the socket. Utterances for one call stay in order.
	wg.Add(1)
	go func(ctx context.Context) {
		defer wg.Done()
		for u := range utterances {
			h.handleUtterance(ctx, u.callSID, u.audio)
		}
	}(ctx)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Info(ctx, "media stream closed normally")
			} else {
				h.logger.Error(ctx, "media stream read error", err)
			}
			drain()
			return
		}

		var event MediaEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			h.logger.Error(ctx, "failed to parse media stream event", err)
			continue
		}

		switch event.Event {
		case "start":
			callSID = event.Start.CallSid
			ctx = observability.WithFields(ctx,
				observability.Field{Key: "call_sid", Value: callSID},
				observability.Field{Key: "stream_sid", Value: event.Start.StreamSid},
			)
			if err := h.sink.StartSession(ctx, callSID, ""); err != nil {
				h.logger.Error(ctx, "failed to start stream session", err)
				drain()
				return
			}
			h.logger.Info(ctx, "media stream started")

		case "media":
			frame, err := base64.StdEncoding.DecodeString(event.Media.Payload)
			if err != nil {
				h.logger.Error(ctx, "failed to decode audio frame", err)
				continue
			}
			if audio := seg.Push(frame); audio != nil {
				select {
				case utterances <- pendingUtterance{callSID: callSID, audio: audio}:
				default:
					h.logger.Warn(ctx, "transcription backlog full, dropping utterance")
				}
			}

		case "stop":
			// Drain before ending the session so the caller's last words
			// still reach the coordinator.
			if audio := seg.Flush(); audio != nil {
				utterances <- pendingUtterance{callSID: callSID, audio: audio}
			}
			drain()
			if err := h.sink.EndCall(ctx, callSID, "media stream stopped"); err != nil {
				h.logger.Warn(ctx, fmt.Sprintf("failed to end stream session: %v", err))
			}
			h.logger.Info(ctx, "media stream stopped")
			return

		default:
			h.logger.Debug(ctx, fmt.Sprintf("ignoring media stream event: %s", event.Event))
		}
	}
}

func (h *Handler) handleUtterance(ctx context.Context, callSID string, muLawAudio []byte) {
	if callSID == "" {
		return
	}

	wav := pcmToWAV(decodeMuLaw(muLawAudio))
	text, err := h.transcriber.TranscribeAudio(ctx, bytes.NewReader(wav))
	if err != nil {
		h.logger.Error(ctx, "failed to transcribe utterance", err)
		return
	}
	if text == "" {
		return
	}

	reply, err := h.sink.HandleUtterance(ctx, callSID, text)
	if errors.Is(err, call.ErrSessionEnded) || errors.Is(err, call.ErrSessionNotFound) {
		return
	}
	if err != nil {
		h.logger.Error(ctx, "failed to handle transcribed utterance", err)
		return
	}
	if reply.Hangup {
		h.logger.Info(ctx, "session ended over media stream")
	}
}
