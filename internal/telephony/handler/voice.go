package handler

import (
	"context"
	"errors"
	"net/http"

	"receptionist-server/internal/apierrors"
	"receptionist-server/internal/call"
	"receptionist-server/internal/observability"
	"receptionist-server/internal/speech"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

const (
	greeting = "Thank you for calling the clinic. Tell me what you need, or press 1 to book, " +
		"2 to cancel, 3 to reschedule, 4 to hear available times, or 5 to reach our staff."
	noInputPrompt   = "I didn't catch that. Please tell me what you need."
	transferPrompt  = "One moment, connecting you to our staff."
	unavailableSays = "Sorry, we are unable to take your call right now. Please try again later."

	collectPath = "/webhooks/voice/collect"
)

// digitUtterances translates keypad menu choices into the utterances the
// dialog policy already understands, so DTMF and speech share one path.
var digitUtterances = map[string]string{
	"1": "I would like to book an appointment.",
	"2": "I would like to cancel my appointment.",
	"3": "I would like to reschedule my appointment.",
	"4": "What appointment times do you have available?",
}

// HandleIncomingCall answers a new call: it starts a coordinator session
// and greets the caller inside a speech-and-keypad gather.
func (h *Handler) HandleIncomingCall(c *gin.Context) {
	ctx := c.Request.Context()
	callSID := c.PostForm("CallSid")
	from := c.PostForm("From")
	if callSID == "" {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidWebhook, "missing CallSid"))
		return
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})
	if err := h.coordinator.StartSession(ctx, callSID, from); err != nil {
		h.logger.Error(ctx, "failed to start call session", err)
		h.respondTwiML(c, h.hangupWith(h.prompt(ctx, unavailableSays)))
		return
	}

	h.logger.Info(ctx, "incoming call answered")
	h.respondTwiML(c, h.gatherWith(h.prompt(ctx, greeting)))
}

// HandleCollect receives the caller's gathered input, either a speech
// transcription or a single menu digit, and speaks the coordinator's reply.
func (h *Handler) HandleCollect(c *gin.Context) {
	ctx := c.Request.Context()
	callSID := c.PostForm("CallSid")
	if callSID == "" {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidWebhook, "missing CallSid"))
		return
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})

	digits := c.PostForm("Digits")
	if digits == "5" {
		h.transferToHuman(c, ctx, callSID)
		return
	}

	text := c.PostForm("SpeechResult")
	if utterance, ok := digitUtterances[digits]; ok {
		text = utterance
	}
	if text == "" {
		h.respondTwiML(c, h.gatherWith(h.prompt(ctx, noInputPrompt)))
		return
	}

	reply, err := h.coordinator.HandleUtterance(ctx, callSID, text)
	if err != nil {
		if errors.Is(err, call.ErrSessionNotFound) || errors.Is(err, call.ErrSessionEnded) {
			h.respondTwiML(c, h.hangupWith(call.Prompt{}))
			return
		}
		h.logger.Error(ctx, "failed to handle utterance", err)
		h.respondTwiML(c, h.hangupWith(h.prompt(ctx, unavailableSays)))
		return
	}

	if reply.Hangup {
		h.respondTwiML(c, append(h.speak(reply.Prompt), &twiml.VoiceHangup{}))
		return
	}
	h.respondTwiML(c, h.gatherWith(reply.Prompt))
}

// HandleStatus receives call status callbacks and ends the session when
// the call leaves the network.
func (h *Handler) HandleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	callSID := c.PostForm("CallSid")
	status := c.PostForm("CallStatus")

	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		ctx = observability.WithFields(ctx,
			observability.Field{Key: "call_sid", Value: callSID},
			observability.Field{Key: "call_status", Value: status},
		)
		if err := h.coordinator.EndCall(ctx, callSID, status); err != nil && !errors.Is(err, call.ErrSessionNotFound) {
			h.logger.Error(ctx, "failed to end call session", err)
		}
	}
	c.Status(http.StatusNoContent)
}

// HandleAudio streams cached synthesized prompt audio back to Twilio.
func (h *Handler) HandleAudio(c *gin.Context) {
	audio, err := h.speech.Audio(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, speech.ErrAudioNotFound) {
			apierrors.RespondWithError(c, apierrors.NotFound(apierrors.CodeNotFound, "audio not found"))
			return
		}
		apierrors.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (h *Handler) transferToHuman(c *gin.Context, ctx context.Context, callSID string) {
	if err := h.coordinator.EndCall(ctx, callSID, "transferred to staff"); err != nil && !errors.Is(err, call.ErrSessionNotFound) {
		h.logger.Error(ctx, "failed to end call session before transfer", err)
	}
	elements := append(h.speak(h.prompt(ctx, transferPrompt)),
		&twiml.VoiceDial{Number: h.humanSupportNumber})
	h.respondTwiML(c, elements)
}

// prompt synthesizes one of the handler's fixed utterances so they come
// out in the same voice as the coordinator's replies. Synthesis failure
// falls back to the provider voice.
func (h *Handler) prompt(ctx context.Context, text string) call.Prompt {
	p, err := h.speech.Synthesize(ctx, text)
	if err != nil {
		h.logger.Error(ctx, "prompt synthesis failed, using provider voice", err)
		return call.Prompt{Text: text}
	}
	if p.Text == "" {
		p.Text = text
	}
	return p
}

// gatherWith speaks a prompt inside a gather so the caller can barge in,
// then redirects back to collect when nothing was heard.
func (h *Handler) gatherWith(prompt call.Prompt) []twiml.Element {
	gather := &twiml.VoiceGather{
		Input:         "speech dtmf",
		Action:        collectPath,
		Method:        "POST",
		NumDigits:     "1",
		SpeechTimeout: "auto",
		InnerElements: h.speak(prompt),
	}
	redirect := &twiml.VoiceRedirect{Url: collectPath, Method: "POST"}
	return []twiml.Element{gather, redirect}
}

func (h *Handler) hangupWith(prompt call.Prompt) []twiml.Element {
	return append(h.speak(prompt), &twiml.VoiceHangup{})
}

func (h *Handler) speak(prompt call.Prompt) []twiml.Element {
	if prompt.AudioURL != "" {
		return []twiml.Element{&twiml.VoicePlay{Url: prompt.AudioURL}}
	}
	if prompt.Text == "" {
		return nil
	}
	return []twiml.Element{&twiml.VoiceSay{Message: prompt.Text}}
}

func (h *Handler) respondTwiML(c *gin.Context, elements []twiml.Element) {
	doc, err := twiml.Voice(elements)
	if err != nil {
		h.logger.Error(c.Request.Context(), "failed to render TwiML", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, doc)
}
