package dialog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"receptionist-server/internal/call"
)

// systemInstruction is the fixed instruction given to the model. The model
// must answer with a single JSON object; free-form prose is treated as an
// unclassifiable utterance.
const systemInstruction = `You are the phone receptionist for a medical clinic. Classify the caller's
latest utterance and reply with ONE JSON object, nothing else:

{
  "utterance": "what to say next, when a clarifying question is needed",
  "end_call": false,
  "unclear": false,
  "action": "one of: book, cancel, reschedule, availability, or empty",
  "doctor": "doctor name if mentioned",
  "slot_start": "RFC3339 time of the slot the caller picked, if any",
  "booking_id": "confirmation id of an existing appointment, if mentioned",
  "confirmation": "yes, no, or unclear when answering a confirmation question",
  "caller_name": "the caller's name if they said it"
}

Set "unclear": true when you cannot tell what the caller wants.
Set "end_call": true when the caller is done, with a short goodbye in "utterance".
When open slots are listed below, "slot_start" must be one of them.`

// decisionPayload is the JSON the model is instructed to produce.
type decisionPayload struct {
	Utterance    string `json:"utterance"`
	EndCall      bool   `json:"end_call"`
	Unclear      bool   `json:"unclear"`
	Action       string `json:"action"`
	Doctor       string `json:"doctor"`
	SlotStart    string `json:"slot_start"`
	BookingID    string `json:"booking_id"`
	Confirmation string `json:"confirmation"`
	CallerName   string `json:"caller_name"`
}

// buildContext renders the session snapshot for the model.
func buildContext(snapshot call.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s.\n", time.Now().Format(time.RFC3339))
	if snapshot.State == call.StateConfirming {
		b.WriteString("The caller was just asked to confirm; interpret the utterance as yes, no, or unclear.\n")
	}
	if snapshot.Action != "" {
		fmt.Fprintf(&b, "The caller is trying to %s an appointment.\n", snapshot.Action)
	}
	if len(snapshot.Candidates) > 0 {
		b.WriteString("Open slots:\n")
		for _, slot := range snapshot.Candidates {
			fmt.Fprintf(&b, "- %s\n", slot.Start.Format(time.RFC3339))
		}
	}
	return b.String()
}

// parseDecision converts the model's raw output to a coordinator decision.
// Malformed output and explicit "unclear" both surface as ErrPolicyAmbiguous
// so the coordinator re-prompts rather than guessing.
func parseDecision(raw string, snapshot call.Snapshot, slotDuration time.Duration) (call.Decision, error) {
	raw = stripCodeFence(raw)

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return call.Decision{}, fmt.Errorf("%w: %v", call.ErrPolicyAmbiguous, err)
	}
	if payload.Unclear {
		return call.Decision{}, call.ErrPolicyAmbiguous
	}
	if payload.EndCall {
		return call.Decision{Utterance: payload.Utterance, EndCall: true}, nil
	}

	update := call.IntentUpdate{
		Doctor:          payload.Doctor,
		TargetBookingID: payload.BookingID,
		CallerName:      payload.CallerName,
	}
	hasUpdate := payload.Doctor != "" || payload.BookingID != "" || payload.CallerName != ""

	switch payload.Action {
	case "book", "availability":
		update.Action = call.ActionBook
		hasUpdate = true
	case "cancel":
		update.Action = call.ActionCancel
		hasUpdate = true
	case "reschedule":
		update.Action = call.ActionReschedule
		hasUpdate = true
	case "":
	default:
		return call.Decision{}, call.ErrPolicyAmbiguous
	}

	if payload.SlotStart != "" {
		start, err := time.Parse(time.RFC3339, payload.SlotStart)
		if err != nil {
			return call.Decision{}, fmt.Errorf("%w: bad slot time %q", call.ErrPolicyAmbiguous, payload.SlotStart)
		}
		slot := matchCandidate(snapshot.Candidates, start)
		if slot == nil {
			slot = &call.Slot{Start: start, End: start.Add(slotDuration), Doctor: payload.Doctor}
		}
		update.Slot = slot
		hasUpdate = true
	}

	if snapshot.State == call.StateConfirming {
		switch strings.ToLower(payload.Confirmation) {
		case "yes":
			update.Confirmation = call.ConfirmationConfirmed
			hasUpdate = true
		case "no":
			update.Confirmation = call.ConfirmationRejected
			hasUpdate = true
		}
	}

	if !hasUpdate {
		if payload.Utterance != "" {
			return call.Decision{Utterance: payload.Utterance}, nil
		}
		return call.Decision{}, call.ErrPolicyAmbiguous
	}
	return call.Decision{Utterance: payload.Utterance, Intent: &update}, nil
}

// matchCandidate prefers the proposed slot over a reconstructed one so the
// doctor and exact window survive the round trip through the model.
func matchCandidate(candidates []call.Slot, start time.Time) *call.Slot {
	for _, c := range candidates {
		if c.Start.Equal(start) {
			slot := c
			return &slot
		}
	}
	return nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}
	return strings.TrimSpace(raw)
}

// historyDigest flattens the transcript for single-prompt models.
func historyDigest(history []call.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Utterance)
	}
	return b.String()
}
