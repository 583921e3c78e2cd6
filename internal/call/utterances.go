package call

import (
	"fmt"
	"strings"
)

// Caller-facing utterance templates. Keeping these in one place makes the
// spoken surface of the receptionist easy to review and translate.
const (
	utteranceReprompt = "I'm sorry, I didn't quite catch that. Could you say it again?"
	utteranceApology  = "I'm sorry, something went wrong on our end. Please call back later. Goodbye."
	utteranceGiveUp   = "I'm sorry, I wasn't able to help with that today. Please call back or hold for our front desk. Goodbye."
	utteranceGoodbye  = "Thank you for calling. Goodbye."

	utteranceKeepBooking = "Okay, I have left your appointment unchanged. Goodbye."

	utteranceAskBookingID = "Could you tell me the confirmation ID of the appointment you'd like to change?"
)

func actionNoun(action ActionType) string {
	switch action {
	case ActionCancel:
		return "cancellation"
	case ActionReschedule:
		return "rescheduling"
	default:
		return "booking"
	}
}

func utteranceConfirmQuestion(intent *AppointmentIntent) string {
	if intent.Action == ActionCancel {
		return fmt.Sprintf("Confirm cancellation of appointment %s?", intent.TargetBookingID)
	}
	return fmt.Sprintf("Confirm %s for %s?", actionNoun(intent.Action), intent.Chosen.Spoken())
}

func utteranceConfirmed(intent *AppointmentIntent) string {
	switch intent.Action {
	case ActionCancel:
		return fmt.Sprintf("Your appointment %s has been cancelled. Goodbye.", intent.TargetBookingID)
	case ActionReschedule:
		return fmt.Sprintf("Your appointment has been moved to %s. Your confirmation ID is %s. Goodbye.",
			intent.Chosen.Spoken(), intent.ConfirmationID)
	default:
		return fmt.Sprintf("Your appointment for %s is booked. Your confirmation ID is %s. Goodbye.",
			intent.Chosen.Spoken(), intent.ConfirmationID)
	}
}

func utteranceProposal(slots []Slot) string {
	spoken := make([]string, len(slots))
	for i, slot := range slots {
		spoken[i] = slot.Spoken()
	}
	return fmt.Sprintf("I have the following times available: %s. Which one works for you?",
		strings.Join(spoken, ", "))
}

func utteranceNoSlots(doctor string) string {
	if doctor != "" {
		return fmt.Sprintf("I'm sorry, %s has no open appointments in the next week. Please call back later. Goodbye.", doctor)
	}
	return "I'm sorry, there are no open appointments in the next week. Please call back later. Goodbye."
}
