package apierrors

import (
	"errors"
	"strings"

	"receptionist-server/internal/call"
	"receptionist-server/internal/store"
)

// MapError converts domain errors to APIErrors. This centralizes error
// mapping so every handler responds consistently.
//
// If the error is already an APIError, it is returned as-is. Known domain
// errors map to specific responses; anything unknown becomes a sanitized
// 500.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, call.ErrSessionNotFound):
		return NotFound(CodeSessionNotFound, "Call session not found")

	case errors.Is(err, call.ErrSessionEnded):
		return Conflict(CodeSessionEnded, "Call session has already ended")

	case errors.Is(err, store.ErrNotFound):
		return NotFound(CodeNotFound, "Resource not found")

	default:
		return mapExternalServiceError(err)
	}
}

// mapExternalServiceError identifies upstream provider failures by message
// content and maps them to service-specific responses.
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "calendly") || strings.Contains(errMsg, "calendar") {
		return ServiceUnavailable(CodeCalendarError,
			"Scheduling provider is temporarily unavailable. Please try again later.")
	}

	if strings.Contains(errMsg, "elevenlabs") || strings.Contains(errMsg, "speech synthesis") {
		return ServiceUnavailable(CodeSpeechServiceError,
			"Speech service is temporarily unavailable. Please try again later.")
	}

	if strings.Contains(errMsg, "openai") || strings.Contains(errMsg, "gemini") {
		return ServiceUnavailable(CodeAIServiceError,
			"AI service is temporarily unavailable. Please try again later.")
	}

	if strings.Contains(errMsg, "twilio") {
		return ServiceUnavailable(CodeTelephonyError,
			"Telephony provider is temporarily unavailable. Please try again later.")
	}

	if strings.Contains(errMsg, "resend") || strings.Contains(errMsg, "email service") {
		return ServiceUnavailable(CodeEmailServiceError,
			"Email service is temporarily unavailable. Please try again later.")
	}

	return InternalError()
}
