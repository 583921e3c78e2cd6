package ops

import (
	"context"
	"net/http"

	"receptionist-server/internal/apierrors"
	"receptionist-server/internal/observability"
	"receptionist-server/internal/store"

	"github.com/gin-gonic/gin"
)

const defaultSessionListLimit = 50

// SessionReader is the slice of the store the operator surface reads.
type SessionReader interface {
	GetCallSessionBySID(ctx context.Context, callSID string) (*store.CallSessionRecord, error)
	ListRecentCallSessions(ctx context.Context, limit int) ([]store.CallSessionRecord, error)
	GetBookingsByCallerNumber(ctx context.Context, callerNumber string) ([]store.Booking, error)
	GetConfirmationDocument(ctx context.Context, confirmationID string) (*store.ConfirmationDocument, error)
}

// SessionCounter reports how many calls are currently in flight.
type SessionCounter interface {
	ActiveSessions() int
}

type Handler struct {
	reader  SessionReader
	counter SessionCounter
	logger  *observability.Logger
}

func New(reader SessionReader, counter SessionCounter, logger *observability.Logger) Handler {
	return Handler{reader: reader, counter: counter, logger: logger}
}

// HandleGetSession returns the archived transcript for one call.
func (h *Handler) HandleGetSession(c *gin.Context) {
	record, err := h.reader.GetCallSessionBySID(c.Request.Context(), c.Param("sid"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type listSessionsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// HandleListSessions returns the most recently archived calls.
func (h *Handler) HandleListSessions(c *gin.Context) {
	var req listSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSessionListLimit
	}

	records, err := h.reader.ListRecentCallSessions(c.Request.Context(), limit)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

// HandleGetBookings returns bookings made by one caller number.
func (h *Handler) HandleGetBookings(c *gin.Context) {
	number := c.Query("caller")
	if number == "" {
		apierrors.RespondWithError(c,
			apierrors.BadRequest(apierrors.CodeInvalidInput, "caller query parameter is required"))
		return
	}

	bookings, err := h.reader.GetBookingsByCallerNumber(c.Request.Context(), number)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// HandleGetConfirmationPDF streams a stored confirmation document.
func (h *Handler) HandleGetConfirmationPDF(c *gin.Context) {
	doc, err := h.reader.GetConfirmationDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="confirmation-`+doc.ConfirmationID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc.PDF)
}

// HandleStats reports live coordinator stats.
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active_sessions": h.counter.ActiveSessions()})
}
