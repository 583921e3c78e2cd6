package api

import (
	"net/http"

	"receptionist-server/internal/auth"
	"receptionist-server/internal/ops"
	"receptionist-server/internal/ratelimit"
	telephonyHandler "receptionist-server/internal/telephony/handler"
	"receptionist-server/internal/telephony/stream"

	"github.com/gin-gonic/gin"
)

type API struct {
	router        *gin.RouterGroup
	voiceHandler  telephonyHandler.Handler
	streamHandler *stream.Handler
	opsHandler    ops.Handler
	authMW        *auth.Middleware
	rateLimiter   *ratelimit.Service
}

func New(router *gin.RouterGroup, voiceHandler telephonyHandler.Handler, streamHandler *stream.Handler,
	opsHandler ops.Handler, authMW *auth.Middleware, rateLimiter *ratelimit.Service) API {
	return API{
		router:        router,
		voiceHandler:  voiceHandler,
		streamHandler: streamHandler,
		opsHandler:    opsHandler,
		authMW:        authMW,
		rateLimiter:   rateLimiter,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()

	webhookGroup := a.router.Group("/webhooks",
		a.rateLimiter.Middleware(), a.voiceHandler.ValidateTwilioSignature)
	{
		webhookGroup.POST("/voice", a.voiceHandler.HandleIncomingCall)
		webhookGroup.POST("/voice/collect", a.voiceHandler.HandleCollect)
		webhookGroup.POST("/voice/status", a.voiceHandler.HandleStatus)
	}

	// Twilio fetches prompt audio with a plain GET; no signature to check.
	a.router.GET("/audio/:id", a.voiceHandler.HandleAudio)

	// WebSocket upgrade; Twilio signs the upgrade differently, so the
	// form-based validator does not apply here.
	if a.streamHandler != nil {
		a.router.GET("/webhooks/voice/stream", a.streamHandler.HandleMediaStream)
	}

	opsGroup := a.router.Group("/ops", a.authMW.RequireAPIKey)
	{
		opsGroup.GET("/sessions", a.opsHandler.HandleListSessions)
		opsGroup.GET("/sessions/:sid", a.opsHandler.HandleGetSession)
		opsGroup.GET("/bookings", a.opsHandler.HandleGetBookings)
		opsGroup.GET("/confirmations/:id/pdf", a.opsHandler.HandleGetConfirmationPDF)
		opsGroup.GET("/stats", a.opsHandler.HandleStats)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
