package bootstrap

import (
	"context"
	"fmt"

	"receptionist-server/internal/auth"
	"receptionist-server/internal/calendar"
	"receptionist-server/internal/call"
	calendlyClient "receptionist-server/internal/clients/calendly"
	elevenlabsClient "receptionist-server/internal/clients/elevenlabs"
	"receptionist-server/internal/clients/mail"
	openaiClient "receptionist-server/internal/clients/openai"
	redisClient "receptionist-server/internal/clients/redis"
	twilioClient "receptionist-server/internal/clients/twilio"
	"receptionist-server/internal/config"
	"receptionist-server/internal/dialog"
	"receptionist-server/internal/observability"
	"receptionist-server/internal/ops"
	"receptionist-server/internal/postcall"
	"receptionist-server/internal/ratelimit"
	"receptionist-server/internal/speech"
	"receptionist-server/internal/store"
	telephonyHandler "receptionist-server/internal/telephony/handler"
	"receptionist-server/internal/telephony/stream"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Store  store.Store
	Logger *observability.Logger

	Coordinator *call.Coordinator

	VoiceHandler telephonyHandler.Handler
	OpsHandler   ops.Handler
	// StreamHandler is nil when no OpenAI key is configured; the media
	// stream route is only registered when transcription is available.
	StreamHandler *stream.Handler

	AuthMiddleware *auth.Middleware
	RateLimiter    *ratelimit.Service

	redis        *redisClient.Client
	policyCloser func() error
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deps.redis, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// Calendar provider
	calendly := calendlyClient.NewClient(cfg.Calendly.BaseURL, cfg.Calendly.APIToken, logger)
	calendarAdapter := calendar.NewAdapter(calendly, cfg.Calendly.EventType, cfg.Calendly.SlotDuration, logger)

	// Speech synthesis with Redis-backed audio cache
	tts := elevenlabsClient.NewClient(cfg.Speech.ElevenLabsAPIKey, cfg.Speech.VoiceID, cfg.Speech.Model, logger)
	synthesizer := speech.NewSynthesizer(tts, deps.redis, cfg.Twilio.PublicBaseURL, logger)

	// Dialog policy
	policy, err := newDialogPolicy(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	// Notification clients
	twilioRest := twilioClient.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, logger)
	mailer, err := mail.NewResendClient(cfg.Notify.ResendAPIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resend client: %w", err)
	}

	archiver := postcall.NewArchiver(&deps.Store, twilioRest, mailer,
		cfg.Notify.DefaultEmailSender, cfg.Notify.ClinicEmail, cfg.Notify.ClinicName, logger)

	deps.Coordinator = call.NewCoordinator(policy, calendarAdapter, synthesizer, archiver, logger, call.Config{
		MaxRetries:   cfg.Call.MaxRetries,
		RetryBackoff: cfg.Call.RetryBackoff,
		MaxReprompts: cfg.Call.MaxReprompts,
		MaxReoffers:  cfg.Call.MaxReoffers,
		InboxLen:     cfg.Call.SessionInboxLen,
	})

	deps.VoiceHandler = telephonyHandler.New(deps.Coordinator, synthesizer, twilioRest,
		cfg.Twilio.PublicBaseURL, cfg.Twilio.HumanSupportNumber, logger)
	if cfg.Dialog.OpenAIAPIKey != "" {
		transcriber, err := openaiClient.NewClient(cfg.Dialog.OpenAIAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create transcription client: %w", err)
		}
		deps.StreamHandler = stream.New(transcriber, deps.Coordinator, logger)
	}
	deps.OpsHandler = ops.New(&deps.Store, deps.Coordinator, logger)
	deps.AuthMiddleware = auth.New(cfg.Auth.APIKeyHash, logger)
	deps.RateLimiter = ratelimit.NewService(deps.redis, 100, 0, logger)

	return deps, nil
}

func newDialogPolicy(ctx context.Context, cfg *config.Config, deps *Dependencies,
	logger *observability.Logger) (call.DialogPolicy, error) {
	switch cfg.Dialog.Provider {
	case "openai":
		client, err := openaiClient.NewClient(cfg.Dialog.OpenAIAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return dialog.NewOpenAIPolicy(client, cfg.Calendly.SlotDuration, logger), nil
	case "gemini":
		policy, err := dialog.NewGeminiPolicy(ctx, cfg.Dialog.GoogleAIAPIKey, cfg.Calendly.SlotDuration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini policy: %w", err)
		}
		deps.policyCloser = policy.Close
		return policy, nil
	default:
		return nil, fmt.Errorf("unknown dialog provider %q", cfg.Dialog.Provider)
	}
}

// Cleanup releases held connections. Call after the coordinator has shut down.
func (d *Dependencies) Cleanup(ctx context.Context) {
	if d.policyCloser != nil {
		if err := d.policyCloser(); err != nil {
			d.Logger.Error(ctx, "failed to close dialog policy client", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close Redis client", err)
		}
	}
	if db := d.Store.DB(); db != nil {
		if err := db.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close database", err)
		}
	}
}
