package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	Calendly CalendlyConfig
	Speech   SpeechConfig
	Dialog   DialogConfig
	Notify   NotifyConfig
	Auth     AuthConfig
	Call     CallConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// RedisConfig holds Redis connection settings for the TTS audio cache
// and webhook rate limiting. Redis is optional; everything degrades
// gracefully when disabled.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TwilioConfig holds telephony provider settings
type TwilioConfig struct {
	AccountSID         string
	AuthToken          string
	FromNumber         string
	HumanSupportNumber string
	// PublicBaseURL is the externally reachable URL Twilio uses for
	// webhook callbacks and audio playback (e.g. an ngrok tunnel in dev).
	PublicBaseURL string
}

// CalendlyConfig holds calendar provider settings
type CalendlyConfig struct {
	APIToken string
	BaseURL  string
	// EventType is the Calendly event type URI appointments are booked
	// against.
	EventType string
	// SlotDuration is the assumed appointment length when building
	// availability windows.
	SlotDuration time.Duration
}

// SpeechConfig holds text-to-speech settings
type SpeechConfig struct {
	ElevenLabsAPIKey string
	VoiceID          string
	Model            string
}

// DialogConfig holds dialog policy LLM settings
type DialogConfig struct {
	Provider       string // "openai" or "gemini"
	OpenAIAPIKey   string
	GoogleAIAPIKey string
}

// NotifyConfig holds booking confirmation delivery settings
type NotifyConfig struct {
	ResendAPIKey       string
	DefaultEmailSender string
	// ClinicEmail receives a copy of every booking confirmation with
	// the PDF document attached.
	ClinicEmail string
	ClinicName  string
}

// AuthConfig holds authentication for the operator API surface
type AuthConfig struct {
	// APIKeyHash is a bcrypt hash of the operator API key; requests to
	// the ops endpoints must present the plaintext key in X-API-Key.
	APIKeyHash string
}

// CallConfig holds call workflow coordinator bounds
type CallConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxReprompts    int
	MaxReoffers     int
	SessionInboxLen int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Database configuration
	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Redis configuration (optional)
	cfg.Redis.Enabled = getEnvWithDefault("REDIS_ENABLED", "false") == "true"
	if cfg.Redis.Enabled {
		if cfg.Redis.Host, err = requireEnv("REDIS_HOST"); err != nil {
			return nil, err
		}
		if cfg.Redis.Port, err = intEnvWithDefault("REDIS_PORT", 6379); err != nil {
			return nil, err
		}
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
		if cfg.Redis.DB, err = intEnvWithDefault("REDIS_DB", 0); err != nil {
			return nil, err
		}
	}

	// Twilio configuration
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.Twilio.FromNumber, err = requireEnv("TWILIO_FROM_NUMBER"); err != nil {
		return nil, err
	}
	if cfg.Twilio.HumanSupportNumber, err = requireEnv("HUMAN_SUPPORT_NUMBER"); err != nil {
		return nil, err
	}
	if cfg.Twilio.HumanSupportNumber[0] != '+' {
		return nil, fmt.Errorf("HUMAN_SUPPORT_NUMBER must be in E.164 format")
	}
	if cfg.Twilio.PublicBaseURL, err = requireEnv("PUBLIC_BASE_URL"); err != nil {
		return nil, err
	}

	// Calendly configuration
	if cfg.Calendly.APIToken, err = requireEnv("CALENDLY_TOKEN"); err != nil {
		return nil, err
	}
	cfg.Calendly.BaseURL = getEnvWithDefault("CALENDLY_BASE_URL", "https://api.calendly.com")
	if cfg.Calendly.EventType, err = requireEnv("CALENDLY_EVENT_TYPE"); err != nil {
		return nil, err
	}
	slotMinutes, err := intEnvWithDefault("CALENDLY_SLOT_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.Calendly.SlotDuration = time.Duration(slotMinutes) * time.Minute

	// Speech synthesis configuration
	if cfg.Speech.ElevenLabsAPIKey, err = requireEnv("ELEVENLABS_API_KEY"); err != nil {
		return nil, err
	}
	cfg.Speech.VoiceID = getEnvWithDefault("ELEVENLABS_VOICE_ID", "3UFZ7Pkyx3hNTropzBlS")
	cfg.Speech.Model = getEnvWithDefault("ELEVENLABS_MODEL", "eleven_multilingual_v2")

	// Dialog policy configuration
	cfg.Dialog.Provider = getEnvWithDefault("DIALOG_PROVIDER", "openai")
	switch cfg.Dialog.Provider {
	case "openai":
		if cfg.Dialog.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	case "gemini":
		if cfg.Dialog.GoogleAIAPIKey, err = requireEnv("GOOGLE_AI_API_KEY"); err != nil {
			return nil, err
		}
		// Media stream transcription still runs on Whisper when a key
		// is present.
		cfg.Dialog.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	default:
		return nil, fmt.Errorf("unknown DIALOG_PROVIDER %q", cfg.Dialog.Provider)
	}

	// Notification configuration
	if cfg.Notify.ResendAPIKey, err = requireEnv("RESEND_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Notify.DefaultEmailSender, err = requireEnv("DEFAULT_EMAIL_SENDER_ADDRESS"); err != nil {
		return nil, err
	}
	cfg.Notify.ClinicEmail = getEnvWithDefault("CLINIC_NOTIFICATION_EMAIL", cfg.Notify.DefaultEmailSender)
	cfg.Notify.ClinicName = getEnvWithDefault("CLINIC_NAME", "the clinic")

	// Operator API authentication
	if cfg.Auth.APIKeyHash, err = requireEnv("API_KEY_HASH"); err != nil {
		return nil, err
	}

	// Call workflow bounds
	if cfg.Call.MaxRetries, err = intEnvWithDefault("CALL_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	backoffMs, err := intEnvWithDefault("CALL_RETRY_BACKOFF_MS", 200)
	if err != nil {
		return nil, err
	}
	cfg.Call.RetryBackoff = time.Duration(backoffMs) * time.Millisecond
	if cfg.Call.MaxReprompts, err = intEnvWithDefault("CALL_MAX_REPROMPTS", 2); err != nil {
		return nil, err
	}
	if cfg.Call.MaxReoffers, err = intEnvWithDefault("CALL_MAX_REOFFERS", 2); err != nil {
		return nil, err
	}
	if cfg.Call.SessionInboxLen, err = intEnvWithDefault("CALL_SESSION_INBOX_LEN", 8); err != nil {
		return nil, err
	}

	// Server configuration
	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// intEnvWithDefault retrieves an integer environment variable or returns a default
func intEnvWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}
