// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Port           string
	PublicBaseURL  string // used for media URLs and Twilio signature checks
	AllowedOrigins []string
	APIKey         string // required for /api; empty leaves /api unmounted

	Store           string
	DatabaseURL     string
	SQLitePath      string
	SessionTTL      time.Duration
	SessionCapacity int

	MediaDir      string
	MediaTTL      time.Duration
	PurgeInterval time.Duration

	RateLimitPerMinute int

	Sarvam   SarvamConfig
	DeepSeek DeepSeekConfig
	TTS      TTSConfig
	Twilio   TwilioConfig
	RabbitMQ RabbitMQConfig
	Mail     MailConfig
	Kommo    KommoConfig
	WhatsApp WhatsAppConfig
}

type SarvamConfig struct {
	APIKey  string
	BaseURL string
}

type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type TTSConfig struct {
	Enabled         bool
	CredentialsFile string
	MaxDuration     time.Duration // longer voice notes are dropped, 0 disables
}

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	ValidateSignature bool
}

type RabbitMQConfig struct {
	URL string // empty disables lead events
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

type KommoConfig struct {
	BaseURL  string
	APIToken string
	StatusID int
}

type WhatsAppConfig struct {
	BaseURL      string
	AccessToken  string
	PhoneID      string
	TemplateName string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		APIKey:         getEnv("API_KEY", ""),

		Store:           strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/sessions.db"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 10000),

		MediaDir:      getEnv("MEDIA_DIR", "./data/media"),
		MediaTTL:      getEnvDuration("MEDIA_TTL", time.Hour),
		PurgeInterval: getEnvDuration("PURGE_INTERVAL", 5*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		Sarvam: SarvamConfig{
			APIKey:  getEnv("SARVAM_API_KEY", ""),
			BaseURL: getEnv("SARVAM_BASE_URL", ""),
		},
		DeepSeek: DeepSeekConfig{
			APIKey:  getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL: getEnv("DEEPSEEK_BASE_URL", ""),
			Model:   getEnv("DEEPSEEK_MODEL", ""),
		},
		TTS: TTSConfig{
			Enabled:         getEnvBool("TTS_ENABLED", true),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			MaxDuration:     getEnvDuration("TTS_MAX_DURATION", 2*time.Minute),
		},
		Twilio: TwilioConfig{
			AccountSID:        getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:         getEnv("TWILIO_AUTH_TOKEN", ""),
			ValidateSignature: getEnvBool("TWILIO_VALIDATE_SIGNATURE", true),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", ""),
			Port:     getEnvInt("MAIL_PORT", 587),
			User:     getEnv("MAIL_USER", ""),
			Password: getEnv("MAIL_PASS", ""),
			From:     getEnv("MAIL_FROM", "loan-bot@localhost"),
			To:       getEnvList("MAIL_TO", nil),
		},
		Kommo: KommoConfig{
			BaseURL:  getEnv("KOMMO_BASE_URL", ""),
			APIToken: getEnv("KOMMO_API_TOKEN", ""),
			StatusID: getEnvInt("KOMMO_STATUS_ID", 0),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:      getEnv("WHATSAPP_BASE_URL", ""),
			AccessToken:  getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneID:      getEnv("WHATSAPP_PHONE_ID", ""),
			TemplateName: getEnv("WHATSAPP_TEMPLATE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.Store {
	case StoreMemory:
		if c.SessionCapacity <= 0 {
			return fmt.Errorf("SESSION_CAPACITY must be > 0")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be memory, sqlite or postgres, got %q", c.Store)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.TTS.MaxDuration < 0 {
		return fmt.Errorf("TTS_MAX_DURATION must be >= 0")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if c.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR cannot be empty")
	}
	return nil
}

// SignatureCheckEnabled is true when Twilio webhooks must be signed.
func (c *Config) SignatureCheckEnabled() bool {
	return c.Twilio.ValidateSignature && c.Twilio.AuthToken != ""
}

// APIEnabled is true when the JSON API can be authenticated.
func (c *Config) APIEnabled() bool {
	return c.APIKey != ""
}

// LeadsEnabled is true when decisions are published to RabbitMQ.
func (c *Config) LeadsEnabled() bool {
	return c.RabbitMQ.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
