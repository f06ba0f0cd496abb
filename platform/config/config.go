// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string // "brevo" or "smtp"
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// StripeConfig provides settings for the payment provider integration.
type StripeConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	GetStripePriceID(plan string) string
	GetCheckoutSuccessURL() string
	GetCheckoutCancelURL() string
	IsStripeEnabled() bool
}

// AIConfig provides settings for the lead classifier model.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetClassifierModel() string
	GetClassifierTimeout() time.Duration
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// IngestConfig provides settings for inbound email lead ingestion.
type IngestConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPPollInterval() time.Duration
	IsEmailIngestEnabled() bool
}

// NotificationConfig provides settings for outbound links in notifications.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	AppBaseURL        string
	EmailEnabled      bool
	EmailProvider     string
	BrevoAPIKey       string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	StripeSecretKey   string
	StripeWebhookKey  string
	StripePriceIDs    map[string]string
	CheckoutSuccess   string
	CheckoutCancel    string
	MoonshotAPIKey    string
	ClassifierModel   string
	ClassifierTimeout time.Duration
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	IMAPHost          string
	IMAPPort          int
	IMAPUsername      string
	IMAPPassword      string
	IMAPPollInterval  time.Duration
	EmailIngest       bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }
func (c *Config) GetAppBaseURL() string     { return c.AppBaseURL }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetStripeSecretKey() string     { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string { return c.StripeWebhookKey }
func (c *Config) GetCheckoutSuccessURL() string  { return c.CheckoutSuccess }
func (c *Config) GetCheckoutCancelURL() string   { return c.CheckoutCancel }
func (c *Config) IsStripeEnabled() bool          { return c.StripeSecretKey != "" }

// GetStripePriceID returns the provider price ID for a plan, or "" when the
// plan has no purchasable price (trial).
func (c *Config) GetStripePriceID(plan string) string {
	return c.StripePriceIDs[strings.ToLower(plan)]
}

func (c *Config) GetMoonshotAPIKey() string           { return c.MoonshotAPIKey }
func (c *Config) GetClassifierModel() string          { return c.ClassifierModel }
func (c *Config) GetClassifierTimeout() time.Duration { return c.ClassifierTimeout }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetIMAPHost() string                  { return c.IMAPHost }
func (c *Config) GetIMAPPort() int                     { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string              { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string              { return c.IMAPPassword }
func (c *Config) GetIMAPPollInterval() time.Duration   { return c.IMAPPollInterval }
func (c *Config) IsEmailIngestEnabled() bool {
	return c.EmailIngest && c.IMAPHost != "" && c.IMAPUsername != ""
}

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory.
func Load() (*Config, error) {
	// Missing .env is fine in production; real env vars take precedence.
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:     getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds:   getBool("CORS_ALLOW_CREDENTIALS", true),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:5173"),
		EmailEnabled:     getBool("EMAIL_ENABLED", false),
		EmailProvider:    getEnv("EMAIL_PROVIDER", "brevo"),
		BrevoAPIKey:      os.Getenv("BREVO_API_KEY"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "LeadRanker"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@leadranker.app"),
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceIDs: map[string]string{
			"starter":    os.Getenv("STRIPE_STARTER_PRICE"),
			"team":       os.Getenv("STRIPE_TEAM_PRICE"),
			"enterprise": os.Getenv("STRIPE_ENTERPRISE_PRICE"),
		},
		CheckoutSuccess:   getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:5173/billing?success=true&session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancel:    getEnv("CHECKOUT_CANCEL_URL", "http://localhost:5173/billing?canceled=true"),
		MoonshotAPIKey:    os.Getenv("MOONSHOT_API_KEY"),
		ClassifierModel:   getEnv("CLASSIFIER_MODEL", "kimi-k2.5"),
		ClassifierTimeout: getDuration("CLASSIFIER_TIMEOUT", 8*time.Second),
		RedisURL:          os.Getenv("REDIS_URL"),
		RedisTLSInsecure:  getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:  getInt("ASYNQ_CONCURRENCY", 10),
		IMAPHost:          os.Getenv("IMAP_HOST"),
		IMAPPort:          getInt("IMAP_PORT", 993),
		IMAPUsername:      os.Getenv("IMAP_USERNAME"),
		IMAPPassword:      os.Getenv("IMAP_PASSWORD"),
		IMAPPollInterval:  getDuration("IMAP_POLL_INTERVAL", 2*time.Minute),
		EmailIngest:       getBool("EMAIL_INGEST_ENABLED", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
