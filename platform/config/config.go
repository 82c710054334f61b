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

// HTTPConfig provides HTTP server settings.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the Redis connection used for distributed locks.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// NotificationConfig provides agent notification channel settings.
type NotificationConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
	GetWhatsAppAPIURL() string
	GetWhatsAppAPIToken() string
	GetWhatsAppTemplate() string
	IsWhatsAppEnabled() bool
	GetDefaultPhoneRegion() string
}

// IngestionConfig provides settings for the lead ingestion core.
type IngestionConfig interface {
	GetAssignmentLockMode() string
	GetAssignmentLockTTL() time.Duration
	GetCampaignFallback() string
}

// IntegrationConfig provides settings for source integrations.
type IntegrationConfig interface {
	GetFacebookVerifyToken() string
	GetFacebookGraphURL() string
	GetIndiaMARTAPIURL() string
	GetCredentialsSecret() string
	GetSyncInterval() time.Duration
	GetSyncConcurrency() int
	GetMailboxBatchLimit() int
}

// =============================================================================
// Main Config Struct (implements all interfaces)
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Env string

	HTTPAddr       string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	DatabaseURL     string
	JWTAccessSecret string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	WhatsAppAPIURL     string
	WhatsAppAPIToken   string
	WhatsAppTemplate   string
	DefaultPhoneRegion string

	AssignmentLockMode string
	AssignmentLockTTL  time.Duration
	CampaignFallback   string

	FacebookVerifyToken string
	FacebookGraphURL    string
	IndiaMARTAPIURL     string
	CredentialsSecret   string
	SyncInterval        time.Duration
	SyncConcurrency     int
	MailboxBatchLimit   int
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// NotificationConfig implementation
func (c *Config) GetSMTPHost() string           { return c.SMTPHost }
func (c *Config) GetSMTPPort() int              { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string       { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string       { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string      { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string   { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool           { return c.SMTPHost != "" && c.EmailFromAddress != "" }
func (c *Config) GetWhatsAppAPIURL() string     { return c.WhatsAppAPIURL }
func (c *Config) GetWhatsAppAPIToken() string   { return c.WhatsAppAPIToken }
func (c *Config) GetWhatsAppTemplate() string   { return c.WhatsAppTemplate }
func (c *Config) IsWhatsAppEnabled() bool       { return c.WhatsAppAPIURL != "" && c.WhatsAppAPIToken != "" }
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// IngestionConfig implementation
func (c *Config) GetAssignmentLockMode() string       { return c.AssignmentLockMode }
func (c *Config) GetAssignmentLockTTL() time.Duration { return c.AssignmentLockTTL }
func (c *Config) GetCampaignFallback() string         { return c.CampaignFallback }

// IntegrationConfig implementation
func (c *Config) GetFacebookVerifyToken() string { return c.FacebookVerifyToken }
func (c *Config) GetFacebookGraphURL() string    { return c.FacebookGraphURL }
func (c *Config) GetIndiaMARTAPIURL() string     { return c.IndiaMARTAPIURL }
func (c *Config) GetCredentialsSecret() string   { return c.CredentialsSecret }
func (c *Config) GetSyncInterval() time.Duration { return c.SyncInterval }
func (c *Config) GetSyncConcurrency() int        { return c.SyncConcurrency }
func (c *Config) GetMailboxBatchLimit() int      { return c.MailboxBatchLimit }

// Load reads configuration from the environment, optionally seeded by a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Lead Desk"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		WhatsAppAPIURL:      getEnv("WHATSAPP_API_URL", ""),
		WhatsAppAPIToken:    getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppTemplate:    getEnv("WHATSAPP_TEMPLATE", "new_lead_assigned"),
		DefaultPhoneRegion:  strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "IN")),
		AssignmentLockMode:  strings.ToLower(getEnv("INGEST_LOCK_MODE", "local")),
		AssignmentLockTTL:   mustDuration(getEnv("INGEST_LOCK_TTL", "10s")),
		CampaignFallback:    strings.ToLower(getEnv("CAMPAIGN_FALLBACK", "widen")),
		FacebookVerifyToken: getEnv("FACEBOOK_VERIFY_TOKEN", ""),
		FacebookGraphURL:    getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v18.0"),
		IndiaMARTAPIURL:     getEnv("INDIAMART_API_URL", "https://api.indiamart.com/wservce/crm/crmListing/v2/"),
		CredentialsSecret:   getEnv("CREDENTIALS_SECRET", ""),
		SyncInterval:        mustDuration(getEnv("SYNC_INTERVAL", "15m")),
		SyncConcurrency:     mustInt(getEnv("SYNC_CONCURRENCY", "4")),
		MailboxBatchLimit:   mustInt(getEnv("MAILBOX_BATCH_LIMIT", "50")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AssignmentLockMode == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("INGEST_LOCK_MODE=redis requires REDIS_URL")
	}
	if cfg.CampaignFallback != "widen" && cfg.CampaignFallback != "strict" {
		return nil, fmt.Errorf("CAMPAIGN_FALLBACK must be widen or strict, got %q", cfg.CampaignFallback)
	}
	if cfg.AssignmentLockTTL <= 0 {
		cfg.AssignmentLockTTL = 10 * time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Minute
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
