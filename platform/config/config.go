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

// WorkerConfig provides settings for the task queue client and worker.
type WorkerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetQueueName() string
	GetConcurrency() int
	GetDispatchMaxRetry() int
	GetDispatchRetryDelay() time.Duration
}

// MonitorConfig provides settings for the stuck-campaign monitor.
type MonitorConfig interface {
	GetStuckMaxDuration() time.Duration
	GetStartupGrace() time.Duration
	GetMonitorInterval() time.Duration
}

// SearchConfig provides settings for the lead search providers.
type SearchConfig interface {
	GetPlacesBaseURL() string
	GetPlacesUserAgent() string
	GetPlacesRatePerSecond() float64
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsQueryPlannerEnabled() bool
}

// EmailConfig provides settings for SMTP notification delivery.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCampaignExports() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RedisURL            string
	RedisTLSInsecure    bool
	QueueName           string
	Concurrency         int
	DispatchMaxRetry    int
	DispatchRetryDelay  time.Duration
	StuckMaxDuration    time.Duration
	StartupGrace        time.Duration
	MonitorInterval     time.Duration
	PlacesBaseURL       string
	PlacesUserAgent     string
	PlacesRatePerSecond float64
	GeminiAPIKey        string
	GeminiModel         string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	BucketExports       string
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

// WorkerConfig implementation
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetQueueName() string                 { return c.QueueName }
func (c *Config) GetConcurrency() int                  { return c.Concurrency }
func (c *Config) GetDispatchMaxRetry() int             { return c.DispatchMaxRetry }
func (c *Config) GetDispatchRetryDelay() time.Duration { return c.DispatchRetryDelay }

// MonitorConfig implementation
func (c *Config) GetStuckMaxDuration() time.Duration { return c.StuckMaxDuration }
func (c *Config) GetStartupGrace() time.Duration     { return c.StartupGrace }
func (c *Config) GetMonitorInterval() time.Duration  { return c.MonitorInterval }

// SearchConfig implementation
func (c *Config) GetPlacesBaseURL() string       { return c.PlacesBaseURL }
func (c *Config) GetPlacesUserAgent() string     { return c.PlacesUserAgent }
func (c *Config) GetPlacesRatePerSecond() float64 { return c.PlacesRatePerSecond }
func (c *Config) GetGeminiAPIKey() string        { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string         { return c.GeminiModel }
func (c *Config) IsQueryPlannerEnabled() bool    { return c.GeminiAPIKey != "" }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCampaignExports() string {
	return c.BucketExports
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
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
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		QueueName:           getEnv("QUEUE_NAME", "campaigns"),
		Concurrency:         mustInt(getEnv("WORKER_CONCURRENCY", "10")),
		DispatchMaxRetry:    mustInt(getEnv("DISPATCH_MAX_RETRY", "3")),
		DispatchRetryDelay:  mustDuration(getEnv("DISPATCH_RETRY_DELAY", "5m")),
		StuckMaxDuration:    mustDuration(getEnv("CAMPAIGN_STUCK_MAX_DURATION", "4h")),
		StartupGrace:        mustDuration(getEnv("CAMPAIGN_STARTUP_GRACE", "5m")),
		MonitorInterval:     mustDuration(getEnv("CAMPAIGN_MONITOR_INTERVAL", "15m")),
		PlacesBaseURL:       getEnv("PLACES_BASE_URL", "https://nominatim.openstreetmap.org"),
		PlacesUserAgent:     getEnv("PLACES_USER_AGENT", "LeadGenBackend/1.0"),
		PlacesRatePerSecond: mustFloat(getEnv("PLACES_RATE_PER_SECOND", "1")),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "LeadGen"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:       getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:         strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		BucketExports:       getEnv("MINIO_BUCKET_CAMPAIGN_EXPORTS", "campaign-exports"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.DispatchMaxRetry < 0 {
		return nil, fmt.Errorf("DISPATCH_MAX_RETRY must not be negative")
	}
	if cfg.StuckMaxDuration <= 0 {
		return nil, fmt.Errorf("CAMPAIGN_STUCK_MAX_DURATION must be positive")
	}
	if cfg.StartupGrace <= 0 {
		return nil, fmt.Errorf("CAMPAIGN_STARTUP_GRACE must be positive")
	}
	if cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("CAMPAIGN_MONITOR_INTERVAL must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
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
