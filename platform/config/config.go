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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// QueueConfig provides settings for the asynq client, inspector and worker.
type QueueConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetQueueName() string
	GetWorkerConcurrency() int
	GetCompletedTaskRetention() time.Duration
	GetCompletedTaskMaxCount() int
	GetStatsTimeout() time.Duration
}

// AnalysisConfig provides settings for the transcript analysis client.
type AnalysisConfig interface {
	GetAnalysisAPIKey() string
	GetAnalysisBaseURL() string
	GetAnalysisModel() string
	IsAnalysisEnabled() bool
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketRecordings() string
	IsMinIOEnabled() bool
}

// AlertConfig provides settings for operator alert emails.
type AlertConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromAddress() string
	GetAlertToAddress() string
	IsAlertingEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	RedisURL               string
	RedisTLSInsecure       bool
	QueueName              string
	WorkerConcurrency      int
	CompletedTaskRetention time.Duration
	CompletedTaskMaxCount  int
	StatsTimeout           time.Duration
	AnalysisAPIKey         string
	AnalysisBaseURL        string
	AnalysisModel          string
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketRecordings  string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	AlertFromAddress       string
	AlertToAddress         string
}

// Load reads configuration from the environment. A .env file is loaded first
// when present (development convenience; real deployments set env vars).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                    getEnv("ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":3001"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		CORSAllowAll:           getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:            splitAndTrim(os.Getenv("CORS_ORIGINS")),
		RedisURL:               os.Getenv("REDIS_URL"),
		RedisTLSInsecure:       getEnvBool("REDIS_TLS_INSECURE", false),
		QueueName:              getEnv("QUEUE_NAME", "calls"),
		WorkerConcurrency:      getEnvInt("WORKER_CONCURRENCY", 10),
		CompletedTaskRetention: getEnvDuration("COMPLETED_TASK_RETENTION", 24*time.Hour),
		CompletedTaskMaxCount:  getEnvInt("COMPLETED_TASK_MAX_COUNT", 10000),
		StatsTimeout:           getEnvDuration("QUEUE_STATS_TIMEOUT", 3*time.Second),
		AnalysisAPIKey:         os.Getenv("ANALYSIS_API_KEY"),
		AnalysisBaseURL:        getEnv("ANALYSIS_BASE_URL", "https://api.moonshot.ai/v1"),
		AnalysisModel:          getEnv("ANALYSIS_MODEL", "kimi-k2-turbo-preview"),
		MinIOEndpoint:          os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:         os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:         os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:            getEnvBool("MINIO_USE_SSL", false),
		MinioBucketRecordings:  getEnv("MINIO_BUCKET_RECORDINGS", "call-recordings"),
		SMTPHost:               os.Getenv("SMTP_HOST"),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPassword:           os.Getenv("SMTP_PASSWORD"),
		AlertFromAddress:       os.Getenv("ALERT_FROM_ADDRESS"),
		AlertToAddress:         os.Getenv("ALERT_TO_ADDRESS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// DatabaseConfig
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// QueueConfig
func (c *Config) GetRedisURL() string                      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                { return c.RedisTLSInsecure }
func (c *Config) GetQueueName() string                     { return c.QueueName }
func (c *Config) GetWorkerConcurrency() int                { return c.WorkerConcurrency }
func (c *Config) GetCompletedTaskRetention() time.Duration { return c.CompletedTaskRetention }
func (c *Config) GetCompletedTaskMaxCount() int            { return c.CompletedTaskMaxCount }
func (c *Config) GetStatsTimeout() time.Duration           { return c.StatsTimeout }

// AnalysisConfig
func (c *Config) GetAnalysisAPIKey() string  { return c.AnalysisAPIKey }
func (c *Config) GetAnalysisBaseURL() string { return c.AnalysisBaseURL }
func (c *Config) GetAnalysisModel() string   { return c.AnalysisModel }
func (c *Config) IsAnalysisEnabled() bool    { return c.AnalysisAPIKey != "" }

// StorageConfig
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketRecordings() string { return c.MinioBucketRecordings }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

// AlertConfig
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetAlertFromAddress() string { return c.AlertFromAddress }
func (c *Config) GetAlertToAddress() string   { return c.AlertToAddress }
func (c *Config) IsAlertingEnabled() bool {
	return c.SMTPHost != "" && c.AlertToAddress != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
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

func getEnvInt(key string, fallback int) int {
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
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

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
