// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/homeledger/internal/backup"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Timezone is the IANA zone used for day and month boundaries.
	Timezone string

	// AMQP change feed; disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string

	// Backups; disabled unless the bucket, keys and passphrase are set.
	S3Endpoint          string
	S3Bucket            string
	S3Region            string
	S3AccessKey         string
	S3SecretKey         string
	BackupPassphrase    string
	BackupHour          int
	BackupRetentionDays int

	// Rate limiting per actor.
	RateLimit       int
	RateLimitWindow time.Duration

	// AdminActors may manage backups. When empty, only actors without a
	// group restriction may.
	AdminActors []string
}

func Load() *Config {
	return &Config{
		Port:   getEnv("HOMELEDGER_PORT", "8080"),
		DBPath: getEnv("HOMELEDGER_DB_PATH", "homeledger.db"),

		LogLevel:  getEnv("HOMELEDGER_LOG_LEVEL", "info"),
		LogFormat: getEnv("HOMELEDGER_LOG_FORMAT", "text"),

		Timezone: getEnv("HOMELEDGER_TIMEZONE", "UTC"),

		AMQPURL:      getEnv("HOMELEDGER_AMQP_URL", ""),
		AMQPExchange: getEnv("HOMELEDGER_AMQP_EXCHANGE", "homeledger"),

		S3Endpoint:          getEnv("HOMELEDGER_S3_ENDPOINT", ""),
		S3Bucket:            getEnv("HOMELEDGER_S3_BUCKET", ""),
		S3Region:            getEnv("HOMELEDGER_S3_REGION", "us-east-1"),
		S3AccessKey:         getEnv("HOMELEDGER_S3_ACCESS_KEY", ""),
		S3SecretKey:         getEnv("HOMELEDGER_S3_SECRET_KEY", ""),
		BackupPassphrase:    getEnv("HOMELEDGER_BACKUP_PASSPHRASE", ""),
		BackupHour:          getEnvInt("HOMELEDGER_BACKUP_HOUR", 3),
		BackupRetentionDays: getEnvInt("HOMELEDGER_BACKUP_RETENTION_DAYS", 30),

		RateLimit:       getEnvInt("HOMELEDGER_RATE_LIMIT", 120),
		RateLimitWindow: getEnvDuration("HOMELEDGER_RATE_LIMIT_WINDOW", time.Minute),

		AdminActors: getEnvList("HOMELEDGER_ADMIN_ACTORS"),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.S3Endpoint != "" {
		if u, err := url.Parse(c.S3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid S3 endpoint '%s': must be an absolute URL", c.S3Endpoint))
		}
	}
	if c.S3Bucket != "" && c.BackupPassphrase == "" {
		errors = append(errors, "backup passphrase is required when an S3 bucket is configured")
	}
	if c.BackupHour < 0 || c.BackupHour > 23 {
		errors = append(errors, fmt.Sprintf("invalid backup hour %d: must be between 0 and 23", c.BackupHour))
	}
	if c.BackupRetentionDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid backup retention %d: must be at least 1 day", c.BackupRetentionDays))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Backup() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		},
		Passphrase:    c.BackupPassphrase,
		Hour:          c.BackupHour,
		RetentionDays: c.BackupRetentionDays,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
