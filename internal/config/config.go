// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding tracker.db (always absolute)
	DBDriver string // "sqlite" (modernc) or "sqlite3" (mattn)
	LogLevel string
	Port     int
	DevMode  bool

	AlphaVantage ProviderConfig // Listing-status CSV feed
	Finnhub      ProviderConfig // Metrics and quote JSON feeds

	// MarketDataDelay is the minimum interval between calls to the market-data
	// provider during ingestion and price refresh (avoids HTTP 429).
	MarketDataDelay time.Duration
	// StalenessThreshold is the maximum age of a portfolio's metrics before a
	// read triggers a price refresh.
	StalenessThreshold time.Duration
	HTTPTimeout        time.Duration

	IngestOnStartup   bool
	IngestionSchedule string // Standard 5-field cron expression; empty disables

	MaintenanceSchedule string // Integrity check + VACUUM; empty disables
	Backup              BackupConfig
}

// BackupConfig holds the remote backup settings. Backups are disabled
// unless a bucket is configured.
type BackupConfig struct {
	Endpoint        string // S3-compatible endpoint (R2, MinIO); empty for AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	RetentionDays   int // 0 keeps every backup
}

// Enabled reports whether remote backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// ProviderConfig holds the base URL and API key of one external provider
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  dataDir,
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		AlphaVantage: ProviderConfig{
			BaseURL: strings.TrimRight(getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"), "/"),
			APIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
		},
		Finnhub: ProviderConfig{
			BaseURL: strings.TrimRight(getEnv("FINNHUB_BASE_URL", "https://finnhub.io"), "/"),
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
		},
		MarketDataDelay:    getEnvAsDuration("MARKET_DATA_DELAY", 3*time.Second),
		StalenessThreshold: getEnvAsDuration("STALENESS_THRESHOLD", 15*time.Minute),
		HTTPTimeout:        getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		IngestOnStartup:    getEnvAsBool("INGEST_ON_STARTUP", true),
		IngestionSchedule:  getEnv("INGESTION_SCHEDULE", ""),

		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 3 * * 0"),
		Backup: BackupConfig{
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 2 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d", c.Port)
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "sqlite3" {
		return fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite or sqlite3)", c.DBDriver)
	}
	if c.AlphaVantage.BaseURL == "" {
		return fmt.Errorf("alphavantage base url cannot be empty")
	}
	if c.Finnhub.BaseURL == "" {
		return fmt.Errorf("finnhub base url cannot be empty")
	}
	// Zero delay is allowed (no throttling); negative is not
	if c.MarketDataDelay < 0 {
		return fmt.Errorf("market data delay cannot be negative")
	}
	if c.StalenessThreshold <= 0 {
		return fmt.Errorf("staleness threshold must be greater than 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be greater than 0")
	}
	schedules := map[string]string{
		"INGESTION_SCHEDULE":   c.IngestionSchedule,
		"MAINTENANCE_SCHEDULE": c.MaintenanceSchedule,
	}
	if c.Backup.Enabled() {
		schedules["BACKUP_SCHEDULE"] = c.Backup.Schedule
		if c.Backup.Schedule == "" {
			return fmt.Errorf("BACKUP_SCHEDULE cannot be empty when BACKUP_S3_BUCKET is set")
		}
	}
	for key, schedule := range schedules {
		if schedule == "" {
			continue
		}
		if _, err := cron.ParseStandard(schedule); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, schedule, err)
		}
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention days cannot be negative")
	}

	// API keys are optional: the service still serves stored data without them
	return nil
}

// DatabasePath returns the tracker database file location
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tracker.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("3s", "15m") or bare seconds ("3")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
