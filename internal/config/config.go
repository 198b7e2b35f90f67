// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	LogLevel     string
	LogPretty    bool
	LogFile      string
	Port         int
	DevMode      bool

	// Tick loop
	PollInterval      time.Duration
	HTTPTimeout       time.Duration
	WorkerConcurrency int

	// Feature engine periods
	EMAShort  int
	EMALong   int
	ATRPeriod int
	VolWindow int
	RSIPeriod int

	// Market data
	ProviderOrder      []string
	CBFailThreshold    int
	CBOpenDuration     time.Duration
	PriceCacheTTL      time.Duration
	ProviderRatePerSec float64

	// Notifications
	TelegramBotToken string
	TelegramChatID   string

	// Maintenance
	AlertRetentionDays  int
	MaintenanceSchedule string

	// Off-site backups (S3 compatible, e.g. Cloudflare R2). Disabled without a bucket.
	BackupBucket          string
	BackupEndpoint        string
	BackupRegion          string
	BackupAccessKeyID     string
	BackupSecretAccessKey string
	BackupSchedule        string
	BackupRetentionDays   int

	// SeedFile is an optional YAML portfolio applied at startup
	SeedFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "./data/alerts.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", true),
		LogFile:      getEnv("LOG_FILE", ""),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),

		PollInterval:      getEnvAsSeconds("POLL_INTERVAL_SEC", 30),
		HTTPTimeout:       getEnvAsSeconds("HTTP_TIMEOUT_SEC", 8),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 1),

		EMAShort:  getEnvAsInt("EMA_SHORT", 50),
		EMALong:   getEnvAsInt("EMA_LONG", 200),
		ATRPeriod: getEnvAsInt("ATR_PERIOD", 14),
		VolWindow: getEnvAsInt("VOL_WINDOW", 30),
		RSIPeriod: getEnvAsInt("RSI_PERIOD", 14),

		ProviderOrder:      getEnvAsList("PROVIDER_ORDER", "BINANCE,COINBASE,COINGECKO"),
		CBFailThreshold:    getEnvAsInt("CB_FAIL_THRESHOLD", 4),
		CBOpenDuration:     getEnvAsSeconds("CB_OPEN_SECONDS", 120),
		PriceCacheTTL:      getEnvAsSeconds("PRICE_CACHE_TTL_SEC", 8),
		ProviderRatePerSec: getEnvAsFloat("PROVIDER_RATE_PER_SEC", 5),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		AlertRetentionDays:  getEnvAsInt("ALERT_RETENTION_DAYS", 30),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 30 3 * * *"),

		BackupBucket:          getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:        getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:          getEnv("BACKUP_REGION", "auto"),
		BackupAccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		BackupSecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		BackupSchedule:        getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),
		BackupRetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 14),

		SeedFile: getEnv("SEED_FILE", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and coherent
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SEC must be positive")
	}
	if c.EMAShort < 1 || c.EMALong < 1 {
		return fmt.Errorf("EMA periods must be positive")
	}
	if c.EMAShort >= c.EMALong {
		return fmt.Errorf("EMA_SHORT (%d) must be lower than EMA_LONG (%d)", c.EMAShort, c.EMALong)
	}
	if c.ATRPeriod < 1 || c.VolWindow < 1 || c.RSIPeriod < 1 {
		return fmt.Errorf("ATR_PERIOD, VOL_WINDOW and RSI_PERIOD must be positive")
	}
	if len(c.ProviderOrder) == 0 {
		return fmt.Errorf("PROVIDER_ORDER must name at least one provider")
	}
	if c.CBFailThreshold < 1 {
		return fmt.Errorf("CB_FAIL_THRESHOLD must be at least 1")
	}
	if c.CBOpenDuration < 0 || c.PriceCacheTTL < 0 {
		return fmt.Errorf("CB_OPEN_SECONDS and PRICE_CACHE_TTL_SEC must not be negative")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if c.BackupEnabled() && (c.BackupAccessKeyID == "" || c.BackupSecretAccessKey == "") {
		return fmt.Errorf("BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY are required when BACKUP_BUCKET is set")
	}
	return nil
}

// BackupEnabled reports whether off-site backups are configured
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsSeconds accepts fractional seconds (e.g. HTTP_TIMEOUT_SEC=2.5)
func getEnvAsSeconds(key string, defaultSeconds float64) time.Duration {
	secs := getEnvAsFloat(key, defaultSeconds)
	return time.Duration(secs * float64(time.Second))
}

// getEnvAsList splits a comma separated value, upper-casing and dropping blanks
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
