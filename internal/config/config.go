package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Backend selection
	DataBackend    string
	SeedSampleData bool
	MemorySeedFile string

	// Database
	SQLiteDBPath string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Share links
	ShareSigningKey string
	ShareDefaultTTL time.Duration
	ShareBaseURL    string
	ShareHashCost   int

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	ExportSchedule    string
	ReminderSchedule  string
	ReminderWindow    string
	WorkerMetricsPort string
}

var (
	validBackends   = []string{"memory", "sqlite", "redis"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "tint"}
	validWindows    = []string{"daily", "weekly"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)

	v.SetDefault("DATA_BACKEND", "memory")
	v.SetDefault("SEED_SAMPLE_DATA", true)
	v.SetDefault("MEMORY_SEED_FILE", "")
	v.SetDefault("SQLITE_DB_PATH", "./data/loantracker.db")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "loantracker")
	v.SetDefault("AMQP_QUEUE", "ledger_updates")

	v.SetDefault("SHARE_SIGNING_KEY", "")
	v.SetDefault("SHARE_DEFAULT_TTL", "168h")
	v.SetDefault("SHARE_BASE_URL", "http://localhost:8081")
	v.SetDefault("SHARE_BCRYPT_COST", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SHEET_NAME", "People")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")

	v.SetDefault("EXPORT_SCHEDULE", "0 3 * * *")
	v.SetDefault("REMINDER_SCHEDULE", "0 9 * * *")
	v.SetDefault("REMINDER_WINDOW", "weekly")
	v.SetDefault("WORKER_METRICS_PORT", "9091")
}

// Load reads the configuration from the environment.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:               v.GetString("PORT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),

		DataBackend:    strings.ToLower(v.GetString("DATA_BACKEND")),
		SeedSampleData: v.GetBool("SEED_SAMPLE_DATA"),
		MemorySeedFile: v.GetString("MEMORY_SEED_FILE"),
		SQLiteDBPath:   v.GetString("SQLITE_DB_PATH"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		ShareSigningKey: v.GetString("SHARE_SIGNING_KEY"),
		ShareDefaultTTL: v.GetDuration("SHARE_DEFAULT_TTL"),
		ShareBaseURL:    v.GetString("SHARE_BASE_URL"),
		ShareHashCost:   v.GetInt("SHARE_BCRYPT_COST"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		ExportSchedule:    v.GetString("EXPORT_SCHEDULE"),
		ReminderSchedule:  v.GetString("REMINDER_SCHEDULE"),
		ReminderWindow:    strings.ToLower(v.GetString("REMINDER_WINDOW")),
		WorkerMetricsPort: v.GetString("WORKER_METRICS_PORT"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SheetsEnabled reports whether the worker should mirror people to a spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.WorkerMetricsPort != "" {
		if port, err := strconv.Atoi(c.WorkerMetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid worker metrics port '%s'", c.WorkerMetricsPort))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "redis" {
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(c.ShareSigningKey) < 32 {
		errors = append(errors, "SHARE_SIGNING_KEY must be at least 32 bytes")
	}
	if c.ShareDefaultTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid share TTL %v: must be positive", c.ShareDefaultTTL))
	}
	if u, err := url.Parse(c.ShareBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid share base URL '%s': must be absolute", c.ShareBaseURL))
	}
	if c.ShareHashCost != 0 && (c.ShareHashCost < 4 || c.ShareHashCost > 31) {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.ShareHashCost))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for Google Sheets")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	for key, spec := range map[string]string{"EXPORT_SCHEDULE": c.ExportSchedule, "REMINDER_SCHEDULE": c.ReminderSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", key, spec, err))
		}
	}
	if !slices.Contains(validWindows, c.ReminderWindow) {
		errors = append(errors, fmt.Sprintf("invalid reminder window '%s': must be one of %v", c.ReminderWindow, validWindows))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
