// Package config loads the application configuration from environment
// variables, with godotenv-friendly defaults for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Backend selection: memory, sheets or sqlite
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Google APIs (Sheets, Gmail, Calendar share the credentials)
	GoogleSpreadsheetID     string
	GoogleLedgerSheet       string
	GoogleSettingsSheet     string
	GoogleCredentialsJSON   string
	GoogleCredentialsFile   string
	GoogleCalendarID        string
	GmailQuery              string
	GmailProcessedLabel     string
	GmailMaxMessages        int64

	// LINE Messaging API
	LineChannelToken  string
	LineChannelSecret string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// AMQP sync queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Jobs
	IngestInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:     getEnv("GOOGLE_LEDGER_SHEET_NAME", "家計簿"),
		GoogleSettingsSheet:   getEnv("GOOGLE_SETTINGS_SHEET_NAME", "設定"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GmailQuery:            getEnv("GMAIL_QUERY", ""),
		GmailProcessedLabel:   getEnv("GMAIL_PROCESSED_LABEL", "kakeibo-processed"),
		GmailMaxMessages:      int64(getEnvInt("GMAIL_MAX_MESSAGES", 200)),

		LineChannelToken:  getEnv("LINE_CHANNEL_TOKEN", ""),
		LineChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_entries"),

		IngestInterval: getEnvDuration("INGEST_INTERVAL", 15*time.Minute),
	}
}

// Validate checks the configuration and collects every problem found.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sheets", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sheets sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// The webhook cannot verify requests without the channel secret.
	if c.LineChannelToken != "" && c.LineChannelSecret == "" {
		errs = append(errs, "LINE_CHANNEL_SECRET is required when LINE_CHANNEL_TOKEN is set")
	}

	if c.GmailMaxMessages < 1 || c.GmailMaxMessages > 500 {
		errs = append(errs, fmt.Sprintf("invalid GMAIL_MAX_MESSAGES %d: must be between 1 and 500", c.GmailMaxMessages))
	}

	if c.IngestInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid ingest interval %v: must be at least 1 minute", c.IngestInterval))
	} else if c.IngestInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid ingest interval %v: must be at most 24 hours", c.IngestInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
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
