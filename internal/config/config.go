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

	"bookkeeping/internal/core"
)

type Config struct {
	// HTTP Server
	Port           string
	WriteRateLimit int // appends per client per minute

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Ledgers
	StoreName           string
	ReimbursementLedger string
	ExpenseLedger       string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Users
	Users       []string
	DefaultUser string

	// Store calls
	RetryDelay   time.Duration
	StoreTimeout time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Mirror worker
	MirrorBackend      string
	MirrorSQLiteDBPath string
	MirrorStoreName    string
	MirrorPrefetch     int

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sheets", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		WriteRateLimit: getEnvInt("WRITE_RATE_LIMIT", 30),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bookkeeping.db"),

		StoreName:           getEnv("STORE_NAME", "bookkeeping"),
		ReimbursementLedger: getEnv("REIMBURSEMENT_LEDGER", "报销记录"),
		ExpenseLedger:       getEnv("EXPENSE_LEDGER", "支出记录"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		Users:       getEnvList("USERS", []string{"林依爽", "王大伟"}),
		DefaultUser: getEnv("DEFAULT_USER", "王大伟"),

		RetryDelay:   getEnvDuration("RETRY_DELAY", time.Second),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 7*time.Second),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "bookkeeping"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger.record_appended"),
		AMQPQueue:      getEnv("AMQP_QUEUE", ""),

		MirrorBackend:      getEnv("MIRROR_BACKEND", "sqlite"),
		MirrorSQLiteDBPath: getEnv("MIRROR_SQLITE_DB_PATH", "./data/mirror.db"),
		MirrorPrefetch:     getEnvInt("MIRROR_PREFETCH", 10),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	cfg.MirrorStoreName = getEnv("MIRROR_STORE_NAME", cfg.StoreName)

	return cfg
}

// ValidateMirror checks the settings only the mirror worker needs.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the mirror worker")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue is required for the mirror worker")
	}
	if c.MirrorBackend != "sqlite" && c.MirrorBackend != "memory" {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be sqlite or memory", c.MirrorBackend))
	}
	if c.MirrorBackend == "sqlite" && c.MirrorSQLiteDBPath == "" {
		errors = append(errors, "mirror SQLite database path cannot be empty")
	}
	if c.MirrorBackend == "sqlite" && c.DataBackend == "sqlite" && c.MirrorSQLiteDBPath == c.SQLiteDBPath {
		errors = append(errors, "mirror SQLite database must differ from the primary one")
	}
	if strings.TrimSpace(c.MirrorStoreName) == "" {
		errors = append(errors, "mirror store name cannot be empty")
	}
	if c.MirrorPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror prefetch %d: must be at least 1", c.MirrorPrefetch))
	}

	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Roster is the configured user list.
func (c *Config) Roster() core.Roster {
	return core.NewRoster(c.Users...)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.WriteRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid write rate limit %d: must be at least 1", c.WriteRateLimit))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if strings.TrimSpace(c.StoreName) == "" {
		errors = append(errors, "store name cannot be empty")
	}
	if strings.TrimSpace(c.ReimbursementLedger) == "" || strings.TrimSpace(c.ExpenseLedger) == "" {
		errors = append(errors, "ledger names cannot be empty")
	} else if c.ReimbursementLedger == c.ExpenseLedger {
		errors = append(errors, fmt.Sprintf("reimbursement and expense ledgers must differ, both are '%s'", c.ExpenseLedger))
	}

	// Validate SQLite configuration if backend is sqlite
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

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	roster := c.Roster()
	if len(roster) == 0 {
		errors = append(errors, "user list cannot be empty")
	} else if c.DefaultUser != "" && !roster.Contains(c.DefaultUser) {
		errors = append(errors, fmt.Sprintf("default user '%s' is not in the user list", c.DefaultUser))
	}

	if c.RetryDelay < 0 || c.RetryDelay > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid retry delay %v: must be between 0 and 1 minute", c.RetryDelay))
	}
	if c.StoreTimeout < time.Second || c.StoreTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be between 1 second and 5 minutes", c.StoreTimeout))
	}

	// Validate AMQP only when enabled
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

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
