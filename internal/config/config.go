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

	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read when present in the working directory.
const DefaultFile = "finanzas.toml"

// Backends accepted by DATA_BACKEND.
var Backends = []string{"memory", "sqlite", "sheets", "rest"}

type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Backend selection
	DataBackend string `toml:"data_backend"`

	// Database
	SQLiteDBPath string `toml:"sqlite_db_path"`
	SeedFile     string `toml:"seed_file"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"-"`

	// Hosted REST backend
	RESTURL         string `toml:"rest_url"`
	RESTAPIKey      string `toml:"-"`
	RESTAccessToken string `toml:"-"`

	// Domain
	Timezone               string  `toml:"timezone"`
	BudgetWarningThreshold float64 `toml:"budget_warning_threshold"`

	// Exchange rate
	RateAPIURL   string        `toml:"rate_api_url"`
	RateCacheTTL time.Duration `toml:"-"`

	// Caching and workers
	CacheTTL           time.Duration `toml:"-"`
	CacheSize          int           `toml:"cache_size"`
	AlertSweepInterval time.Duration `toml:"-"`

	// Requests per second allowed on write routes, per client.
	WriteRateLimit float64 `toml:"write_rate_limit"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:         "8081",
		DataBackend:  "memory",
		SQLiteDBPath: "./data/finanzas.db",
		SeedFile:     "./data/seed.json",

		AMQPExchange: "finanzas",
		AMQPQueue:    "finanzas.alerts",

		Timezone:               "America/Caracas",
		BudgetWarningThreshold: 80,

		RateAPIURL:   "https://ve.dolarapi.com/v1/dolares/oficial",
		RateCacheTTL: 30 * time.Minute,

		CacheTTL:           30 * time.Second,
		CacheSize:          100,
		AlertSweepInterval: 15 * time.Minute,
		WriteRateLimit:     5,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load applies, in order: defaults, each TOML file that exists (later files
// win), then environment variables.
func Load(paths ...string) (*Config, error) {
	cfg := Default()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFileDurations(data); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyFileDurations reads duration keys written as Go duration strings
// ("30s", "15m").
func (c *Config) applyFileDurations(data []byte) error {
	var file struct {
		RateCacheTTL       string `toml:"rate_cache_ttl"`
		CacheTTL           string `toml:"cache_ttl"`
		AlertSweepInterval string `toml:"alert_sweep_interval"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return err
	}
	for _, f := range []struct {
		key, raw string
		dst      *time.Duration
	}{
		{"rate_cache_ttl", file.RateCacheTTL, &c.RateCacheTTL},
		{"cache_ttl", file.CacheTTL, &c.CacheTTL},
		{"alert_sweep_interval", file.AlertSweepInterval, &c.AlertSweepInterval},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", c.DataBackend))
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.SeedFile = getEnv("SEED_FILE", c.SeedFile)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)

	c.RESTURL = getEnv("REST_URL", c.RESTURL)
	c.RESTAPIKey = getEnv("REST_API_KEY", c.RESTAPIKey)
	c.RESTAccessToken = getEnv("REST_ACCESS_TOKEN", c.RESTAccessToken)

	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.BudgetWarningThreshold = getEnvFloat("BUDGET_WARNING_THRESHOLD", c.BudgetWarningThreshold)

	c.RateAPIURL = getEnv("RATE_API_URL", c.RateAPIURL)
	c.RateCacheTTL = getEnvDuration("RATE_CACHE_TTL", c.RateCacheTTL)

	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.CacheSize = getEnvInt("CACHE_SIZE", c.CacheSize)
	c.AlertSweepInterval = getEnvDuration("ALERT_SWEEP_INTERVAL", c.AlertSweepInterval)
	c.WriteRateLimit = getEnvFloat("WRITE_RATE_LIMIT", c.WriteRateLimit)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Location resolves Timezone. Validate reports an unknown zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case "rest":
		if err := validateHTTPURL(c.RESTURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid REST URL '%s': %v", c.RESTURL, err))
		}
		if c.RESTAPIKey == "" {
			errors = append(errors, "REST API key is required when using rest backend")
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.BudgetWarningThreshold <= 0 || c.BudgetWarningThreshold >= 100 {
		errors = append(errors, fmt.Sprintf("invalid budget warning threshold %v: must be between 0 and 100 (exclusive)", c.BudgetWarningThreshold))
	}

	if c.RateAPIURL != "" {
		if err := validateHTTPURL(c.RateAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate API URL '%s': %v", c.RateAPIURL, err))
		}
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.AlertSweepInterval != 0 && c.AlertSweepInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid alert sweep interval %v: must be at least 1 second or 0 to disable", c.AlertSweepInterval))
	}
	if c.WriteRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid write rate limit %v: must not be negative", c.WriteRateLimit))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
