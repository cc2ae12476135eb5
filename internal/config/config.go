// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	ProjectID      string
	AllowedOrigins []string

	UseMemoryStore bool
	SkipAuth       bool
	// SeedDemoData fills the memory store with demo transactions on start.
	SeedDemoData bool

	DBDriver string
	DBConn   string

	JWTSecret string
	JWTIssuer string

	LookbackDays   int
	ProjectionSeed int64

	AlertSchedule   string
	AlertRecipients []Recipient
	SMTP            SMTPConfig
}

// Recipient is a user subscribed to the cash-flow alert digest.
type Recipient struct {
	UserID string
	Email  string
}

// SMTPConfig configures outgoing e-mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Addr is host:port.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:1234",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, defaultVal string) string {
		if value, ok := lookup(key); ok {
			return value
		}
		return defaultVal
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8111"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		ProjectID: getEnv("GOOGLE_CLOUD_PROJECT", ""),
		DBDriver:  getEnv("DB_DRIVER", ""),
		DBConn:    getEnv("DB_CONN", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AlertSchedule: strings.TrimSpace(getEnv("ALERT_SCHEDULE", "")),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			Sender:   getEnv("SENDER_EMAIL", "insights@localhost"),
		},
	}

	var err error
	if cfg.UseMemoryStore, err = parseBool("USE_MEMORY_STORE", getEnv("USE_MEMORY_STORE", "false")); err != nil {
		return nil, err
	}
	if cfg.SkipAuth, err = parseBool("SKIP_AUTH", getEnv("SKIP_AUTH", "false")); err != nil {
		return nil, err
	}
	if cfg.SeedDemoData, err = parseBool("SEED_DEMO_DATA", getEnv("SEED_DEMO_DATA", "false")); err != nil {
		return nil, err
	}
	if cfg.LookbackDays, err = strconv.Atoi(getEnv("LOOKBACK_DAYS", "365")); err != nil || cfg.LookbackDays <= 0 {
		return nil, fmt.Errorf("LOOKBACK_DAYS must be a positive integer")
	}
	if cfg.ProjectionSeed, err = strconv.ParseInt(getEnv("PROJECTION_SEED", "1"), 10, 64); err != nil {
		return nil, fmt.Errorf("PROJECTION_SEED must be an integer: %w", err)
	}
	if cfg.SMTP.Port, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be an integer: %w", err)
	}

	cfg.AllowedOrigins = defaultOrigins
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	if cfg.AlertRecipients, err = parseRecipients(getEnv("ALERT_RECIPIENTS", "")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// maxLookbackDays keeps the default window within the 731-day request limit.
const maxLookbackDays = 730

func (c *Config) validate() error {
	if c.LookbackDays > maxLookbackDays {
		return fmt.Errorf("LOOKBACK_DAYS must not exceed %d, got %d", maxLookbackDays, c.LookbackDays)
	}
	switch c.DBDriver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", c.DBDriver)
	}
	if c.DBDriver != "" && c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required when DB_DRIVER is set")
	}
	if !c.UseMemoryStore && c.DBDriver == "" && c.ProjectID == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the Firestore store")
	}
	if c.DigestEnabled() && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when ALERT_SCHEDULE is set")
	}
	if c.IsProduction() && c.SkipAuth {
		return fmt.Errorf("SKIP_AUTH cannot be enabled in production")
	}
	return nil
}

// DigestEnabled reports whether the cash-flow alert digest should run.
func (c *Config) DigestEnabled() bool {
	return c.AlertSchedule != ""
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseRecipients parses "uid:email,uid:email".
func parseRecipients(value string) ([]Recipient, error) {
	var out []Recipient
	for _, item := range splitList(value) {
		uid, email, ok := strings.Cut(item, ":")
		uid, email = strings.TrimSpace(uid), strings.TrimSpace(email)
		if !ok || uid == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("ALERT_RECIPIENTS entry %q must be uid:email", item)
		}
		out = append(out, Recipient{UserID: uid, Email: email})
	}
	return out, nil
}
