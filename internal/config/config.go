package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

// Config holds service configuration.
type Config struct {
	Server struct {
		Addr         string        `envconfig:"SERVER_ADDR" default:"0.0.0.0:8080"`
		ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
		CORSOrigins  []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
		LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		URL             string        `envconfig:"DATABASE_URL"`
		Host            string        `envconfig:"POSTGRES_HOST" default:"localhost"`
		Port            int           `envconfig:"POSTGRES_PORT" default:"5432"`
		User            string        `envconfig:"POSTGRES_USER" default:"meetup_hub"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"meetup_hub_pass"`
		Name            string        `envconfig:"POSTGRES_DB" default:"meetup_hub"`
		SSLMode         string        `envconfig:"DATABASE_SSLMODE" default:"disable"`
		MaxConns        int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
		MinConns        int32         `envconfig:"DATABASE_MIN_CONNS" default:"0"`
		MaxConnLifetime time.Duration `envconfig:"DATABASE_MAX_CONN_LIFETIME" default:"1h"`
	}

	Auth struct {
		JWTSecret           string        `envconfig:"JWT_SECRET" required:"true"`
		SessionTTL          time.Duration `envconfig:"SESSION_TTL" default:"24h"`
		SessionCookieName   string        `envconfig:"SESSION_COOKIE_NAME" default:"meetup_hub_session"`
		SessionCookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
		CampusEmailDomain   string        `envconfig:"CAMPUS_EMAIL_DOMAIN" default:"campus.edu"`
		CleanupInterval     time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"10m"`
	}

	Meetup struct {
		ProposalTTL             time.Duration `envconfig:"MEETUP_PROPOSAL_TTL" default:"72h"`
		CompletionWindow        time.Duration `envconfig:"MEETUP_COMPLETION_WINDOW" default:"168h"`
		AppealWindow            time.Duration `envconfig:"MEETUP_APPEAL_WINDOW" default:"168h"`
		ProposerConfirmation    string        `envconfig:"MEETUP_PROPOSER_CONFIRMATION" default:"explicit"`
		FinalizeOnBothCompleted bool          `envconfig:"MEETUP_FINALIZE_ON_BOTH_COMPLETED" default:"false"`
	}

	Monitor struct {
		Interval time.Duration `envconfig:"MONITOR_INTERVAL" default:"1m"`
		Workers  int           `envconfig:"MONITOR_WORKERS" default:"4"`
		Batch    int           `envconfig:"MONITOR_BATCH" default:"500"`
	}

	Audit struct {
		SigningKeyHex string `envconfig:"AUDIT_SIGNING_KEY"`
	}
}

// Load reads configuration from the environment, after applying a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	switch meetup.ConfirmationPolicy(c.Meetup.ProposerConfirmation) {
	case meetup.ConfirmExplicit, meetup.ConfirmImplicit:
	default:
		return fmt.Errorf("MEETUP_PROPOSER_CONFIRMATION must be %q or %q", meetup.ConfirmExplicit, meetup.ConfirmImplicit)
	}
	if c.Meetup.ProposalTTL <= 0 || c.Meetup.CompletionWindow <= 0 || c.Meetup.AppealWindow <= 0 {
		return fmt.Errorf("meetup windows must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive")
	}
	if c.Auth.CleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if _, err := c.AuditKey(); err != nil {
		return err
	}
	return nil
}

// DatabaseURL returns DATABASE_URL, or a DSN assembled from the POSTGRES_* parts.
func (c *Config) DatabaseURL() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// MeetupPolicy maps the MEETUP_* settings onto the lifecycle policy.
func (c *Config) MeetupPolicy() meetup.Policy {
	return meetup.Policy{
		ProposalTTL:             c.Meetup.ProposalTTL,
		CompletionWindow:        c.Meetup.CompletionWindow,
		AppealWindow:            c.Meetup.AppealWindow,
		ProposerConfirmation:    meetup.ConfirmationPolicy(c.Meetup.ProposerConfirmation),
		FinalizeOnBothCompleted: c.Meetup.FinalizeOnBothCompleted,
	}
}

// AuditKey decodes AUDIT_SIGNING_KEY. An unset key disables signing.
func (c *Config) AuditKey() ([]byte, error) {
	if c.Audit.SigningKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Audit.SigningKeyHex)
	if err != nil {
		return nil, fmt.Errorf("AUDIT_SIGNING_KEY must be hex: %w", err)
	}
	return key, nil
}
