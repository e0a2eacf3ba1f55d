// Package config loads draftctl settings from defaults, the environment,
// an optional JSON or YAML file and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/draftkeeper/internal/uploads"
)

// Remote backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// Config holds runtime settings for draftctl.
//
// Units: AutosaveDelay, RemoteDraftWindow, SaveTimeout and S3PresignTTL are
// time.Duration values.
type Config struct {
	Backend     string `validate:"oneof=memory postgres supabase"`
	DatabaseDSN string `validate:"required_if=Backend postgres"`
	SupabaseURL string `validate:"required_if=Backend supabase"`
	SupabaseKey string `validate:"required_if=Backend supabase"`

	// SessionDSN points at a SQLite database for session scoped drafts.
	// Empty keeps drafts in memory for the lifetime of the process.
	SessionDSN    string
	SessionID     string `validate:"required"`
	SessionSecret string

	AccessToken string
	JWTSecret   string
	UserID      string

	AutosaveDelay     time.Duration `validate:"gt=0"`
	RemoteDraftWindow time.Duration `validate:"gt=0"`
	SaveTimeout       time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json zap"`

	S3Region     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3Bucket     string
	S3PresignTTL time.Duration `validate:"gte=0"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendMemory
	c.SessionID = uuid.NewString()
	c.AutosaveDelay = 30 * time.Second
	c.RemoteDraftWindow = 24 * time.Hour
	c.SaveTimeout = 15 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.S3Region = "us-east-1"
	c.S3PresignTTL = uploads.DefaultPresignTTL
}

// S3 returns the upload settings, or false when no bucket is configured.
func (c *Config) S3() (uploads.S3Config, bool) {
	if c.S3Bucket == "" {
		return uploads.S3Config{}, false
	}
	return uploads.S3Config{
		Region:     c.S3Region,
		AccessKey:  c.S3AccessKey,
		SecretKey:  c.S3SecretKey,
		Endpoint:   c.S3Endpoint,
		Bucket:     c.S3Bucket,
		PresignTTL: c.S3PresignTTL,
	}, true
}

var validate = validator.New()

// Validate checks c against its struct tags. Failures wrap
// validator.ValidationErrors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load constructs a Config, applies defaults, then overlays the environment
// (after reading .env if present), the config file named by -c/-config and
// the flags in args. Later sources take precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
