package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/draftkeeper/internal/flagx"
	"github.com/dmitrijs2005/draftkeeper/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Pointer fields
// tell "absent" from "empty" so a file only overrides what it names, and
// timex.Duration accepts "30s" style strings or integer nanoseconds.
type FileConfig struct {
	Backend     *string `json:"backend" yaml:"backend"`
	DatabaseDSN *string `json:"database_dsn" yaml:"database_dsn"`
	SupabaseURL *string `json:"supabase_url" yaml:"supabase_url"`
	SupabaseKey *string `json:"supabase_key" yaml:"supabase_key"`

	SessionDSN    *string `json:"session_dsn" yaml:"session_dsn"`
	SessionID     *string `json:"session_id" yaml:"session_id"`
	SessionSecret *string `json:"session_secret" yaml:"session_secret"`

	AccessToken *string `json:"access_token" yaml:"access_token"`
	JWTSecret   *string `json:"jwt_secret" yaml:"jwt_secret"`
	UserID      *string `json:"user_id" yaml:"user_id"`

	AutosaveDelay     *timex.Duration `json:"autosave_delay" yaml:"autosave_delay"`
	RemoteDraftWindow *timex.Duration `json:"remote_draft_window" yaml:"remote_draft_window"`
	SaveTimeout       *timex.Duration `json:"save_timeout" yaml:"save_timeout"`

	LogLevel  *string `json:"log_level" yaml:"log_level"`
	LogFormat *string `json:"log_format" yaml:"log_format"`

	S3 *struct {
		Region     *string         `json:"region" yaml:"region"`
		AccessKey  *string         `json:"access_key" yaml:"access_key"`
		SecretKey  *string         `json:"secret_key" yaml:"secret_key"`
		Endpoint   *string         `json:"endpoint" yaml:"endpoint"`
		Bucket     *string         `json:"bucket" yaml:"bucket"`
		PresignTTL *timex.Duration `json:"presign_ttl" yaml:"presign_ttl"`
	} `json:"s3" yaml:"s3"`
}

// parseFile overlays cfg with the file passed as -c or -config in args.
// The format follows the extension: .yaml and .yml are YAML, anything else
// is JSON. No flag means no file.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.Backend, fc.Backend)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SupabaseURL, fc.SupabaseURL)
	setString(&cfg.SupabaseKey, fc.SupabaseKey)
	setString(&cfg.SessionDSN, fc.SessionDSN)
	setString(&cfg.SessionID, fc.SessionID)
	setString(&cfg.SessionSecret, fc.SessionSecret)
	setString(&cfg.AccessToken, fc.AccessToken)
	setString(&cfg.JWTSecret, fc.JWTSecret)
	setString(&cfg.UserID, fc.UserID)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	if fc.AutosaveDelay != nil {
		cfg.AutosaveDelay = fc.AutosaveDelay.Duration
	}
	if fc.RemoteDraftWindow != nil {
		cfg.RemoteDraftWindow = fc.RemoteDraftWindow.Duration
	}
	if fc.SaveTimeout != nil {
		cfg.SaveTimeout = fc.SaveTimeout.Duration
	}

	if s3 := fc.S3; s3 != nil {
		setString(&cfg.S3Region, s3.Region)
		setString(&cfg.S3AccessKey, s3.AccessKey)
		setString(&cfg.S3SecretKey, s3.SecretKey)
		setString(&cfg.S3Endpoint, s3.Endpoint)
		setString(&cfg.S3Bucket, s3.Bucket)
		if s3.PresignTTL != nil {
			cfg.S3PresignTTL = s3.PresignTTL.Duration
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
