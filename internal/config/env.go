package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvFile is read, when it exists, before the environment is consulted.
// Variables already set in the environment are not overwritten.
var dotEnvFile = ".env"

// EnvPrefix namespaces every environment variable read by parseEnv.
const EnvPrefix = "DRAFTKEEPER_"

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// parseEnv overlays cfg with DRAFTKEEPER_* variables.
func parseEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"BACKEND":        &cfg.Backend,
		"DATABASE_DSN":   &cfg.DatabaseDSN,
		"SUPABASE_URL":   &cfg.SupabaseURL,
		"SUPABASE_KEY":   &cfg.SupabaseKey,
		"SESSION_DSN":    &cfg.SessionDSN,
		"SESSION_ID":     &cfg.SessionID,
		"SESSION_SECRET": &cfg.SessionSecret,
		"ACCESS_TOKEN":   &cfg.AccessToken,
		"JWT_SECRET":     &cfg.JWTSecret,
		"USER_ID":        &cfg.UserID,
		"LOG_LEVEL":      &cfg.LogLevel,
		"LOG_FORMAT":     &cfg.LogFormat,
		"S3_REGION":      &cfg.S3Region,
		"S3_ACCESS_KEY":  &cfg.S3AccessKey,
		"S3_SECRET_KEY":  &cfg.S3SecretKey,
		"S3_ENDPOINT":    &cfg.S3Endpoint,
		"S3_BUCKET":      &cfg.S3Bucket,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"AUTOSAVE_DELAY":      &cfg.AutosaveDelay,
		"REMOTE_DRAFT_WINDOW": &cfg.RemoteDraftWindow,
		"SAVE_TIMEOUT":        &cfg.SaveTimeout,
		"S3_PRESIGN_TTL":      &cfg.S3PresignTTL,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
