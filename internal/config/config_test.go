package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotEnv(t *testing.T) {
	t.Helper()
	old := dotEnvFile
	dotEnvFile = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { dotEnvFile = old })
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendMemory, c.Backend)
	assert.NotEmpty(t, c.SessionID)
	assert.Equal(t, 30*time.Second, c.AutosaveDelay)
	assert.Equal(t, 24*time.Hour, c.RemoteDraftWindow)
	assert.Equal(t, 15*time.Second, c.SaveTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	require.NoError(t, c.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	noDotEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.AutosaveDelay)
}

func TestLoad_Precedence(t *testing.T) {
	noDotEnv(t)
	t.Setenv(EnvPrefix+"LOG_LEVEL", "warn")
	t.Setenv(EnvPrefix+"USER_ID", "env-user")
	t.Setenv(EnvPrefix+"AUTOSAVE_DELAY", "5s")

	path := writeFile(t, "draftctl.json", `{
		"log_level": "error",
		"autosave_delay": "10s",
		"save_timeout": 3000000000,
		"s3": {"bucket": "drafts"}
	}`)

	cfg, err := Load([]string{"-c", path, "-delay", "45s", "open", "article"})
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.UserID, "env value survives when nothing overrides it")
	assert.Equal(t, "error", cfg.LogLevel, "file overrides env")
	assert.Equal(t, 45*time.Second, cfg.AutosaveDelay, "flag overrides file")
	assert.Equal(t, 3*time.Second, cfg.SaveTimeout)

	s3, ok := cfg.S3()
	require.True(t, ok)
	assert.Equal(t, "drafts", s3.Bucket)
	assert.Equal(t, "us-east-1", s3.Region)
}

func TestLoad_YAMLFile(t *testing.T) {
	noDotEnv(t)
	path := writeFile(t, "draftctl.yaml", `
backend: postgres
database_dsn: postgres://localhost/drafts
remote_draft_window: 2h
log_format: zap
`)

	cfg, err := Load([]string{"-config=" + path})
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://localhost/drafts", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, cfg.RemoteDraftWindow)
	assert.Equal(t, "zap", cfg.LogFormat)
}

func TestLoad_DotEnv(t *testing.T) {
	path := writeFile(t, ".env", "DRAFTKEEPER_JWT_SECRET=from-dotenv\n")
	old := dotEnvFile
	dotEnvFile = path
	t.Cleanup(func() {
		dotEnvFile = old
		_ = os.Unsetenv(EnvPrefix + "JWT_SECRET")
	})

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
		args []string
	}{
		{name: "bad env duration", env: map[string]string{EnvPrefix + "SAVE_TIMEOUT": "soon"}},
		{name: "unknown backend", args: []string{"-b", "mongo"}},
		{name: "postgres without dsn", args: []string{"-b", "postgres"}},
		{name: "supabase without key", args: []string{"-b", "supabase", "-u", "http://localhost"}},
		{name: "bad log format", args: []string{"-f", "xml"}},
		{name: "zero delay", args: []string{"-delay", "0s"}},
		{name: "bad flag value", args: []string{"-delay", "forever"}},
		{name: "broken file", file: `{"backend": `},
		{name: "missing file", args: []string{"-c", "/does/not/exist.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noDotEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := tt.args
			if tt.file != "" {
				args = append(args, "-c", writeFile(t, "cfg.json", tt.file))
			}

			cfg, err := Load(args)
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidate_WrapsValidationErrors(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.Backend = BackendSupabase

	err := c.Validate()
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	assert.ElementsMatch(t, []string{"SupabaseURL", "SupabaseKey"}, fields)
}

func TestParseEnv_OnlySetVariablesOverride(t *testing.T) {
	var c Config
	c.LoadDefaults()
	env := map[string]string{EnvPrefix + "BACKEND": "supabase", EnvPrefix + "S3_PRESIGN_TTL": "1m"}

	require.NoError(t, parseEnv(&c, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, BackendSupabase, c.Backend)
	assert.Equal(t, time.Minute, c.S3PresignTTL)
	assert.Equal(t, "info", c.LogLevel)
}

func TestS3_DisabledWithoutBucket(t *testing.T) {
	var c Config
	c.LoadDefaults()
	_, ok := c.S3()
	assert.False(t, ok)
}
