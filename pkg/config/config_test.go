package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "apimockr.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, 100.0, cfg.RateLimit.Rate)
	assert.Equal(t, 100, cfg.RateLimit.DailyWrites)
	assert.True(t, cfg.Reset.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: "127.0.0.1:8080"
database_path: "/tmp/mock.db"
log_level: debug
log_format: json
rate_limit:
  rate: 50
  daily_writes: 20
reset:
  enabled: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "/tmp/mock.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 50.0, cfg.RateLimit.Rate)
	assert.Equal(t, 20, cfg.RateLimit.DailyWrites)
	assert.False(t, cfg.Reset.Enabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("APIMOCKR_LISTEN_ADDR", ":4000")
	t.Setenv("APIMOCKR_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "log_level: loud"},
		{"bad log format", "log_format: xml"},
		{"zero daily writes", "rate_limit:\n  daily_writes: 0"},
		{"negative rate", "rate_limit:\n  rate: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
