package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "rentacar/events", cfg.MQTTTopic)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RENTACAR_API_URL", "http://api.test")
	t.Setenv("RENTACAR_STORAGE", "mongo")
	t.Setenv("RENTACAR_TIMEOUT", "3s")
	t.Setenv("RENTACAR_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://api.test", cfg.APIURL)
	assert.Equal(t, StorageMongo, cfg.Storage)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RENTACAR_STATE_KEY=from-file\n"), 0o600))
	t.Setenv("RENTACAR_STATE_KEY", "")
	os.Unsetenv("RENTACAR_STATE_KEY")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.StateKey)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"timeout", "RENTACAR_TIMEOUT", "soon"},
		{"rate limit", "RENTACAR_RATE_LIMIT", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"storage", "RENTACAR_STORAGE", "redis"},
		{"log format", "LOG_FORMAT", "xml"},
		{"log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg, err := Load("")
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_OverrideAfterLoad(t *testing.T) {
	t.Setenv("RENTACAR_STORAGE", "bogus")

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Storage = StorageMemory

	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
