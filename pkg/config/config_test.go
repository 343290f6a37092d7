package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "finassist", cfg.Database.DBName)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.Gemini.Model)
	assert.Equal(t, 120*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, 1600, cfg.Upload.MaxImageSide)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRATION_HOURS", "24")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "15")
	t.Setenv("UPLOAD_DIR", "/tmp/receipts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 15*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "/tmp/receipts", cfg.Upload.Dir)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SOME_TEST_KEY", "value")

	assert.Equal(t, "value", getEnv("SOME_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnv("SOME_MISSING_KEY", "fallback"))
}
