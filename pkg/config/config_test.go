package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeConfig(t, `
provider: openai
openai_key: test-key
fast_model: gpt-4o-mini
quality_model: gpt-4o
server:
  listen_addr: ":9999"
session:
  backend: redis
  redis_addr: "localhost:6379"
  ttl: 1h
rate_limit:
  enabled: true
  requests_per_second: 5
  burst: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.QualityModel)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("NAPFOX_PROVIDER", "")
	t.Setenv("NAPFOX_LISTEN_ADDR", "")
	t.Setenv("NAPFOX_REDIS_ADDR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.FastModel)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
openai_key: file-key
server:
  listen_addr: ":8080"
`)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("NAPFOX_LISTEN_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAIKey)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
}

func TestRedisEnvSwitchesBackend(t *testing.T) {
	t.Setenv("NAPFOX_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "provider: openai\ninvalid yaml here: [[[\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateGeminiProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("NAPFOX_PROVIDER", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := &Config{Provider: "mystery", Session: SessionConfig{Backend: "memory"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRedisWithoutAddr(t *testing.T) {
	cfg := &Config{
		Provider:  "openai",
		OpenAIKey: "k",
		Session:   SessionConfig{Backend: "redis"},
	}
	assert.Error(t, cfg.Validate())
}
