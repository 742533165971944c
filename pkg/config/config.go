// Package config loads service configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// API keys. Usually supplied through the environment, not the file.
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// Provider selects the completion backend: "openai" or "gemini".
	Provider string `yaml:"provider"`

	// Model configuration. FastModel handles extraction, classification and
	// repair; QualityModel handles schedule generation.
	FastModel    string  `yaml:"fast_model"`
	QualityModel string  `yaml:"quality_model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`

	// Server configuration.
	Server ServerConfig `yaml:"server"`

	// Session persistence.
	Session SessionConfig `yaml:"session"`

	// Rate limiting for the turn endpoint.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// KnowledgePath optionally overrides the embedded sleep knowledge base.
	KnowledgePath string `yaml:"knowledge_path"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig holds session store configuration.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`
	// RedisAddr is the Redis server address (host:port).
	RedisAddr string `yaml:"redis_addr"`
	// RedisPassword is the Redis password (optional).
	RedisPassword string `yaml:"redis_password"`
	// RedisDB is the Redis database number.
	RedisDB int `yaml:"redis_db"`
	// TTL is how long abandoned sessions are kept (0 = forever).
	TTL time.Duration `yaml:"ttl"`
}

// RateLimitConfig holds per-client rate limit settings.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads configuration from a YAML file, applies defaults, and overlays
// environment variables. An empty path yields a default config built from
// the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.FastModel == "" {
		c.FastModel = "gpt-4o-mini"
	}
	if c.QualityModel == "" {
		c.QualityModel = "gpt-4o"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1200
	}
	if c.Temperature == 0 {
		c.Temperature = 0.4
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiKey = v
	}
	if v := os.Getenv("NAPFOX_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("NAPFOX_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("NAPFOX_REDIS_ADDR"); v != "" {
		c.Session.Backend = "redis"
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("NAPFOX_REDIS_PASSWORD"); v != "" {
		c.Session.RedisPassword = v
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("openai provider selected but no OpenAI API key configured")
		}
	case "gemini":
		if c.GeminiKey == "" {
			return fmt.Errorf("gemini provider selected but no Gemini API key configured")
		}
	default:
		return fmt.Errorf("unknown provider %q (want openai or gemini)", c.Provider)
	}

	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("unknown session backend %q (want memory or redis)", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		return fmt.Errorf("redis session backend selected but no address configured")
	}
	return nil
}
