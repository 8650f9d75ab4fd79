package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Coach     CoachConfig     `yaml:"coach"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey guards the import endpoint when set.
	APIKey string `yaml:"api_key"`
}

type SessionConfig struct {
	HistoryLimit int           `yaml:"history_limit"`
	RateLimit    int           `yaml:"rate_limit"`
	RateWindow   time.Duration `yaml:"rate_window"`
	Shards       int           `yaml:"shards"`
	ContextTurns int           `yaml:"context_turns"`
}

type CoachConfig struct {
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	AzureDeployment string  `yaml:"azure_deployment"`
	APIVersion      string  `yaml:"api_version"`
	SystemPrompt    string  `yaml:"system_prompt"`
}

// Enabled reports whether a chat model is configured.
func (c CoachConfig) Enabled() bool {
	return c.OpenAIAPIKey != ""
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to a slog.Level (default info).
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8000},
		Session: SessionConfig{
			HistoryLimit: 20,
			RateLimit:    3,
			RateWindow:   10 * time.Second,
			Shards:       16,
			ContextTurns: 20,
		},
		Coach:     CoachConfig{APIVersion: "2023-07-01-preview"},
		Tailscale: TailscaleConfig{Hostname: "coach"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error: defaults plus environment are used.
// A .env file in the working directory is loaded first if present.
// Env vars use the prefix COACH_:
//
//	COACH_SERVER_HOST, COACH_SERVER_PORT, COACH_API_KEY,
//	COACH_HISTORY_LIMIT, COACH_RATE_LIMIT, COACH_RATE_WINDOW,
//	COACH_OPENAI_API_KEY, COACH_OPENAI_BASE_URL, COACH_OPENAI_MODEL,
//	COACH_AZURE_DEPLOYMENT, COACH_TAILSCALE_ENABLED, COACH_LOG_LEVEL
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COACH_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("COACH_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.HistoryLimit = n
		}
	}
	if v := os.Getenv("COACH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.RateLimit = n
		}
	}
	if v := os.Getenv("COACH_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.RateWindow = d
		}
	}
	if v := os.Getenv("COACH_OPENAI_API_KEY"); v != "" {
		cfg.Coach.OpenAIAPIKey = v
	}
	if v := os.Getenv("COACH_OPENAI_BASE_URL"); v != "" {
		cfg.Coach.BaseURL = v
	}
	if v := os.Getenv("COACH_OPENAI_MODEL"); v != "" {
		cfg.Coach.Model = v
	}
	if v := os.Getenv("COACH_AZURE_DEPLOYMENT"); v != "" {
		cfg.Coach.AzureDeployment = v
	}
	if v := os.Getenv("COACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("COACH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("session.history_limit must be positive")
	}
	if c.Session.RateLimit <= 0 {
		return fmt.Errorf("session.rate_limit must be positive")
	}
	if c.Session.RateWindow <= 0 {
		return fmt.Errorf("session.rate_window must be positive")
	}
	if c.Session.Shards <= 0 {
		return fmt.Errorf("session.shards must be positive")
	}
	if c.Coach.AzureDeployment != "" && c.Coach.BaseURL == "" {
		return fmt.Errorf("coach.base_url is required with coach.azure_deployment")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
