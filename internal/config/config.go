package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	CronModeCompat   = "compat"
	CronModeStandard = "standard"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	Timezone      string
	Location      *time.Location

	SweepInterval time.Duration
	SweepTimeout  time.Duration
	DigestTime    string
	CronMode      string

	LogLevel  string
	LogFormat string

	Assistant AssistantConfig
}

// AssistantConfig points at an OpenAI-compatible chat completions endpoint.
type AssistantConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// from environment variables, which take precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fc, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	return cfg, cfg.finalize()
}

func defaults() Config {
	return Config{
		DatabaseURL:   "todo_planner.db",
		Timezone:      "Local",
		SweepInterval: 15 * time.Minute,
		SweepTimeout:  2 * time.Minute,
		DigestTime:    "08:00",
		CronMode:      CronModeCompat,
		LogLevel:      "info",
		LogFormat:     "console",
		Assistant: AssistantConfig{
			APIURL:  "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
	}
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("TELEGRAM_TOKEN", &cfg.TelegramToken)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("TIMEZONE", &cfg.Timezone)
	str("DIGEST_TIME", &cfg.DigestTime)
	str("CRON_MODE", &cfg.CronMode)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("ASSISTANT_API_URL", &cfg.Assistant.APIURL)
	str("ASSISTANT_API_KEY", &cfg.Assistant.APIKey)
	str("ASSISTANT_MODEL", &cfg.Assistant.Model)

	if err := dur("SWEEP_INTERVAL", &cfg.SweepInterval); err != nil {
		return err
	}
	if err := dur("SWEEP_TIMEOUT", &cfg.SweepTimeout); err != nil {
		return err
	}
	return dur("ASSISTANT_TIMEOUT", &cfg.Assistant.Timeout)
}

func (c *Config) finalize() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	c.CronMode = strings.ToLower(c.CronMode)
	if c.CronMode != CronModeCompat && c.CronMode != CronModeStandard {
		return fmt.Errorf("CRON_MODE must be %q or %q, got %q", CronModeCompat, CronModeStandard, c.CronMode)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.SweepTimeout < 0 {
		return fmt.Errorf("SWEEP_TIMEOUT must not be negative")
	}
	return nil
}

// parseDuration accepts Go durations ("15m") and bare minutes ("15").
func parseDuration(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(raw + "m")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}
