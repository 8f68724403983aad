package config

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig mirrors Config for the YAML file. Empty fields keep defaults.
type fileConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	DatabaseURL   string `yaml:"database_url"`
	Timezone      string `yaml:"timezone"`
	SweepInterval string `yaml:"sweep_interval"`
	SweepTimeout  string `yaml:"sweep_timeout"`
	DigestTime    string `yaml:"digest_time"`
	CronMode      string `yaml:"cron_mode"`
	Log           struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Assistant struct {
		APIURL  string `yaml:"api_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"assistant"`
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	return decodeYAML(data)
}

func decodeYAML(data []byte) (fileConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return fc, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	set := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	setDur := func(name, src string, dst *time.Duration) error {
		if src == "" {
			return nil
		}
		d, err := parseDuration(src)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}

	set(fc.TelegramToken, &cfg.TelegramToken)
	set(fc.DatabaseURL, &cfg.DatabaseURL)
	set(fc.Timezone, &cfg.Timezone)
	set(fc.DigestTime, &cfg.DigestTime)
	set(fc.CronMode, &cfg.CronMode)
	set(fc.Log.Level, &cfg.LogLevel)
	set(fc.Log.Format, &cfg.LogFormat)
	set(fc.Assistant.APIURL, &cfg.Assistant.APIURL)
	set(fc.Assistant.APIKey, &cfg.Assistant.APIKey)
	set(fc.Assistant.Model, &cfg.Assistant.Model)

	if err := setDur("sweep_interval", fc.SweepInterval, &cfg.SweepInterval); err != nil {
		return err
	}
	if err := setDur("sweep_timeout", fc.SweepTimeout, &cfg.SweepTimeout); err != nil {
		return err
	}
	return setDur("assistant.timeout", fc.Assistant.Timeout, &cfg.Assistant.Timeout)
}
