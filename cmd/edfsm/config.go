package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the demo configuration
type Config struct {
	Name          string        `yaml:"name"`
	LogLevel      string        `yaml:"log_level"`
	UnlockTimeout time.Duration `yaml:"unlock_timeout"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig selects the Redis bus. An empty Addr keeps events in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

func defaultConfig() Config {
	return Config{
		Name:          "turnstile",
		LogLevel:      "info",
		UnlockTimeout: 5 * time.Second,
		Redis: RedisConfig{
			Prefix: "edfsm:turnstile:",
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.UnlockTimeout <= 0 {
		return cfg, errors.Errorf("unlock_timeout must be positive, got %s", cfg.UnlockTimeout)
	}
	return cfg, nil
}
