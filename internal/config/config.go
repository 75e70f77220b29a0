// Package config loads the server settings from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"bytes"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds every server setting.
type Config struct {
	Addr            string        `yaml:"addr"`
	DBPath          string        `yaml:"db_path"`
	LogLevel        string        `yaml:"log_level"`
	LogPretty       bool          `yaml:"log_pretty"`
	Seed            uint64        `yaml:"seed"`
	ReadLimit       int64         `yaml:"read_limit"`
	BotMoveLimit    int           `yaml:"bot_move_limit"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	SessionMaxAge   time.Duration `yaml:"session_max_age"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DBPath:          "kingassassins.db",
		LogLevel:        "info",
		ReadLimit:       64 << 10,
		BotMoveLimit:    64,
		CleanupInterval: time.Minute,
		SessionMaxAge:   time.Hour,
	}
}

// Load reads path (skipped when empty) over the defaults, applies the
// environment through getenv and validates the result.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if p := getenv("PORT"); p != "" {
		c.Addr = ":" + p
	}
	if p := getenv("DB_PATH"); p != "" {
		c.DBPath = p
	}
	if l := getenv("LOG_LEVEL"); l != "" {
		c.LogLevel = l
	}
	if s := getenv("KA_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return errors.Wrap(err, "KA_SEED")
		}
		c.Seed = seed
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Addr == "" {
		result = multierror.Append(result, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		result = multierror.Append(result, errors.New("db_path is required"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "log_level"))
	}
	if c.ReadLimit < 1024 {
		result = multierror.Append(result, errors.Errorf("read_limit %d is below 1024 bytes", c.ReadLimit))
	}
	if c.BotMoveLimit <= 0 {
		result = multierror.Append(result, errors.Errorf("bot_move_limit must be positive, got %d", c.BotMoveLimit))
	}
	if c.CleanupInterval <= 0 {
		result = multierror.Append(result, errors.New("cleanup_interval must be positive"))
	}
	if c.SessionMaxAge <= 0 {
		result = multierror.Append(result, errors.New("session_max_age must be positive"))
	}
	return result.ErrorOrNil()
}
