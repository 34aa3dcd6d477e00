package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

func expandSensitiveFields(cfg *Config) {
	cfg.Database.URL = expandEnvVars(cfg.Database.URL)
	cfg.Telegram.Token = expandEnvVars(cfg.Telegram.Token)
	cfg.IRC.Password = expandEnvVars(cfg.IRC.Password)
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (a missing file is fine), then the dotenv file at envFile, then the
// process environment.
func Load(path, envFile string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
		applyDefaults(&cfg)
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, err
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, &ConfigError{Message: "failed to read env file: " + err.Error()}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, &ConfigError{Message: "invalid environment: " + err.Error()}
	}

	expandSensitiveFields(&cfg)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	return cfg, nil
}

// applyDefaults refills fields a YAML file explicitly zeroed.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = d.Database.Driver
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = d.Database.MaxConns
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = d.Database.QueryTimeout
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = d.Telegram.PollTimeout
	}
	if cfg.Console.Listen == "" {
		cfg.Console.Listen = d.Console.Listen
	}
	if cfg.Liveness.Interval == 0 {
		cfg.Liveness.Interval = d.Liveness.Interval
	}
	if cfg.Orders.Limit == 0 {
		cfg.Orders.Limit = d.Orders.Limit
	}
	if cfg.Orders.Currency == "" {
		cfg.Orders.Currency = d.Orders.Currency
	}
	if cfg.Orders.Locale == "" {
		cfg.Orders.Locale = d.Orders.Locale
	}
	if cfg.Orders.DateLayout == "" {
		cfg.Orders.DateLayout = d.Orders.DateLayout
	}
	if cfg.Orders.Timezone == "" {
		cfg.Orders.Timezone = d.Orders.Timezone
	}
	if cfg.Login.Window == 0 {
		cfg.Login.Window = d.Login.Window
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
}
