package config

import (
	"fmt"
	"net"
	"slices"
	"time"

	"golang.org/x/text/language"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// maxOrdersLimit is the most orders a single listing may return.
const maxOrdersLimit = 10

// HookEvents lists the event names hooks may subscribe to.
var HookEvents = []string{
	"bot_start",
	"bot_stop",
	"login_succeeded",
	"login_failed",
	"logout",
	"probe_failed",
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	validDrivers := []string{DriverPostgres, DriverSQLite}
	if !slices.Contains(validDrivers, cfg.Database.Driver) {
		add("database.driver", "must be one of %v, got %q", validDrivers, cfg.Database.Driver)
	}
	if cfg.Database.URL == "" {
		add("database.url", "required (set DATABASE_URL)")
	}
	if cfg.Database.MaxConns < 1 {
		add("database.maxConns", "must be at least 1, got %d", cfg.Database.MaxConns)
	}
	if cfg.Database.QueryTimeout <= 0 {
		add("database.queryTimeout", "must be positive, got %s", cfg.Database.QueryTimeout)
	}

	if !cfg.Telegram.Enabled && !cfg.IRC.Enabled && !cfg.Console.Enabled {
		add("telegram.enabled", "at least one of telegram, irc or console must be enabled")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.PollTimeout < 0 {
		add("telegram.pollTimeout", "must not be negative, got %d", cfg.Telegram.PollTimeout)
	}

	if cfg.IRC.Enabled {
		if cfg.IRC.Server == "" {
			add("irc.server", "server is required")
		}
		if cfg.IRC.Nick == "" {
			add("irc.nick", "nick is required")
		}
		if cfg.IRC.Port < 0 || cfg.IRC.Port > 65535 {
			add("irc.port", "port must be 0-65535, got %d", cfg.IRC.Port)
		}
		if cfg.IRC.SASL && cfg.IRC.Password == "" {
			add("irc.sasl", "SASL requires a password to be set")
		}
	}

	if cfg.Console.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Console.Listen); err != nil {
			add("console.listen", "invalid listen address %q", cfg.Console.Listen)
		}
	}

	if cfg.Liveness.Interval < time.Second {
		add("liveness.interval", "must be at least 1s, got %s", cfg.Liveness.Interval)
	}

	if cfg.Orders.Limit < 1 || cfg.Orders.Limit > maxOrdersLimit {
		add("orders.limit", "must be 1-%d, got %d", maxOrdersLimit, cfg.Orders.Limit)
	}
	if _, err := language.Parse(cfg.Orders.Locale); err != nil {
		add("orders.locale", "unknown locale %q", cfg.Orders.Locale)
	}
	if _, err := time.LoadLocation(cfg.Orders.Timezone); err != nil {
		add("orders.timezone", "unknown time zone %q", cfg.Orders.Timezone)
	}

	if cfg.Login.MaxAttempts < 0 {
		add("login.maxAttempts", "must not be negative, got %d", cfg.Login.MaxAttempts)
	}
	if cfg.Login.MaxAttempts > 0 && cfg.Login.Window <= 0 {
		add("login.window", "must be positive when maxAttempts is set")
	}

	validLogLevels := []string{"silent", "error", "warn", "info", "debug", "trace"}
	if !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validStyles := []string{"pretty", "json"}
	if !slices.Contains(validStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validStyles, cfg.Logging.ConsoleStyle)
	}

	for event, entries := range cfg.Hooks {
		if !slices.Contains(HookEvents, event) {
			add("hooks."+event, "unknown event, must be one of %v", HookEvents)
			continue
		}
		for i, e := range entries {
			if e.Command == "" {
				add(fmt.Sprintf("hooks.%s[%d].command", event, i), "command is required")
			}
		}
	}

	return issues
}
