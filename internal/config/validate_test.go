package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Database.URL = "postgres://bot@localhost/sales"
	cfg.Orders.Timezone = "UTC"
	return cfg
}

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidateValid(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateMissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "database.url", issues[0].Path)
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"max conns", func(c *Config) { c.Database.MaxConns = 0 }, "database.maxConns"},
		{"query timeout", func(c *Config) { c.Database.QueryTimeout = 0 }, "database.queryTimeout"},
		{"no transports", func(c *Config) { c.Telegram.Enabled = false }, "telegram.enabled"},
		{"irc server", func(c *Config) { c.IRC = IRCConfig{Enabled: true, Nick: "salesbot"} }, "irc.server"},
		{"irc sasl", func(c *Config) {
			c.IRC = IRCConfig{Enabled: true, Server: "irc.example.org", Nick: "salesbot", SASL: true}
		}, "irc.sasl"},
		{"console listen", func(c *Config) { c.Console = ConsoleConfig{Enabled: true, Listen: "nonsense"} }, "console.listen"},
		{"liveness", func(c *Config) { c.Liveness.Interval = 10 * time.Millisecond }, "liveness.interval"},
		{"orders limit", func(c *Config) { c.Orders.Limit = 500 }, "orders.limit"},
		{"orders limit above cap", func(c *Config) { c.Orders.Limit = 11 }, "orders.limit"},
		{"locale", func(c *Config) { c.Orders.Locale = "!!" }, "orders.locale"},
		{"timezone", func(c *Config) { c.Orders.Timezone = "Mars/Olympus" }, "orders.timezone"},
		{"login window", func(c *Config) { c.Login.Window = 0 }, "login.window"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
		{"hook event", func(c *Config) { c.Hooks = HooksConfig{"order_created": {{Command: "true"}}} }, "hooks.order_created"},
		{"hook command", func(c *Config) { c.Hooks = HooksConfig{"logout": {{}}} }, "hooks.logout[0].command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Contains(t, issuePaths(Validate(&cfg)), tt.path)
		})
	}
}

func TestValidateLimiterDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Login.MaxAttempts = 0
	cfg.Login.Window = 0
	assert.Empty(t, Validate(&cfg))
}

func TestValidateOrdersLimitAtCap(t *testing.T) {
	cfg := validConfig()
	cfg.Orders.Limit = 10
	assert.NotContains(t, issuePaths(Validate(&cfg)), "orders.limit")
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "orders.limit", Message: "must be 1-10, got 0"}
	assert.Equal(t, "orders.limit: must be 1-10, got 0", issue.String())
}
