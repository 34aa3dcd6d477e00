package config

import "time"

// Config is the root salesbot configuration.
// Every field can come from config.yaml; fields with an env tag can be
// overridden from the environment (or a .env file).
type Config struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
	Telegram TelegramConfig `yaml:"telegram,omitempty"`
	IRC      IRCConfig      `yaml:"irc,omitempty"`
	Console  ConsoleConfig  `yaml:"console,omitempty"`
	Liveness LivenessConfig `yaml:"liveness,omitempty"`
	Orders   OrdersConfig   `yaml:"orders,omitempty"`
	Login    LoginConfig    `yaml:"login,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Hooks    HooksConfig    `yaml:"hooks,omitempty"`
	Dev      DevConfig      `yaml:"dev,omitempty"`
}

// DatabaseConfig selects and tunes the datastore backend.
type DatabaseConfig struct {
	Driver       string        `yaml:"driver,omitempty" env:"SALESBOT_DB_DRIVER"` // "postgres" | "sqlite"
	URL          string        `yaml:"url,omitempty" env:"DATABASE_URL"`          // postgres DSN or sqlite file path
	MaxConns     int           `yaml:"maxConns,omitempty" env:"SALESBOT_DB_MAX_CONNS"`
	QueryTimeout time.Duration `yaml:"queryTimeout,omitempty" env:"SALESBOT_DB_QUERY_TIMEOUT"`
}

// TelegramConfig configures the Telegram Bot API transport.
type TelegramConfig struct {
	Enabled bool `yaml:"enabled,omitempty" env:"SALESBOT_TELEGRAM_ENABLED"`
	// Token is a fallback; the bot_settings row in the datastore wins.
	Token       string `yaml:"token,omitempty" env:"TELEGRAM_BOT_TOKEN"`
	PollTimeout int    `yaml:"pollTimeout,omitempty"` // seconds
	APIEndpoint string `yaml:"apiEndpoint,omitempty" env:"SALESBOT_TELEGRAM_API"`
	Debug       bool   `yaml:"debug,omitempty"`
}

// IRCConfig configures the IRC transport. Only private messages are served.
type IRCConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Server   string `yaml:"server,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Nick     string `yaml:"nick,omitempty"`
	Password string `yaml:"password,omitempty" env:"SALESBOT_IRC_PASSWORD"`
	UseTLS   bool   `yaml:"useTLS,omitempty"`
	SASL     bool   `yaml:"sasl,omitempty"`
}

// ConsoleConfig configures the local WebSocket console transport.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" env:"SALESBOT_CONSOLE_ENABLED"`
	Listen  string `yaml:"listen,omitempty" env:"SALESBOT_CONSOLE_LISTEN"`
}

// LivenessConfig controls the periodic transport probe.
type LivenessConfig struct {
	Interval time.Duration `yaml:"interval,omitempty" env:"SALESBOT_LIVENESS_INTERVAL"`
}

// OrdersConfig controls the /orders listing and its rendering.
type OrdersConfig struct {
	Limit      int    `yaml:"limit,omitempty"`
	Currency   string `yaml:"currency,omitempty" env:"SALESBOT_CURRENCY"`
	Locale     string `yaml:"locale,omitempty" env:"SALESBOT_LOCALE"`
	DateLayout string `yaml:"dateLayout,omitempty"`
	Timezone   string `yaml:"timezone,omitempty" env:"SALESBOT_TIMEZONE"`
}

// LoginConfig bounds failed password attempts per conversation.
// MaxAttempts of 0 disables the limit.
type LoginConfig struct {
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	Window      time.Duration `yaml:"window,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty" env:"SALESBOT_LOG_LEVEL"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty" env:"SALESBOT_LOG_STYLE"` // "pretty" | "json"
}

// HooksConfig maps hook event names to shell commands.
type HooksConfig map[string][]HookEntry

// HookEntry defines a single hook command.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// DevConfig holds development-only switches.
type DevConfig struct {
	AutoRestart bool `yaml:"autorestart,omitempty" env:"SALESBOT_AUTORESTART"`
}
