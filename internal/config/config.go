// Package config loads and validates salesbot configuration.
package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			MaxConns:     10,
			QueryTimeout: 10 * time.Second,
		},
		Telegram: TelegramConfig{
			Enabled:     true,
			PollTimeout: 60,
		},
		Console: ConsoleConfig{
			Listen: "127.0.0.1:18790",
		},
		Liveness: LivenessConfig{
			Interval: 5 * time.Minute,
		},
		Orders: OrdersConfig{
			Limit:      10,
			Currency:   "UZS",
			Locale:     "ru",
			DateLayout: "02.01.2006",
			Timezone:   "Local",
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
