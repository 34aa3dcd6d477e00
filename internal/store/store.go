// Package store provides read access to the sales datastore, backed by
// PostgreSQL in production and SQLite for local development and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// SettingTelegramToken is the bot_settings key holding the Telegram bot token.
const SettingTelegramToken = "telegram_bot_token"

// Store is the datastore surface the bot depends on.
type Store interface {
	// Setting returns a bot_settings value by key.
	Setting(ctx context.Context, key string) (string, error)

	// FindApprovedUser returns the single approved user with exactly this username.
	FindApprovedUser(ctx context.Context, username string) (domain.UserRecord, error)

	// RecentOrders returns up to limit orders owned by userID, newest first.
	RecentOrders(ctx context.Context, userID int64, limit int) ([]domain.Order, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// Open connects to the configured backend and runs a connectivity self-test.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err = OpenPostgres(ctx, cfg, log)
	case config.DriverSQLite:
		s, err = OpenSQLite(cfg.URL, log, WithQueryTimeout(cfg.QueryTimeout), WithMaxConns(cfg.MaxConns))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("database self-test: %w", err)
	}
	return s, nil
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)
