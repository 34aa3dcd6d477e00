package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// Postgres reads the production schema through a bounded pgx pool.
// Excess concurrent queries queue for a connection; each operation fails
// once the query timeout elapses, acquisition included.
type Postgres struct {
	pool    *pgxpool.Pool
	log     *logging.Logger
	timeout time.Duration
}

// OpenPostgres creates the connection pool. It does not ping; Open does.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &Postgres{pool: pool, log: log.Sub("store"), timeout: timeout}
	p.log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("maxConns", poolCfg.MaxConns).
		Msg("postgres pool created")
	return p, nil
}

// Close closes every pooled connection.
func (p *Postgres) Close() error {
	p.log.Info().Msg("closing database pool")
	p.pool.Close()
	return nil
}

// Ping checks the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Setting returns a bot_settings value.
func (p *Postgres) Setting(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM bot_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// FindApprovedUser returns the approved user with exactly this username.
func (p *Postgres) FindApprovedUser(ctx context.Context, username string) (domain.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var u domain.UserRecord
	err := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND status = $2 LIMIT 1`,
		username, domain.UserStatusApproved,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Status, &u.FirstName, &u.LastName, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("finding user: %w", err)
	}
	return u, nil
}

// RecentOrders returns up to limit orders owned by userID, newest first.
func (p *Postgres) RecentOrders(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE sales_officer_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerName, &o.TotalAmount, &o.Status, &o.CreatedAt,
			&o.ProductType, &o.Unit, &o.Quantity, &o.Price, &o.SalesOfficerID,
		); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
