package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// sqliteTimeLayout is how timestamps are stored; it sorts lexically.
const sqliteTimeLayout = time.DateTime

// SQLite is the development datastore: a SQLite file with its own migrations.
type SQLite struct {
	sql     *sql.DB
	log     *logging.Logger
	timeout time.Duration
}

// SQLiteOption tunes an SQLite store.
type SQLiteOption func(*SQLite)

// WithQueryTimeout bounds every query.
func WithQueryTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLite) { s.timeout = d }
}

// WithMaxConns caps open connections.
func WithMaxConns(n int) SQLiteOption {
	return func(s *SQLite) {
		if n > 0 {
			s.sql.SetMaxOpenConns(n)
		}
	}
}

// OpenSQLite opens (or creates) a SQLite database at path and runs migrations.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string, log *logging.Logger, opts ...SQLiteOption) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &SQLite{sql: sqlDB, log: log.Sub("store"), timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(db)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db.log.Info().Str("path", path).Msg("sqlite database opened")
	return db, nil
}

// Close closes the database.
func (db *SQLite) Close() error {
	db.log.Info().Msg("closing database")
	return db.sql.Close()
}

// Ping checks the database is reachable.
func (db *SQLite) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()
	return db.sql.PingContext(ctx)
}

// Setting returns a bot_settings value.
func (db *SQLite) Setting(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	var value string
	err := db.sql.QueryRowContext(ctx, `SELECT value FROM bot_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// FindApprovedUser returns the approved user with exactly this username.
func (db *SQLite) FindApprovedUser(ctx context.Context, username string) (domain.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	var u domain.UserRecord
	err := db.sql.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND status = ? LIMIT 1`,
		username, domain.UserStatusApproved,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Status, &u.FirstName, &u.LastName, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("finding user: %w", err)
	}
	return u, nil
}

// RecentOrders returns up to limit orders owned by userID, newest first.
func (db *SQLite) RecentOrders(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	rows, err := db.sql.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE sales_officer_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o         domain.Order
			createdAt string
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerName, &o.TotalAmount, &o.Status, &createdAt,
			&o.ProductType, &o.Unit, &o.Quantity, &o.Price, &o.SalesOfficerID,
		); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o.CreatedAt, err = parseSQLiteTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// PutSetting inserts or replaces a bot_settings value.
func (db *SQLite) PutSetting(ctx context.Context, key, value string) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO bot_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// CreateUser inserts a user row and returns its id.
func (db *SQLite) CreateUser(ctx context.Context, u domain.UserRecord) (int64, error) {
	res, err := db.sql.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, status, first_name, last_name, role)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.Status, u.FirstName, u.LastName, u.Role,
	)
	if err != nil {
		return 0, fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return res.LastInsertId()
}

// InsertOrder inserts an order row and returns its id.
func (db *SQLite) InsertOrder(ctx context.Context, o domain.Order) (int64, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	res, err := db.sql.ExecContext(ctx,
		`INSERT INTO orders (order_number, customer_name, total_amount, status, created_at,
			product_type, unit, quantity, price, sales_officer_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.CustomerName, o.TotalAmount, o.Status, o.CreatedAt.UTC().Format(sqliteTimeLayout),
		o.ProductType, o.Unit, o.Quantity, o.Price, o.SalesOfficerID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order %q: %w", o.OrderNumber, err)
	}
	return res.LastInsertId()
}

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// migrate runs all pending migrations.
func (db *SQLite) migrate() error {
	if _, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.isMigrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (db *SQLite) isMigrationApplied(version int) (bool, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}
