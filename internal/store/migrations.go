package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations builds the development schema. It mirrors the production
// PostgreSQL tables the bot reads from.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and orders",
		SQL: `
			CREATE TABLE users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				status        TEXT NOT NULL DEFAULT 'pending',
				first_name    TEXT,
				last_name     TEXT,
				role          TEXT NOT NULL DEFAULT 'sales_officer'
			);

			CREATE TABLE orders (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				order_number     TEXT NOT NULL,
				customer_name    TEXT NOT NULL,
				total_amount     REAL NOT NULL DEFAULT 0,
				status           TEXT NOT NULL DEFAULT 'pending',
				created_at       TEXT NOT NULL DEFAULT (datetime('now')),
				product_type     TEXT,
				unit             TEXT,
				quantity         REAL,
				price            REAL,
				sales_officer_id INTEGER NOT NULL REFERENCES users(id)
			);

			CREATE INDEX idx_orders_officer ON orders (sales_officer_id, created_at DESC);
		`,
	},
	{
		Version: 2,
		Name:    "create bot settings",
		SQL: `
			CREATE TABLE bot_settings (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);
		`,
	},
}
