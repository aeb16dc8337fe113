package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is the part of a pool or transaction Migrate needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

// Every statement is idempotent so Migrate can run on each start.
var migrations = []migration{
	{
		name: "products table",
		sql: `
			CREATE TABLE IF NOT EXISTS products (
				id TEXT PRIMARY KEY,
				seq BIGSERIAL NOT NULL,
				title TEXT NOT NULL CHECK (title <> ''),
				description TEXT NOT NULL DEFAULT '',
				price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
				category TEXT NOT NULL CHECK (category IN ('STEAM', 'EMAIL', 'CURRENCY', 'ACCOUNTS', 'KEYS')),
				stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
				image_url TEXT NOT NULL DEFAULT '',
				region TEXT NOT NULL DEFAULT '',
				auto_delivery_data TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_products_category_seq ON products(category, seq DESC);
		`,
	},
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				seq BIGSERIAL NOT NULL,
				username TEXT NOT NULL DEFAULT '',
				balance NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				avatar_url TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		// Orders snapshot the product so they outlive catalog edits and deletes.
		name: "orders table",
		sql: `
			CREATE TABLE IF NOT EXISTS orders (
				id TEXT PRIMARY KEY,
				seq BIGSERIAL NOT NULL,
				user_id BIGINT NOT NULL,
				product_id TEXT NOT NULL,
				product_title TEXT NOT NULL,
				price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
				status TEXT NOT NULL DEFAULT 'completed',
				delivery_data TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_orders_user_seq ON orders(user_id, seq DESC);
		`,
	},
	{
		name: "transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				seq BIGSERIAL NOT NULL,
				user_id BIGINT NOT NULL,
				amount NUMERIC(14, 2) NOT NULL CHECK (amount <> 0),
				type TEXT NOT NULL CHECK (type IN ('deposit', 'purchase')),
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_seq ON transactions(user_id, seq DESC);
		`,
	},
}

// Migrate creates the storefront schema.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
