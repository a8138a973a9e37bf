package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id                     UUID PRIMARY KEY,
		order_number           TEXT NOT NULL UNIQUE,
		status                 TEXT NOT NULL DEFAULT 'pending',
		payment_status         TEXT,
		payment_reference      TEXT,
		shipping_fee           NUMERIC(12,2) NOT NULL DEFAULT 0,
		shipping_fee_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at           TIMESTAMPTZ,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_updated ON orders (status, updated_at)`,
}

// Migrate creates the tables this service reads and writes. Safe to re-run.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
