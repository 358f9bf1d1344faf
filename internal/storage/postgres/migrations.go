package postgres

import (
	"context"
	"database/sql"
)

// seq orders records that share a timestamp by insertion order.
const schema = `
CREATE TABLE IF NOT EXISTS expenses (
    seq BIGSERIAL,
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    payer TEXT NOT NULL,
    tax NUMERIC NOT NULL,
    tip NUMERIC NOT NULL,
    total_amount NUMERIC NOT NULL,
    merchant_name TEXT,
    notes TEXT,
    manual BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS line_items (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    raw_text TEXT NOT NULL,
    label TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    owner TEXT NOT NULL,
    suggested_owner TEXT,
    PRIMARY KEY (expense_id, position)
);

CREATE TABLE IF NOT EXISTS payments (
    seq BIGSERIAL,
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    amount NUMERIC NOT NULL,
    from_party TEXT NOT NULL,
    to_party TEXT NOT NULL,
    method TEXT NOT NULL,
    note TEXT
);

CREATE TABLE IF NOT EXISTS payment_expenses (
    payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
    expense_id TEXT NOT NULL,
    PRIMARY KEY (payment_id, expense_id)
);

CREATE INDEX IF NOT EXISTS idx_expenses_occurred_at ON expenses(occurred_at);
CREATE INDEX IF NOT EXISTS idx_payments_occurred_at ON payments(occurred_at);
`

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
