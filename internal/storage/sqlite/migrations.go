package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Money columns are TEXT so decimal values round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    occurred_at INTEGER NOT NULL,
    payer TEXT NOT NULL,
    tax TEXT NOT NULL,
    tip TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    merchant_name TEXT,
    notes TEXT,
    manual INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS line_items (
    expense_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    raw_text TEXT NOT NULL,
    label TEXT NOT NULL,
    amount TEXT NOT NULL,
    owner TEXT NOT NULL,
    suggested_owner TEXT,
    PRIMARY KEY (expense_id, position),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    occurred_at INTEGER NOT NULL,
    amount TEXT NOT NULL,
    from_party TEXT NOT NULL,
    to_party TEXT NOT NULL,
    method TEXT NOT NULL,
    note TEXT
);

CREATE TABLE IF NOT EXISTS payment_expenses (
    payment_id TEXT NOT NULL,
    expense_id TEXT NOT NULL,
    PRIMARY KEY (payment_id, expense_id),
    FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_expenses_occurred_at ON expenses(occurred_at);
CREATE INDEX IF NOT EXISTS idx_payments_occurred_at ON payments(occurred_at);
CREATE INDEX IF NOT EXISTS idx_line_items_expense_id ON line_items(expense_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
