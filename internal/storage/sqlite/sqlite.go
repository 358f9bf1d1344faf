// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMAs are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateExpense persists a new expense and its line items in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.OccurredAt.IsZero() {
		expense.OccurredAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, occurred_at, payer, tax, tip, total_amount, merchant_name, notes, manual)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.OccurredAt.UnixMicro(), string(expense.Payer),
		expense.Tax, expense.Tip, expense.TotalAmount,
		nullString(expense.MerchantName), nullString(expense.Notes), expense.Manual,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertLineItems(ctx, tx, expense.ID, expense.LineItems); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertLineItems(ctx context.Context, tx *sql.Tx, expenseID string, items []models.LineItem) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO line_items (expense_id, position, raw_text, label, amount, owner, suggested_owner)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			expenseID, i, item.RawText, item.Label, item.Amount,
			string(item.Owner), nullString(string(item.SuggestedOwner)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}
	return nil
}

const expenseColumns = `id, occurred_at, payer, tax, tip, total_amount, merchant_name, notes, manual`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	expense := &models.Expense{}
	var occurredAt int64
	var payer string
	var merchant, notes sql.NullString

	if err := row.Scan(&expense.ID, &occurredAt, &payer, &expense.Tax, &expense.Tip,
		&expense.TotalAmount, &merchant, &notes, &expense.Manual); err != nil {
		return nil, err
	}

	expense.OccurredAt = time.UnixMicro(occurredAt)
	expense.Payer = models.Party(payer)
	if merchant.Valid {
		expense.MerchantName = merchant.String
	}
	if notes.Valid {
		expense.Notes = notes.String
	}
	return expense, nil
}

// GetExpense retrieves an expense by ID, including its line items.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, s.db, id)
}

func getExpense(ctx context.Context, q queryer, id string) (*models.Expense, error) {
	expense, err := scanExpense(q.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	items, err := listLineItems(ctx, q, "WHERE expense_id = ?", id)
	if err != nil {
		return nil, err
	}
	expense.LineItems = items[id]

	return expense, nil
}

// ListExpenses retrieves all expenses, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses ORDER BY occurred_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	items, err := listLineItems(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		expense.LineItems = items[expense.ID]
	}

	return expenses, nil
}

// listLineItems loads line items grouped by expense ID, in receipt order.
func listLineItems(ctx context.Context, q queryer, where string, args ...any) (map[string][]models.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT expense_id, raw_text, label, amount, owner, suggested_owner
		 FROM line_items `+where+` ORDER BY expense_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]models.LineItem)
	for rows.Next() {
		var expenseID, owner string
		var suggested sql.NullString
		var item models.LineItem
		if err := rows.Scan(&expenseID, &item.RawText, &item.Label, &item.Amount, &owner, &suggested); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		item.Owner = models.Owner(owner)
		if suggested.Valid {
			item.SuggestedOwner = models.Owner(suggested.String)
		}
		items[expenseID] = append(items[expenseID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}

	return items, nil
}

// UpdateExpense applies a partial update to an existing expense.
// Line items are replaced wholesale when the update carries them.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, id string, update models.ExpenseUpdate) (*models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getExpense(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated := update.Apply(*existing)

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET occurred_at = ?, tax = ?, tip = ?, total_amount = ?,
		 merchant_name = ?, notes = ?, manual = ? WHERE id = ?`,
		updated.OccurredAt.UnixMicro(), updated.Tax, updated.Tip, updated.TotalAmount,
		nullString(updated.MerchantName), nullString(updated.Notes), updated.Manual, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if update.LineItems != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM line_items WHERE expense_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to delete line items: %w", err)
		}
		if err := insertLineItems(ctx, tx, id, updated.LineItems); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &updated, nil
}

// DeleteExpense removes an expense; its line items cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return checkAffected(res, "expense", id)
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
