// Package postgres provides a PostgreSQL-backed implementation of storage.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New connects to the database at url and runs migrations.
func New(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateExpense persists a new expense and its line items.
func (p *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) (err error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.OccurredAt.IsZero() {
		expense.OccurredAt = time.Now().Truncate(time.Microsecond)
	}

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const query = `INSERT INTO expenses (id, occurred_at, payer, tax, tip, total_amount, merchant_name, notes, manual)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = dbTx.ExecContext(ctx, query,
		expense.ID, expense.OccurredAt, string(expense.Payer),
		expense.Tax, expense.Tip, expense.TotalAmount,
		nullString(expense.MerchantName), nullString(expense.Notes), expense.Manual,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err = insertLineItems(ctx, dbTx, expense.ID, expense.LineItems); err != nil {
		return err
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertLineItems(ctx context.Context, dbTx *sql.Tx, expenseID string, items []models.LineItem) error {
	const query = `INSERT INTO line_items (expense_id, position, raw_text, label, amount, owner, suggested_owner)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i, item := range items {
		_, err := dbTx.ExecContext(ctx, query,
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
	var payer string
	var merchant, notes sql.NullString

	if err := row.Scan(&expense.ID, &expense.OccurredAt, &payer, &expense.Tax, &expense.Tip,
		&expense.TotalAmount, &merchant, &notes, &expense.Manual); err != nil {
		return nil, err
	}

	expense.Payer = models.Party(payer)
	expense.MerchantName = merchant.String
	expense.Notes = notes.String
	return expense, nil
}

// GetExpense retrieves an expense by ID.
func (p *PostgresStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, p.db, id)
}

func getExpense(ctx context.Context, q queryer, id string) (*models.Expense, error) {
	expense, err := scanExpense(q.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	items, err := listLineItems(ctx, q, "WHERE expense_id = $1", id)
	if err != nil {
		return nil, err
	}
	expense.LineItems = items[id]
	return expense, nil
}

// ListExpenses retrieves all expenses, newest first.
func (p *PostgresStore) ListExpenses(ctx context.Context) ([]*models.Expense, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses ORDER BY occurred_at DESC, seq DESC")
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

	items, err := listLineItems(ctx, p.db, "")
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		expense.LineItems = items[expense.ID]
	}
	return expenses, nil
}

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
		item.SuggestedOwner = models.Owner(suggested.String)
		items[expenseID] = append(items[expenseID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}
	return items, nil
}

// UpdateExpense applies a partial update, locking the row for the duration.
func (p *PostgresStore) UpdateExpense(ctx context.Context, id string, update models.ExpenseUpdate) (_ *models.Expense, err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if _, err = dbTx.ExecContext(ctx, "SELECT 1 FROM expenses WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}

	existing, err := getExpense(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}
	updated := update.Apply(*existing)

	const query = `UPDATE expenses SET occurred_at = $1, tax = $2, tip = $3, total_amount = $4,
	merchant_name = $5, notes = $6, manual = $7 WHERE id = $8`

	_, err = dbTx.ExecContext(ctx, query,
		updated.OccurredAt, updated.Tax, updated.Tip, updated.TotalAmount,
		nullString(updated.MerchantName), nullString(updated.Notes), updated.Manual, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if update.LineItems != nil {
		if _, err = dbTx.ExecContext(ctx, "DELETE FROM line_items WHERE expense_id = $1", id); err != nil {
			return nil, fmt.Errorf("failed to delete line items: %w", err)
		}
		if err = insertLineItems(ctx, dbTx, id, updated.LineItems); err != nil {
			return nil, err
		}
	}

	if err = dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

// DeleteExpense removes an expense; its line items cascade.
func (p *PostgresStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = $1", id)
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
