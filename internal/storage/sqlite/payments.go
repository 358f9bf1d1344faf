package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

// CreatePayment persists a new payment to the database.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.OccurredAt.IsZero() {
		payment.OccurredAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, occurred_at, amount, from_party, to_party, method, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.OccurredAt.UnixMicro(), payment.Amount,
		string(payment.From), string(payment.To), string(payment.Method), nullString(payment.Note),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	for _, expenseID := range payment.RelatedExpenseIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO payment_expenses (payment_id, expense_id) VALUES (?, ?)",
			payment.ID, expenseID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert related expense: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const paymentColumns = `id, occurred_at, amount, from_party, to_party, method, note`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	payment := &models.Payment{}
	var occurredAt int64
	var from, to, method string
	var note sql.NullString

	if err := row.Scan(&payment.ID, &occurredAt, &payment.Amount, &from, &to, &method, &note); err != nil {
		return nil, err
	}

	payment.OccurredAt = time.UnixMicro(occurredAt)
	payment.From = models.Party(from)
	payment.To = models.Party(to)
	payment.Method = models.PaymentMethod(method)
	if note.Valid {
		payment.Note = note.String
	}
	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := scanPayment(s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	related, err := s.relatedExpenses(ctx, "WHERE payment_id = ?", id)
	if err != nil {
		return nil, err
	}
	payment.RelatedExpenseIDs = related[id]

	return payment, nil
}

// ListPayments retrieves all payments, newest first.
func (s *SQLiteStore) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments ORDER BY occurred_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	related, err := s.relatedExpenses(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, payment := range payments {
		payment.RelatedExpenseIDs = related[payment.ID]
	}

	return payments, nil
}

func (s *SQLiteStore) relatedExpenses(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payment_id, expense_id FROM payment_expenses "+where+" ORDER BY payment_id, expense_id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get related expenses: %w", err)
	}
	defer rows.Close()

	related := make(map[string][]string)
	for rows.Next() {
		var paymentID, expenseID string
		if err := rows.Scan(&paymentID, &expenseID); err != nil {
			return nil, fmt.Errorf("failed to scan related expense: %w", err)
		}
		related[paymentID] = append(related[paymentID], expenseID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate related expenses: %w", err)
	}

	return related, nil
}

// DeletePayment removes a payment by ID.
func (s *SQLiteStore) DeletePayment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return checkAffected(res, "payment", id)
}
