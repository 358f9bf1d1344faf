package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

// CreatePayment persists a new payment and its related expense links.
func (p *PostgresStore) CreatePayment(ctx context.Context, payment *models.Payment) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.OccurredAt.IsZero() {
		payment.OccurredAt = time.Now().Truncate(time.Microsecond)
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

	const query = `INSERT INTO payments (id, occurred_at, amount, from_party, to_party, method, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = dbTx.ExecContext(ctx, query,
		payment.ID, payment.OccurredAt, payment.Amount,
		string(payment.From), string(payment.To), string(payment.Method), nullString(payment.Note),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if len(payment.RelatedExpenseIDs) > 0 {
		_, err = dbTx.ExecContext(ctx,
			`INSERT INTO payment_expenses (payment_id, expense_id)
			 SELECT $1, unnest($2::text[]) ON CONFLICT DO NOTHING`,
			payment.ID, pq.Array(payment.RelatedExpenseIDs),
		)
		if err != nil {
			return fmt.Errorf("failed to insert related expenses: %w", err)
		}
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// related is aggregated into an array so one row carries the whole payment.
const paymentSelect = `SELECT p.id, p.occurred_at, p.amount, p.from_party, p.to_party, p.method, p.note,
	COALESCE(ARRAY(SELECT pe.expense_id FROM payment_expenses pe WHERE pe.payment_id = p.id ORDER BY pe.expense_id COLLATE "C"), '{}')
	FROM payments p`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	payment := &models.Payment{}
	var from, to, method string
	var note sql.NullString
	var related pq.StringArray

	if err := row.Scan(&payment.ID, &payment.OccurredAt, &payment.Amount,
		&from, &to, &method, &note, &related); err != nil {
		return nil, err
	}

	payment.From = models.Party(from)
	payment.To = models.Party(to)
	payment.Method = models.PaymentMethod(method)
	payment.Note = note.String
	if len(related) > 0 {
		payment.RelatedExpenseIDs = []string(related)
	}
	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (p *PostgresStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := scanPayment(p.db.QueryRowContext(ctx, paymentSelect+" WHERE p.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ListPayments retrieves all payments, newest first.
func (p *PostgresStore) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := p.db.QueryContext(ctx, paymentSelect+" ORDER BY p.occurred_at DESC, p.seq DESC")
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
	return payments, nil
}

// DeletePayment removes a payment by ID.
func (p *PostgresStore) DeletePayment(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return checkAffected(res, "payment", id)
}
