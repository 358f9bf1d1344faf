// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/divvy/internal/models"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for expense and payment storage operations.
// This abstraction allows swapping storage backends (SQLite, bbolt, PostgreSQL)
// without changing the service layer.
//
// Every operation is atomic for a single record. There are no transactions
// spanning several records, so callers must handle partial failures.
type Store interface {
	// ListExpenses returns all expenses, newest first.
	ListExpenses(ctx context.Context) ([]*models.Expense, error)

	// ListPayments returns all payments, newest first.
	ListPayments(ctx context.Context) ([]*models.Payment, error)

	// GetExpense retrieves an expense by its ID.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// GetPayment retrieves a payment by its ID.
	GetPayment(ctx context.Context, id string) (*models.Payment, error)

	// CreateExpense persists a new expense.
	// The ID and OccurredAt fields are populated by the store when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// CreatePayment persists a new payment.
	// The ID and OccurredAt fields are populated by the store when empty.
	CreatePayment(ctx context.Context, payment *models.Payment) error

	// UpdateExpense applies a partial update and returns the stored result.
	UpdateExpense(ctx context.Context, id string, update models.ExpenseUpdate) (*models.Expense, error)

	// DeleteExpense removes an expense and its line items.
	DeleteExpense(ctx context.Context, id string) error

	// DeletePayment removes a payment.
	DeletePayment(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
