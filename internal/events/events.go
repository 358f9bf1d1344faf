// Package events announces ledger changes so other clients know to reload.
package events

import (
	"context"
	"time"
)

// Kind names what changed.
type Kind string

const (
	ExpenseCreated Kind = "expense.created"
	ExpenseUpdated Kind = "expense.updated"
	ExpenseDeleted Kind = "expense.deleted"
	PaymentCreated Kind = "payment.created"
	PaymentDeleted Kind = "payment.deleted"
)

// LedgerChanged is published after a record is written.
type LedgerChanged struct {
	Kind       Kind      `json:"kind"`
	RecordID   string    `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers ledger change events.
type Publisher interface {
	Publish(ctx context.Context, event LedgerChanged) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, LedgerChanged) error { return nil }
func (Nop) Close() error                                 { return nil }
