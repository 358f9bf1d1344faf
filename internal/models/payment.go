package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a settlement was made.
type PaymentMethod string

const (
	// MethodAppTransferA is a transfer through the first payment app.
	// It is the only method with a deep link.
	MethodAppTransferA PaymentMethod = "app-transfer-A"
	// MethodAppTransferB is a transfer through the second payment app.
	MethodAppTransferB PaymentMethod = "app-transfer-B"
	// MethodManual is a "mark settled" action with no app involved.
	MethodManual PaymentMethod = "manual"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodAppTransferA, MethodAppTransferB, MethodManual:
		return true
	}
	return false
}

// Payment represents a settlement between the two parties.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// OccurredAt is when the payment was recorded.
	OccurredAt time.Time

	// Amount is the payment amount in dollars.
	Amount decimal.Decimal

	// From is the party who paid.
	From Party

	// To is the party who received the money.
	To Party

	// Method is how the payment was made.
	Method PaymentMethod

	// RelatedExpenseIDs are the expenses outstanding when the payment was made.
	// Informational only; the ledger does not read them.
	RelatedExpenseIDs []string

	// Note is an optional memo for the payment.
	Note string
}
