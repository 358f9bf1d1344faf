package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a single priced line on an expense.
type LineItem struct {
	// RawText is the literal text read from the receipt. It is never edited.
	RawText string

	// Label is the human-readable, editable display name (e.g., "5 Avocados").
	Label string

	// Amount is the item price in dollars.
	Amount decimal.Decimal

	// Owner decides who pays for the item. Shared splits it evenly.
	Owner Owner

	// SuggestedOwner is the owner proposed by receipt extraction.
	// It is set once when the item is created and is only used as the
	// initial value of Owner. Empty for manually entered items.
	SuggestedOwner Owner
}

// Expense represents one receipt or transaction fronted by a single payer.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// OccurredAt is when the expense was submitted.
	OccurredAt time.Time

	// Payer is the party who fronted the money.
	Payer Party

	// LineItems are the priced lines in receipt order.
	LineItems []LineItem

	// Tax and Tip are added on top of the item subtotal.
	Tax decimal.Decimal
	Tip decimal.Decimal

	// TotalAmount is what the payer actually spent: items + tax + tip.
	// Derived for display and audit; the ledger never reads it.
	TotalAmount decimal.Decimal

	// MerchantName is the optional store name.
	MerchantName string

	// Notes is free text from the payer, consumed only by receipt extraction.
	Notes string

	// Manual marks a correction entry that is allowed to have no line items.
	Manual bool
}

// Subtotal returns the sum of all line item amounts.
func (e *Expense) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range e.LineItems {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// ComputedTotal returns items + tax + tip.
func (e *Expense) ComputedTotal() decimal.Decimal {
	return e.Subtotal().Add(e.Tax).Add(e.Tip)
}

// ExpenseUpdate is a partial update to a stored expense.
// Nil fields are left unchanged. The payer cannot be updated: changing it
// means deleting the expense and creating a new one.
type ExpenseUpdate struct {
	OccurredAt   *time.Time
	LineItems    *[]LineItem
	Tax          *decimal.Decimal
	Tip          *decimal.Decimal
	MerchantName *string
	Notes        *string
	Manual       *bool
}

// Apply returns a copy of e with the update applied.
// Incoming items are matched to stored items by RawText. A matched item keeps
// the stored RawText and SuggestedOwner; an unmatched item is new and has no
// SuggestedOwner. TotalAmount is re-derived.
func (u ExpenseUpdate) Apply(e Expense) Expense {
	out := e
	if u.OccurredAt != nil {
		out.OccurredAt = *u.OccurredAt
	}
	if u.LineItems != nil {
		matches := MatchLineItems(e.LineItems, *u.LineItems)
		items := make([]LineItem, len(*u.LineItems))
		copy(items, *u.LineItems)
		for i := range items {
			if j := matches[i]; j >= 0 {
				items[i].RawText = e.LineItems[j].RawText
				items[i].SuggestedOwner = e.LineItems[j].SuggestedOwner
			} else {
				items[i].SuggestedOwner = ""
			}
		}
		out.LineItems = items
	}
	if u.Tax != nil {
		out.Tax = *u.Tax
	}
	if u.Tip != nil {
		out.Tip = *u.Tip
	}
	if u.MerchantName != nil {
		out.MerchantName = *u.MerchantName
	}
	if u.Notes != nil {
		out.Notes = *u.Notes
	}
	if u.Manual != nil {
		out.Manual = *u.Manual
	}
	out.TotalAmount = out.ComputedTotal()
	return out
}

// MatchLineItems pairs each incoming item with a stored item of the same
// RawText, consuming stored items in order so duplicates pair up one to one.
// The result holds the stored index for each incoming item, or -1.
func MatchLineItems(stored, incoming []LineItem) []int {
	unclaimed := make(map[string][]int, len(stored))
	for i, item := range stored {
		unclaimed[item.RawText] = append(unclaimed[item.RawText], i)
	}

	matches := make([]int, len(incoming))
	for i, item := range incoming {
		matches[i] = -1
		if queue := unclaimed[item.RawText]; len(queue) > 0 {
			matches[i] = queue[0]
			unclaimed[item.RawText] = queue[1:]
		}
	}
	return matches
}
