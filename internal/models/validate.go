package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError describes why a record was rejected before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func checkAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return invalid(field, "must not be negative, got %s", amount.StringFixed(2))
	}
	return nil
}

// ValidateLineItem checks a single line item.
func ValidateLineItem(index int, item LineItem) error {
	field := fmt.Sprintf("line_items[%d]", index)
	if err := checkAmount(field+".amount", item.Amount); err != nil {
		return err
	}
	if !item.Owner.Valid() {
		return invalid(field+".owner", "must be A, B or Shared, got %q", item.Owner)
	}
	if item.SuggestedOwner != "" && !item.SuggestedOwner.Valid() {
		return invalid(field+".suggested_owner", "must be A, B or Shared, got %q", item.SuggestedOwner)
	}
	return nil
}

// ValidateExpense checks an expense before it is stored.
// A zero TotalAmount is treated as "not provided".
func ValidateExpense(e *Expense) error {
	if e == nil {
		return invalid("expense", "required")
	}
	if !e.Payer.Valid() {
		return invalid("payer", "must be A or B, got %q", e.Payer)
	}
	if len(e.LineItems) == 0 && !e.Manual {
		return invalid("line_items", "at least one item is required unless the expense is a manual correction")
	}
	for i, item := range e.LineItems {
		if err := ValidateLineItem(i, item); err != nil {
			return err
		}
	}
	if err := checkAmount("tax", e.Tax); err != nil {
		return err
	}
	if err := checkAmount("tip", e.Tip); err != nil {
		return err
	}
	if err := checkAmount("total_amount", e.TotalAmount); err != nil {
		return err
	}
	if !e.TotalAmount.IsZero() {
		computed := e.ComputedTotal()
		if computed.Sub(e.TotalAmount).Abs().GreaterThan(SettledEpsilon) {
			return invalid("total_amount", "%s does not match items + tax + tip (%s)",
				e.TotalAmount.StringFixed(2), computed.StringFixed(2))
		}
	}
	return nil
}

// ValidateUpdate checks that u does not rewrite receipt provenance on e.
// Items added by an update are entered by hand, so they must not carry
// RawText; a RawText that matches no stored item is an edit of receipt text.
func ValidateUpdate(e *Expense, u ExpenseUpdate) error {
	if e == nil {
		return invalid("expense", "required")
	}
	if u.LineItems == nil {
		return nil
	}
	for i, j := range MatchLineItems(e.LineItems, *u.LineItems) {
		if j < 0 && (*u.LineItems)[i].RawText != "" {
			return invalid(fmt.Sprintf("line_items[%d].raw_text", i),
				"%q matches no stored item; receipt text cannot be changed", (*u.LineItems)[i].RawText)
		}
	}
	return nil
}

// ValidatePayment checks a payment before it is stored.
func ValidatePayment(p *Payment) error {
	if p == nil {
		return invalid("payment", "required")
	}
	if err := checkAmount("amount", p.Amount); err != nil {
		return err
	}
	if !p.From.Valid() {
		return invalid("from", "must be A or B, got %q", p.From)
	}
	if !p.To.Valid() {
		return invalid("to", "must be A or B, got %q", p.To)
	}
	if p.From == p.To {
		return invalid("to", "must differ from the paying party")
	}
	if !p.Method.Valid() {
		return invalid("method", "must be app-transfer-A, app-transfer-B or manual, got %q", p.Method)
	}
	return nil
}
