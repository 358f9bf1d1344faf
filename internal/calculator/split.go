package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/models"
)

var two = decimal.NewFromInt(2)

// ExpenseSplit is the counter-party's share of one expense.
type ExpenseSplit struct {
	// Debtor is the party that did not pay.
	Debtor models.Party

	// Items is the debtor's share of the line items (pre-tax).
	Items decimal.Decimal

	// Extras is the debtor's proportional share of tax and tip.
	Extras decimal.Decimal

	// Total is Items + Extras.
	Total decimal.Decimal
}

// ExpenseDebt computes what the counter-party owes the payer for one expense.
// Shared items cost the counter-party half, items owned by the counter-party
// cost the full amount, and items owned by the payer cost nothing. Tax and tip
// are apportioned by the counter-party's share of the item subtotal:
// extras = (tax + tip) × (debtor items / subtotal).
//
// A zero subtotal apportions no tax or tip, and an expense with an unknown
// payer produces a zero split.
func ExpenseDebt(e *models.Expense) ExpenseSplit {
	debtor := e.Payer.Other()
	if debtor == "" {
		return ExpenseSplit{Items: decimal.Zero, Extras: decimal.Zero, Total: decimal.Zero}
	}

	owed := decimal.Zero
	subtotal := decimal.Zero
	for _, item := range e.LineItems {
		subtotal = subtotal.Add(item.Amount)
		switch {
		case item.Owner == models.OwnerShared:
			owed = owed.Add(item.Amount.Div(two))
		case item.Owner.Is(debtor):
			owed = owed.Add(item.Amount)
		}
	}

	extras := decimal.Zero
	taxAndTip := e.Tax.Add(e.Tip)
	if subtotal.IsPositive() && taxAndTip.IsPositive() {
		extras = taxAndTip.Mul(owed).Div(subtotal)
	}

	return ExpenseSplit{
		Debtor: debtor,
		Items:  owed,
		Extras: extras,
		Total:  owed.Add(extras),
	}
}
