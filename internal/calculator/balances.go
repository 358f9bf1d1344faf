package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/models"
)

// Epsilon is the one-cent tolerance used for "is settled" comparisons.
var Epsilon = models.SettledEpsilon

// ledger holds the two directional running totals.
type ledger struct {
	aOwesB decimal.Decimal
	bOwesA decimal.Decimal
}

// owes returns a pointer to the running total of what p owes the other party.
func (l *ledger) owes(p models.Party) *decimal.Decimal {
	if p == models.PartyA {
		return &l.aOwesB
	}
	return &l.bOwesA
}

// addDebt records that debtor owes the other party amount.
func (l *ledger) addDebt(debtor models.Party, amount decimal.Decimal) {
	total := l.owes(debtor)
	*total = total.Add(amount)
}

// applyPayment reduces what from owes to. Anything paid beyond that debt
// flips into debt owed back to from.
func (l *ledger) applyPayment(from models.Party, amount decimal.Decimal) {
	debt := l.owes(from)
	if amount.LessThanOrEqual(*debt) {
		*debt = debt.Sub(amount)
		return
	}
	excess := amount.Sub(*debt)
	*debt = decimal.Zero
	l.addDebt(from.Other(), excess)
}

// net subtracts the smaller total from both so at most one is non-zero.
func (l *ledger) net() models.Balance {
	smaller := decimal.Min(l.aOwesB, l.bOwesA)
	return models.Balance{
		OwedByA: l.aOwesB.Sub(smaller),
		OwedByB: l.bOwesA.Sub(smaller),
	}
}

// ComputeBalance folds every expense and payment into the current balance.
//
// Algorithm:
//   - For each expense: the counter-party owes the payer their ExpenseDebt
//   - For each payment: the payer's outstanding debt shrinks by the amount,
//     with any excess owed back to them
//   - Net once at the end so only one direction remains
//
// The function is pure and total: it never mutates its inputs, ignores
// records that name an unknown party or a payment to oneself, and returns a
// zero Balance for empty input. Because netting happens once after all
// records are folded, the result does not depend on record order.
func ComputeBalance(expenses []*models.Expense, payments []*models.Payment) models.Balance {
	l := ledger{aOwesB: decimal.Zero, bOwesA: decimal.Zero}

	for _, e := range expenses {
		if e == nil || !e.Payer.Valid() {
			continue
		}
		split := ExpenseDebt(e)
		l.addDebt(split.Debtor, split.Total)
	}

	for _, p := range payments {
		if p == nil || !p.From.Valid() || !p.To.Valid() || p.From == p.To {
			continue
		}
		l.applyPayment(p.From, p.Amount)
	}

	return l.net()
}

// IsSettled reports whether b is within one cent of zero.
func IsSettled(b models.Balance) bool {
	return b.IsSettled()
}
