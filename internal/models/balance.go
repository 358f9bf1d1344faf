package models

import "github.com/shopspring/decimal"

// SettledEpsilon is the tolerance under which a balance counts as settled.
var SettledEpsilon = decimal.New(1, -2)

// Balance is the net debt between the two parties.
// At most one of OwedByA and OwedByB is non-zero.
type Balance struct {
	OwedByA decimal.Decimal
	OwedByB decimal.Decimal
}

// Net returns OwedByA - OwedByB. Positive means A owes B.
func (b Balance) Net() decimal.Decimal {
	return b.OwedByA.Sub(b.OwedByB)
}

// IsSettled reports whether the net debt is below one cent.
func (b Balance) IsSettled() bool {
	return b.Net().Abs().LessThan(SettledEpsilon)
}

// Debtor returns the party that owes money, or "" when settled.
func (b Balance) Debtor() Party {
	switch {
	case b.IsSettled():
		return ""
	case b.Net().IsPositive():
		return PartyA
	default:
		return PartyB
	}
}

// Creditor returns the party that is owed money, or "" when settled.
func (b Balance) Creditor() Party {
	return b.Debtor().Other()
}

// Amount returns the absolute net debt.
func (b Balance) Amount() decimal.Decimal {
	return b.Net().Abs()
}

// OwedBy returns what p owes the other party.
func (b Balance) OwedBy(p Party) decimal.Decimal {
	switch p {
	case PartyA:
		return b.OwedByA
	case PartyB:
		return b.OwedByB
	}
	return decimal.Zero
}
