package models

import "fmt"

// Party is one of the two fixed participants in the ledger.
type Party string

const (
	PartyA Party = "A"
	PartyB Party = "B"
)

// Parties lists both parties in a stable order.
var Parties = []Party{PartyA, PartyB}

// Valid reports whether p is A or B.
func (p Party) Valid() bool {
	return p == PartyA || p == PartyB
}

// Other returns the counter-party of p.
// The zero Party is returned for an invalid p.
func (p Party) Other() Party {
	switch p {
	case PartyA:
		return PartyB
	case PartyB:
		return PartyA
	default:
		return ""
	}
}

// ParseParty converts a wire value into a Party.
func ParseParty(s string) (Party, error) {
	p := Party(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown party %q", s)
	}
	return p, nil
}

// Owner says who is responsible for a line item's cost.
type Owner string

const (
	OwnerA      Owner = "A"
	OwnerB      Owner = "B"
	OwnerShared Owner = "Shared"
)

// Valid reports whether o is A, B or Shared.
func (o Owner) Valid() bool {
	return o == OwnerA || o == OwnerB || o == OwnerShared
}

// Is reports whether the item belongs solely to p.
func (o Owner) Is(p Party) bool {
	return string(o) == string(p)
}

// OwnerOf returns the sole-owner value for p.
func OwnerOf(p Party) Owner {
	return Owner(p)
}

// ParseOwner converts a wire value into an Owner.
func ParseOwner(s string) (Owner, error) {
	o := Owner(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown owner %q", s)
	}
	return o, nil
}
