// Package models defines the core domain models for Divvy.
//
// # Records
//
// Two kinds of records are persisted by the storage layer:
//   - Expense: one receipt or transaction fronted by a single payer
//   - Payment: a settlement transferring money from one party to the other
//
// Each Expense holds an ordered list of LineItem values whose owner decides
// who is responsible for the item's cost.
//
// # Derived values
//
// Balance is never stored. It is recomputed from the full set of expenses
// and payments every time it is needed (see package calculator).
//
// # Design Principles
//
//  1. **Two parties**: the ledger always has exactly two parties, A and B
//  2. **Exact money**: amounts are decimal.Decimal dollars, never binary floats
//  3. **Provenance**: SuggestedOwner is written once from receipt extraction and
//     kept apart from the user-editable Owner
//  4. **Validate before persist**: Validate* functions guard every write
package models
