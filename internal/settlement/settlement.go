// Package settlement plans how the two parties settle a balance and builds
// deep links into external payment apps. Nothing here moves money.
package settlement

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/models"
)

// Direction is the payment-app action from the actor's point of view.
type Direction string

const (
	// DirectionPay means the actor sends money.
	DirectionPay Direction = "pay"
	// DirectionCharge means the actor requests money.
	DirectionCharge Direction = "charge"
)

// Intent describes the payment that would settle the balance.
type Intent struct {
	From      models.Party
	To        models.Party
	Amount    decimal.Decimal
	Direction Direction
	// Counterparty is the party the actor pays or charges.
	Counterparty models.Party
}

// Plan returns the settle-up intent for actor, or nil when the balance is settled.
func Plan(balance models.Balance, actor models.Party) *Intent {
	if balance.IsSettled() || !actor.Valid() {
		return nil
	}

	intent := &Intent{
		From:         balance.Debtor(),
		To:           balance.Creditor(),
		Amount:       balance.Amount(),
		Counterparty: actor.Other(),
	}
	if actor == intent.From {
		intent.Direction = DirectionPay
	} else {
		intent.Direction = DirectionCharge
	}
	return intent
}

// Payment returns the record that settles the intent in full.
func (i *Intent) Payment(method models.PaymentMethod, expenses []*models.Expense, note string) *models.Payment {
	ids := make([]string, 0, len(expenses))
	for _, e := range expenses {
		ids = append(ids, e.ID)
	}
	return &models.Payment{
		Amount:            i.Amount,
		From:              i.From,
		To:                i.To,
		Method:            method,
		RelatedExpenseIDs: ids,
		Note:              note,
	}
}

const baseNote = "Divvy settlement"

// Note describes the span of expenses being settled, e.g.
// "Divvy settlement (Jan 2 - Jan 5)".
func Note(expenses []*models.Expense) string {
	var oldest, newest time.Time
	for _, e := range expenses {
		if e == nil || e.OccurredAt.IsZero() {
			continue
		}
		if oldest.IsZero() || e.OccurredAt.Before(oldest) {
			oldest = e.OccurredAt
		}
		if newest.IsZero() || e.OccurredAt.After(newest) {
			newest = e.OccurredAt
		}
	}
	if oldest.IsZero() {
		return baseNote
	}

	const layout = "Jan 2"
	oy, om, od := oldest.Date()
	ny, nm, nd := newest.Date()
	if oy == ny && om == nm && od == nd {
		return fmt.Sprintf("%s (%s)", baseNote, oldest.Format(layout))
	}
	return fmt.Sprintf("%s (%s - %s)", baseNote, oldest.Format(layout), newest.Format(layout))
}

// Link builds the payment-app deep link for intent. Only app-transfer-A has an
// app to open; other methods, missing handles or a nil intent yield false.
func Link(method models.PaymentMethod, intent *Intent, handles map[models.Party]string, note string) (string, bool) {
	if method != models.MethodAppTransferA || intent == nil {
		return "", false
	}
	recipient := handles[intent.Counterparty]
	if recipient == "" {
		return "", false
	}

	return fmt.Sprintf("venmo://paycharge?txn=%s&recipients=%s&amount=%s&note=%s",
		intent.Direction, escape(recipient), intent.Amount.StringFixed(2), escape(note)), true
}

// escape percent-encodes s for a query value, with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
