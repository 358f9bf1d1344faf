package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/models"
)

// Inconsistency is a soft warning that the items, tax and tip do not add up
// to the total printed on the receipt. It never blocks submission.
type Inconsistency struct {
	Computed   decimal.Decimal
	Reported   decimal.Decimal
	Difference decimal.Decimal // Reported - Computed
}

func (i *Inconsistency) String() string {
	return fmt.Sprintf("items + tax + tip = %s but the receipt total is %s (difference %s); add an unknown fee item or correct the amounts",
		i.Computed.StringFixed(2), i.Reported.StringFixed(2), i.Difference.StringFixed(2))
}

// CheckReportedTotal compares items + tax + tip against a reported total.
// It returns nil when they agree within one cent.
func CheckReportedTotal(items []models.LineItem, tax, tip, reported decimal.Decimal) *Inconsistency {
	computed := tax.Add(tip)
	for _, item := range items {
		computed = computed.Add(item.Amount)
	}
	diff := reported.Sub(computed)
	if diff.Abs().LessThanOrEqual(Epsilon) {
		return nil
	}
	return &Inconsistency{Computed: computed, Reported: reported, Difference: diff}
}
