package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/calculator"
	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/pkg/api"
)

// Wire money is float64 dollars; the ledger works in exact decimals.
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func fromUnix(sec *int64) time.Time {
	if sec == nil {
		return time.Time{}
	}
	return time.Unix(*sec, 0)
}

func lineItemsFromProto(items []*api.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		label := item.Label
		if label == "" {
			label = item.RawText
		}
		out = append(out, models.LineItem{
			RawText:        item.RawText,
			Label:          label,
			Amount:         toDecimal(item.Amount),
			Owner:          models.Owner(item.Owner),
			SuggestedOwner: models.Owner(item.SuggestedOwner),
		})
	}
	return out
}

func lineItemsToProto(items []models.LineItem) []*api.LineItem {
	out := make([]*api.LineItem, len(items))
	for i, item := range items {
		out[i] = &api.LineItem{
			RawText:        item.RawText,
			Label:          item.Label,
			Amount:         toFloat(item.Amount),
			Owner:          string(item.Owner),
			SuggestedOwner: string(item.SuggestedOwner),
		}
	}
	return out
}

func expenseFromCreate(req *api.CreateExpenseRequest) *models.Expense {
	expense := &models.Expense{
		OccurredAt:   fromUnix(req.OccurredAt),
		Payer:        models.Party(req.Payer),
		LineItems:    lineItemsFromProto(req.LineItems),
		Tax:          toDecimal(req.Tax),
		Tip:          toDecimal(req.Tip),
		MerchantName: req.MerchantName,
		Notes:        req.Notes,
		Manual:       req.Manual,
	}
	if req.TotalAmount != nil {
		expense.TotalAmount = toDecimal(*req.TotalAmount)
	}
	return expense
}

func updateFromProto(req *api.UpdateExpenseRequest) models.ExpenseUpdate {
	var update models.ExpenseUpdate
	if req.OccurredAt != nil {
		t := fromUnix(req.OccurredAt)
		update.OccurredAt = &t
	}
	if req.LineItems != nil {
		items := lineItemsFromProto(req.LineItems.Items)
		update.LineItems = &items
	}
	if req.Tax != nil {
		tax := toDecimal(*req.Tax)
		update.Tax = &tax
	}
	if req.Tip != nil {
		tip := toDecimal(*req.Tip)
		update.Tip = &tip
	}
	update.MerchantName = req.MerchantName
	update.Notes = req.Notes
	update.Manual = req.Manual
	return update
}

func expenseToProto(e *models.Expense) *api.Expense {
	split := calculator.ExpenseDebt(e)
	return &api.Expense{
		Id:           e.ID,
		OccurredAt:   e.OccurredAt.Unix(),
		Payer:        string(e.Payer),
		LineItems:    lineItemsToProto(e.LineItems),
		Tax:          toFloat(e.Tax),
		Tip:          toFloat(e.Tip),
		TotalAmount:  toFloat(e.TotalAmount),
		MerchantName: e.MerchantName,
		Notes:        e.Notes,
		Manual:       e.Manual,
		Debtor:       string(split.Debtor),
		DebtAmount:   toFloat(split.Total.Round(2)),
	}
}

func paymentFromCreate(req *api.CreatePaymentRequest) *models.Payment {
	return &models.Payment{
		OccurredAt:        fromUnix(req.OccurredAt),
		Amount:            toDecimal(req.Amount),
		From:              models.Party(req.From),
		To:                models.Party(req.To),
		Method:            models.PaymentMethod(req.Method),
		RelatedExpenseIDs: req.RelatedExpenseIds,
		Note:              req.Note,
	}
}

func paymentToProto(p *models.Payment) *api.Payment {
	return &api.Payment{
		Id:                p.ID,
		OccurredAt:        p.OccurredAt.Unix(),
		Amount:            toFloat(p.Amount),
		From:              string(p.From),
		To:                string(p.To),
		Method:            string(p.Method),
		RelatedExpenseIds: p.RelatedExpenseIDs,
		Note:              p.Note,
	}
}

func balanceToProto(b models.Balance, parties config.Parties) *api.Balance {
	out := &api.Balance{
		OwedByA: toFloat(b.OwedByA.Round(2)),
		OwedByB: toFloat(b.OwedByB.Round(2)),
		Settled: b.IsSettled(),
		Amount:  toFloat(b.Amount().Round(2)),
		Summary: Summary(b, parties),
	}
	if !out.Settled {
		out.Debtor = string(b.Debtor())
		out.Creditor = string(b.Creditor())
	}
	return out
}

// Summary describes a balance in words, e.g. "Ben owes Ana $5.00".
func Summary(b models.Balance, parties config.Parties) string {
	if b.IsSettled() {
		return "All settled up"
	}
	return fmt.Sprintf("%s owes %s $%s",
		parties.Name(b.Debtor()), parties.Name(b.Creditor()), b.Amount().StringFixed(2))
}
