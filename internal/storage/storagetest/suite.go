// Package storagetest provides a conformance suite for storage.Store implementations.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Run exercises the storage.Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("CreateExpense generates ID and timestamp", func(t *testing.T) {
		store := newStore(t)
		expense := &models.Expense{
			Payer: models.PartyA,
			LineItems: []models.LineItem{
				{RawText: "AVCDO 5 CT", Label: "5 Avocados", Amount: d("6.99"), Owner: models.OwnerShared, SuggestedOwner: models.OwnerShared},
			},
			Tax:         d("0.56"),
			TotalAmount: d("7.55"),
		}

		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" {
			t.Error("Expected expense ID to be generated")
		}
		if expense.OccurredAt.IsZero() {
			t.Error("Expected OccurredAt to be set")
		}
	})

	t.Run("GetExpense retrieves complete expense", func(t *testing.T) {
		store := newStore(t)
		original := &models.Expense{
			OccurredAt: time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC),
			Payer:      models.PartyB,
			LineItems: []models.LineItem{
				{RawText: "STEAK", Label: "Steak", Amount: d("30.00"), Owner: models.OwnerB, SuggestedOwner: models.OwnerShared},
				{RawText: "SALAD", Label: "Salad", Amount: d("20.10"), Owner: models.OwnerA},
			},
			Tax:          d("4.01"),
			Tip:          d("9"),
			TotalAmount:  d("63.11"),
			MerchantName: "Bistro",
			Notes:        "steak was mine",
		}
		if err := store.CreateExpense(ctx, original); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		got, err := store.GetExpense(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}

		if got.ID != original.ID || got.Payer != original.Payer {
			t.Errorf("identity mismatch: got %s/%s", got.ID, got.Payer)
		}
		if !got.OccurredAt.Equal(original.OccurredAt) {
			t.Errorf("OccurredAt mismatch: got %v, want %v", got.OccurredAt, original.OccurredAt)
		}
		if !got.Tax.Equal(original.Tax) || !got.Tip.Equal(original.Tip) || !got.TotalAmount.Equal(original.TotalAmount) {
			t.Errorf("money mismatch: tax %s tip %s total %s", got.Tax, got.Tip, got.TotalAmount)
		}
		if got.MerchantName != "Bistro" || got.Notes != "steak was mine" {
			t.Errorf("text mismatch: %q %q", got.MerchantName, got.Notes)
		}
		if len(got.LineItems) != 2 {
			t.Fatalf("Items count mismatch: got %d, want 2", len(got.LineItems))
		}
		for i, item := range got.LineItems {
			want := original.LineItems[i]
			if item.RawText != want.RawText || item.Label != want.Label || !item.Amount.Equal(want.Amount) ||
				item.Owner != want.Owner || item.SuggestedOwner != want.SuggestedOwner {
				t.Errorf("item %d mismatch: got %+v, want %+v", i, item, want)
			}
		}
	})

	t.Run("Manual expense without items", func(t *testing.T) {
		store := newStore(t)
		expense := &models.Expense{Payer: models.PartyA, Manual: true}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Manual || len(got.LineItems) != 0 {
			t.Errorf("got manual=%v items=%d", got.Manual, len(got.LineItems))
		}
	})

	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetExpense(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListExpenses is newest first", func(t *testing.T) {
		store := newStore(t)
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		for i, label := range []string{"oldest", "newest", "middle"} {
			offsets := []int{0, 48, 24}
			e := &models.Expense{
				OccurredAt: base.Add(time.Duration(offsets[i]) * time.Hour),
				Payer:      models.PartyA,
				LineItems:  []models.LineItem{{Label: label, Amount: d("1"), Owner: models.OwnerShared}},
			}
			if err := store.CreateExpense(ctx, e); err != nil {
				t.Fatalf("CreateExpense failed: %v", err)
			}
		}

		expenses, err := store.ListExpenses(ctx)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(expenses) != 3 {
			t.Fatalf("Expected 3 expenses, got %d", len(expenses))
		}
		for i, want := range []string{"newest", "middle", "oldest"} {
			if got := expenses[i].LineItems[0].Label; got != want {
				t.Errorf("position %d: got %s, want %s", i, got, want)
			}
		}
	})

	t.Run("UpdateExpense applies partial update", func(t *testing.T) {
		store := newStore(t)
		expense := &models.Expense{
			Payer: models.PartyA,
			LineItems: []models.LineItem{
				{RawText: "MILK", Label: "Milk", Amount: d("4"), Owner: models.OwnerShared, SuggestedOwner: models.OwnerShared},
			},
			Notes:       "keep me",
			TotalAmount: d("4"),
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		items := []models.LineItem{
			{RawText: "MILK", Label: "Oat milk", Amount: d("4"), Owner: models.OwnerB},
			{Label: "Unknown fee", Amount: d("1.50"), Owner: models.OwnerShared},
		}
		tip := d("2")
		updated, err := store.UpdateExpense(ctx, expense.ID, models.ExpenseUpdate{LineItems: &items, Tip: &tip})
		if err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		if !updated.TotalAmount.Equal(d("7.5")) {
			t.Errorf("TotalAmount = %s, want 7.5", updated.TotalAmount)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Notes != "keep me" {
			t.Errorf("Notes changed: %q", got.Notes)
		}
		if got.Payer != models.PartyA {
			t.Errorf("Payer changed: %s", got.Payer)
		}
		if len(got.LineItems) != 2 || got.LineItems[0].Label != "Oat milk" || got.LineItems[0].Owner != models.OwnerB {
			t.Fatalf("line items not replaced: %+v", got.LineItems)
		}
		if got.LineItems[0].SuggestedOwner != models.OwnerShared {
			t.Errorf("SuggestedOwner rewritten: %s", got.LineItems[0].SuggestedOwner)
		}
		if !got.Tip.Equal(tip) || !got.TotalAmount.Equal(d("7.5")) {
			t.Errorf("tip/total not stored: %s/%s", got.Tip, got.TotalAmount)
		}
	})

	t.Run("UpdateExpense returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		notes := "x"
		_, err := store.UpdateExpense(ctx, "missing", models.ExpenseUpdate{Notes: &notes})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteExpense removes expense", func(t *testing.T) {
		store := newStore(t)
		expense := &models.Expense{
			Payer:     models.PartyB,
			LineItems: []models.LineItem{{Label: "Eggs", Amount: d("3"), Owner: models.OwnerA}},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.DeleteExpense(ctx, expense.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("Payments round trip", func(t *testing.T) {
		store := newStore(t)
		older := &models.Payment{
			OccurredAt:        time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
			Amount:            d("12.34"),
			From:              models.PartyB,
			To:                models.PartyA,
			Method:            models.MethodAppTransferA,
			RelatedExpenseIDs: []string{"e2", "e1", "e2"},
			Note:              "Divvy settlement (Jan 3 - Jan 30)",
		}
		newer := &models.Payment{
			OccurredAt: time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC),
			Amount:     d("1"),
			From:       models.PartyA,
			To:         models.PartyB,
			Method:     models.MethodManual,
		}
		for _, p := range []*models.Payment{older, newer} {
			if err := store.CreatePayment(ctx, p); err != nil {
				t.Fatalf("CreatePayment failed: %v", err)
			}
			if p.ID == "" {
				t.Error("Expected payment ID to be generated")
			}
		}

		got, err := store.GetPayment(ctx, older.ID)
		if err != nil {
			t.Fatalf("GetPayment failed: %v", err)
		}
		if !got.Amount.Equal(older.Amount) || got.From != older.From || got.To != older.To ||
			got.Method != older.Method || got.Note != older.Note {
			t.Errorf("payment mismatch: %+v", got)
		}
		// Related ids come back sorted with duplicates dropped
		if !slices.Equal(got.RelatedExpenseIDs, []string{"e1", "e2"}) {
			t.Errorf("RelatedExpenseIDs = %v, want [e1 e2]", got.RelatedExpenseIDs)
		}

		payments, err := store.ListPayments(ctx)
		if err != nil {
			t.Fatalf("ListPayments failed: %v", err)
		}
		if len(payments) != 2 || payments[0].ID != newer.ID || payments[1].ID != older.ID {
			t.Errorf("ListPayments order wrong")
		}

		if err := store.DeletePayment(ctx, older.ID); err != nil {
			t.Fatalf("DeletePayment failed: %v", err)
		}
		if _, err := store.GetPayment(ctx, older.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeletePayment(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Empty store lists nothing", func(t *testing.T) {
		store := newStore(t)
		expenses, err := store.ListExpenses(ctx)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		payments, err := store.ListPayments(ctx)
		if err != nil {
			t.Fatalf("ListPayments failed: %v", err)
		}
		if len(expenses) != 0 || len(payments) != 0 {
			t.Errorf("expected empty store, got %d expenses and %d payments", len(expenses), len(payments))
		}
	})
}
