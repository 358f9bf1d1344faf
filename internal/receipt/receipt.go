// Package receipt turns a photographed receipt into draft line items.
//
// The Analyzer boundary speaks the receipt-analysis JSON shape; Draft converts
// an Analysis into model values the caller can review before saving an expense.
package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/calculator"
	"github.com/mmynk/divvy/internal/models"
)

// UserMessage is what callers show when extraction fails.
const UserMessage = "could not analyze receipt"

// Request is a receipt to analyze.
type Request struct {
	// Image is the base64-encoded JPEG.
	Image string       `json:"image"`
	Payer models.Party `json:"payerIdentity"`
	Notes string       `json:"notes"`
}

// Item is one priced line read from the receipt.
type Item struct {
	RawText        string          `json:"rawText"`
	Label          string          `json:"label"`
	Amount         decimal.Decimal `json:"amount"`
	SuggestedOwner models.Owner    `json:"suggestedOwner"`
}

// Analysis is the structured result of reading a receipt.
// Fields the receipt does not show are null.
type Analysis struct {
	Items        []Item              `json:"items"`
	Total        decimal.Decimal     `json:"total"`
	Subtotal     decimal.NullDecimal `json:"subtotal"`
	Tax          decimal.NullDecimal `json:"tax"`
	Tip          decimal.NullDecimal `json:"tip"`
	MerchantName *string             `json:"merchantName"`
}

// Analyzer extracts an Analysis from a receipt image.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// ExtractionError reports that the receipt could not be analyzed.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", UserMessage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", UserMessage, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionFailed(reason string, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Err: err}
}

// IsExtractionError reports whether err is or wraps an *ExtractionError.
func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// Parse decodes a model response into an Analysis. The body must be a single
// JSON object with well-formed items; anything else is an extraction failure.
func Parse(raw string) (*Analysis, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, extractionFailed("empty response", nil)
	}

	var analysis Analysis
	dec := json.NewDecoder(strings.NewReader(clean))
	if err := dec.Decode(&analysis); err != nil {
		return nil, extractionFailed("unparsable response", err)
	}
	if dec.More() {
		return nil, extractionFailed("trailing data after response object", nil)
	}

	for i, item := range analysis.Items {
		if item.Amount.IsNegative() {
			return nil, extractionFailed(fmt.Sprintf("item %d has a negative amount", i), nil)
		}
		if !item.SuggestedOwner.Valid() {
			return nil, extractionFailed(fmt.Sprintf("item %d has unknown owner %q", i, item.SuggestedOwner), nil)
		}
	}
	return &analysis, nil
}

// cleanModelJSON strips markdown fences and any text around the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// ExpenseDraft is an unsaved expense prefilled from an Analysis.
type ExpenseDraft struct {
	LineItems    []models.LineItem
	Tax          decimal.Decimal
	Tip          decimal.Decimal
	MerchantName string
	// Warning is set when the items do not add up to the reported total.
	Warning *calculator.Inconsistency
}

// Draft converts an Analysis into line items whose Owner starts as the
// suggested owner. Missing tax and tip become zero.
func Draft(a *Analysis) ExpenseDraft {
	draft := ExpenseDraft{
		LineItems: make([]models.LineItem, 0, len(a.Items)),
		Tax:       a.Tax.Decimal,
		Tip:       a.Tip.Decimal,
	}
	if a.MerchantName != nil {
		draft.MerchantName = *a.MerchantName
	}

	for _, item := range a.Items {
		label := item.Label
		if label == "" {
			label = item.RawText
		}
		draft.LineItems = append(draft.LineItems, models.LineItem{
			RawText:        item.RawText,
			Label:          label,
			Amount:         item.Amount,
			Owner:          item.SuggestedOwner,
			SuggestedOwner: item.SuggestedOwner,
		})
	}

	if !a.Total.IsZero() {
		draft.Warning = calculator.CheckReportedTotal(draft.LineItems, draft.Tax, draft.Tip, a.Total)
	}
	return draft
}

// Disabled is the Analyzer used when no extraction backend is configured.
// Every call fails so callers fall back to manual entry.
type Disabled struct{}

func (Disabled) Analyze(context.Context, Request) (*Analysis, error) {
	return nil, extractionFailed("receipt analysis is not configured", nil)
}
