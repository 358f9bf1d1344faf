package receipt

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/divvy/internal/models"
)

const sampleResponse = `{
  "items": [
    {"rawText": "AVCDO 5 CT", "label": "5 Avocados", "amount": 6.99, "suggestedOwner": "Shared"},
    {"rawText": "OAT MLK", "label": "Oat milk", "amount": 4.49, "suggestedOwner": "B"}
  ],
  "total": 12.10,
  "subtotal": 11.48,
  "tax": 0.62,
  "tip": null,
  "merchantName": "Trader Joe's"
}`

func TestParse(t *testing.T) {
	analysis, err := Parse(sampleResponse)
	require.NoError(t, err)

	require.Len(t, analysis.Items, 2)
	assert.Equal(t, "AVCDO 5 CT", analysis.Items[0].RawText)
	assert.Equal(t, models.OwnerShared, analysis.Items[0].SuggestedOwner)
	assert.True(t, analysis.Items[1].Amount.Equal(decimal.RequireFromString("4.49")))
	assert.True(t, analysis.Total.Equal(decimal.RequireFromString("12.1")))
	assert.True(t, analysis.Tax.Valid)
	assert.False(t, analysis.Tip.Valid)
	require.NotNil(t, analysis.MerchantName)
	assert.Equal(t, "Trader Joe's", *analysis.MerchantName)
}

func TestParse_StripsCodeFences(t *testing.T) {
	analysis, err := Parse("```json\n" + sampleResponse + "\n```")
	require.NoError(t, err)
	assert.Len(t, analysis.Items, 2)

	analysis, err = Parse("Here is the receipt:\n" + sampleResponse)
	require.NoError(t, err)
	assert.Len(t, analysis.Items, 2)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "I could not read this receipt."},
		{"array", `[{"rawText": "x"}]`},
		{"truncated", `{"items": [{"rawText": "x", "amount": 1`},
		{"unknown owner", `{"items": [{"rawText": "x", "label": "x", "amount": 1, "suggestedOwner": "Split"}], "total": 1}`},
		{"negative amount", `{"items": [{"rawText": "x", "label": "x", "amount": -1, "suggestedOwner": "A"}], "total": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, IsExtractionError(err), "expected ExtractionError, got %T", err)
			assert.Contains(t, err.Error(), UserMessage)
		})
	}
}

func TestDraft(t *testing.T) {
	analysis, err := Parse(sampleResponse)
	require.NoError(t, err)

	draft := Draft(analysis)

	require.Len(t, draft.LineItems, 2)
	for _, item := range draft.LineItems {
		assert.Equal(t, item.SuggestedOwner, item.Owner)
	}
	assert.Equal(t, "Trader Joe's", draft.MerchantName)
	assert.True(t, draft.Tax.Equal(decimal.RequireFromString("0.62")))
	assert.True(t, draft.Tip.IsZero())
	assert.Nil(t, draft.Warning)
}

func TestDraft_ReportedTotalMismatch(t *testing.T) {
	analysis, err := Parse(`{
		"items": [{"rawText": "BREAD", "label": "", "amount": 3.00, "suggestedOwner": "A"}],
		"total": 5.00, "subtotal": null, "tax": null, "tip": null, "merchantName": null
	}`)
	require.NoError(t, err)

	draft := Draft(analysis)

	require.Len(t, draft.LineItems, 1)
	assert.Equal(t, "BREAD", draft.LineItems[0].Label)
	assert.Empty(t, draft.MerchantName)
	require.NotNil(t, draft.Warning)
	assert.True(t, draft.Warning.Difference.Abs().Equal(decimal.RequireFromString("2")))
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Analyze(context.Background(), Request{Payer: models.PartyA})
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
}
