package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/mmynk/divvy/internal/models"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// generator is the subset of the genai client used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer reads receipts with a Gemini model.
type GeminiAnalyzer struct {
	models  generator
	model   string
	timeout time.Duration
	names   map[models.Party]string
}

// GeminiOption configures a GeminiAnalyzer.
type GeminiOption func(*GeminiAnalyzer)

// WithModel overrides the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiAnalyzer) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTimeout bounds each analysis call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiAnalyzer) { g.timeout = d }
}

// WithPartyNames lets the prompt refer to the parties by display name.
func WithPartyNames(names map[models.Party]string) GeminiOption {
	return func(g *GeminiAnalyzer) { g.names = names }
}

// NewGeminiAnalyzer creates an analyzer backed by the Gemini API.
func NewGeminiAnalyzer(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGeminiAnalyzer(client.Models, opts...), nil
}

func newGeminiAnalyzer(gen generator, opts ...GeminiOption) *GeminiAnalyzer {
	g := &GeminiAnalyzer{
		models:  gen,
		model:   DefaultModelName,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Analyze sends the receipt image to the model and parses its JSON answer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if !req.Payer.Valid() {
		return nil, &models.ValidationError{Field: "payer_identity", Reason: "must be A or B"}
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(image) == 0 {
		return nil, &models.ValidationError{Field: "image", Reason: "must be a non-empty base64 string"}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: g.prompt()},
				{Text: "payerIdentity: " + string(req.Payer)},
				{Text: "notes: " + req.Notes},
				{Text: "Analyze this receipt image and extract items, totals, merchant and suggestedOwner."},
				{
					InlineData: &genai.Blob{
						MIMEType: "image/jpeg",
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, extractionFailed("timed out", err)
		}
		return nil, extractionFailed("model request failed", err)
	}
	if resp == nil {
		return nil, extractionFailed("empty response", nil)
	}

	return Parse(resp.Text())
}

func (g *GeminiAnalyzer) name(p models.Party) string {
	if n, ok := g.names[p]; ok && n != "" {
		return fmt.Sprintf("%s (%s)", p, n)
	}
	return string(p)
}

func (g *GeminiAnalyzer) prompt() string {
	return "You extract structured receipt data for two people who share expenses: " +
		g.name(models.PartyA) + " and " + g.name(models.PartyB) + ".\n" +
		"Return ONLY valid raw JSON matching this schema:\n" +
		"{\n" +
		"  \"items\": [{\"rawText\": string, \"label\": string, \"amount\": number, \"suggestedOwner\": \"A\" | \"B\" | \"Shared\"}],\n" +
		"  \"total\": number,\n" +
		"  \"subtotal\": number | null,\n" +
		"  \"tax\": number | null,\n" +
		"  \"tip\": number | null,\n" +
		"  \"merchantName\": string | null\n" +
		"}\n" +
		"Rules:\n" +
		"- Amounts are numbers in dollars.\n" +
		"- Include every line item you can read.\n" +
		"- If a field is missing on the receipt, use null.\n" +
		"- Derive a human friendly label (e.g. AVCDO 5 CT -> 5 Avocados) while keeping rawText exactly as printed.\n" +
		"- Items default to \"Shared\". The notes are written by the payer: if they say an item was only for the payer, " +
		"suggest the payer; if only for the other person, suggest the other person.\n" +
		"- Detect the merchant name from the receipt.\n" +
		"Do NOT wrap the response in code fences.\n"
}
