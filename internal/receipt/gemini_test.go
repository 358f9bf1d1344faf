package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mmynk/divvy/internal/models"
)

type fakeGenerator struct {
	text  string
	err   error
	block bool

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

var jpeg = base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0})

func TestGeminiAnalyzer_Analyze(t *testing.T) {
	gen := &fakeGenerator{text: sampleResponse}
	analyzer := newGeminiAnalyzer(gen,
		WithModel("gemini-test"),
		WithPartyNames(map[models.Party]string{models.PartyA: "Ana", models.PartyB: "Ben"}),
	)

	analysis, err := analyzer.Analyze(context.Background(), Request{
		Image: jpeg,
		Payer: models.PartyA,
		Notes: "oat milk was Ben's",
	})
	require.NoError(t, err)
	assert.Len(t, analysis.Items, 2)

	assert.Equal(t, "gemini-test", gen.model)
	require.NotNil(t, gen.config)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	assert.Contains(t, parts[0].Text, "A (Ana)")
	assert.Contains(t, parts[0].Text, "B (Ben)")
	assert.Equal(t, "payerIdentity: A", parts[1].Text)
	assert.Equal(t, "notes: oat milk was Ben's", parts[2].Text)

	blob := parts[len(parts)-1].InlineData
	require.NotNil(t, blob)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, blob.Data)
}

func TestGeminiAnalyzer_RejectsBadRequest(t *testing.T) {
	analyzer := newGeminiAnalyzer(&fakeGenerator{text: sampleResponse})

	_, err := analyzer.Analyze(context.Background(), Request{Image: jpeg, Payer: "C"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payer_identity", verr.Field)

	_, err = analyzer.Analyze(context.Background(), Request{Image: "%%%", Payer: models.PartyB})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)
}

func TestGeminiAnalyzer_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"model error", &fakeGenerator{err: errors.New("503 service unavailable")}},
		{"unparsable body", &fakeGenerator{text: "sorry, the image is blurry"}},
		{"timeout", &fakeGenerator{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := newGeminiAnalyzer(tt.gen, WithTimeout(20*time.Millisecond))

			_, err := analyzer.Analyze(context.Background(), Request{Image: jpeg, Payer: models.PartyB})
			require.Error(t, err)
			assert.True(t, IsExtractionError(err), "expected ExtractionError, got %v", err)
		})
	}
}

func TestNewGeminiAnalyzer_RequiresKey(t *testing.T) {
	_, err := NewGeminiAnalyzer(context.Background(), "")
	assert.Error(t, err)
}
