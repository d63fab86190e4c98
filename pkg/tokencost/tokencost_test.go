package tokencost_test

import (
	"testing"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/tokencost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *pricing.Dataset {
	return &pricing.Dataset{
		Providers: []pricing.ProviderRecord{
			{
				ID:   "openai",
				Name: "OpenAI",
				Models: []pricing.ModelRecord{
					{Name: "GPT-4o", InputPerMillion: 5.00, OutputPerMillion: 15.00},
					{Name: "GPT-3.5 Turbo", InputPerMillion: 0.50, OutputPerMillion: 1.50},
				},
			},
			{
				ID:   "google",
				Name: "Google",
				Models: []pricing.ModelRecord{
					{Name: "Gemini Pro", InputPerMillion: 0.50, OutputPerMillion: 1.50},
				},
			},
		},
	}
}

func TestCountTokens_OpenAI(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		model    string
		minCount int64
		maxCount int64
	}{
		{"short text gpt-4o", "Hello world", "gpt-4o", 1, 5},
		{"medium text gpt-4o", "The quick brown fox jumps over the lazy dog", "gpt-4o", 5, 15},
		{"empty text", "", "gpt-4o", 0, 0},
		{"gpt-4", "Hello world", "gpt-4", 1, 5},
		{"unknown openai model falls back", "Hello world", "gpt-99", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := tokencost.CountTokens(tt.text, "openai", tt.model)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, count, tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount)
		})
	}
}

func TestCountTokens_EstimationForOtherProviders(t *testing.T) {
	count, err := tokencost.CountTokens("12345678", "google", "Gemini Pro")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = tokencost.CountTokens("   ", "google", "Gemini Pro")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestEstimateTokens(t *testing.T) {
	est := tokencost.NewEstimator(testDataset())

	// 1M input + 1M output on GPT-4o is exactly the per-million prices.
	res, err := est.EstimateTokens(1_000_000, 1_000_000, "OpenAI", "GPT-4o")
	require.NoError(t, err)
	assert.InDelta(t, 5.00, res.InputCost, 1e-9)
	assert.InDelta(t, 15.00, res.OutputCost, 1e-9)
	assert.InDelta(t, 20.00, res.TotalCost, 1e-9)
	assert.Equal(t, "OpenAI", res.Provider)
}

func TestEstimateTokens_LooseModelMatch(t *testing.T) {
	est := tokencost.NewEstimator(testDataset())

	res, err := est.EstimateTokens(1_000_000, 0, "openai", "gpt-3.5")
	require.NoError(t, err)
	assert.Equal(t, "GPT-3.5 Turbo", res.Model)
	assert.InDelta(t, 0.50, res.TotalCost, 1e-9)
}

func TestEstimateTokens_UnknownProvider(t *testing.T) {
	est := tokencost.NewEstimator(testDataset())

	_, err := est.EstimateTokens(1000, 1000, "nonexistent", "model")
	assert.Error(t, err)

	_, err = est.EstimateTokens(1000, 1000, "OpenAI", "claude-3")
	assert.Error(t, err)
}

func TestAllModels_SortedByTotalCost(t *testing.T) {
	est := tokencost.NewEstimator(testDataset())

	all := est.AllModels(1_000_000, 1_000_000)
	require.Len(t, all, 3)
	assert.Equal(t, "GPT-4o", all[2].Model)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].TotalCost, all[i].TotalCost)
	}
}
