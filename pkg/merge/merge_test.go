package merge_test

import (
	"log/slog"
	"testing"

	"github.com/costcompass/llm-price-compass/pkg/merge"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(policy merge.Policy) *merge.Engine {
	return merge.New(policy, slog.New(slog.DiscardHandler))
}

func seedDataset() *pricing.Dataset {
	return &pricing.Dataset{
		Providers: []pricing.ProviderRecord{
			{ID: "openai", Name: "OpenAI", Models: []pricing.ModelRecord{
				{Name: "GPT-4o", InputPerMillion: 5, OutputPerMillion: 15, ContextWindow: 128000},
				{Name: "GPT-3.5 Turbo", InputPerMillion: 0.5, OutputPerMillion: 1.5, ContextWindow: 16385},
			}},
		},
		Metadata: pricing.Metadata{LastUpdated: "2026-01-01T00:00:00Z", Source: "manual", TotalModels: 2},
	}
}

func TestApply_NewProvider(t *testing.T) {
	ds := seedDataset()
	res, err := newEngine(merge.Policy{}).Apply(ds, pricing.ProviderRecord{
		ID:   "xai",
		Name: "xAI",
		Models: []pricing.ModelRecord{
			{Name: "Grok 4", InputPerMillion: 3, OutputPerMillion: 15, ContextWindow: 256000},
		},
	})
	require.NoError(t, err)

	assert.True(t, res.AddedProvider)
	assert.Equal(t, []string{"Grok 4"}, res.AddedModels)
	assert.Len(t, ds.Providers, 2)
	assert.Equal(t, 3, ds.Metadata.TotalModels)
	assert.NotEqual(t, "2026-01-01T00:00:00Z", ds.Metadata.LastUpdated)
}

func TestApply_UpdateExistingModel(t *testing.T) {
	ds := seedDataset()
	res, err := newEngine(merge.Policy{}).Apply(ds, pricing.ProviderRecord{
		ID:   "openai",
		Name: "OpenAI",
		Models: []pricing.ModelRecord{
			{Name: "GPT-4o", InputPerMillion: 4, OutputPerMillion: 12, ContextWindow: 128000},
		},
	})
	require.NoError(t, err)

	assert.False(t, res.AddedProvider)
	assert.Equal(t, []string{"GPT-4o"}, res.UpdatedModels)
	require.Len(t, res.Diffs, 2)
	assert.Contains(t, res.Diffs[0], "input $5.00 -> $4.00")
	assert.Contains(t, res.Diffs[1], "output $15.00 -> $12.00")

	got := ds.Provider("openai")
	assert.Equal(t, 4.0, got.Models[0].InputPerMillion)
	// Absent models are retained by default.
	assert.Len(t, got.Models, 2)
	assert.Equal(t, 2, ds.Metadata.TotalModels)
}

func TestApply_AppendNewModel(t *testing.T) {
	ds := seedDataset()
	res, err := newEngine(merge.Policy{}).Apply(ds, pricing.ProviderRecord{
		ID:   "openai",
		Name: "OpenAI",
		Models: []pricing.ModelRecord{
			{Name: "GPT-4 Turbo", InputPerMillion: 10, OutputPerMillion: 30, ContextWindow: 128000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GPT-4 Turbo"}, res.AddedModels)
	assert.Len(t, ds.Provider("openai").Models, 3)
	assert.Equal(t, 3, ds.Metadata.TotalModels)
}

func TestApply_Idempotent(t *testing.T) {
	ds := seedDataset()
	payload := pricing.ProviderRecord{
		ID:   "openai",
		Name: "OpenAI",
		Models: []pricing.ModelRecord{
			{Name: "GPT-4o", InputPerMillion: 4, OutputPerMillion: 12, ContextWindow: 128000},
		},
	}

	engine := newEngine(merge.Policy{})
	_, err := engine.Apply(ds, payload)
	require.NoError(t, err)
	first := ds.Metadata.TotalModels

	res, err := engine.Apply(ds, payload)
	require.NoError(t, err)

	assert.Empty(t, res.UpdatedModels)
	assert.Empty(t, res.AddedModels)
	assert.Equal(t, first, ds.Metadata.TotalModels)
	assert.Len(t, ds.Provider("openai").Models, 2)
}

func TestApply_PruneMissingOptIn(t *testing.T) {
	ds := seedDataset()
	res, err := newEngine(merge.Policy{PruneMissing: true}).Apply(ds, pricing.ProviderRecord{
		ID:   "openai",
		Name: "OpenAI",
		Models: []pricing.ModelRecord{
			{Name: "GPT-4o", InputPerMillion: 5, OutputPerMillion: 15, ContextWindow: 128000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GPT-3.5 Turbo"}, res.PrunedModels)
	assert.Len(t, ds.Provider("openai").Models, 1)
	assert.Equal(t, 1, ds.Metadata.TotalModels)
}

func TestApply_InvalidPayloadLeavesDatasetUntouched(t *testing.T) {
	ds := seedDataset()
	_, err := newEngine(merge.Policy{}).Apply(ds, pricing.ProviderRecord{
		Name: "No ID",
		Models: []pricing.ModelRecord{
			{Name: "m", InputPerMillion: 1, OutputPerMillion: 2},
		},
	})
	require.Error(t, err)

	var verr *pricing.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "2026-01-01T00:00:00Z", ds.Metadata.LastUpdated)
	assert.Equal(t, 2, ds.Metadata.TotalModels)
	assert.Len(t, ds.Providers, 1)
}

func TestApply_ProviderRename(t *testing.T) {
	ds := seedDataset()
	_, err := newEngine(merge.Policy{}).Apply(ds, pricing.ProviderRecord{
		ID:   "openai",
		Name: "OpenAI Inc.",
	})
	require.NoError(t, err)
	assert.Equal(t, "OpenAI Inc.", ds.Provider("openai").Name)
	assert.Len(t, ds.Provider("openai").Models, 2)
}
