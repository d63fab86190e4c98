package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	obs  []pricing.Observation
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(context.Context) ([]pricing.Observation, error) {
	return s.obs, s.err
}

func TestFetchAll_IsolatesFailures(t *testing.T) {
	sources := []source.Source{
		stubSource{name: "broken", err: errors.New("timeout")},
		stubSource{name: "ok", obs: []pricing.Observation{
			{Provider: "xAI", Confidence: 0.9, ObservedAt: time.Now()},
		}},
	}

	obs := source.FetchAll(context.Background(), sources, discardLogger())
	require.Len(t, obs, 1)
	assert.Equal(t, "xAI", obs[0].Provider)
}

func TestFetchAll_DeterministicOrder(t *testing.T) {
	sources := []source.Source{
		stubSource{name: "b", obs: []pricing.Observation{
			{Provider: "xAI", SourceURL: "b"},
			{Provider: "Anthropic", SourceURL: "b"},
		}},
		stubSource{name: "a", obs: []pricing.Observation{
			{Provider: "DeepSeek", SourceURL: "a"},
			{Provider: "xAI", SourceURL: "a"},
		}},
	}

	obs := source.FetchAll(context.Background(), sources, discardLogger())
	require.Len(t, obs, 4)
	assert.Equal(t, "Anthropic", obs[0].Provider)
	assert.Equal(t, "DeepSeek", obs[1].Provider)
	assert.Equal(t, "xAI", obs[2].Provider)
	assert.Equal(t, "a", obs[2].SourceURL)
	assert.Equal(t, "xAI", obs[3].Provider)
	assert.Equal(t, "b", obs[3].SourceURL)
}

func TestFetchAll_Empty(t *testing.T) {
	assert.Empty(t, source.FetchAll(context.Background(), nil, discardLogger()))
}
