package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/costcompass/llm-price-compass/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePricingFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func verifiedFixture(t *testing.T) *source.Verified {
	t.Helper()
	dir := t.TempDir()
	writePricingFile(t, dir, "openai.yaml", `
provider: OpenAI
updated: "2026-01-05"
models:
  - name: GPT-4o
    input_per_million: 5.00
    output_per_million: 15.00
    context_window: 128000
  - name: GPT-3.5 Turbo
    input_per_million: 0.50
    output_per_million: 1.50
    context_window: 16385
    free_tier: "Free tier: $5 credit for new users"
`)
	writePricingFile(t, dir, "google.yaml", `
provider: Google
updated: "2026-01-05"
models:
  - name: Gemini Pro
    input_per_million: 0.50
    output_per_million: 1.50
    context_window: 32000
    free_tier: "Free tier: 1M tokens/month"
`)
	v, err := source.LoadVerified(dir)
	require.NoError(t, err)
	return v
}

func TestLoadVerified(t *testing.T) {
	v := verifiedFixture(t)

	assert.True(t, v.IsCore("OpenAI"))
	assert.True(t, v.IsCore("Google"))
	assert.False(t, v.IsCore("xAI"))
	assert.Len(t, v.Models("OpenAI"), 2)
}

func TestLoadVerified_EmptyDir(t *testing.T) {
	_, err := source.LoadVerified(t.TempDir())
	assert.Error(t, err)
}

func TestLoadVerified_MissingProvider(t *testing.T) {
	dir := t.TempDir()
	writePricingFile(t, dir, "bad.yaml", `
models:
  - name: X
    input_per_million: 1
    output_per_million: 2
`)
	_, err := source.LoadVerified(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing provider")
}

func TestVerified_Fetch(t *testing.T) {
	v := verifiedFixture(t)

	obs, err := v.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	// Sorted by provider name for deterministic output.
	assert.Equal(t, "Google", obs[0].Provider)
	assert.Equal(t, "OpenAI", obs[1].Provider)
	for _, o := range obs {
		assert.Equal(t, source.ConfidenceVerified, o.Confidence)
		assert.False(t, o.ObservedAt.IsZero())
	}
}
