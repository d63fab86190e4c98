package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/costcompass/llm-price-compass/pkg/alerts"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() alerts.Report {
	return alerts.Report{
		Changes: []pricing.PriceChange{
			{Provider: "OpenAI", Model: "GPT-4o", Field: pricing.FieldInput,
				OldValue: 5, NewValue: 6, ChangePercent: 20.0, Confidence: 0.98, Source: "https://api.test"},
		},
		TotalModels: 32,
		Published:   false,
		RunAt:       "2026-01-05T06:00:00Z",
	}
}

func TestReport_Subject(t *testing.T) {
	assert.Equal(t, "LLM pricing update: 1 change (1 high-confidence)", sampleReport().Subject())
	assert.Equal(t, "LLM pricing check: no changes today", alerts.Report{}.Subject())

	multi := sampleReport()
	multi.Changes = append(multi.Changes, pricing.PriceChange{Confidence: 0.6})
	assert.Equal(t, "LLM pricing update: 2 changes (1 high-confidence)", multi.Subject())
}

func TestReport_Body(t *testing.T) {
	body := sampleReport().Body()
	assert.Contains(t, body, "OpenAI GPT-4o input_per_million: $5.00 -> $6.00")
	assert.Contains(t, body, "up 20.0%")
	assert.Contains(t, body, "held for review")

	published := alerts.Report{Published: true, TotalModels: 10}
	assert.Contains(t, published.Body(), "auto-published")
	assert.Contains(t, published.Body(), "No pricing changes detected")
}

func TestEmailNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewEmailNotifier("test-key", "compass@example.com", "admin@example.com").WithEndpoint(server.URL)
	assert.Equal(t, "email", n.Name())
	require.NoError(t, n.Send(context.Background(), sampleReport()))

	assert.Equal(t, "compass@example.com", received["from"])
	assert.Contains(t, received["subject"], "1 change")
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	n := alerts.NewEmailNotifier("bad-key", "a@b", "c@d").WithEndpoint(server.URL)
	assert.Error(t, n.Send(context.Background(), sampleReport()))
}

func TestSlackNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#pricing")
	assert.Equal(t, "slack", n.Name())
	require.NoError(t, n.Send(context.Background(), sampleReport()))
	assert.Equal(t, "#pricing", received["channel"])
}

func TestWebhookNotifier_Send_WithHMAC(t *testing.T) {
	var signature string
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Signature-256")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "test-secret")
	assert.Equal(t, "webhook", n.Name())
	require.NoError(t, n.Send(context.Background(), sampleReport()))

	assert.Contains(t, signature, "sha256=")
	assert.Equal(t, "price_change_report", received["event"])
}

func TestWebhookNotifier_Send_NoSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Signature-256"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	assert.NoError(t, n.Send(context.Background(), sampleReport()))
}
