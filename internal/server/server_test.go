package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/costcompass/llm-price-compass/internal/server"
	"github.com/costcompass/llm-price-compass/pkg/compare"
	"github.com/costcompass/llm-price-compass/pkg/pipeline"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (s *stubRunner) Run(context.Context) (*pipeline.Result, error) {
	s.calls++
	return s.result, s.err
}

func testDataset() *pricing.Dataset {
	return &pricing.Dataset{
		Metadata: pricing.Metadata{LastUpdated: "2026-08-01T00:00:00Z", Source: "scraped", TotalModels: 2},
		Providers: []pricing.ProviderRecord{
			{
				ID:   "openai",
				Name: "OpenAI",
				Models: []pricing.ModelRecord{
					{Name: "GPT-4o", InputPerMillion: 5.00, OutputPerMillion: 15.00, ContextWindow: 128000},
				},
			},
			{
				ID:   "google",
				Name: "Google",
				Models: []pricing.ModelRecord{
					{Name: "Gemini Pro", InputPerMillion: 0.50, OutputPerMillion: 1.50, ContextWindow: 1000000, FreeTier: "Free tier available"},
				},
			},
		},
	}
}

func setupServer(t *testing.T, runner server.Runner, adminSecret string) *server.Server {
	t.Helper()
	dir := t.TempDir()

	st := store.NewFileStore(filepath.Join(dir, "prices.json"))
	require.NoError(t, st.Commit(context.Background(), testDataset()))

	side, err := store.NewSQLite(filepath.Join(dir, "compass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { side.Close() })

	logger := slog.New(slog.DiscardHandler)
	return server.NewServer(st, side, runner, adminSecret, logger)
}

func TestServer_Health(t *testing.T) {
	srv := setupServer(t, nil, "")

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_Models(t *testing.T) {
	srv := setupServer(t, nil, "")

	req := httptest.NewRequest("GET", "/api/v1/models", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var models []pricing.FlatModel
	err := json.NewDecoder(w.Body).Decode(&models)
	require.NoError(t, err)
	assert.Len(t, models, 2)
}

func TestServer_ModelsQuery(t *testing.T) {
	srv := setupServer(t, nil, "")

	req := httptest.NewRequest("GET", "/api/v1/models?q=gemini", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var models []pricing.FlatModel
	err := json.NewDecoder(w.Body).Decode(&models)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "Gemini Pro", models[0].Name)
}

func TestServer_ModelsNoDataset(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	srv := server.NewServer(st, nil, nil, "", slog.New(slog.DiscardHandler))

	req := httptest.NewRequest("GET", "/api/v1/models", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Compare(t *testing.T) {
	srv := setupServer(t, nil, "")

	req := httptest.NewRequest("GET", "/api/v1/compare", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var picks compare.Picks
	err := json.NewDecoder(w.Body).Decode(&picks)
	require.NoError(t, err)
	assert.Equal(t, "Gemini Pro", picks.BestOverall.Name)
}

func TestServer_Top5(t *testing.T) {
	srv := setupServer(t, nil, "")

	req := httptest.NewRequest("GET", "/api/v1/top5", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var charts compare.TopCharts
	err := json.NewDecoder(w.Body).Decode(&charts)
	require.NoError(t, err)
	assert.Len(t, charts.Cheapest, 2)
}

func TestServer_Submit(t *testing.T) {
	srv := setupServer(t, nil, "")

	body := `{"provider_name":"Acme AI","website":"https://acme.ai/pricing","model_name":"acme-1","input_price":0.5,"output_price":1.5}`
	req := httptest.NewRequest("POST", "/api/v1/submit", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "pending", resp["status"])
}

func TestServer_SubmitValidation(t *testing.T) {
	srv := setupServer(t, nil, "")

	tests := []struct {
		name string
		body string
	}{
		{"missing provider", `{"website":"https://acme.ai"}`},
		{"missing website", `{"provider_name":"Acme AI"}`},
		{"negative price", `{"provider_name":"Acme AI","website":"https://acme.ai","input_price":-1}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/submit", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServer_UpdateRequiresSecret(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{State: pipeline.StateAutoPublished, TotalModels: 2}}
	srv := setupServer(t, runner, "hunter2")

	req := httptest.NewRequest("POST", "/api/v1/update", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, runner.calls)

	req = httptest.NewRequest("POST", "/api/v1/update", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_Update(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{State: pipeline.StateAutoPublished, TotalModels: 2, NewModels: 1}}
	srv := setupServer(t, runner, "hunter2")

	req := httptest.NewRequest("POST", "/api/v1/update", nil)
	req.Header.Set("X-Admin-Secret", "hunter2")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)

	var resp map[string]any
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "auto_published", resp["state"])
}

func TestServer_UpdateDisabledWithoutSecret(t *testing.T) {
	srv := setupServer(t, &stubRunner{}, "")

	req := httptest.NewRequest("POST", "/api/v1/update", nil)
	req.Header.Set("X-Admin-Secret", "anything")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
