package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// aggregatorRow is one record from the aggregator API. The endpoint's
// contract is per-million pricing; the unit is declared here, never guessed
// from magnitude.
type aggregatorRow struct {
	Vendor  string  `json:"vendor"`
	Name    string  `json:"name"`
	Input   float64 `json:"input"`
	Output  float64 `json:"output"`
	Context int     `json:"context,omitempty"`
	Updated string  `json:"updated,omitempty"`
}

// aggregatorUnit is the denomination the endpoint publishes in.
const aggregatorUnit = pricing.UnitPerMillion

// Aggregator pulls bulk pricing from a single JSON endpoint. Providers that
// also have verified constants ("core" providers) keep the verified numbers;
// the API values are only compared against them to flag anomalies. All other
// providers use the API values directly at lower confidence.
type Aggregator struct {
	url      string
	client   *http.Client
	verified *Verified
	logger   *slog.Logger
}

// NewAggregator creates the aggregator adapter. verified may not be nil: it
// supplies the core-provider reference set and the fallback when the API is
// unreachable.
func NewAggregator(url string, verified *Verified, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Aggregator{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		verified: verified,
		logger:   logger,
	}
}

func (a *Aggregator) Name() string { return "aggregator" }

// Fetch retrieves all rows from the endpoint and folds them into per-provider
// observations. When the endpoint is unreachable the verified constants are
// returned instead, so a flaky aggregator degrades coverage, not correctness.
func (a *Aggregator) Fetch(ctx context.Context) ([]pricing.Observation, error) {
	rows, err := a.fetchRows(ctx)
	if err != nil {
		a.logger.Warn("aggregator unreachable, falling back to verified constants", "error", err)
		return a.verified.observations(time.Now().UTC(), verifiedSourceURL+" (API unavailable)"), nil
	}

	grouped := make(map[string][]aggregatorRow)
	for _, row := range rows {
		name := pricing.CanonicalProvider(row.Vendor)
		grouped[name] = append(grouped[name], row)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	var observations []pricing.Observation
	for _, name := range names {
		obs := a.observe(name, grouped[name], now)
		if len(obs.Models) > 0 {
			observations = append(observations, obs)
		}
	}
	return observations, nil
}

func (a *Aggregator) fetchRows(ctx context.Context) ([]aggregatorRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create aggregator request: %w", err)
	}
	req.Header.Set("User-Agent", "llm-price-compass/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: aggregator returned status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read aggregator response: %v", ErrUnavailable, err)
	}

	// The endpoint serves either a bare array or {"prices": [...]}.
	var rows []aggregatorRow
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Prices []aggregatorRow `json:"prices"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("parse aggregator response: %w", err)
	}
	return wrapped.Prices, nil
}

// observe builds the observation for one provider. Core providers substitute
// verified pricing after logging any disagreement with the API.
func (a *Aggregator) observe(provider string, rows []aggregatorRow, now time.Time) pricing.Observation {
	if a.verified.IsCore(provider) {
		a.flagAnomalies(provider, rows)
		return pricing.Observation{
			Provider:   provider,
			Models:     a.verified.Models(provider),
			ObservedAt: now,
			SourceURL:  a.url,
			Confidence: ConfidenceVerified,
		}
	}

	models := make([]pricing.ObservedModel, 0, len(rows))
	for _, row := range rows {
		models = append(models, pricing.ObservedModel{
			Name:             row.Name,
			InputPerMillion:  pricing.Normalize(row.Input, aggregatorUnit),
			OutputPerMillion: pricing.Normalize(row.Output, aggregatorUnit),
			ContextWindow:    row.Context,
		})
	}
	return pricing.Observation{
		Provider:   provider,
		Models:     models,
		ObservedAt: now,
		SourceURL:  a.url,
		Confidence: ConfidenceAggregator,
	}
}

// flagAnomalies logs API rows that disagree with the verified constants by
// more than 10% on either price. The verified value still wins; the log line
// is the signal to re-verify by hand.
func (a *Aggregator) flagAnomalies(provider string, rows []aggregatorRow) {
	for _, verified := range a.verified.Models(provider) {
		row, ok := matchRow(rows, verified.Name)
		if !ok {
			continue
		}
		apiInput := pricing.Normalize(row.Input, aggregatorUnit)
		apiOutput := pricing.Normalize(row.Output, aggregatorUnit)

		inputDiff := math.Abs(apiInput - verified.InputPerMillion)
		outputDiff := math.Abs(apiOutput - verified.OutputPerMillion)
		if inputDiff > verified.InputPerMillion*0.1 || outputDiff > verified.OutputPerMillion*0.1 {
			a.logger.Warn("aggregator disagrees with verified pricing",
				"provider", provider,
				"model", verified.Name,
				"verified_input", verified.InputPerMillion,
				"verified_output", verified.OutputPerMillion,
				"api_input", apiInput,
				"api_output", apiOutput,
			)
		}
	}
}

// matchRow finds the API row for a verified model by loose name containment,
// since the aggregator and the vendors rarely agree on exact model names.
func matchRow(rows []aggregatorRow, model string) (aggregatorRow, bool) {
	lower := strings.ToLower(model)
	for _, row := range rows {
		rowName := strings.ToLower(row.Name)
		if strings.Contains(rowName, lower) || strings.Contains(lower, rowName) {
			return row, true
		}
	}
	return aggregatorRow{}, false
}
