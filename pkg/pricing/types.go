// Package pricing defines the canonical pricing data model shared by the
// source adapters, the merge engine, and the comparison views.
package pricing

import (
	"fmt"
	"time"
)

// ModelRecord is the pricing entry for a single model within a provider.
// Prices are always stored in dollars per million tokens.
type ModelRecord struct {
	Name             string  `json:"name" yaml:"name"`
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
	ContextWindow    int     `json:"context_window" yaml:"context_window"`
	FreeTier         string  `json:"free_tier,omitempty" yaml:"free_tier,omitempty"`
	LastUpdated      string  `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`

	// Optional enrichment fields. Zero means "unknown", and rankings that
	// depend on them skip models without a value rather than treating the
	// absence as zero.
	Speed          float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	BenchmarkScore float64 `json:"benchmark_score,omitempty" yaml:"benchmark_score,omitempty"`
}

// ProviderRecord groups the models of a single vendor. Models are unique by
// name within a provider.
type ProviderRecord struct {
	ID     string        `json:"id" yaml:"id"`
	Name   string        `json:"name" yaml:"name"`
	Models []ModelRecord `json:"models" yaml:"models"`
}

// Metadata describes the dataset as a whole. TotalModels is recomputed on
// every merge and must equal the sum of all provider model counts.
type Metadata struct {
	LastUpdated string `json:"last_updated"`
	Source      string `json:"source"`
	TotalModels int    `json:"total_models"`
}

// Dataset is the canonical pricing table. It is created once from a seed and
// mutated only through the merge engine.
type Dataset struct {
	Providers []ProviderRecord `json:"providers"`
	Metadata  Metadata         `json:"metadata"`
}

// Provider returns the provider with the given id, or nil.
func (d *Dataset) Provider(id string) *ProviderRecord {
	for i := range d.Providers {
		if d.Providers[i].ID == id {
			return &d.Providers[i]
		}
	}
	return nil
}

// Clone deep-copies the dataset so a candidate merge can be built without
// touching the loaded baseline.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Metadata: d.Metadata}
	out.Providers = make([]ProviderRecord, len(d.Providers))
	for i, p := range d.Providers {
		cp := p
		cp.Models = make([]ModelRecord, len(p.Models))
		copy(cp.Models, p.Models)
		out.Providers[i] = cp
	}
	return out
}

// CountModels sums the model counts across all providers.
func (d *Dataset) CountModels() int {
	total := 0
	for _, p := range d.Providers {
		total += len(p.Models)
	}
	return total
}

// ObservedModel is a partial model record produced by a source adapter.
// ContextWindow and FreeTier may be absent depending on the source.
type ObservedModel struct {
	Name             string  `json:"name" yaml:"name"`
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
	ContextWindow    int     `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	FreeTier         string  `json:"free_tier,omitempty" yaml:"free_tier,omitempty"`
	Speed            float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	BenchmarkScore   float64 `json:"benchmark_score,omitempty" yaml:"benchmark_score,omitempty"`
}

// Observation is the uniform output of every source adapter: one provider's
// model set, with a trust score assigned by the adapter that produced it.
// Observations are ephemeral and never persisted.
type Observation struct {
	Provider   string          `json:"provider"`
	Models     []ObservedModel `json:"models"`
	ObservedAt time.Time       `json:"observed_at"`
	SourceURL  string          `json:"source_url"`
	Confidence float64         `json:"confidence"`
}

// ProviderRecord converts the observation into a canonical provider record,
// stamping every model with the given update time.
func (o Observation) ProviderRecord(now time.Time) ProviderRecord {
	stamp := now.UTC().Format(time.RFC3339)
	models := make([]ModelRecord, 0, len(o.Models))
	for _, m := range o.Models {
		models = append(models, ModelRecord{
			Name:             m.Name,
			InputPerMillion:  m.InputPerMillion,
			OutputPerMillion: m.OutputPerMillion,
			ContextWindow:    m.ContextWindow,
			FreeTier:         m.FreeTier,
			Speed:            m.Speed,
			BenchmarkScore:   m.BenchmarkScore,
			LastUpdated:      stamp,
		})
	}
	return ProviderRecord{
		ID:     ProviderID(o.Provider),
		Name:   o.Provider,
		Models: models,
	}
}

// PriceField identifies which price of a model changed.
type PriceField string

const (
	FieldInput  PriceField = "input_per_million"
	FieldOutput PriceField = "output_per_million"
)

// PriceChange records a significant delta between the baseline and a new
// observation. Changes are projections for review and notification only.
type PriceChange struct {
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	Field         PriceField `json:"field"`
	OldValue      float64    `json:"old_value"`
	NewValue      float64    `json:"new_value"`
	ChangePercent float64    `json:"change_percent"`
	Confidence    float64    `json:"confidence"`
	Source        string     `json:"source"`
}

// FlatModel is the per-model comparison view: a model record joined with its
// provider plus the derived cost and score. Recomputed on read, never stored.
type FlatModel struct {
	ModelRecord
	Provider   string  `json:"provider"`
	ProviderID string  `json:"provider_id"`
	TotalCost  float64 `json:"total_cost"`
	Score      int     `json:"score"`
}

// ValidationError reports a malformed observation or provider payload. The
// offending payload is rejected whole, never partially applied.
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation (%s): %s", e.Source, e.Reason)
}

// Validate checks the structural invariants of a provider payload before it
// may enter a merge.
func (p ProviderRecord) Validate() error {
	if p.ID == "" {
		return &ValidationError{Reason: "provider id is required"}
	}
	if p.Name == "" {
		return &ValidationError{Reason: "provider name is required"}
	}
	for _, m := range p.Models {
		if m.Name == "" {
			return &ValidationError{Reason: fmt.Sprintf("provider %s: model with empty name", p.ID)}
		}
		if m.InputPerMillion < 0 || m.OutputPerMillion < 0 {
			return &ValidationError{Reason: fmt.Sprintf("provider %s: model %s has negative price", p.ID, m.Name)}
		}
	}
	return nil
}
