// Package merge applies provider observations to the canonical dataset.
package merge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// Policy controls optional merge behaviors.
type Policy struct {
	// PruneMissing removes baseline models absent from the incoming
	// provider payload. Off by default: an incomplete scrape must not be
	// able to delete real models.
	PruneMissing bool
}

// Result describes what a merge did, for logs and review reports.
type Result struct {
	Provider      string
	AddedProvider bool
	AddedModels   []string
	UpdatedModels []string
	PrunedModels  []string
	// Diffs holds one human-readable line per changed field.
	Diffs []string
}

// Engine merges provider payloads into a dataset.
type Engine struct {
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// New creates a merge engine with the given policy.
func New(policy Policy, logger *slog.Logger) *Engine {
	return &Engine{policy: policy, logger: logger, now: time.Now}
}

// Apply upserts one provider into the dataset, in place. The payload is
// validated before any mutation, so a malformed provider leaves the dataset
// untouched. Metadata is recomputed on every successful merge.
func (e *Engine) Apply(ds *pricing.Dataset, provider pricing.ProviderRecord) (*Result, error) {
	if err := provider.Validate(); err != nil {
		return nil, fmt.Errorf("merge %s: %w", provider.ID, err)
	}

	res := &Result{Provider: provider.Name}

	existing := ds.Provider(provider.ID)
	if existing == nil {
		ds.Providers = append(ds.Providers, provider)
		res.AddedProvider = true
		for _, m := range provider.Models {
			res.AddedModels = append(res.AddedModels, m.Name)
		}
		e.logger.Info("added provider", "provider", provider.Name, "models", len(provider.Models))
	} else {
		existing.Name = provider.Name
		e.mergeModels(existing, provider, res)
	}

	ds.Metadata.LastUpdated = e.now().UTC().Format(time.RFC3339)
	ds.Metadata.TotalModels = ds.CountModels()
	return res, nil
}

func (e *Engine) mergeModels(existing *pricing.ProviderRecord, incoming pricing.ProviderRecord, res *Result) {
	for _, model := range incoming.Models {
		idx := indexOf(existing.Models, model.Name)
		if idx < 0 {
			existing.Models = append(existing.Models, model)
			res.AddedModels = append(res.AddedModels, model.Name)
			e.logger.Info("added model", "provider", incoming.Name, "model", model.Name)
			continue
		}

		diffs := diffModel(existing.Models[idx], model)
		if len(diffs) > 0 {
			res.UpdatedModels = append(res.UpdatedModels, model.Name)
			res.Diffs = append(res.Diffs, diffs...)
			e.logger.Info("updated model", "provider", incoming.Name, "model", model.Name, "changes", len(diffs))
		}
		existing.Models[idx] = model
	}

	if e.policy.PruneMissing {
		incomingNames := make(map[string]bool, len(incoming.Models))
		for _, m := range incoming.Models {
			incomingNames[m.Name] = true
		}
		kept := existing.Models[:0]
		for _, m := range existing.Models {
			if incomingNames[m.Name] {
				kept = append(kept, m)
			} else {
				res.PrunedModels = append(res.PrunedModels, m.Name)
				e.logger.Warn("pruned model missing from source", "provider", incoming.Name, "model", m.Name)
			}
		}
		existing.Models = kept
	}
}

func indexOf(models []pricing.ModelRecord, name string) int {
	for i, m := range models {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// diffModel renders one line per changed field, free of the values' origin.
func diffModel(old, updated pricing.ModelRecord) []string {
	var diffs []string
	if old.InputPerMillion != updated.InputPerMillion {
		diffs = append(diffs, fmt.Sprintf("%s: input $%.2f -> $%.2f", updated.Name, old.InputPerMillion, updated.InputPerMillion))
	}
	if old.OutputPerMillion != updated.OutputPerMillion {
		diffs = append(diffs, fmt.Sprintf("%s: output $%.2f -> $%.2f", updated.Name, old.OutputPerMillion, updated.OutputPerMillion))
	}
	if old.ContextWindow != updated.ContextWindow {
		diffs = append(diffs, fmt.Sprintf("%s: context %d -> %d", updated.Name, old.ContextWindow, updated.ContextWindow))
	}
	if old.FreeTier != updated.FreeTier {
		diffs = append(diffs, fmt.Sprintf("%s: free_tier %s -> %s", updated.Name, orNone(old.FreeTier), orNone(updated.FreeTier)))
	}
	return diffs
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
