// Package detect compares new pricing observations against the canonical
// baseline and flags significant deltas. It never mutates the baseline.
package detect

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// significanceRatio: a delta counts when it exceeds 10% of the baseline value.
const significanceRatio = 0.1

// ratioDivergence: when the input/output price ratio moves more than 50% off
// the baseline ratio, the two sources likely disagree on units, not prices.
const ratioDivergence = 0.5

// Detector flags significant price changes between a baseline dataset and a
// set of observations.
type Detector struct {
	logger *slog.Logger
}

// New creates a detector.
func New(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect returns one PriceChange per significantly changed price field, for
// every (provider, model) pair present in both the baseline and the
// observations. Models only present in an observation are logged as new and
// produce no change.
func (d *Detector) Detect(baseline *pricing.Dataset, observations []pricing.Observation) []pricing.PriceChange {
	if baseline == nil {
		return nil
	}

	base := make(map[string]pricing.ModelRecord)
	for _, provider := range baseline.Providers {
		for _, m := range provider.Models {
			base[key(provider.Name, m.Name)] = m
		}
	}

	var changes []pricing.PriceChange
	for _, obs := range observations {
		for _, m := range obs.Models {
			old, ok := base[key(obs.Provider, m.Name)]
			if !ok {
				d.logger.Info("new model detected", "provider", obs.Provider, "model", m.Name)
				continue
			}

			d.checkRatio(obs.Provider, old, m)

			if c, ok := change(obs, m.Name, pricing.FieldInput, old.InputPerMillion, m.InputPerMillion); ok {
				changes = append(changes, c)
			}
			if c, ok := change(obs, m.Name, pricing.FieldOutput, old.OutputPerMillion, m.OutputPerMillion); ok {
				changes = append(changes, c)
			}
		}
	}
	return changes
}

func key(provider, model string) string {
	return fmt.Sprintf("%s|%s", provider, model)
}

// change reports whether old -> new is a significant move on one field.
func change(obs pricing.Observation, model string, field pricing.PriceField, oldValue, newValue float64) (pricing.PriceChange, bool) {
	if math.Abs(newValue-oldValue) <= math.Abs(oldValue)*significanceRatio {
		return pricing.PriceChange{}, false
	}

	percent := 0.0
	if oldValue != 0 {
		percent = (newValue - oldValue) / oldValue * 100
	}
	return pricing.PriceChange{
		Provider:      obs.Provider,
		Model:         model,
		Field:         field,
		OldValue:      oldValue,
		NewValue:      newValue,
		ChangePercent: math.Round(percent*10) / 10,
		Confidence:    obs.Confidence,
		Source:        obs.SourceURL,
	}, true
}

// checkRatio logs a unit-ambiguity warning when the observed input/output
// ratio diverges hard from the baseline's. The warning never blocks publish;
// it exists for human review.
func (d *Detector) checkRatio(provider string, old pricing.ModelRecord, observed pricing.ObservedModel) {
	if old.OutputPerMillion == 0 || observed.OutputPerMillion == 0 {
		return
	}
	baseRatio := old.InputPerMillion / old.OutputPerMillion
	newRatio := observed.InputPerMillion / observed.OutputPerMillion
	if baseRatio == 0 {
		return
	}
	if math.Abs(newRatio-baseRatio) > baseRatio*ratioDivergence {
		d.logger.Warn("unit ambiguity: input/output ratio diverged from baseline",
			"provider", provider,
			"model", observed.Name,
			"baseline_ratio", baseRatio,
			"observed_ratio", newRatio,
		)
	}
}
