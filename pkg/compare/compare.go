// Package compare derives the read-side views of the canonical dataset:
// flattened per-model records, value scores, highlighted picks, and top-N
// rankings. Everything here is a pure projection recomputed on demand.
package compare

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// Picks are the highlighted models surfaced on top of the full list.
type Picks struct {
	BestOverall pricing.FlatModel  `json:"best_overall"`
	BestFree    *pricing.FlatModel `json:"best_free,omitempty"`
	BestValue   pricing.FlatModel  `json:"best_value"`
	HiddenGem   pricing.FlatModel  `json:"hidden_gem"`
}

// TopCharts are the three top-5 rankings.
type TopCharts struct {
	Cheapest  []pricing.FlatModel `json:"cheapest"`
	Fastest   []pricing.FlatModel `json:"fastest"`
	Benchmark []pricing.FlatModel `json:"benchmark"`
}

// Flatten joins every model with its provider and computes cost and score as
// of the given instant. Expired free tiers are nulled out before scoring.
func Flatten(ds *pricing.Dataset, at time.Time) []pricing.FlatModel {
	var flat []pricing.FlatModel
	for _, provider := range ds.Providers {
		for _, model := range provider.Models {
			m := model
			m.FreeTier = ValidFreeTier(m.FreeTier, at)
			total := m.InputPerMillion + m.OutputPerMillion
			flat = append(flat, pricing.FlatModel{
				ModelRecord: m,
				Provider:    provider.Name,
				ProviderID:  provider.ID,
				TotalCost:   total,
				Score:       Score(total, m.ContextWindow, m.FreeTier != ""),
			})
		}
	}
	return flat
}

// Score computes the value score: low cost dominates, context window adds a
// small continuous bonus, and an active free tier a flat one.
func Score(totalCost float64, contextWindow int, freeTier bool) int {
	score := 1000 / (totalCost + 1)
	score += float64(contextWindow) / 10000
	if freeTier {
		score += 100
	}
	return int(math.Round(score))
}

// Search filters the flattened models by a case-insensitive substring match
// on provider or model name. An empty query returns everything.
func Search(models []pricing.FlatModel, query string) []pricing.FlatModel {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return models
	}
	var matched []pricing.FlatModel
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Provider), query) ||
			strings.Contains(strings.ToLower(m.Name), query) {
			matched = append(matched, m)
		}
	}
	return matched
}

// BestPicks derives the highlighted models. Returns nil for an empty list.
func BestPicks(models []pricing.FlatModel) *Picks {
	if len(models) == 0 {
		return nil
	}

	bestOverall := models[0]
	for _, m := range models[1:] {
		if m.Score > bestOverall.Score {
			bestOverall = m
		}
	}

	var bestFree *pricing.FlatModel
	for i := range models {
		m := models[i]
		if m.FreeTier == "" {
			continue
		}
		if bestFree == nil || m.TotalCost < bestFree.TotalCost {
			bestFree = &m
		}
	}

	bestValue := models[0]
	for _, m := range models[1:] {
		if valueRatio(m) > valueRatio(bestValue) {
			bestValue = m
		}
	}

	// Hidden gem: a strong cheap model that is not already the headline
	// pick, so the list surfaces something a reader may have missed.
	hiddenGem := bestValue
	bestGemScore := -1
	for _, m := range models {
		if m.Score > 500 && m.TotalCost < 5 && m.Name != bestOverall.Name && m.Score > bestGemScore {
			hiddenGem = m
			bestGemScore = m.Score
		}
	}

	return &Picks{
		BestOverall: bestOverall,
		BestFree:    bestFree,
		BestValue:   bestValue,
		HiddenGem:   hiddenGem,
	}
}

func valueRatio(m pricing.FlatModel) float64 {
	cost := m.TotalCost
	if cost == 0 {
		cost = 1
	}
	return float64(m.Score) / cost
}

// Top5Cheapest ranks paid models by total cost, ascending. Zero-cost entries
// are excluded so the list stays a "cheapest paid" comparison.
func Top5Cheapest(models []pricing.FlatModel) []pricing.FlatModel {
	var paid []pricing.FlatModel
	for _, m := range models {
		if m.TotalCost > 0 {
			paid = append(paid, m)
		}
	}
	sort.SliceStable(paid, func(i, j int) bool { return paid[i].TotalCost < paid[j].TotalCost })
	return top5(paid)
}

// Top5Fastest ranks by tokens/sec, descending. Models without a speed value
// are omitted rather than treated as zero.
func Top5Fastest(models []pricing.FlatModel) []pricing.FlatModel {
	var known []pricing.FlatModel
	for _, m := range models {
		if m.Speed > 0 {
			known = append(known, m)
		}
	}
	sort.SliceStable(known, func(i, j int) bool { return known[i].Speed > known[j].Speed })
	return top5(known)
}

// Top5Benchmark ranks by benchmark score, descending, omitting models
// without one.
func Top5Benchmark(models []pricing.FlatModel) []pricing.FlatModel {
	var known []pricing.FlatModel
	for _, m := range models {
		if m.BenchmarkScore > 0 {
			known = append(known, m)
		}
	}
	sort.SliceStable(known, func(i, j int) bool { return known[i].BenchmarkScore > known[j].BenchmarkScore })
	return top5(known)
}

// Charts bundles the three rankings in one call.
func Charts(models []pricing.FlatModel) TopCharts {
	return TopCharts{
		Cheapest:  Top5Cheapest(models),
		Fastest:   Top5Fastest(models),
		Benchmark: Top5Benchmark(models),
	}
}

func top5(models []pricing.FlatModel) []pricing.FlatModel {
	if len(models) > 5 {
		return models[:5]
	}
	return models
}
