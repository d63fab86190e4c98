package source

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// defaultConcurrency bounds simultaneous adapter calls.
const defaultConcurrency = 3

// FetchAll runs every source with bounded concurrency. One source failing or
// timing out only removes its observations from the run; the others still
// report. Results are sorted by provider id then source URL so downstream
// merges are deterministic regardless of completion order.
func FetchAll(ctx context.Context, sources []Source, logger *slog.Logger) []pricing.Observation {
	sem := make(chan struct{}, defaultConcurrency)
	results := make([][]pricing.Observation, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			obs, err := src.Fetch(ctx)
			if err != nil {
				logger.Error("source fetch failed", "source", src.Name(), "error", err)
				return
			}
			logger.Info("source fetched", "source", src.Name(), "observations", len(obs))
			results[i] = obs
		}(i, src)
	}
	wg.Wait()

	var all []pricing.Observation
	for _, obs := range results {
		all = append(all, obs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := pricing.ProviderID(all[i].Provider), pricing.ProviderID(all[j].Provider)
		if a != b {
			return a < b
		}
		return all[i].SourceURL < all[j].SourceURL
	})
	return all
}
