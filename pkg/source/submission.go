package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

// Submissions turns approved end-user submissions into observations. They
// enter at the lowest confidence so a submission alone never auto-publishes
// alongside detected changes.
type Submissions struct {
	side store.SideStore
}

// NewSubmissions creates the submission adapter over the side store.
func NewSubmissions(side store.SideStore) *Submissions {
	return &Submissions{side: side}
}

func (s *Submissions) Name() string { return "submissions" }

func (s *Submissions) Fetch(ctx context.Context) ([]pricing.Observation, error) {
	subs, err := s.side.ListSubmissions(ctx, store.SubmissionApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved submissions: %w", err)
	}

	grouped := make(map[string][]pricing.ObservedModel)
	for _, sub := range subs {
		if sub.ModelName == "" {
			// Provider-only submissions carry no mergeable pricing.
			continue
		}
		name := pricing.CanonicalProvider(sub.ProviderName)
		grouped[name] = append(grouped[name], pricing.ObservedModel{
			Name:             sub.ModelName,
			InputPerMillion:  sub.InputPrice,
			OutputPerMillion: sub.OutputPrice,
		})
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	obs := make([]pricing.Observation, 0, len(names))
	for _, name := range names {
		obs = append(obs, pricing.Observation{
			Provider:   name,
			Models:     grouped[name],
			ObservedAt: now,
			SourceURL:  "user submission",
			Confidence: ConfidenceSubmission,
		})
	}
	return obs, nil
}
