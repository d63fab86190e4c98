// Package source implements the pricing source adapters. Every adapter
// produces the same observation shape regardless of where the data came from,
// so per-source quirks never leak past this package.
package source

import (
	"context"
	"errors"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// Trust scores assigned per source kind. Verified constants are the trust
// anchor; aggregator rows without a second source and LLM extractions sit
// lower; user submissions always require review.
const (
	ConfidenceVerified   = 0.98
	ConfidenceAggregator = 0.85
	ConfidenceExtracted  = 0.90
	ConfidenceSubmission = 0.60
)

// ErrUnavailable wraps network-level failures (timeout, non-2xx, DNS). The
// pipeline never retries mid-run; the next scheduled run is the retry.
var ErrUnavailable = errors.New("source unavailable")

// Source is a pricing source adapter. Fetch honors ctx cancellation and
// returns one observation per provider it saw.
type Source interface {
	// Name identifies the adapter in logs and reports.
	Name() string

	// Fetch retrieves the adapter's current observations.
	Fetch(ctx context.Context) ([]pricing.Observation, error)
}
