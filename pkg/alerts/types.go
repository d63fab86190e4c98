// Package alerts delivers price-change reports to humans after a pipeline
// run that detected something worth reviewing.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/costcompass/llm-price-compass/pkg/pricing"
)

// Report summarizes one pipeline run for notification.
type Report struct {
	Changes     []pricing.PriceChange `json:"changes"`
	NewModels   int                   `json:"new_models"`
	TotalModels int                   `json:"total_models"`
	Published   bool                  `json:"published"`
	RunAt       string                `json:"run_at"`
}

// Subject renders the notification subject line.
func (r Report) Subject() string {
	if len(r.Changes) == 0 {
		return "LLM pricing check: no changes today"
	}
	high := 0
	for _, c := range r.Changes {
		if c.Confidence > 0.9 {
			high++
		}
	}
	plural := ""
	if len(r.Changes) > 1 {
		plural = "s"
	}
	return fmt.Sprintf("LLM pricing update: %d change%s (%d high-confidence)", len(r.Changes), plural, high)
}

// Body renders a plain-text change table for the report.
func (r Report) Body() string {
	var b strings.Builder
	if len(r.Changes) == 0 {
		b.WriteString("No pricing changes detected.\n")
	} else {
		for _, c := range r.Changes {
			arrow := "down"
			if c.ChangePercent > 0 {
				arrow = "up"
			}
			fmt.Fprintf(&b, "%s %s %s: $%.2f -> $%.2f (%s %.1f%%, confidence %.0f%%)\n",
				c.Provider, c.Model, c.Field,
				c.OldValue, c.NewValue,
				arrow, abs(c.ChangePercent), c.Confidence*100)
		}
	}
	status := "held for review"
	if r.Published {
		status = "auto-published"
	}
	fmt.Fprintf(&b, "\nModels tracked: %d. Run result: %s.\n", r.TotalModels, status)
	return b.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Notifier sends reports to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a report. Implementations must be safe for concurrent use.
	Send(ctx context.Context, report Report) error
}
