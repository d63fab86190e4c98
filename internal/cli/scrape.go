package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/pkg/source"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch aggregator prices without merging",
	Long: `Fetch the aggregator API and print the observations it would contribute to
an update run. Core providers show their verified values; nothing is written.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Sources.Aggregator.URL == "" {
		return fmt.Errorf("no aggregator URL configured")
	}

	logger := newLogger(cfg)
	verified, err := source.LoadVerified(cfg.Sources.VerifiedDir)
	if err != nil {
		return fmt.Errorf("load verified pricing: %w", err)
	}

	timeout := parseDuration(cfg.Sources.Aggregator.Timeout, 15*time.Second)
	agg := source.NewAggregator(cfg.Sources.Aggregator.URL, verified, timeout, logger)

	observations, err := agg.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch aggregator: %w", err)
	}

	printObservations(observations)
	return nil
}
