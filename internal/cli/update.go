package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/pkg/pipeline"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch prices from all sources and publish or hold the result",
	Long: `Run the full update pipeline: fetch observations from every configured
source, detect significant price changes against the live dataset, and either
auto-publish the merged result or park it for review when confidence is low.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().Bool("auto-publish", false, "Publish even when confidence is below the floor")
	updateCmd.Flags().Bool("prune", false, "Remove models missing from the fetched payloads")
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("auto-publish")
	prune, _ := cmd.Flags().GetBool("prune")

	logger := newLogger(cfg)
	side, err := initSideStore(cfg)
	if err != nil {
		return fmt.Errorf("open side database: %w", err)
	}
	defer side.Close()

	p, err := initPipeline(cfg, side, force, prune, logger)
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	fmt.Printf("Observations: %d\n", res.Observations)
	fmt.Printf("Changes:      %d\n", len(res.Changes))
	fmt.Printf("New models:   %d\n", res.NewModels)
	fmt.Printf("Total models: %d\n", res.TotalModels)

	for _, mr := range res.Merges {
		for _, line := range mr.Diffs {
			fmt.Printf("  %s\n", line)
		}
	}

	switch res.State {
	case pipeline.StateAutoPublished:
		fmt.Println("\nResult: published.")
	case pipeline.StatePendingReview:
		fmt.Println("\nResult: held for review. Re-run with --auto-publish to force.")
	}
	return nil
}
