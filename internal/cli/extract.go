package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/costcompass/llm-price-compass/internal/config"
	"github.com/costcompass/llm-price-compass/pkg/merge"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/source"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Extract pricing from a web page with an LLM",
	Long: `Fetch a pricing page, convert it to markdown, and ask an LLM to extract
structured model prices from it. With --batch, extract every target listed in
a YAML file instead of a single URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("provider", "p", "", "Provider name hint for the page")
	extractCmd.Flags().String("batch", "", "YAML file listing extraction targets")
	extractCmd.Flags().Bool("merge", false, "Merge extracted prices into the dataset")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Extraction.APIKey == "" {
		return fmt.Errorf("extraction requires an API key (set OPENAI_API_KEY or extraction.api_key)")
	}

	providerHint, _ := cmd.Flags().GetString("provider")
	batchFile, _ := cmd.Flags().GetString("batch")
	doMerge, _ := cmd.Flags().GetBool("merge")

	logger := newLogger(cfg)
	ecfg := extractorConfig(cfg)

	var observations []pricing.Observation
	switch {
	case batchFile != "":
		targets, err := loadTargets(batchFile)
		if err != nil {
			return err
		}
		ecfg.Targets = targets
		extractor, err := source.NewExtractor(ecfg, logger)
		if err != nil {
			return err
		}
		observations, err = extractor.Fetch(cmd.Context())
		if err != nil {
			return err
		}
	case len(args) == 1:
		extractor, err := source.NewExtractor(ecfg, logger)
		if err != nil {
			return err
		}
		obs, err := extractor.ExtractURL(cmd.Context(), args[0], providerHint)
		if err != nil {
			return fmt.Errorf("extract %s: %w", args[0], err)
		}
		observations = []pricing.Observation{obs}
	default:
		return fmt.Errorf("either a URL argument or --batch is required")
	}

	printObservations(observations)

	if doMerge {
		return mergeObservations(cmd, cfg, observations, logger)
	}
	return nil
}

func loadTargets(path string) ([]source.ExtractTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var targets []source.ExtractTarget
	if err := yaml.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file %s lists no targets", path)
	}
	return targets, nil
}

func printObservations(observations []pricing.Observation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT/M\tOUTPUT/M\tCONTEXT\tCONFIDENCE")
	for _, obs := range observations {
		for _, m := range obs.Models {
			fmt.Fprintf(w, "%s\t%s\t$%.2f\t$%.2f\t%d\t%.0f%%\n",
				obs.Provider, m.Name, m.InputPerMillion, m.OutputPerMillion, m.ContextWindow, obs.Confidence*100)
		}
	}
	w.Flush()
}

func mergeObservations(cmd *cobra.Command, cfg *config.Config, observations []pricing.Observation, logger *slog.Logger) error {
	st := initStore(cfg)
	ds, err := st.Load(cmd.Context())
	if errors.Is(err, store.ErrNoDataset) {
		ds = &pricing.Dataset{}
	} else if err != nil {
		return err
	}

	engine := merge.New(merge.Policy{}, logger)
	now := time.Now()
	for _, obs := range observations {
		if _, err := engine.Apply(ds, obs.ProviderRecord(now)); err != nil {
			return err
		}
	}
	ds.Metadata.Source = "scraped"
	if err := st.Commit(cmd.Context(), ds); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	fmt.Printf("\nMerged %d observation(s) into %s\n", len(observations), cfg.Store.DatasetPath)
	return nil
}
