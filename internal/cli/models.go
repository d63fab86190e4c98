package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/internal/config"
	"github.com/costcompass/llm-price-compass/pkg/compare"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

var modelsCmd = &cobra.Command{
	Use:   "models [query]",
	Short: "List models in the dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Show the best picks across all models",
	RunE:  runCompare,
}

var top5Cmd = &cobra.Command{
	Use:   "top5",
	Short: "Show the top-5 charts: cheapest, fastest, best benchmark",
	RunE:  runTop5,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(top5Cmd)
}

// loadFlatModels loads the live dataset and flattens it for comparison.
func loadFlatModels(cmd *cobra.Command, cfg *config.Config) ([]pricing.FlatModel, error) {
	ds, err := initStore(cfg).Load(cmd.Context())
	if errors.Is(err, store.ErrNoDataset) {
		return nil, fmt.Errorf("no dataset at %s, run `compass update` first", cfg.Store.DatasetPath)
	}
	if err != nil {
		return nil, err
	}
	return compare.Flatten(ds, time.Now()), nil
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	models, err := loadFlatModels(cmd, cfg)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		models = compare.Search(models, args[0])
	}
	if len(models) == 0 {
		fmt.Println("No models found.")
		return nil
	}

	printModels(models)
	return nil
}

func runCompare(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	models, err := loadFlatModels(cmd, cfg)
	if err != nil {
		return err
	}

	picks := compare.BestPicks(models)
	if picks == nil {
		fmt.Println("No models in the dataset.")
		return nil
	}

	printPick("Best overall", &picks.BestOverall)
	printPick("Best free", picks.BestFree)
	printPick("Best value", &picks.BestValue)
	printPick("Hidden gem", &picks.HiddenGem)
	return nil
}

func runTop5(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	models, err := loadFlatModels(cmd, cfg)
	if err != nil {
		return err
	}
	charts := compare.Charts(models)

	fmt.Println("Cheapest:")
	printModels(charts.Cheapest)
	fmt.Println("\nFastest:")
	printModels(charts.Fastest)
	fmt.Println("\nBest benchmark:")
	printModels(charts.Benchmark)
	return nil
}

func printModels(models []pricing.FlatModel) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT/M\tOUTPUT/M\tCONTEXT\tFREE TIER\tSCORE")
	for _, m := range models {
		free := m.FreeTier
		if free == "" {
			free = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t$%.2f\t%d\t%s\t%d\n",
			m.Provider, m.Name, m.InputPerMillion, m.OutputPerMillion, m.ContextWindow, free, m.Score)
	}
	w.Flush()
}

func printPick(label string, m *pricing.FlatModel) {
	if m == nil {
		fmt.Printf("%-13s -\n", label+":")
		return
	}
	fmt.Printf("%-13s %s %s ($%.2f in / $%.2f out per 1M, score %d)\n",
		label+":", m.Provider, m.Name, m.InputPerMillion, m.OutputPerMillion, m.Score)
}
