package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/pkg/store"
	"github.com/costcompass/llm-price-compass/pkg/tokencost"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate what a prompt costs across models",
	Long: `Estimate the cost of a request. Give token counts directly, or pass prompt
text to have it tokenized. Without --provider and --model the estimate is
printed for every model in the dataset, cheapest first.`,
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
	costCmd.Flags().Int64P("input", "i", 0, "Input token count")
	costCmd.Flags().Int64P("output", "o", 0, "Expected output token count")
	costCmd.Flags().StringP("text", "t", "", "Prompt text to tokenize instead of --input")
	costCmd.Flags().StringP("provider", "p", "", "Provider name")
	costCmd.Flags().StringP("model", "m", "", "Model name")
	costCmd.Flags().Int("limit", 10, "Rows to show for the all-models table")
}

func runCost(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inputTokens, _ := cmd.Flags().GetInt64("input")
	outputTokens, _ := cmd.Flags().GetInt64("output")
	text, _ := cmd.Flags().GetString("text")
	provider, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	limit, _ := cmd.Flags().GetInt("limit")

	if inputTokens == 0 && text == "" {
		return fmt.Errorf("either --input or --text is required")
	}

	ds, err := initStore(cfg).Load(cmd.Context())
	if errors.Is(err, store.ErrNoDataset) {
		return fmt.Errorf("no dataset at %s, run `compass update` first", cfg.Store.DatasetPath)
	}
	if err != nil {
		return err
	}
	estimator := tokencost.NewEstimator(ds)

	if provider != "" && model != "" {
		var est *tokencost.Estimate
		if text != "" {
			est, err = estimator.EstimateText(text, outputTokens, provider, model)
		} else {
			est, err = estimator.EstimateTokens(inputTokens, outputTokens, provider, model)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s: %d input + %d output tokens\n", est.Provider, est.Model, est.InputTokens, est.OutputTokens)
		fmt.Printf("  Input:  $%.6f\n", est.InputCost)
		fmt.Printf("  Output: $%.6f\n", est.OutputCost)
		fmt.Printf("  Total:  $%.6f\n", est.TotalCost)
		return nil
	}

	if text != "" {
		// Without a provider the count falls back to character estimation.
		inputTokens, _ = tokencost.CountTokens(text, "", "")
	}

	all := estimator.AllModels(inputTokens, outputTokens)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT\tOUTPUT\tTOTAL")
	for _, est := range all {
		fmt.Fprintf(w, "%s\t%s\t$%.6f\t$%.6f\t$%.6f\n",
			est.Provider, est.Model, est.InputCost, est.OutputCost, est.TotalCost)
	}
	w.Flush()
	return nil
}
