package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/pkg/store"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Review user pricing submissions",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions",
	RunE:  runSubmissionsList,
}

var submissionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a submission so the next update run picks it up",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmissionsSetStatus(store.SubmissionApproved),
}

var submissionsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmissionsSetStatus(store.SubmissionRejected),
}

func init() {
	rootCmd.AddCommand(submissionsCmd)
	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsApproveCmd)
	submissionsCmd.AddCommand(submissionsRejectCmd)

	submissionsListCmd.Flags().StringP("status", "s", "pending", "Filter by status (pending, approved, rejected, all)")
}

func runSubmissionsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	side, err := initSideStore(cfg)
	if err != nil {
		return err
	}
	defer side.Close()

	statusFlag, _ := cmd.Flags().GetString("status")
	status := store.SubmissionStatus(statusFlag)
	if statusFlag == "all" {
		status = ""
	}

	subs, err := side.ListSubmissions(cmd.Context(), status)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	if len(subs) == 0 {
		fmt.Println("No submissions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tMODEL\tINPUT/M\tOUTPUT/M\tSTATUS\tSUBMITTED")
	for _, sub := range subs {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t$%.2f\t%s\t%s\n",
			sub.ID, sub.ProviderName, sub.ModelName,
			sub.InputPrice, sub.OutputPrice,
			sub.Status, sub.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()
	return nil
}

func runSubmissionsSetStatus(status store.SubmissionStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		side, err := initSideStore(cfg)
		if err != nil {
			return err
		}
		defer side.Close()

		if err := side.SetSubmissionStatus(cmd.Context(), args[0], status); err != nil {
			return err
		}
		fmt.Printf("Submission %s marked %s.\n", args[0], status)
		return nil
	}
}
