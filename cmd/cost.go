package cmd

import (
	"fmt"
	"os"
	"text/tabwriter" // For aligned output

	"tiletagger/internal/clix"

	"github.com/spf13/cobra"
)

// costCmd represents the base command for cost operations.
var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Manage and view AI usage costs",
	Long:  `Provides subcommands to list detailed AI usage logs and view cost summaries.`,
}

// costListCmd represents the command to list cost logs.
var costListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detailed AI usage logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid pagination flags: %w", err)
		}

		logs, err := appInstance.CostService.ListUsage(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list cost logs: %w", err)
		}
		if len(logs) == 0 {
			fmt.Println("No cost logs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTimestamp\tProvider\tService\tModel\tIn Tokens\tOut Tokens\tCost\tJobID")
		fmt.Fprintln(w, "--\t---------\t--------\t-------\t-----\t---------\t----------\t----\t-----")

		for _, entry := range logs {
			jobIDStr := "N/A"
			if entry.RelatedJobID != nil {
				jobIDStr = entry.RelatedJobID.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%.8f\t%s\n",
				entry.ID,
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.ProviderName,
				entry.ServiceType,
				entry.ModelName,
				entry.InputTokens,
				entry.OutputTokens,
				entry.Cost,
				jobIDStr,
			)
		}
		return w.Flush()
	},
}

// costTotalCmd shows the accumulated spend.
var costTotalCmd = &cobra.Command{
	Use:   "total",
	Short: "Show the total recorded AI spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		total, err := appInstance.CostService.TotalCost(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to total usage: %w", err)
		}
		fmt.Printf("Total recorded spend: $%.6f\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(costCmd)
	costCmd.AddCommand(costListCmd)
	costCmd.AddCommand(costTotalCmd)

	costListCmd.Flags().Int("limit", 20, "Maximum number of log entries to list")
	costListCmd.Flags().Int("offset", 0, "Number of log entries to skip")
}
