// Package months handles the monthly spend summary command.
package months

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
)

// Cmd represents the months command.
var Cmd = &cobra.Command{
	Use:   "months",
	Short: "Show committed spend per month",
	Run:   monthsFunc,
}

func monthsFunc(cmd *cobra.Command, args []string) {
	svc := root.NewService()
	summaries, err := svc.MonthSummaries(context.Background(), root.SharedFlags.User)
	if err != nil {
		root.Log.Fatalf("Error loading summaries: %v", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No committed transactions yet.")
		return
	}
	for _, s := range summaries {
		fmt.Printf("%s  %12s %s  %4d transactions from %d statements\n",
			s.Month, s.TotalSpent.StringFixed(2), s.Currency, s.TransactionCount, s.StatementCount)
	}
}
