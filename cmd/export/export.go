// Package export handles the committed-transaction export command.
package export

import (
	"context"

	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
	"statement-ingest/internal/common"
)

// Cmd represents the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export committed transactions to CSV",
	Long:  `Export every transaction committed to the user's ledger to a CSV file, ordered by transaction identifier.`,
	Run:   exportFunc,
}

func exportFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Output == "" {
		root.Log.Fatal("--output is required")
	}

	svc := root.NewService()
	txns, err := svc.Transactions(context.Background(), root.SharedFlags.User)
	if err != nil {
		root.Log.Fatalf("Error loading transactions: %v", err)
	}
	if len(txns) == 0 {
		root.Log.Info("No committed transactions to export")
		return
	}

	if err := common.WriteTransactionsToCSV(txns, root.SharedFlags.Output); err != nil {
		root.Log.Fatalf("Error writing CSV: %v", err)
	}
	root.Log.Infof("Exported %d transactions to %s", len(txns), root.SharedFlags.Output)
}
