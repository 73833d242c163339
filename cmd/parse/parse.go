// Package parse handles the statement parsing command.
package parse

import (
	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
	"statement-ingest/internal/common"
	"statement-ingest/internal/pdftext"
)

// Cmd represents the parse command.
var Cmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract transactions from a statement to CSV",
	Long:  `Parse a text-based PDF statement and write the extracted transactions to a CSV file without touching the ledger.`,
	Run:   parseFunc,
}

func parseFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Input == "" || root.SharedFlags.Output == "" {
		root.Log.Fatal("Both --input and --output are required")
	}
	root.Log.Infof("Input file: %s", root.SharedFlags.Input)
	root.Log.Infof("Output file: %s", root.SharedFlags.Output)

	pages, err := pdftext.ExtractFile(root.SharedFlags.Input)
	if err != nil {
		root.Log.Fatalf("Error extracting text: %v", err)
	}

	table, meta, err := root.NewExtractor().ExtractTables(pages)
	if err != nil {
		root.Log.Fatalf("Error parsing statement: %v", err)
	}
	root.Log.Infof("Detected %s statement with %d transactions", meta.StatementType, len(table.Rows))

	if err := common.WriteParsedRowsToCSV(table.Rows, root.SharedFlags.Output); err != nil {
		root.Log.Fatalf("Error writing CSV: %v", err)
	}
	root.Log.Info("Statement parsed successfully!")
}
