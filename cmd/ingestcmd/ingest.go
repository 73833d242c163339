// Package ingestcmd handles the statement ingestion command.
package ingestcmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
	"statement-ingest/internal/ingest"
	"statement-ingest/internal/pdftext"
)

// Cmd represents the ingest command.
var Cmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a statement and stage its transactions for review",
	Long: `Parse a statement file and stage its transactions as pending imports.
Re-ingesting a byte-identical file is a no-op.`,
	Run: ingestFunc,
}

func ingestFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Input == "" {
		root.Log.Fatal("--input is required")
	}

	raw, err := pdftext.ReadFileBytes(root.SharedFlags.Input)
	if err != nil {
		root.Log.Fatalf("Error reading statement: %v", err)
	}

	svc := root.NewService()
	result, err := svc.Ingest(context.Background(), ingest.IngestInput{
		UserID:   root.SharedFlags.User,
		FileName: filepath.Base(root.SharedFlags.Input),
		Raw:      raw,
	})
	if err != nil {
		root.Log.Fatalf("Error ingesting statement: %v", err)
	}

	if result.IsDuplicate {
		root.Log.Warnf("File was already ingested as statement %s", result.Statement.ID)
		os.Exit(0)
	}
	root.Log.Infof("Statement %s staged: %d new, %d duplicates",
		result.Statement.ID, result.NewCount, result.DuplicateCount)
	root.Log.Infof("Run 'statement-ingest review -s %s' to review", result.Statement.ID)
}
