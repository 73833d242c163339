// Package commit handles the import commit command.
package commit

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
	"statement-ingest/internal/models"
)

// Cmd represents the commit command.
var Cmd = &cobra.Command{
	Use:   "commit",
	Short: "Finalize a reviewed statement",
	Long: `Commit a reviewed statement: accepted imports become permanent
transactions. Imports without a decision default to accepted when new and
rejected when duplicate.`,
	Run: commitFunc,
}

var (
	acceptIDs []string
	rejectIDs []string
)

func init() {
	Cmd.Flags().StringSliceVar(&acceptIDs, "accept", nil, "Import IDs to accept, overriding defaults")
	Cmd.Flags().StringSliceVar(&rejectIDs, "reject", nil, "Import IDs to reject, overriding defaults")
}

func commitFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Statement == "" {
		root.Log.Fatal("--statement is required")
	}

	var decisions []models.ImportDecision
	for _, id := range acceptIDs {
		decisions = append(decisions, models.ImportDecision{ImportID: strings.TrimSpace(id), Action: models.DecisionAccept})
	}
	for _, id := range rejectIDs {
		decisions = append(decisions, models.ImportDecision{ImportID: strings.TrimSpace(id), Action: models.DecisionReject})
	}

	svc := root.NewService()
	if err := svc.Commit(context.Background(), root.SharedFlags.User, root.SharedFlags.Statement, decisions); err != nil {
		root.Log.Fatalf("Error committing statement: %v", err)
	}
	root.Log.Infof("Statement %s committed successfully!", root.SharedFlags.Statement)
}
