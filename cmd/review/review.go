// Package review handles the import review command.
package review

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"statement-ingest/cmd/root"
	"statement-ingest/internal/models"
)

// Cmd represents the review command.
var Cmd = &cobra.Command{
	Use:   "review",
	Short: "Show staged imports and duplicate candidates for a statement",
	Run:   reviewFunc,
}

var (
	draftImportID string
	draftAction   string
)

func init() {
	Cmd.Flags().StringVar(&draftImportID, "decide", "", "Import ID to save a draft decision for")
	Cmd.Flags().StringVar(&draftAction, "action", "", "Draft decision: accept or reject")
}

func reviewFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Statement == "" {
		root.Log.Fatal("--statement is required")
	}
	svc := root.NewService()
	ctx := context.Background()

	if draftImportID != "" {
		if err := svc.SaveDraftDecision(ctx, root.SharedFlags.User, draftImportID, models.DecisionAction(draftAction)); err != nil {
			root.Log.Fatalf("Error saving draft decision: %v", err)
		}
		root.Log.Infof("Draft decision %q saved for import %s", draftAction, draftImportID)
		return
	}

	rev, err := svc.Review(ctx, root.SharedFlags.User, root.SharedFlags.Statement)
	if err != nil {
		root.Log.Fatalf("Error building review: %v", err)
	}

	fmt.Printf("Statement %s (%s, %s to %s) status=%s\n",
		rev.Statement.ID, rev.Statement.StatementType,
		rev.Statement.PeriodStart, rev.Statement.PeriodEnd, rev.Statement.Status)

	fmt.Printf("\nNew transactions (%d):\n", len(rev.NewTransactions))
	for _, imp := range rev.NewTransactions {
		fmt.Printf("  %s  %s  %10s  %s\n", imp.ID, imp.Date, imp.Amount.StringFixed(2), imp.Description)
	}

	fmt.Printf("\nDuplicates (%d):\n", len(rev.Duplicates))
	for _, dup := range rev.Duplicates {
		fmt.Printf("  %s  %s  %10s  %s\n", dup.ImportID, dup.New.Date, dup.New.Amount.StringFixed(2), dup.New.Description)
		fmt.Printf("    matches %s committed %s\n", dup.Existing.ID, dup.Existing.CreatedAt.Format("2006-01-02"))
	}
}
