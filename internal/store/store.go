// Package store persists statements, staged imports and committed
// transactions. All operations are scoped to one user: a user can never see
// or collide with another user's data.
package store

import (
	"context"
	"fmt"

	"statement-ingest/internal/models"
)

// AlreadyIngestedError is returned by CreateStatement when the user already
// has a statement for the same source file hash. Existing is that prior
// statement.
type AlreadyIngestedError struct {
	Existing models.Statement
}

func (e *AlreadyIngestedError) Error() string {
	return fmt.Sprintf("file already ingested as statement %s", e.Existing.ID)
}

// Store is the persistence boundary consumed by the ingestion service.
// Lookup methods return (nil, nil) when the record does not exist, except
// where a NotFoundError is documented.
type Store interface {
	// StatementByFileHash finds the user's statement with the given source
	// file SHA-256, if any.
	StatementByFileHash(ctx context.Context, userID, fileHash string) (*models.Statement, error)
	// StatementByID returns the statement or a NotFoundError.
	StatementByID(ctx context.Context, userID, statementID string) (*models.Statement, error)
	// CreateStatement enforces (user, file hash) uniqueness: when the user
	// already has a statement for the same FileHash it returns an
	// AlreadyIngestedError carrying that statement, so racing uploads of
	// one file collapse onto a single statement.
	CreateStatement(ctx context.Context, stmt *models.Statement) error
	UpdateStatementStatus(ctx context.Context, userID, statementID string, status models.StatementStatus) error
	// DeleteStatement removes the statement and cascades to its staged
	// imports. Committed transactions are not touched.
	DeleteStatement(ctx context.Context, userID, statementID string) error
	ListStatements(ctx context.Context, userID string) ([]models.Statement, error)

	CreateImports(ctx context.Context, userID string, imports []models.TransactionImport) error
	// ImportsByStatement returns the statement's staged imports ordered by
	// identifier, ties broken by import ID.
	ImportsByStatement(ctx context.Context, userID, statementID string) ([]models.TransactionImport, error)
	SaveDraftDecision(ctx context.Context, userID, importID, decision string) error
	// UpdateImportResolutions applies all resolutions atomically.
	UpdateImportResolutions(ctx context.Context, userID string, resolutions map[string]models.ImportResolution) error

	// TransactionsByIdentifiers returns the user's committed transactions
	// keyed by identifier, restricted to the given identifiers.
	TransactionsByIdentifiers(ctx context.Context, userID string, identifiers []string) (map[string]models.Transaction, error)
	// ListTransactions returns all of the user's committed transactions
	// ordered by identifier, ties broken by transaction ID.
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	InsertTransactions(ctx context.Context, userID string, txns []models.Transaction) error
	// DeleteTransactionsByStatement removes transactions committed from one
	// statement. Used only by ingestion rollback.
	DeleteTransactionsByStatement(ctx context.Context, userID, statementID string) error
	// MonthSummaries aggregates committed spend per calendar month, newest
	// month first.
	MonthSummaries(ctx context.Context, userID string) ([]models.MonthSummary, error)
}
