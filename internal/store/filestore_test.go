package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func testStatement(id, userID string) *models.Statement {
	return &models.Statement{
		ID:             id,
		UploadedBy:     userID,
		SourceFileName: "statement.pdf",
		FileHash:       "hash-" + id,
		PeriodStart:    "2024-09-01",
		PeriodEnd:      "2024-09-30",
		Currency:       "SGD",
		StatementType:  models.StatementTypeBank,
		Status:         models.StatementIngesting,
		CreatedAt:      time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testImport(id, statementID, identifier string) models.TransactionImport {
	return models.TransactionImport{
		ID:          id,
		StatementID: statementID,
		Identifier:  identifier,
		Date:        "2024-09-02",
		MonthBucket: "2024-09",
		Description: "PAYMENT TO ACME LTD",
		Amount:      decimal.RequireFromString("100.00"),
		Balance:     decimal.NullDecimal{Decimal: decimal.RequireFromString("900.00"), Valid: true},
		Resolution:  models.ImportPending,
		CreatedAt:   time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStatementRoundTrip(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	stmt := testStatement("st-1", "alice")
	require.NoError(t, fs.CreateStatement(ctx, stmt))

	byHash, err := fs.StatementByFileHash(ctx, "alice", stmt.FileHash)
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, stmt.ID, byHash.ID)
	assert.Equal(t, models.StatementIngesting, byHash.Status)

	// Hash lookups are scoped per user.
	other, err := fs.StatementByFileHash(ctx, "bob", stmt.FileHash)
	require.NoError(t, err)
	assert.Nil(t, other)

	byID, err := fs.StatementByID(ctx, "alice", "st-1")
	require.NoError(t, err)
	assert.Equal(t, stmt.FileHash, byID.FileHash)

	_, err = fs.StatementByID(ctx, "alice", "missing")
	var notFound *parsererror.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateStatementRejectsDuplicateID(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateStatement(ctx, testStatement("st-1", "alice")))
	dup := testStatement("st-1", "alice")
	dup.FileHash = "hash-other"
	err := fs.CreateStatement(ctx, dup)
	require.Error(t, err)
}

func TestCreateStatementEnforcesFileHashUniqueness(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	first := testStatement("st-1", "alice")
	require.NoError(t, fs.CreateStatement(ctx, first))

	second := testStatement("st-2", "alice")
	second.FileHash = first.FileHash
	err := fs.CreateStatement(ctx, second)
	var already *AlreadyIngestedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "st-1", already.Existing.ID)

	statements, err := fs.ListStatements(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, statements, 1)

	// Another user may hold the same file hash.
	other := testStatement("st-3", "bob")
	other.FileHash = first.FileHash
	require.NoError(t, fs.CreateStatement(ctx, other))
}

func TestUpdateStatementStatus(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateStatement(ctx, testStatement("st-1", "alice")))
	require.NoError(t, fs.UpdateStatementStatus(ctx, "alice", "st-1", models.StatementParsed))

	stmt, err := fs.StatementByID(ctx, "alice", "st-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatementParsed, stmt.Status)

	err = fs.UpdateStatementStatus(ctx, "alice", "missing", models.StatementParsed)
	var notFound *parsererror.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestImportsRoundTripAndOrdering(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateStatement(ctx, testStatement("st-1", "alice")))
	imports := []models.TransactionImport{
		testImport("imp-b", "st-1", "20240904-50.00-2850.00-aaaaaaaa"),
		testImport("imp-a", "st-1", "20240902-100.00-900.00-bbbbbbbb"),
	}
	require.NoError(t, fs.CreateImports(ctx, "alice", imports))

	got, err := fs.ImportsByStatement(ctx, "alice", "st-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ordered by identifier, so the 02 SEP row comes first.
	assert.Equal(t, "imp-a", got[0].ID)
	assert.Equal(t, "imp-b", got[1].ID)

	// Decimals survive the string round trip.
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("100.00")))
	require.True(t, got[0].Balance.Valid)
	assert.True(t, got[0].Balance.Decimal.Equal(decimal.RequireFromString("900.00")))
}

func TestSaveDraftDecision(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateImports(ctx, "alice", []models.TransactionImport{
		testImport("imp-1", "st-1", "id-1"),
	}))
	require.NoError(t, fs.SaveDraftDecision(ctx, "alice", "imp-1", "reject"))

	got, err := fs.ImportsByStatement(ctx, "alice", "st-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "reject", got[0].DraftDecision)

	err = fs.SaveDraftDecision(ctx, "alice", "missing", "accept")
	var notFound *parsererror.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdateImportResolutionsIsAtomic(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateImports(ctx, "alice", []models.TransactionImport{
		testImport("imp-1", "st-1", "id-1"),
		testImport("imp-2", "st-1", "id-2"),
	}))

	// One unknown import ID fails the whole batch without applying anything.
	err := fs.UpdateImportResolutions(ctx, "alice", map[string]models.ImportResolution{
		"imp-1":   models.ImportAccepted,
		"missing": models.ImportRejected,
	})
	require.Error(t, err)

	got, err := fs.ImportsByStatement(ctx, "alice", "st-1")
	require.NoError(t, err)
	for _, imp := range got {
		assert.Equal(t, models.ImportPending, imp.Resolution)
	}

	require.NoError(t, fs.UpdateImportResolutions(ctx, "alice", map[string]models.ImportResolution{
		"imp-1": models.ImportAccepted,
		"imp-2": models.ImportRejected,
	}))
	got, err = fs.ImportsByStatement(ctx, "alice", "st-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImportAccepted, got[0].Resolution)
	assert.Equal(t, models.ImportRejected, got[1].Resolution)
}

func TestDeleteStatementCascadesImports(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateStatement(ctx, testStatement("st-1", "alice")))
	require.NoError(t, fs.CreateImports(ctx, "alice", []models.TransactionImport{
		testImport("imp-1", "st-1", "id-1"),
	}))

	require.NoError(t, fs.DeleteStatement(ctx, "alice", "st-1"))

	_, err := fs.StatementByID(ctx, "alice", "st-1")
	var notFound *parsererror.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	imports, err := fs.ImportsByStatement(ctx, "alice", "st-1")
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestTransactionsByIdentifiers(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	txns := []models.Transaction{
		{
			ID: "tx-1", UserID: "alice", StatementID: "st-1",
			Identifier: "id-1", Date: "2024-09-02", MonthBucket: "2024-09",
			Description: "PAYMENT", Amount: decimal.RequireFromString("100.00"),
			Currency: "SGD", CreatedAt: time.Now().UTC(),
		},
		{
			ID: "tx-2", UserID: "alice", StatementID: "st-1",
			Identifier: "id-2", Date: "2024-09-04", MonthBucket: "2024-09",
			Description: "GIRO", Amount: decimal.RequireFromString("50.00"),
			Currency: "SGD", CreatedAt: time.Now().UTC(),
		},
	}
	require.NoError(t, fs.InsertTransactions(ctx, "alice", txns))

	found, err := fs.TransactionsByIdentifiers(ctx, "alice", []string{"id-1", "id-3"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "tx-1", found["id-1"].ID)

	require.NoError(t, fs.DeleteTransactionsByStatement(ctx, "alice", "st-1"))
	found, err = fs.TransactionsByIdentifiers(ctx, "alice", []string{"id-1", "id-2"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListTransactions(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	txns := []models.Transaction{
		{ID: "tx-2", UserID: "alice", StatementID: "st-1",
			Identifier: "20240904-50.00-2850.00-aaaaaaaa", Date: "2024-09-04",
			MonthBucket: "2024-09", Description: "GIRO",
			Amount: decimal.RequireFromString("50.00"), Currency: "SGD"},
		{ID: "tx-1", UserID: "alice", StatementID: "st-1",
			Identifier: "20240902-100.00-900.00-bbbbbbbb", Date: "2024-09-02",
			MonthBucket: "2024-09", Description: "PAYMENT",
			Amount: decimal.RequireFromString("100.00"), Currency: "SGD"},
	}
	require.NoError(t, fs.InsertTransactions(ctx, "alice", txns))

	got, err := fs.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ordered by identifier, so the 02 SEP transaction comes first.
	assert.Equal(t, "tx-1", got[0].ID)
	assert.Equal(t, "tx-2", got[1].ID)

	other, err := fs.ListTransactions(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMonthSummaries(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	txns := []models.Transaction{
		{ID: "tx-1", UserID: "alice", StatementID: "st-1", Identifier: "id-1",
			MonthBucket: "2024-09", Amount: decimal.RequireFromString("100.00"), Currency: "SGD"},
		{ID: "tx-2", UserID: "alice", StatementID: "st-1", Identifier: "id-2",
			MonthBucket: "2024-09", Amount: decimal.RequireFromString("50.00"), Currency: "SGD"},
		{ID: "tx-3", UserID: "alice", StatementID: "st-2", Identifier: "id-3",
			MonthBucket: "2024-10", Amount: decimal.RequireFromString("25.00"), Currency: "SGD"},
	}
	require.NoError(t, fs.InsertTransactions(ctx, "alice", txns))

	summaries, err := fs.MonthSummaries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Newest month first.
	assert.Equal(t, "2024-10", summaries[0].Month)
	assert.Equal(t, 1, summaries[0].TransactionCount)

	assert.Equal(t, "2024-09", summaries[1].Month)
	assert.True(t, summaries[1].TotalSpent.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, 2, summaries[1].TransactionCount)
	assert.Equal(t, 1, summaries[1].StatementCount)
	assert.Equal(t, "SGD", summaries[1].Currency)
}

func TestLedgerFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.CreateStatement(ctx, testStatement("st-1", "alice")))

	// A fresh store over the same directory sees the same data.
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	stmt, err := reopened.StatementByID(ctx, "alice", "st-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-st-1", stmt.FileHash)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(entry.Name()))
	}
}
