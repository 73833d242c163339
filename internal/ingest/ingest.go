// Package ingest orchestrates the statement pipeline: whole-file
// deduplication, parsing, staging imports with duplicate detection, review
// and the all-or-nothing commit.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"statement-ingest/internal/identifier"
	"statement-ingest/internal/logging"
	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
	"statement-ingest/internal/pdftext"
	"statement-ingest/internal/store"
	"statement-ingest/internal/tableparser"
)

var log = logging.GetLogger()

// SetLogger overrides the package logger.
func SetLogger(logger *logrus.Logger) {
	log = logger
}

// Service wires the parser to the store. Construct with NewService.
type Service struct {
	store     store.Store
	extractor *tableparser.Extractor
	currency  string
	now       func() time.Time
	newID     func() string
}

// NewService builds a Service. currency is applied to committed
// transactions when the statement text does not reveal one.
func NewService(st store.Store, extractor *tableparser.Extractor, currency string) *Service {
	if extractor == nil {
		extractor = tableparser.NewExtractor(nil, tableparser.DefaultOptions())
	}
	return &Service{
		store:     st,
		extractor: extractor,
		currency:  currency,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// IngestInput is one uploaded statement. Raw is the original file bytes and
// is always hashed for whole-file deduplication. Pages may be pre-extracted;
// when nil, Raw is parsed as a PDF.
type IngestInput struct {
	UserID   string
	FileName string
	Raw      []byte
	Pages    []models.PageText
}

// IngestResult reports what one ingestion run produced.
type IngestResult struct {
	Statement *models.Statement
	// IsDuplicate is true when the exact file was ingested before; Statement
	// then points at the prior statement and nothing new was staged.
	IsDuplicate    bool
	NewCount       int
	DuplicateCount int
}

// Ingest runs the upload pipeline for one statement file. Re-uploading a
// byte-identical file is a no-op returning the prior statement. Any failure
// after the statement record is created rolls the whole statement back:
// ingestion never leaves partial imports behind.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	sum := sha256.Sum256(in.Raw)
	fileHash := hex.EncodeToString(sum[:])

	existing, err := s.store.StatementByFileHash(ctx, in.UserID, fileHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.WithFields(logrus.Fields{
			logging.FieldUserID:      in.UserID,
			logging.FieldStatementID: existing.ID,
			logging.FieldFile:        in.FileName,
		}).Info("File already ingested, skipping")
		return &IngestResult{Statement: existing, IsDuplicate: true}, nil
	}

	pages := in.Pages
	if pages == nil {
		pages, err = pdftext.ExtractBytes(in.Raw)
		if err != nil {
			return nil, err
		}
	}

	table, meta, err := s.extractor.ExtractTables(pages)
	if err != nil {
		return nil, err
	}

	stmt := &models.Statement{
		ID:               s.newID(),
		UploadedBy:       in.UserID,
		SourceFileName:   in.FileName,
		FileHash:         fileHash,
		Bank:             meta.Bank,
		AccountName:      meta.AccountName,
		PeriodStart:      meta.PeriodStart,
		PeriodEnd:        meta.PeriodEnd,
		Currency:         s.resolveCurrency(meta.Currency),
		StatementType:    meta.StatementType,
		TransactionCount: len(table.Rows),
		Status:           models.StatementIngesting,
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateStatement(ctx, stmt); err != nil {
		// A concurrent upload of the same file can win the race between the
		// hash lookup and the create; the store's uniqueness check catches it.
		var already *store.AlreadyIngestedError
		if errors.As(err, &already) {
			prior := already.Existing
			log.WithFields(logrus.Fields{
				logging.FieldUserID:      in.UserID,
				logging.FieldStatementID: prior.ID,
				logging.FieldFile:        in.FileName,
			}).Info("File already ingested, skipping")
			return &IngestResult{Statement: &prior, IsDuplicate: true}, nil
		}
		return nil, err
	}

	result, err := s.stageImports(ctx, stmt, table.Rows)
	if err != nil {
		s.rollback(ctx, in.UserID, stmt.ID)
		return nil, err
	}

	if err := s.store.UpdateStatementStatus(ctx, in.UserID, stmt.ID, models.StatementParsed); err != nil {
		s.rollback(ctx, in.UserID, stmt.ID)
		return nil, err
	}
	stmt.Status = models.StatementParsed

	log.WithFields(logrus.Fields{
		logging.FieldUserID:      in.UserID,
		logging.FieldStatementID: stmt.ID,
		logging.FieldCount:       result.NewCount,
	}).Info("Statement staged for review")
	result.Statement = stmt
	return result, nil
}

// stageImports converts parsed rows into staged imports, marking those whose
// identifier already exists among the user's committed transactions.
func (s *Service) stageImports(ctx context.Context, stmt *models.Statement, rows []models.ParsedRow) (*IngestResult, error) {
	identifiers := make([]string, 0, len(rows))
	for _, row := range rows {
		identifiers = append(identifiers, row.Identifier)
	}
	committed, err := s.store.TransactionsByIdentifiers(ctx, stmt.UploadedBy, identifiers)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	imports := make([]models.TransactionImport, 0, len(rows))
	for _, row := range rows {
		amount, err := models.ParseAmountStrict(row.Amount)
		if err != nil {
			log.WithError(err).WithField(logging.FieldIdentifier, row.Identifier).
				Warn("Skipping row with unparseable amount")
			continue
		}
		imp := models.TransactionImport{
			ID:          s.newID(),
			StatementID: stmt.ID,
			Identifier:  row.Identifier,
			Date:        isoFromIdentifier(row.Identifier),
			Description: row.Description,
			Amount:      amount,
			Resolution:  models.ImportPending,
			CreatedAt:   s.now(),
		}
		if row.Balance != "" {
			balance, err := models.ParseAmountStrict(row.Balance)
			if err == nil {
				imp.Balance = decimal.NullDecimal{Decimal: balance, Valid: true}
			}
		}
		if bucket, err := identifier.MonthBucket(row.Identifier[:8]); err == nil {
			imp.MonthBucket = bucket
		}
		if prior, ok := committed[row.Identifier]; ok {
			imp.ExistingTransactionID = prior.ID
			result.DuplicateCount++
		} else {
			result.NewCount++
		}
		imports = append(imports, imp)
	}

	if err := s.store.CreateImports(ctx, stmt.UploadedBy, imports); err != nil {
		return nil, err
	}
	return result, nil
}

// rollback removes the statement and its staged imports after a mid-pipeline
// failure. When the delete itself fails the statement is marked failed so it
// does not sit in the ingesting state forever. Rollback errors are logged,
// not returned: the original failure is the one the caller needs.
func (s *Service) rollback(ctx context.Context, userID, statementID string) {
	err := s.store.DeleteStatement(ctx, userID, statementID)
	if err == nil {
		return
	}
	log.WithError(err).WithField(logging.FieldStatementID, statementID).
		Error("Rollback delete failed, marking statement as failed")
	if err := s.store.UpdateStatementStatus(ctx, userID, statementID, models.StatementFailed); err != nil {
		log.WithError(err).WithField(logging.FieldStatementID, statementID).
			Error("Statement left in ingesting state")
	}
}

// Review assembles the reconciliation payload for one parsed statement:
// imports with no committed match, and duplicate pairs joining each colliding
// import with the stored transaction it matched.
func (s *Service) Review(ctx context.Context, userID, statementID string) (*models.ImportReview, error) {
	stmt, err := s.store.StatementByID(ctx, userID, statementID)
	if err != nil {
		return nil, err
	}
	imports, err := s.store.ImportsByStatement(ctx, userID, statementID)
	if err != nil {
		return nil, err
	}

	var duplicateIDs []string
	for _, imp := range imports {
		if imp.Duplicate() {
			duplicateIDs = append(duplicateIDs, imp.Identifier)
		}
	}
	committed, err := s.store.TransactionsByIdentifiers(ctx, userID, duplicateIDs)
	if err != nil {
		return nil, err
	}

	review := &models.ImportReview{Statement: *stmt}
	for _, imp := range imports {
		if !imp.Duplicate() {
			review.NewTransactions = append(review.NewTransactions, imp)
			continue
		}
		prior, ok := committed[imp.Identifier]
		if !ok {
			// The matched transaction disappeared since ingestion; treat the
			// import as new rather than showing a broken pair.
			review.NewTransactions = append(review.NewTransactions, imp)
			continue
		}
		review.Duplicates = append(review.Duplicates, models.DuplicatePair{
			ImportID: imp.ID,
			Existing: prior,
			New:      imp,
		})
	}
	return review, nil
}

// SaveDraftDecision stores a transient accept/reject marker on one staged
// import during review. Drafts inform the commit defaults but finalize
// nothing.
func (s *Service) SaveDraftDecision(ctx context.Context, userID, importID string, action models.DecisionAction) error {
	if action != models.DecisionAccept && action != models.DecisionReject {
		return fmt.Errorf("invalid decision action %q", action)
	}
	return s.store.SaveDraftDecision(ctx, userID, importID, string(action))
}

// Commit finalizes one statement's review. Defaults: imports without a
// committed match are accepted, duplicates are rejected; saved drafts and
// then explicit decisions override the defaults. Accepted imports become
// permanent transactions in one batch; on failure the inserted transactions
// are removed and the statement stays reviewable.
func (s *Service) Commit(ctx context.Context, userID, statementID string, decisions []models.ImportDecision) error {
	stmt, err := s.store.StatementByID(ctx, userID, statementID)
	if err != nil {
		return err
	}
	if stmt.Status == models.StatementIngested {
		return fmt.Errorf("statement %s is already ingested", statementID)
	}

	imports, err := s.store.ImportsByStatement(ctx, userID, statementID)
	if err != nil {
		return err
	}
	if len(imports) == 0 {
		return &parsererror.NotFoundError{Kind: "imports for statement", ID: statementID}
	}

	overrides := make(map[string]models.DecisionAction, len(decisions))
	for _, d := range decisions {
		if d.Action != models.DecisionAccept && d.Action != models.DecisionReject {
			return fmt.Errorf("invalid decision action %q for import %s", d.Action, d.ImportID)
		}
		overrides[d.ImportID] = d.Action
	}

	resolutions := make(map[string]models.ImportResolution, len(imports))
	var accepted []models.TransactionImport
	for _, imp := range imports {
		action := models.DecisionAccept
		if imp.Duplicate() {
			action = models.DecisionReject
		}
		if imp.DraftDecision != "" {
			action = models.DecisionAction(imp.DraftDecision)
		}
		if override, ok := overrides[imp.ID]; ok {
			action = override
		}
		if action == models.DecisionAccept {
			resolutions[imp.ID] = models.ImportAccepted
			accepted = append(accepted, imp)
		} else {
			resolutions[imp.ID] = models.ImportRejected
		}
	}

	txns := make([]models.Transaction, 0, len(accepted))
	for _, imp := range accepted {
		txns = append(txns, models.Transaction{
			ID:          s.newID(),
			UserID:      userID,
			StatementID: statementID,
			Identifier:  imp.Identifier,
			Date:        imp.Date,
			MonthBucket: imp.MonthBucket,
			Description: imp.Description,
			Amount:      imp.Amount,
			Balance:     imp.Balance,
			Currency:    stmt.Currency,
			CreatedAt:   s.now(),
		})
	}

	if err := s.store.InsertTransactions(ctx, userID, txns); err != nil {
		return &parsererror.PersistenceError{Op: "commit transactions", Err: err}
	}
	if err := s.store.UpdateImportResolutions(ctx, userID, resolutions); err != nil {
		if delErr := s.store.DeleteTransactionsByStatement(ctx, userID, statementID); delErr != nil {
			log.WithError(delErr).WithField(logging.FieldStatementID, statementID).
				Error("Commit rollback failed")
		}
		return &parsererror.PersistenceError{Op: "finalize resolutions", Err: err}
	}
	if err := s.store.UpdateStatementStatus(ctx, userID, statementID, models.StatementIngested); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		logging.FieldUserID:      userID,
		logging.FieldStatementID: statementID,
		logging.FieldCount:       len(accepted),
		logging.FieldStatus:      string(models.StatementIngested),
	}).Info("Statement committed")
	return nil
}

// MonthSummaries reports committed spend per month, newest first.
func (s *Service) MonthSummaries(ctx context.Context, userID string) ([]models.MonthSummary, error) {
	return s.store.MonthSummaries(ctx, userID)
}

// Transactions returns the user's committed transactions ordered by
// identifier.
func (s *Service) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

func (s *Service) resolveCurrency(detected string) string {
	if detected != "" {
		return detected
	}
	return s.currency
}

func isoFromIdentifier(id string) string {
	if len(id) < 8 {
		return ""
	}
	return id[:4] + "-" + id[4:6] + "-" + id[6:8]
}
