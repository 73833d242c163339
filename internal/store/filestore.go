package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"statement-ingest/internal/logging"
	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
)

var log = logging.GetLogger()

// SetLogger overrides the package logger.
func SetLogger(logger *logrus.Logger) {
	log = logger
}

// FileStore keeps each user's ledger in one YAML file under the data
// directory. Every mutation rewrites the whole file via a temp-file rename,
// so a crash mid-write never leaves a truncated ledger behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// ledger is the on-disk shape of one user's data. Money is stored as
// two-decimal strings; decimals are converted at this boundary.
type ledger struct {
	Statements   []models.Statement  `yaml:"statements,omitempty"`
	Imports      []importRecord      `yaml:"imports,omitempty"`
	Transactions []transactionRecord `yaml:"transactions,omitempty"`
}

type importRecord struct {
	ID                    string    `yaml:"id"`
	StatementID           string    `yaml:"statement_id"`
	Identifier            string    `yaml:"transaction_identifier"`
	Date                  string    `yaml:"date"`
	MonthBucket           string    `yaml:"month_bucket"`
	Description           string    `yaml:"description"`
	Amount                string    `yaml:"amount"`
	Balance               string    `yaml:"balance,omitempty"`
	Resolution            string    `yaml:"resolution"`
	DraftDecision         string    `yaml:"draft_decision,omitempty"`
	ExistingTransactionID string    `yaml:"existing_transaction_id,omitempty"`
	CreatedAt             time.Time `yaml:"created_at"`
}

type transactionRecord struct {
	ID          string    `yaml:"id"`
	UserID      string    `yaml:"user_id"`
	StatementID string    `yaml:"statement_id"`
	Identifier  string    `yaml:"transaction_identifier"`
	Date        string    `yaml:"date"`
	MonthBucket string    `yaml:"month_bucket"`
	Description string    `yaml:"description"`
	Amount      string    `yaml:"amount"`
	Balance     string    `yaml:"balance,omitempty"`
	Currency    string    `yaml:"currency"`
	CreatedAt   time.Time `yaml:"created_at"`
}

func toImportRecord(ti models.TransactionImport) importRecord {
	rec := importRecord{
		ID:                    ti.ID,
		StatementID:           ti.StatementID,
		Identifier:            ti.Identifier,
		Date:                  ti.Date,
		MonthBucket:           ti.MonthBucket,
		Description:           ti.Description,
		Amount:                ti.Amount.StringFixed(2),
		Resolution:            string(ti.Resolution),
		DraftDecision:         ti.DraftDecision,
		ExistingTransactionID: ti.ExistingTransactionID,
		CreatedAt:             ti.CreatedAt,
	}
	if ti.Balance.Valid {
		rec.Balance = ti.Balance.Decimal.StringFixed(2)
	}
	return rec
}

func (rec importRecord) toModel() models.TransactionImport {
	return models.TransactionImport{
		ID:                    rec.ID,
		StatementID:           rec.StatementID,
		Identifier:            rec.Identifier,
		Date:                  rec.Date,
		MonthBucket:           rec.MonthBucket,
		Description:           rec.Description,
		Amount:                parseStoredAmount(rec.Amount),
		Balance:               parseStoredBalance(rec.Balance),
		Resolution:            models.ImportResolution(rec.Resolution),
		DraftDecision:         rec.DraftDecision,
		ExistingTransactionID: rec.ExistingTransactionID,
		CreatedAt:             rec.CreatedAt,
	}
}

func toTransactionRecord(t models.Transaction) transactionRecord {
	rec := transactionRecord{
		ID:          t.ID,
		UserID:      t.UserID,
		StatementID: t.StatementID,
		Identifier:  t.Identifier,
		Date:        t.Date,
		MonthBucket: t.MonthBucket,
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Currency:    t.Currency,
		CreatedAt:   t.CreatedAt,
	}
	if t.Balance.Valid {
		rec.Balance = t.Balance.Decimal.StringFixed(2)
	}
	return rec
}

func (rec transactionRecord) toModel() models.Transaction {
	return models.Transaction{
		ID:          rec.ID,
		UserID:      rec.UserID,
		StatementID: rec.StatementID,
		Identifier:  rec.Identifier,
		Date:        rec.Date,
		MonthBucket: rec.MonthBucket,
		Description: rec.Description,
		Amount:      parseStoredAmount(rec.Amount),
		Balance:     parseStoredBalance(rec.Balance),
		Currency:    rec.Currency,
		CreatedAt:   rec.CreatedAt,
	}
}

func parseStoredAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.WithField(logging.FieldReason, s).Warn("Corrupt amount in ledger, using zero")
		return decimal.Zero
	}
	return d
}

func parseStoredBalance(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: parseStoredAmount(s), Valid: true}
}

func (fs *FileStore) ledgerPath(userID string) string {
	return filepath.Join(fs.dir, userID+".yaml")
}

func (fs *FileStore) load(userID string) (*ledger, error) {
	data, err := os.ReadFile(fs.ledgerPath(userID))
	if os.IsNotExist(err) {
		return &ledger{}, nil
	}
	if err != nil {
		return nil, &parsererror.PersistenceError{Op: "read ledger", Err: err}
	}
	var l ledger
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, &parsererror.PersistenceError{Op: "decode ledger", Err: err}
	}
	return &l, nil
}

func (fs *FileStore) save(userID string, l *ledger) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return &parsererror.PersistenceError{Op: "encode ledger", Err: err}
	}
	path := fs.ledgerPath(userID)
	tmp, err := os.CreateTemp(fs.dir, userID+"-*.tmp")
	if err != nil {
		return &parsererror.PersistenceError{Op: "write ledger", Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &parsererror.PersistenceError{Op: "write ledger", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &parsererror.PersistenceError{Op: "write ledger", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &parsererror.PersistenceError{Op: "write ledger", Err: err}
	}
	return nil
}

// update runs fn against the user's ledger under the store lock and writes
// the result back. fn returning an error aborts without writing.
func (fs *FileStore) update(ctx context.Context, userID string, fn func(*ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l, err := fs.load(userID)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return fs.save(userID, l)
}

func (fs *FileStore) read(ctx context.Context, userID string) (*ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.load(userID)
}

func (fs *FileStore) StatementByFileHash(ctx context.Context, userID, fileHash string) (*models.Statement, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range l.Statements {
		if l.Statements[i].FileHash == fileHash {
			stmt := l.Statements[i]
			return &stmt, nil
		}
	}
	return nil, nil
}

func (fs *FileStore) StatementByID(ctx context.Context, userID, statementID string) (*models.Statement, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range l.Statements {
		if l.Statements[i].ID == statementID {
			stmt := l.Statements[i]
			return &stmt, nil
		}
	}
	return nil, &parsererror.NotFoundError{Kind: "statement", ID: statementID}
}

func (fs *FileStore) CreateStatement(ctx context.Context, stmt *models.Statement) error {
	return fs.update(ctx, stmt.UploadedBy, func(l *ledger) error {
		for i := range l.Statements {
			// The file-hash check runs under the store lock, so two racing
			// uploads of the same file cannot both create a statement.
			if l.Statements[i].FileHash == stmt.FileHash {
				return &AlreadyIngestedError{Existing: l.Statements[i]}
			}
			if l.Statements[i].ID == stmt.ID {
				return &parsererror.PersistenceError{
					Op:  "create statement",
					Err: fmt.Errorf("statement %s already exists", stmt.ID),
				}
			}
		}
		l.Statements = append(l.Statements, *stmt)
		return nil
	})
}

func (fs *FileStore) UpdateStatementStatus(ctx context.Context, userID, statementID string, status models.StatementStatus) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		for i := range l.Statements {
			if l.Statements[i].ID == statementID {
				l.Statements[i].Status = status
				return nil
			}
		}
		return &parsererror.NotFoundError{Kind: "statement", ID: statementID}
	})
}

func (fs *FileStore) DeleteStatement(ctx context.Context, userID, statementID string) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		statements := l.Statements[:0]
		for _, stmt := range l.Statements {
			if stmt.ID != statementID {
				statements = append(statements, stmt)
			}
		}
		l.Statements = statements

		imports := l.Imports[:0]
		for _, imp := range l.Imports {
			if imp.StatementID != statementID {
				imports = append(imports, imp)
			}
		}
		l.Imports = imports
		return nil
	})
}

func (fs *FileStore) ListStatements(ctx context.Context, userID string) ([]models.Statement, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	statements := append([]models.Statement(nil), l.Statements...)
	sort.Slice(statements, func(i, j int) bool {
		if !statements[i].CreatedAt.Equal(statements[j].CreatedAt) {
			return statements[i].CreatedAt.After(statements[j].CreatedAt)
		}
		return statements[i].ID < statements[j].ID
	})
	return statements, nil
}

func (fs *FileStore) CreateImports(ctx context.Context, userID string, imports []models.TransactionImport) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		for _, imp := range imports {
			l.Imports = append(l.Imports, toImportRecord(imp))
		}
		return nil
	})
}

func (fs *FileStore) ImportsByStatement(ctx context.Context, userID, statementID string) ([]models.TransactionImport, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	var imports []models.TransactionImport
	for _, rec := range l.Imports {
		if rec.StatementID == statementID {
			imports = append(imports, rec.toModel())
		}
	}
	sort.Slice(imports, func(i, j int) bool {
		if imports[i].Identifier != imports[j].Identifier {
			return imports[i].Identifier < imports[j].Identifier
		}
		return imports[i].ID < imports[j].ID
	})
	return imports, nil
}

func (fs *FileStore) SaveDraftDecision(ctx context.Context, userID, importID, decision string) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		for i := range l.Imports {
			if l.Imports[i].ID == importID {
				l.Imports[i].DraftDecision = decision
				return nil
			}
		}
		return &parsererror.NotFoundError{Kind: "import", ID: importID}
	})
}

func (fs *FileStore) UpdateImportResolutions(ctx context.Context, userID string, resolutions map[string]models.ImportResolution) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		indexByID := make(map[string]int, len(l.Imports))
		for i := range l.Imports {
			indexByID[l.Imports[i].ID] = i
		}
		for importID := range resolutions {
			if _, ok := indexByID[importID]; !ok {
				return &parsererror.NotFoundError{Kind: "import", ID: importID}
			}
		}
		for importID, resolution := range resolutions {
			l.Imports[indexByID[importID]].Resolution = string(resolution)
		}
		return nil
	})
}

func (fs *FileStore) TransactionsByIdentifiers(ctx context.Context, userID string, identifiers []string) (map[string]models.Transaction, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = true
	}
	found := make(map[string]models.Transaction)
	for _, rec := range l.Transactions {
		if wanted[rec.Identifier] {
			found[rec.Identifier] = rec.toModel()
		}
	}
	return found, nil
}

func (fs *FileStore) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns := make([]models.Transaction, 0, len(l.Transactions))
	for _, rec := range l.Transactions {
		txns = append(txns, rec.toModel())
	}
	sort.Slice(txns, func(i, j int) bool {
		if txns[i].Identifier != txns[j].Identifier {
			return txns[i].Identifier < txns[j].Identifier
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

func (fs *FileStore) InsertTransactions(ctx context.Context, userID string, txns []models.Transaction) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		for _, t := range txns {
			l.Transactions = append(l.Transactions, toTransactionRecord(t))
		}
		return nil
	})
}

func (fs *FileStore) DeleteTransactionsByStatement(ctx context.Context, userID, statementID string) error {
	return fs.update(ctx, userID, func(l *ledger) error {
		txns := l.Transactions[:0]
		for _, t := range l.Transactions {
			if t.StatementID != statementID {
				txns = append(txns, t)
			}
		}
		l.Transactions = txns
		return nil
	})
}

func (fs *FileStore) MonthSummaries(ctx context.Context, userID string) ([]models.MonthSummary, error) {
	l, err := fs.read(ctx, userID)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		total      decimal.Decimal
		count      int
		statements map[string]bool
		currency   string
	}
	buckets := make(map[string]*bucket)
	for _, rec := range l.Transactions {
		b := buckets[rec.MonthBucket]
		if b == nil {
			b = &bucket{statements: make(map[string]bool)}
			buckets[rec.MonthBucket] = b
		}
		b.total = b.total.Add(parseStoredAmount(rec.Amount))
		b.count++
		b.statements[rec.StatementID] = true
		if b.currency == "" {
			b.currency = rec.Currency
		}
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	summaries := make([]models.MonthSummary, 0, len(months))
	for _, month := range months {
		b := buckets[month]
		summaries = append(summaries, models.MonthSummary{
			Month:            month,
			TotalSpent:       b.total,
			TransactionCount: b.count,
			StatementCount:   len(b.statements),
			Currency:         b.currency,
		})
	}
	return summaries, nil
}
