package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus is the lifecycle state of an uploaded statement.
// Transitions: ingesting -> parsed -> ingested, or ingesting -> failed.
// There is no transition back to parsed once ingested.
type StatementStatus string

const (
	StatementIngesting StatementStatus = "ingesting"
	StatementParsed    StatementStatus = "parsed"
	StatementIngested  StatementStatus = "ingested"
	StatementFailed    StatementStatus = "failed"
)

// PendingReview reports whether the statement is still awaiting the review
// and commit step. Both ingesting and parsed count as pending for external
// consumers.
func (s StatementStatus) PendingReview() bool {
	return s == StatementIngesting || s == StatementParsed
}

// Statement is one uploaded document and its derived metadata. It is the
// unit of whole-file deduplication (FileHash, scoped per user) and of
// lifecycle state.
type Statement struct {
	ID               string          `yaml:"id"`
	UploadedBy       string          `yaml:"uploaded_by"`
	SourceFileName   string          `yaml:"source_file_name"`
	FileHash         string          `yaml:"source_file_sha256"`
	Bank             string          `yaml:"bank,omitempty"`
	AccountName      string          `yaml:"account_name,omitempty"`
	PeriodStart      string          `yaml:"period_start"`
	PeriodEnd        string          `yaml:"period_end"`
	Currency         string          `yaml:"currency"`
	StatementType    StatementType   `yaml:"statement_type"`
	TransactionCount int             `yaml:"transaction_count"`
	Status           StatementStatus `yaml:"status"`
	CreatedAt        time.Time       `yaml:"created_at"`
}

// ImportResolution is the review outcome of one staged transaction import.
// Resolution is mutated exactly once, by the commit step.
type ImportResolution string

const (
	ImportPending  ImportResolution = "pending"
	ImportAccepted ImportResolution = "accepted"
	ImportRejected ImportResolution = "rejected"
)

// TransactionImport is a staged, not-yet-committed transaction candidate
// awaiting accept/reject resolution during review.
type TransactionImport struct {
	ID          string              `yaml:"id"`
	StatementID string              `yaml:"statement_id"`
	Identifier  string              `yaml:"transaction_identifier"`
	Date        string              `yaml:"date"`
	MonthBucket string              `yaml:"month_bucket"`
	Description string              `yaml:"description"`
	Amount      decimal.Decimal     `yaml:"amount"`
	Balance     decimal.NullDecimal `yaml:"balance,omitempty"`
	Resolution  ImportResolution    `yaml:"resolution"`
	// DraftDecision holds a transient "accept"/"reject" marker saved during
	// review, before the batch commit finalizes Resolution.
	DraftDecision string `yaml:"draft_decision,omitempty"`
	// ExistingTransactionID references a previously stored transaction when
	// this import was detected as a duplicate.
	ExistingTransactionID string    `yaml:"existing_transaction_id,omitempty"`
	CreatedAt             time.Time `yaml:"created_at"`
}

// Duplicate reports whether this import matched a previously stored
// transaction.
func (ti *TransactionImport) Duplicate() bool {
	return ti.ExistingTransactionID != ""
}

// Transaction is a committed, permanent transaction record.
type Transaction struct {
	ID          string              `yaml:"id" csv:"-"`
	UserID      string              `yaml:"user_id" csv:"-"`
	StatementID string              `yaml:"statement_id" csv:"-"`
	Identifier  string              `yaml:"transaction_identifier" csv:"Identifier"`
	Date        string              `yaml:"date" csv:"Date"`
	MonthBucket string              `yaml:"month_bucket" csv:"Month"`
	Description string              `yaml:"description" csv:"Description"`
	Amount      decimal.Decimal     `yaml:"amount" csv:"Amount"`
	Balance     decimal.NullDecimal `yaml:"balance,omitempty" csv:"Balance"`
	Currency    string              `yaml:"currency" csv:"Currency"`
	CreatedAt   time.Time           `yaml:"created_at" csv:"-"`
}

// DuplicatePair pairs a staged import with the stored transaction it
// collides with. Ephemeral: built for review, never persisted.
type DuplicatePair struct {
	ImportID string
	Existing Transaction
	New      TransactionImport
}

// ImportReview is the payload consumed by the review step: the statement,
// the imports with no identifier match, and the duplicate candidates.
type ImportReview struct {
	Statement       Statement
	NewTransactions []TransactionImport
	Duplicates      []DuplicatePair
}

// DecisionAction is an explicit reviewer override for one duplicate.
type DecisionAction string

const (
	DecisionAccept DecisionAction = "accept"
	DecisionReject DecisionAction = "reject"
)

// ImportDecision is one reviewer decision applied at commit time.
type ImportDecision struct {
	ImportID string
	Action   DecisionAction
}

// MonthSummary aggregates committed spend for one calendar month.
type MonthSummary struct {
	Month            string
	TotalSpent       decimal.Decimal
	TransactionCount int
	StatementCount   int
	Currency         string
}
