// Package models provides the data structures shared across the parsing and
// ingestion pipeline.
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PageText is the raw line-delimited text of a single statement page as
// produced by the text-extraction boundary. Pages are 1-indexed.
type PageText struct {
	Number int
	Text   string
}

// ParsedRow is one normalized transaction row produced by the segmenter.
// Amounts and balances are kept as the raw decimal strings found in the
// source text (commas preserved); Balance is empty when the statement does
// not carry a running balance.
type ParsedRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Balance     string `csv:"Balance"`
	Identifier  string `csv:"Identifier"`
}

// ParsedTable is the consolidated table returned by the extractor.
// After consolidation Page is 1 and the table spans the whole document.
type ParsedTable struct {
	Page    int
	Headers []string
	Rows    []ParsedRow
}

// StatementType is the layout archetype detected for a document.
type StatementType string

const (
	StatementTypeBank       StatementType = "bank"
	StatementTypeCreditCard StatementType = "credit_card"
	StatementTypeUnknown    StatementType = "unknown"
)

// StatementMetadata is derived once per document and consumed read-only by
// the identifier generator (year disambiguation) and the ingestion boundary.
type StatementMetadata struct {
	PeriodStart   string
	PeriodEnd     string
	Bank          string
	AccountName   string
	Currency      string
	StatementType StatementType
	// DefaultYear is the inferred statement year, or 0 when no year could be
	// inferred from the document text.
	DefaultYear int
}

// ParseAmount converts a raw amount string to a decimal, stripping thousand
// separators and whitespace. Returns decimal.Zero when the string does not
// parse; callers that need to distinguish use ParseAmountStrict.
func ParseAmount(amountStr string) decimal.Decimal {
	d, err := ParseAmountStrict(amountStr)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict converts a raw amount string to a decimal, stripping
// thousand separators and whitespace, and reports parse failures.
func ParseAmountStrict(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountStr)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	return decimal.NewFromString(cleaned)
}
