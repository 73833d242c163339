// Package tableparser turns raw per-page statement text into a consolidated
// transaction table. The pipeline is: classify the document layout, infer
// the default year, segment each page into rows, normalize rows per layout
// (bank statements keep withdrawals only, classified by running-balance
// deltas), sanitize descriptions and stamp each row with its deterministic
// identifier.
package tableparser

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"statement-ingest/internal/identifier"
	"statement-ingest/internal/logging"
	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
	"statement-ingest/internal/sanitize"
	"statement-ingest/internal/textutils"
)

var log = logging.GetLogger()

// SetLogger overrides the package logger.
func SetLogger(logger *logrus.Logger) {
	log = logger
}

// Options bound what the extractor accepts as tabular data.
type Options struct {
	// MinTextLength is the minimum total character count for a document to be
	// considered text-based. Scanned PDFs yield near-empty text.
	MinTextLength int
	// MinRowsPerTable is the minimum rows for a block to count as a table.
	MinRowsPerTable int
	// MaxDescriptionLength drops credit-card rows whose description ballooned
	// from mis-joined continuation lines.
	MaxDescriptionLength int
}

// DefaultOptions returns the thresholds used in production.
func DefaultOptions() Options {
	return Options{
		MinTextLength:        50,
		MinRowsPerTable:      2,
		MaxDescriptionLength: 150,
	}
}

// Extractor parses statement documents. Safe for concurrent use: all state
// lives in per-call segmenters.
type Extractor struct {
	patterns *textutils.Patterns
	opts     Options
	log      *logrus.Logger
	now      func() time.Time
}

// NewExtractor builds an Extractor. A nil patterns value selects
// textutils.DefaultPatterns.
func NewExtractor(patterns *textutils.Patterns, opts Options) *Extractor {
	if patterns == nil {
		patterns = textutils.DefaultPatterns()
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultOptions().MinTextLength
	}
	if opts.MinRowsPerTable <= 0 {
		opts.MinRowsPerTable = DefaultOptions().MinRowsPerTable
	}
	if opts.MaxDescriptionLength <= 0 {
		opts.MaxDescriptionLength = DefaultOptions().MaxDescriptionLength
	}
	return &Extractor{patterns: patterns, opts: opts, log: log, now: defaultNow}
}

var consolidatedHeaders = []string{"Date", "Description", "Amount", "Balance", "Identifier"}

// ExtractTables parses the document pages into a single consolidated table
// plus the derived statement metadata. It returns UnsupportedDocumentError
// when the document has too little text or no transaction rows survive
// filtering.
func (e *Extractor) ExtractTables(pages []models.PageText) (*models.ParsedTable, *models.StatementMetadata, error) {
	var builder strings.Builder
	for _, page := range pages {
		builder.WriteString(page.Text)
		builder.WriteString("\n")
	}
	docText := builder.String()

	if len(strings.TrimSpace(docText)) < e.opts.MinTextLength {
		return nil, nil, &parsererror.UnsupportedDocumentError{
			Reason: "document contains no extractable text; scanned or image-based statements are not supported",
		}
	}

	statementType := classifyStatement(docText)
	defaultYear := e.inferDefaultYear(docText)
	e.log.WithFields(logrus.Fields{
		logging.FieldType: string(statementType),
		logging.FieldYear: defaultYear,
	}).Info("Classified statement")

	var rows []bankRow
	for _, page := range pages {
		lines := strings.Split(page.Text, "\n")
		switch statementType {
		case models.StatementTypeCreditCard:
			seg := &creditCardSegmenter{extractor: e}
			seg.run(lines)
			if len(seg.rows) >= e.opts.MinRowsPerTable {
				rows = append(rows, seg.rows...)
			}
		default:
			seg := &bankSegmenter{extractor: e}
			seg.run(lines)
			for _, block := range seg.flushed {
				rows = append(rows, block...)
			}
		}
		e.log.WithFields(logrus.Fields{
			logging.FieldPage: page.Number,
			logging.FieldRows: len(rows),
		}).Debug("Segmented page")
	}

	var parsed []models.ParsedRow
	if statementType == models.StatementTypeCreditCard {
		parsed = e.filterCreditCardRows(rows)
	} else {
		parsed = e.filterWithdrawals(rows)
	}

	if len(parsed) == 0 {
		return nil, nil, &parsererror.UnsupportedDocumentError{}
	}

	// When the document reveals no year, day-and-month dates are resolved
	// against the current year.
	effectiveYear := defaultYear
	if effectiveYear == 0 {
		effectiveYear = e.now().Year()
	}
	parsed = e.appendIdentifiers(parsed, effectiveYear)
	if len(parsed) == 0 {
		return nil, nil, &parsererror.UnsupportedDocumentError{
			Reason: "no parseable transaction rows found",
		}
	}

	meta := &models.StatementMetadata{
		StatementType: statementType,
		DefaultYear:   defaultYear,
	}
	meta.PeriodStart, meta.PeriodEnd = periodBounds(parsed)

	table := &models.ParsedTable{
		Page:    1,
		Headers: consolidatedHeaders,
		Rows:    parsed,
	}
	e.log.WithField(logging.FieldRows, len(parsed)).Info("Extracted transaction table")
	return table, meta, nil
}

// filterWithdrawals normalizes segmented bank rows to spend transactions.
// Classification is by running-balance delta: a row whose balance dropped
// relative to the previous balance is a withdrawal and is kept; deposits are
// dropped. Rows with a balance but no amount only advance the tracker.
// Rows before the first known balance cannot be classified and are dropped.
func (e *Extractor) filterWithdrawals(rows []bankRow) []models.ParsedRow {
	var out []models.ParsedRow
	var previous *decimal.Decimal

	threshold := decimal.NewFromFloat(-0.001)

	for _, row := range rows {
		amount := models.ParseAmount(row.amount)
		balance, balanceErr := models.ParseAmountStrict(row.balance)

		if amount.IsZero() {
			if balanceErr == nil {
				b := balance
				previous = &b
			}
			continue
		}
		if balanceErr != nil {
			// An amount with no balance cannot be classified.
			continue
		}

		if previous != nil {
			diff := balance.Sub(*previous)
			if diff.LessThan(threshold) {
				out = append(out, models.ParsedRow{
					Date:        row.date,
					Description: sanitize.Description(row.description),
					Amount:      row.amount,
					Balance:     row.balance,
				})
			}
		}
		b := balance
		previous = &b
	}
	return out
}

// filterCreditCardRows drops malformed credit-card rows and sanitizes the
// survivors. Credit-card statements are spend-only already, so no balance
// classification applies.
func (e *Extractor) filterCreditCardRows(rows []bankRow) []models.ParsedRow {
	var out []models.ParsedRow
	for _, row := range rows {
		if !strings.ContainsAny(row.amount, "0123456789") {
			continue
		}
		if len(row.description) > e.opts.MaxDescriptionLength {
			e.log.WithField(logging.FieldReason, "description too long").
				Debug("Dropping credit-card row")
			continue
		}
		out = append(out, models.ParsedRow{
			Date:        row.date,
			Description: sanitize.Description(row.description),
			Amount:      row.amount,
		})
	}
	return out
}

// balanceFallback substitutes for a missing balance so the identifier stays
// well-formed on statements without running balances.
const balanceFallback = "0.00"

// appendIdentifiers stamps each row with its deterministic identifier.
// Statements without running balances use the balance fallback for the
// identifier while the row keeps its empty balance. Rows whose date or
// amounts cannot be normalized are logged and dropped.
func (e *Extractor) appendIdentifiers(rows []models.ParsedRow, defaultYear int) []models.ParsedRow {
	out := make([]models.ParsedRow, 0, len(rows))
	for _, row := range rows {
		balance := row.Balance
		if balance == "" {
			balance = balanceFallback
		}
		id, err := identifier.Generate(identifier.Input{
			Date:        row.Date,
			Amount:      row.Amount,
			Balance:     balance,
			Description: row.Description,
			DefaultYear: defaultYear,
		})
		if err != nil {
			e.log.WithError(err).WithField(logging.FieldReason, row.Date).
				Warn("Skipping row without a valid identifier")
			continue
		}
		row.Identifier = id
		out = append(out, row)
	}
	return out
}

// periodBounds derives the statement period from the normalized row dates.
// The identifier prefix is the YYYYMMDD date, so sorting identifiers sorts
// dates.
func periodBounds(rows []models.ParsedRow) (string, string) {
	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row.Identifier) >= 8 {
			dates = append(dates, row.Identifier[:8])
		}
	}
	if len(dates) == 0 {
		return "", ""
	}
	sort.Strings(dates)
	return isoDate(dates[0]), isoDate(dates[len(dates)-1])
}

func isoDate(date8 string) string {
	return date8[:4] + "-" + date8[4:6] + "-" + date8[6:8]
}
