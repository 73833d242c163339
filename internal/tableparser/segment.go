package tableparser

import (
	"regexp"
	"strings"

	"statement-ingest/internal/logging"
	"statement-ingest/internal/textutils"
)

// bankRow is one segmented bank-statement row before balance-delta
// classification. amount and balance hold the raw amount strings from the
// source text; either may be empty.
type bankRow struct {
	date        string
	description string
	amount      string
	balance     string
}

var balanceBroughtForward = regexp.MustCompile(`(?i)\bbalance\s*b/?f\b`)

// bankSegmenter accumulates multi-line transactions on one page. A block is
// a run of rows between blank-line or summary boundaries; blocks with fewer
// rows than minRows are discarded as non-tabular noise.
type bankSegmenter struct {
	extractor *Extractor

	columns []ColumnInfo
	current []string
	block   []bankRow
	flushed [][]bankRow
}

func (s *bankSegmenter) run(lines []string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if len(s.block) >= s.extractor.opts.MinRowsPerTable && len(s.current) == 0 {
				s.flushBlock()
			}
			continue
		}

		if s.extractor.patterns.IsSummaryOrEndLine(trimmed) {
			s.flushTransaction()
			s.flushBlock()
			continue
		}

		if s.extractor.patterns.IsNonTransactionLine(trimmed) {
			s.flushTransaction()
			continue
		}

		// A header may also appear mid-page when a second table starts; its
		// column positions replace the previous table's from here on.
		if s.extractor.patterns.IsHeaderLine(trimmed) {
			s.flushTransaction()
			s.columns = extractHeaderColumns(line)
			continue
		}

		if s.extractor.patterns.StartsWithDate(trimmed) {
			s.flushTransaction()
			s.current = []string{line}
			continue
		}

		if len(s.current) > 0 {
			s.current = append(s.current, line)
			continue
		}

		// Dateless rows are usually noise, but a Balance B/F line must still
		// seed the running balance for the withdrawal classifier.
		if balanceBroughtForward.MatchString(trimmed) {
			if amounts := textutils.ExtractAmounts(trimmed); len(amounts) == 1 {
				s.block = append(s.block, bankRow{
					description: textutils.StripAmounts(trimmed),
					balance:     amounts[0],
				})
			}
		}
	}

	s.flushTransaction()
	s.flushBlock()
}

// flushTransaction parses the accumulated lines into one row and appends it
// to the current block.
func (s *bankSegmenter) flushTransaction() {
	if len(s.current) == 0 {
		return
	}
	lines := s.current
	s.current = nil

	if len(s.columns) > 0 {
		if row, ok := s.extractor.parseWithColumns(lines, s.columns); ok {
			s.block = append(s.block, row)
			return
		}
	}
	if row, ok := s.extractor.parseMultiLine(lines); ok {
		s.block = append(s.block, row)
	}
}

// flushBlock promotes the current block when it holds enough rows to count
// as tabular data. Column positions do not survive the block boundary.
func (s *bankSegmenter) flushBlock() {
	if len(s.block) >= s.extractor.opts.MinRowsPerTable {
		s.flushed = append(s.flushed, s.block)
	} else if len(s.block) > 0 {
		s.extractor.log.WithField(logging.FieldRows, len(s.block)).
			Debug("Discarding undersized block")
	}
	s.block = nil
	s.columns = nil
}

// parseMultiLine is the generic fallback when no header columns are known.
// Amount assignment is positional: a single amount is the balance on a
// Balance B/F row and the transaction amount otherwise; with two or more,
// the first is the amount and the last the balance.
func (e *Extractor) parseMultiLine(lines []string) (bankRow, bool) {
	if len(lines) == 0 {
		return bankRow{}, false
	}
	date, ok := e.patterns.ExtractDate(lines[0])
	if !ok {
		return bankRow{}, false
	}

	var amounts []string
	var descParts []string
	for i, line := range lines {
		amounts = append(amounts, textutils.ExtractAmounts(line)...)
		text := textutils.StripAmounts(line)
		if i == 0 {
			text = strings.TrimSpace(strings.Replace(text, date, "", 1))
		}
		if text != "" {
			descParts = append(descParts, text)
		}
	}
	description := strings.TrimSpace(strings.Join(descParts, " "))

	row := bankRow{date: date, description: description}
	switch len(amounts) {
	case 0:
		return bankRow{}, false
	case 1:
		if balanceBroughtForward.MatchString(description) {
			row.balance = amounts[0]
		} else {
			row.amount = amounts[0]
		}
	default:
		row.amount = amounts[0]
		row.balance = amounts[len(amounts)-1]
	}
	return row, true
}

// creditCardSegmenter accumulates single transactions on one credit-card
// page. Credit-card layouts have no running balance: each transaction is a
// date, a description possibly wrapping over several lines, and one amount
// in the rightmost column.
type creditCardSegmenter struct {
	extractor *Extractor

	date      string
	descParts []string
	amount    string
	active    bool
	rows      []bankRow
}

func (s *creditCardSegmenter) run(lines []string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if s.extractor.patterns.IsSummaryOrEndLine(trimmed) || s.extractor.patterns.IsNonTransactionLine(trimmed) {
			s.flush()
			continue
		}

		if s.extractor.patterns.StartsWithDate(trimmed) {
			s.flush()
			s.start(line, trimmed)
			continue
		}

		if s.active {
			s.continuation(line, trimmed)
		}
	}
	s.flush()
}

func (s *creditCardSegmenter) start(line, trimmed string) {
	date, _ := s.extractor.patterns.ExtractDate(trimmed)
	s.date = date
	s.active = true
	s.amount = ""
	s.descParts = nil

	rest := strings.TrimSpace(strings.Replace(trimmed, date, "", 1))
	if amount, ok := textutils.ExtractColumnAmount(line); ok {
		s.amount = amount
		rest = textutils.StripAmounts(rest)
	}
	if rest != "" {
		s.descParts = append(s.descParts, rest)
	}
}

// continuation handles wrapped description lines. A continuation may carry
// the amount when the first line did not: either as a bare amount on its own
// line or as a trailing column amount. Lines mentioning a foreign currency
// never contribute an amount, since those are conversion annotations.
func (s *creditCardSegmenter) continuation(line, trimmed string) {
	if s.amount == "" && !textutils.ContainsForeignCurrency(trimmed) {
		if textutils.IsBareAmount(trimmed) {
			s.amount = strings.TrimSpace(trimmed)
			return
		}
		if amount, ok := textutils.ExtractColumnAmount(line); ok {
			s.amount = amount
			if text := textutils.StripAmounts(trimmed); text != "" {
				s.descParts = append(s.descParts, text)
			}
			return
		}
	}
	if text := textutils.StripAmounts(trimmed); text != "" {
		s.descParts = append(s.descParts, text)
	}
}

func (s *creditCardSegmenter) flush() {
	if !s.active {
		return
	}
	s.active = false

	description := strings.TrimSpace(strings.Join(s.descParts, " "))

	// Last resort: an amount that evaded column detection may survive inside
	// the raw first-line text. Accept it only when it is unambiguous.
	if s.amount == "" {
		if amounts := textutils.ExtractAmounts(description); len(amounts) == 1 {
			s.amount = amounts[0]
			description = textutils.StripAmounts(description)
		}
	}

	if s.amount == "" || description == "" || s.extractor.patterns.IsNonTransactionLine(description) {
		s.extractor.log.WithField(logging.FieldReason, "unresolved amount or description").
			Debug("Dropping credit-card block")
		s.reset()
		return
	}

	s.rows = append(s.rows, bankRow{
		date:        s.date,
		description: description,
		amount:      s.amount,
	})
	s.reset()
}

func (s *creditCardSegmenter) reset() {
	s.date = ""
	s.descParts = nil
	s.amount = ""
}
