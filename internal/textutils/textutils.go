// Package textutils provides the per-line predicates that decide whether a
// raw statement line is a header, a summary/terminator, boilerplate noise,
// or the start of a transaction. The predicates are driven by an explicit
// Patterns value rather than package globals so bank-specific pattern sets
// can be configured and tested in isolation.
package textutils

import (
	"regexp"
	"strings"
)

// Patterns is the immutable regex configuration consumed by the line
// classifier. Build one with DefaultPatterns and treat it as read-only.
type Patterns struct {
	// Date patterns that start a new transaction when matched at the
	// beginning of a trimmed line. Order matters: the first match wins.
	Date []*regexp.Regexp
	// Summary patterns terminate the current block without consuming the
	// line as data.
	Summary []*regexp.Regexp
	// SummaryGuarded are summary patterns with an exception: the line is a
	// summary only when Match hits and Unless does not. RE2 has no
	// lookahead, so exceptions are explicit pairs.
	SummaryGuarded []GuardedPattern
	// Skip patterns mark preamble/boilerplate lines that are consumed and
	// dropped, flushing any in-progress transaction first.
	Skip []*regexp.Regexp
	// HeaderKeywords must match the first cell of a header line.
	HeaderKeywords *regexp.Regexp
}

// DefaultPatterns returns the pattern set observed across the supported
// bank and credit-card statement archetypes.
func DefaultPatterns() *Patterns {
	return &Patterns{
		Date: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\d{1,2}\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\b`), // "29 AUG"
			regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}`),                                           // "05/09/2024" or "05/09/24"
			regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{2,4}`),                                           // "05-09-2024"
			regexp.MustCompile(`^\d{1,2}\s+[A-Za-z]{3}\s+\d{2,4}`),                                   // "05 Sep 2024"
		},
		Summary: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*total\b`),
			regexp.MustCompile(`(?i)\btotal\s*$`),
			regexp.MustCompile(`(?i)^-+\s*total\b`),
			regexp.MustCompile(`(?i)\bend\s+of\s+transaction`),
			regexp.MustCompile(`(?i)\btotal\s+balance\b`),
			regexp.MustCompile(`(?i)\bbalance\s+carried\s+forward\b`),
			regexp.MustCompile(`(?i)\bbalance\s+b/?f\b.*total`),
			regexp.MustCompile(`(?i)\binterest\s+credit\s+total\b`),
			regexp.MustCompile(`(?i)\binterest\s+earned\b`),
			regexp.MustCompile(`^-{3,}`),
		},
		SummaryGuarded: []GuardedPattern{
			// "Interest Credit" summary rows, but not FAST inward-credit
			// transaction descriptions.
			{
				Match:  regexp.MustCompile(`(?i)\binterest\s+credit\b`),
				Unless: regexp.MustCompile(`(?i)fast`),
			},
		},
		Skip: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bprevious\s+balance\b`),
			regexp.MustCompile(`(?i)\bnew\s+transactions\b`),
			regexp.MustCompile(`(?i)\bstatement\s+date\b`),
			regexp.MustCompile(`(?i)\bcredit\s+limit\b`),
			regexp.MustCompile(`(?i)\bminimum\s+payment\b`),
			regexp.MustCompile(`(?i)\bpayment\s+due\b`),
			regexp.MustCompile(`(?i)\bplease\s+settle\b`),
			regexp.MustCompile(`(?i)\bplease\s+refer\b`),
			regexp.MustCompile(`(?i)\bfinance\s+charge\b`),
			regexp.MustCompile(`(?i)\btax\s+invoice\b`),
			regexp.MustCompile(`(?i)\bgst\s+registration\b`),
			regexp.MustCompile(`(?i)\bco\.\s*reg\b`),
			regexp.MustCompile(`(?i)\bcard\s+no\.?\s*:`),
			regexp.MustCompile(`(?i)\bsignature\s+card\s+no`),
			regexp.MustCompile(`(?i)\bvisa\s+signature\s+card`),
			regexp.MustCompile(`\b\d{4}\s+\d{4}\s+\d{4}\s+\d{4}\b`), // embedded card numbers
			regexp.MustCompile(`(?i)\d+\.\d{2}\s+CR\s*$`),           // payment credits ("123.45 CR")
			regexp.MustCompile(`(?i)per\s+annum\b`),
			regexp.MustCompile(`(?i)late\s+payment\s+charge\b`),
			regexp.MustCompile(`\$\s*\$`),
			regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*\.\d{2}`), // dollar-sign amounts only appear in preamble
			regexp.MustCompile(`(?i)ref\s*no\s*:`),
		},
		HeaderKeywords: regexp.MustCompile(`(?i)^(date|description|withdrawal|deposit|balance|amount|debit|credit|transaction|particulars|reference)`),
	}
}

// StartsWithDate reports whether the trimmed line begins with one of the
// configured date shapes, marking the start of a new transaction block.
func (p *Patterns) StartsWithDate(line string) bool {
	_, ok := p.ExtractDate(line)
	return ok
}

// ExtractDate returns the date prefix of the line, if any. The first
// matching pattern wins.
func (p *Patterns) ExtractDate(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, pattern := range p.Date {
		if m := pattern.FindString(trimmed); m != "" {
			return m, true
		}
	}
	return "", false
}

// IsHeaderLine reports whether the line looks like a column header row:
// at least two cells separated by runs of 2+ spaces, every cell containing
// letters, and the first cell matching a header keyword.
func (p *Patterns) IsHeaderLine(line string) bool {
	cells := SplitCells(line)
	if len(cells) < 2 {
		return false
	}
	for _, cell := range cells {
		if !hasLetter.MatchString(cell) {
			return false
		}
	}
	return p.HeaderKeywords.MatchString(cells[0])
}

// IsSummaryOrEndLine reports whether the line is a total/closing summary
// that should terminate the current block without being consumed as data.
func (p *Patterns) IsSummaryOrEndLine(line string) bool {
	for _, pattern := range p.Summary {
		if pattern.MatchString(line) {
			return true
		}
	}
	for _, guarded := range p.SummaryGuarded {
		if guarded.Match.MatchString(line) && !guarded.Unless.MatchString(line) {
			return true
		}
	}
	return false
}

// GuardedPattern matches only when Match hits and Unless does not.
type GuardedPattern struct {
	Match  *regexp.Regexp
	Unless *regexp.Regexp
}

// IsNonTransactionLine reports whether the line is preamble or boilerplate
// that should be consumed and dropped. Balance B/F rows are deliberately
// not matched here: they must reach the parser to seed balance tracking.
func (p *Patterns) IsNonTransactionLine(line string) bool {
	for _, pattern := range p.Skip {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

var (
	hasLetter    = regexp.MustCompile(`[A-Za-z]`)
	cellSplitter = regexp.MustCompile(`\s{2,}`)

	amountPattern     = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b`)
	bareAmountPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*\.\d{2}$`)
	columnAmountEnd   = regexp.MustCompile(`\s{2,}(\d{1,3}(?:,\d{3})*\.\d{2})\s*$`)
	trailingAmount    = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*\.\d{2})\s*$`)

	foreignCurrency = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|JPY|YEN|AUD|CAD|CHF|CNY|HKD|NZD|THB|IDR|MYR|PHP|DOLLAR|EURO|POUND|PESO|FRANC)\b`)
)

// SplitCells splits a trimmed line on runs of two or more spaces.
func SplitCells(line string) []string {
	var cells []string
	for _, cell := range cellSplitter.Split(strings.TrimSpace(line), -1) {
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

// ExtractAmounts returns all two-decimal amount tokens in the line.
func ExtractAmounts(line string) []string {
	return amountPattern.FindAllString(line, -1)
}

// AmountMatch is one amount token together with the character offset of its
// midpoint, used for nearest-column assignment.
type AmountMatch struct {
	Value  string
	Center float64
}

// AmountPositions returns every amount token in the line with its midpoint
// character offset.
func AmountPositions(line string) []AmountMatch {
	locs := amountPattern.FindAllStringIndex(line, -1)
	matches := make([]AmountMatch, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, AmountMatch{
			Value:  line[loc[0]:loc[1]],
			Center: float64(loc[0]) + float64(loc[1]-loc[0])/2,
		})
	}
	return matches
}

// StripAmounts removes every amount token from the line.
func StripAmounts(line string) string {
	return strings.TrimSpace(amountPattern.ReplaceAllString(line, ""))
}

// IsBareAmount reports whether the trimmed line consists of a single amount
// token and nothing else.
func IsBareAmount(line string) bool {
	return bareAmountPattern.MatchString(strings.TrimSpace(line))
}

// ExtractColumnAmount returns the rightmost amount sitting in a column
// position: preceded by a 2+ space gap at the end of the line, or failing
// that a trailing amount with substantial text before it.
func ExtractColumnAmount(line string) (string, bool) {
	if m := columnAmountEnd.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := trailingAmount.FindStringSubmatch(line); m != nil {
		before := strings.TrimSpace(line[:strings.LastIndex(line, m[1])])
		if before != "" {
			return m[1], true
		}
	}
	return "", false
}

// ContainsForeignCurrency reports whether the line mentions a foreign
// currency code or name. Amounts on such lines are conversion noise, not
// the transaction amount.
func ContainsForeignCurrency(line string) bool {
	return foreignCurrency.MatchString(line)
}
