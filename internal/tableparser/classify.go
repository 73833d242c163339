package tableparser

import (
	"regexp"
	"strconv"
	"time"

	"statement-ingest/internal/models"
)

var (
	bankColumnSignature = regexp.MustCompile(`(?i)withdrawal.*deposit|deposit.*withdrawal|withdrawals\s+sgd|deposits\s+sgd`)
	bankBalanceRow      = regexp.MustCompile(`(?i)balance\s+brought\s+forward|balance\s+b/?f`)
	creditCardSignature = regexp.MustCompile(`(?i)credit\s+card|visa.*card|mastercard|minimum\s+payment|previous\s+balance|new\s+transactions`)
)

// classifyStatement detects the layout archetype from the whole document
// text. Bank signals win ties: a credit-card settlement line inside a bank
// statement must not flip the document into credit-card mode.
func classifyStatement(docText string) models.StatementType {
	isBank := bankColumnSignature.MatchString(docText) || bankBalanceRow.MatchString(docText)
	if isBank {
		return models.StatementTypeBank
	}
	if creditCardSignature.MatchString(docText) {
		return models.StatementTypeCreditCard
	}
	return models.StatementTypeUnknown
}

var (
	statementDateYear = regexp.MustCompile(`(?i)\b(?:statement|bill)\s+date\s*:?\s*\d{1,2}\s+[A-Za-z]{3,}\.?,?\s+(\d{4})`)
	yearCandidates    = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/](\d{4})\b`),
		regexp.MustCompile(`\b(\d{4})[-/]\d{1,2}[-/]\d{1,2}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[A-Za-z]*\.?,?\s+(\d{4})\b`),
	}
)

// inferDefaultYear determines the year applied to day-and-month-only dates.
// An explicit "Statement Date"/"Bill Date" line is authoritative. Otherwise
// the minimum plausible year found anywhere in the text is used: statements
// spanning a year boundary are dated by the year the period starts in.
// Returns 0 when the text carries no usable year.
func (e *Extractor) inferDefaultYear(docText string) int {
	maxYear := e.now().Year() + 1

	if m := statementDateYear.FindStringSubmatch(docText); m != nil {
		if year := atoiYear(m[1]); year >= 1990 && year <= maxYear {
			return year
		}
	}

	minYear := 0
	for _, pattern := range yearCandidates {
		for _, m := range pattern.FindAllStringSubmatch(docText, -1) {
			year := atoiYear(m[1])
			if year < 1990 || year > maxYear {
				continue
			}
			if minYear == 0 || year < minYear {
				minYear = year
			}
		}
	}
	return minYear
}

func atoiYear(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// defaultNow exists so tests can pin the upper plausibility bound.
func defaultNow() time.Time {
	return time.Now()
}
