// Package sanitize masks PII-like substrings in transaction descriptions
// before they are persisted or exported.
package sanitize

import (
	"regexp"
	"strings"
)

const (
	maskedPAN    = "****-****-****-****"
	maskedNumber = "**********"
	maskedRefID  = "<ref_id_redacted>"
)

// The replacement order is a hard invariant: earlier rules mask text that
// later, broader patterns would otherwise re-match differently.
var (
	// 16-digit card numbers, bare or grouped 4-4-4-4 by spaces/dashes.
	panPattern = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
	// Dash-segmented account numbers: 2+ segments of 3+ digits each.
	segmentedPattern = regexp.MustCompile(`\b\d{3,}(?:-\d{3,})+\b`)
	// Bare digit runs of 9 or more.
	digitRunPattern = regexp.MustCompile(`\b\d{9,}\b`)
	// Candidate reference-ID tokens; masked only when they mix digits with
	// uppercase letters, so pure merchant names are never touched.
	refIDPattern = regexp.MustCompile(`\b[A-Za-z0-9]{10,}\b`)

	hasDigit     = regexp.MustCompile(`\d`)
	hasUppercase = regexp.MustCompile(`[A-Z]`)
)

// Description masks card numbers, account numbers, long numeric references
// and mixed alphanumeric reference IDs in a transaction description. Pure
// merchant names and short tokens pass through unchanged.
func Description(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	text = panPattern.ReplaceAllString(text, maskedPAN)
	text = segmentedPattern.ReplaceAllString(text, maskedNumber)
	text = digitRunPattern.ReplaceAllString(text, maskedNumber)
	text = refIDPattern.ReplaceAllStringFunc(text, func(token string) string {
		if hasDigit.MatchString(token) && hasUppercase.MatchString(token) {
			return maskedRefID
		}
		return token
	})

	return text
}
