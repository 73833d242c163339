// Package identifier builds the deterministic content hash that names one
// logical transaction. The identifier is the sole deduplication key across
// ingestion runs, so every normalization step here is part of its contract:
// identical logical inputs must always yield the identical string.
package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"statement-ingest/internal/parsererror"
)

// Input is the raw material for one identifier.
type Input struct {
	// Date is the raw transaction date, e.g. "01/09/2024" or "19 SEP".
	Date string
	// Amount is the transaction amount string; may contain commas.
	Amount string
	// Balance is the resulting balance string after the transaction.
	Balance string
	// Description is the raw transaction description.
	Description string
	// DefaultYear is applied when the date string omits a year. Zero means
	// no default is available and year-less dates fail.
	DefaultYear int
}

// Generate returns the identifier `YYYYMMDD-<amount>-<balance>-<hash8>`
// where amounts are rendered to exactly two decimal places and hash8 is the
// first 8 hex characters of the SHA-256 of the trimmed description.
func Generate(in Input) (string, error) {
	date, err := NormalizeDate(in.Date, in.DefaultYear)
	if err != nil {
		return "", err
	}
	amount, err := NormalizeAmount("amount", in.Amount)
	if err != nil {
		return "", err
	}
	balance, err := NormalizeAmount("balance", in.Balance)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(in.Description)))
	hash8 := hex.EncodeToString(sum[:])[:8]

	return fmt.Sprintf("%s-%s-%s-%s", date, amount, balance, hash8), nil
}

var (
	eightDigits   = regexp.MustCompile(`^\d{8}$`)
	isoDate       = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dayFirstDate  = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})$`)
	monthNameDate = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,})\s+(\d{2,4})$`)
	monthNameOnly = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,})$`)
	manySpaces    = regexp.MustCompile(`\s+`)
)

// NormalizeDate converts a raw date string to YYYYMMDD. Supported shapes:
// already-normalized 8 digits, YYYY-M-D / YYYY/M/D, D-M-YY(YY) / D/M/YY(YY),
// "D MonthName YYYY", and "D MonthName" when defaultYear is non-zero.
// Two-digit years map to 2000+yy. The calendar date is validated, so
// 30 February fails.
func NormalizeDate(date string, defaultYear int) (string, error) {
	cleaned := strings.TrimSpace(date)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = manySpaces.ReplaceAllString(cleaned, " ")

	if eightDigits.MatchString(cleaned) {
		return cleaned, nil
	}

	if m := isoDate.FindStringSubmatch(cleaned); m != nil {
		return formatValidated(date, atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := dayFirstDate.FindStringSubmatch(cleaned); m != nil {
		year, err := coerceYear(m[3])
		if err != nil {
			return "", &parsererror.InvalidDateError{Value: date, Msg: err.Error()}
		}
		return formatValidated(date, year, atoi(m[2]), atoi(m[1]))
	}

	if m := monthNameDate.FindStringSubmatch(cleaned); m != nil {
		month, ok := monthFromName(m[2])
		if !ok {
			return "", &parsererror.InvalidDateError{Value: date, Msg: fmt.Sprintf("unknown month %q", m[2])}
		}
		year, err := coerceYear(m[3])
		if err != nil {
			return "", &parsererror.InvalidDateError{Value: date, Msg: err.Error()}
		}
		return formatValidated(date, year, month, atoi(m[1]))
	}

	if m := monthNameOnly.FindStringSubmatch(cleaned); m != nil && defaultYear != 0 {
		month, ok := monthFromName(m[2])
		if !ok {
			return "", &parsererror.InvalidDateError{Value: date, Msg: fmt.Sprintf("unknown month %q", m[2])}
		}
		return formatValidated(date, defaultYear, month, atoi(m[1]))
	}

	return "", &parsererror.InvalidDateError{Value: date, Msg: "unrecognized date format"}
}

// NormalizeAmount strips commas and whitespace and re-renders the value to
// exactly two decimal places.
func NormalizeAmount(field, value string) (string, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		return "", &parsererror.InvalidAmountError{Field: field}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", &parsererror.InvalidAmountError{Field: field, Value: value}
	}
	return d.StringFixed(2), nil
}

// MonthBucket derives the YYYY-MM bucket from a normalized YYYYMMDD date.
func MonthBucket(date8 string) (string, error) {
	if !eightDigits.MatchString(date8) {
		return "", &parsererror.InvalidDateError{Value: date8, Msg: "expected YYYYMMDD"}
	}
	return date8[:4] + "-" + date8[4:6], nil
}

var monthLookup = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "SEPT": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

func monthFromName(name string) (int, bool) {
	upper := strings.ToUpper(name)
	if len(upper) > 4 {
		upper = upper[:4]
	}
	if month, ok := monthLookup[upper]; ok {
		return month, true
	}
	if len(upper) > 3 {
		upper = upper[:3]
	}
	month, ok := monthLookup[upper]
	return month, ok
}

func coerceYear(yearStr string) (int, error) {
	switch len(yearStr) {
	case 4:
		return atoi(yearStr), nil
	case 2:
		return 2000 + atoi(yearStr), nil
	default:
		return 0, fmt.Errorf("invalid year value %q", yearStr)
	}
}

// formatValidated round-trips the components through a UTC date and checks
// exact field equality, rejecting normalized-but-impossible dates.
func formatValidated(raw string, year, month, day int) (string, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", &parsererror.InvalidDateError{
			Value: raw,
			Msg:   fmt.Sprintf("invalid calendar date %d-%d-%d", year, month, day),
		}
	}
	return fmt.Sprintf("%04d%02d%02d", year, month, day), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
