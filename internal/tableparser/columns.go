package tableparser

import (
	"math"
	"regexp"
	"strings"

	"statement-ingest/internal/textutils"
)

// ColumnInfo is one header label with its character-offset span midpoint.
// Column positions live for one parsing block and are discarded when the
// block flushes.
type ColumnInfo struct {
	Name     string
	StartPos int
	Center   float64
}

var (
	dateColumn        = regexp.MustCompile(`(?i)date`)
	descriptionColumn = regexp.MustCompile(`(?i)description|particulars`)
	withdrawalColumn  = regexp.MustCompile(`(?i)withdrawal|debit`)
	depositColumn     = regexp.MustCompile(`(?i)deposit|credit`)
	balanceColumn     = regexp.MustCompile(`(?i)balance`)
)

// extractHeaderColumns derives column spans from a header line. The line
// must be the original un-trimmed text: offsets are only meaningful with
// the source spacing intact.
func extractHeaderColumns(headerLine string) []ColumnInfo {
	var columns []ColumnInfo
	pos := 0
	for _, part := range splitKeepingGaps(headerLine) {
		if strings.TrimSpace(part) == "" {
			pos += len(part)
			continue
		}
		start := pos
		end := pos + len(part)
		columns = append(columns, ColumnInfo{
			Name:     strings.TrimSpace(part),
			StartPos: start,
			Center:   float64(start+end) / 2,
		})
		pos = end
	}
	return columns
}

var gapSplitter = regexp.MustCompile(`\s{2,}`)

// splitKeepingGaps splits on runs of 2+ spaces but keeps the gap runs so
// running offsets stay accurate.
func splitKeepingGaps(line string) []string {
	var parts []string
	last := 0
	for _, loc := range gapSplitter.FindAllStringIndex(line, -1) {
		if loc[0] > last {
			parts = append(parts, line[last:loc[0]])
		}
		parts = append(parts, line[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(line) {
		parts = append(parts, line[last:])
	}
	return parts
}

// nearestColumn returns the index of the column whose center is closest to
// the given offset. Ties keep the first-found column.
func nearestColumn(pos float64, columns []ColumnInfo) int {
	best := -1
	bestDistance := math.Inf(1)
	for i, col := range columns {
		if d := math.Abs(pos - col.Center); d < bestDistance {
			bestDistance = d
			best = i
		}
	}
	return best
}

// columnRoles maps the detected columns to their semantic roles by name.
// A role is -1 when no column matches it.
type columnRoles struct {
	date, description, withdrawal, deposit, balance int
}

func detectRoles(columns []ColumnInfo) columnRoles {
	roles := columnRoles{date: -1, description: -1, withdrawal: -1, deposit: -1, balance: -1}
	for i, col := range columns {
		switch {
		case roles.date < 0 && dateColumn.MatchString(col.Name):
			roles.date = i
		case roles.description < 0 && descriptionColumn.MatchString(col.Name):
			roles.description = i
		case roles.withdrawal < 0 && withdrawalColumn.MatchString(col.Name):
			roles.withdrawal = i
		case roles.deposit < 0 && depositColumn.MatchString(col.Name):
			roles.deposit = i
		case roles.balance < 0 && balanceColumn.MatchString(col.Name):
			roles.balance = i
		}
	}
	return roles
}

// parseWithColumns parses an accumulated transaction block using header
// column positions: each amount is assigned to the column whose center is
// nearest its own midpoint, and only amounts landing on the withdrawal,
// deposit or balance columns are kept.
func (e *Extractor) parseWithColumns(lines []string, columns []ColumnInfo) (bankRow, bool) {
	if len(lines) == 0 || len(columns) == 0 {
		return bankRow{}, false
	}
	date, ok := e.patterns.ExtractDate(lines[0])
	if !ok {
		return bankRow{}, false
	}

	roles := detectRoles(columns)
	row := bankRow{date: date}

	var descParts []string
	for i, line := range lines {
		for _, match := range textutils.AmountPositions(line) {
			idx := nearestColumn(match.Center, columns)
			switch idx {
			case roles.withdrawal:
				if row.amount == "" {
					row.amount = match.Value
				}
			case roles.deposit:
				if row.amount == "" {
					row.amount = match.Value
				}
			case roles.balance:
				row.balance = match.Value
			}
		}

		text := textutils.StripAmounts(line)
		if i == 0 {
			text = strings.TrimSpace(strings.Replace(text, date, "", 1))
		} else if valueDateLine.MatchString(text) {
			continue
		}
		if text != "" {
			descParts = append(descParts, text)
		}
	}

	row.description = strings.TrimSpace(strings.Join(descParts, " "))
	return row, true
}

var valueDateLine = regexp.MustCompile(`(?i)^value\s+date`)
