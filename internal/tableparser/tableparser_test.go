package tableparser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
)

func testExtractor() *Extractor {
	e := NewExtractor(nil, DefaultOptions())
	e.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.StatementType
	}{
		{
			name:     "bank by column signature",
			text:     "Date  Description  Withdrawal  Deposit  Balance",
			expected: models.StatementTypeBank,
		},
		{
			name:     "bank by balance brought forward",
			text:     "01 SEP BALANCE B/F 1,000.00",
			expected: models.StatementTypeBank,
		},
		{
			name:     "credit card by indicators",
			text:     "Credit Card Statement\nPrevious Balance 500.00",
			expected: models.StatementTypeCreditCard,
		},
		{
			name:     "bank signals win over credit card mentions",
			text:     "CREDIT CARD BILL PAYMENT\nBalance Brought Forward 1,000.00",
			expected: models.StatementTypeBank,
		},
		{
			name:     "no signals",
			text:     "some unrelated document text",
			expected: models.StatementTypeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyStatement(tt.text))
		})
	}
}

func TestInferDefaultYear(t *testing.T) {
	e := testExtractor()

	// An explicit statement date is authoritative even when older years
	// appear elsewhere.
	year := e.inferDefaultYear("Account opened 01/01/2019\nStatement Date: 15 Sep 2024")
	assert.Equal(t, 2024, year)

	assert.Equal(t, 2024, e.inferDefaultYear("Bill Date: 15 September 2024"))

	// Without a statement date, the minimum plausible year wins: a period
	// spanning a year boundary is dated by its starting year.
	year = e.inferDefaultYear("28/12/2023 PAYMENT\n02/01/2024 PAYMENT")
	assert.Equal(t, 2023, year)

	assert.Equal(t, 2024, e.inferDefaultYear("5 Sep 2024 TRANSFER"))
	assert.Equal(t, 2024, e.inferDefaultYear("2024-09-05 TRANSFER"))

	// Implausible years are ignored.
	assert.Equal(t, 0, e.inferDefaultYear("01/01/1889 and 01/01/2099"))
	assert.Equal(t, 0, e.inferDefaultYear("no year anywhere"))
}

const bankStatementText = `ACME BANK SINGAPORE
Account Statement
Statement Date: 05 Oct 2024

01 SEP  BALANCE B/F  1,000.00
02 SEP  PAYMENT TO ACME LTD  100.00  900.00
03 SEP  SALARY CREDIT  2,000.00  2,900.00
04 SEP  GIRO UTILITIES BILL  50.00  2,850.00
Total  2,150.00  2,850.00
`

func TestExtractTablesBankStatement(t *testing.T) {
	e := testExtractor()

	table, meta, err := e.ExtractTables([]models.PageText{{Number: 1, Text: bankStatementText}})
	require.NoError(t, err)
	require.NotNil(t, table)
	require.NotNil(t, meta)

	assert.Equal(t, models.StatementTypeBank, meta.StatementType)
	assert.Equal(t, 2024, meta.DefaultYear)
	assert.Equal(t, 1, table.Page)
	assert.Equal(t, []string{"Date", "Description", "Amount", "Balance", "Identifier"}, table.Headers)

	// Only balance-decreasing rows survive: the B/F seed and the salary
	// deposit are filtered out.
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, "02 SEP", first.Date)
	assert.Equal(t, "PAYMENT TO ACME LTD", first.Description)
	assert.Equal(t, "100.00", first.Amount)
	assert.Equal(t, "900.00", first.Balance)
	assert.True(t, strings.HasPrefix(first.Identifier, "20240902-100.00-900.00-"))

	second := table.Rows[1]
	assert.Equal(t, "GIRO UTILITIES BILL", second.Description)
	assert.True(t, strings.HasPrefix(second.Identifier, "20240904-50.00-2850.00-"))

	assert.Equal(t, "2024-09-02", meta.PeriodStart)
	assert.Equal(t, "2024-09-04", meta.PeriodEnd)
}

func TestExtractTablesBankWithoutBalanceSeed(t *testing.T) {
	e := testExtractor()

	// No B/F row: the first transaction has no previous balance to compare
	// against and cannot be classified.
	text := `ACME BANK
Balance Brought Forward statement
Statement Date: 05 Oct 2024

02 SEP  PAYMENT TO ACME LTD  100.00  900.00
04 SEP  GIRO UTILITIES BILL  50.00  850.00
`
	table, _, err := e.ExtractTables([]models.PageText{{Number: 1, Text: text}})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "GIRO UTILITIES BILL", table.Rows[0].Description)
}

const creditCardStatementText = `ACME BANK CREDIT CARD
Statement Date: 15 SEP 2024
Previous Balance  500.00

19 SEP  STARBUCKS COFFEE SINGAPORE     12.30
20 SEP  GRAB RIDE
8.50
21 SEP  BOOKSTORE PURCHASE
USD 35.00
25.40
Total  46.20
`

func TestExtractTablesCreditCardStatement(t *testing.T) {
	e := testExtractor()

	table, meta, err := e.ExtractTables([]models.PageText{{Number: 1, Text: creditCardStatementText}})
	require.NoError(t, err)

	assert.Equal(t, models.StatementTypeCreditCard, meta.StatementType)
	assert.Equal(t, 2024, meta.DefaultYear)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, "19 SEP", table.Rows[0].Date)
	assert.Equal(t, "STARBUCKS COFFEE SINGAPORE", table.Rows[0].Description)
	assert.Equal(t, "12.30", table.Rows[0].Amount)
	// Credit-card statements carry no running balance.
	assert.Equal(t, "", table.Rows[0].Balance)
	assert.True(t, strings.HasPrefix(table.Rows[0].Identifier, "20240919-12.30-0.00-"))

	// Amount picked up from the bare continuation line.
	assert.Equal(t, "GRAB RIDE", table.Rows[1].Description)
	assert.Equal(t, "8.50", table.Rows[1].Amount)

	// The foreign-currency line contributes no amount; the SGD amount on the
	// following line wins.
	assert.Equal(t, "25.40", table.Rows[2].Amount)
	assert.Contains(t, table.Rows[2].Description, "BOOKSTORE PURCHASE")
}

func TestExtractTablesRejectsShortText(t *testing.T) {
	e := testExtractor()

	_, _, err := e.ExtractTables([]models.PageText{{Number: 1, Text: "too short"}})
	require.Error(t, err)
	var unsupported *parsererror.UnsupportedDocumentError
	assert.ErrorAs(t, err, &unsupported)
}

func TestExtractTablesRejectsTextWithoutRows(t *testing.T) {
	e := testExtractor()

	text := strings.Repeat("This document has plenty of text but no transactions at all.\n", 5)
	_, _, err := e.ExtractTables([]models.PageText{{Number: 1, Text: text}})
	require.Error(t, err)
	var unsupported *parsererror.UnsupportedDocumentError
	assert.ErrorAs(t, err, &unsupported)
}

func TestParseMultiLine(t *testing.T) {
	e := testExtractor()

	// Two amounts: first is the transaction amount, last the balance.
	row, ok := e.parseMultiLine([]string{"02 SEP  PAYMENT TO ACME LTD  100.00  900.00"})
	require.True(t, ok)
	assert.Equal(t, "02 SEP", row.date)
	assert.Equal(t, "PAYMENT TO ACME LTD", row.description)
	assert.Equal(t, "100.00", row.amount)
	assert.Equal(t, "900.00", row.balance)

	// A single amount on a B/F row is the balance.
	row, ok = e.parseMultiLine([]string{"01 SEP  BALANCE B/F  1,000.00"})
	require.True(t, ok)
	assert.Equal(t, "", row.amount)
	assert.Equal(t, "1,000.00", row.balance)

	// A single amount elsewhere is the transaction amount.
	row, ok = e.parseMultiLine([]string{"19 SEP  CARD PAYMENT  12.30"})
	require.True(t, ok)
	assert.Equal(t, "12.30", row.amount)
	assert.Equal(t, "", row.balance)

	// Continuation lines merge into the description.
	row, ok = e.parseMultiLine([]string{
		"02 SEP  FAST TRANSFER  100.00  900.00",
		"TO JOHN DOE",
	})
	require.True(t, ok)
	assert.Equal(t, "FAST TRANSFER TO JOHN DOE", row.description)

	// No amounts means no row.
	_, ok = e.parseMultiLine([]string{"02 SEP  PENDING ITEM"})
	assert.False(t, ok)

	// Lines not starting with a date cannot form a transaction.
	_, ok = e.parseMultiLine([]string{"PAYMENT WITHOUT DATE  5.00"})
	assert.False(t, ok)
}

func TestExtractHeaderColumns(t *testing.T) {
	header := "Date  Description      Withdrawal  Deposit  Balance"
	columns := extractHeaderColumns(header)
	require.Len(t, columns, 5)
	assert.Equal(t, "Date", columns[0].Name)
	assert.Equal(t, 0, columns[0].StartPos)
	assert.Equal(t, "Balance", columns[4].Name)
	for i := 1; i < len(columns); i++ {
		assert.Greater(t, columns[i].Center, columns[i-1].Center)
	}
}

func TestParseWithColumns(t *testing.T) {
	e := testExtractor()

	header := "Date    Description                 Withdrawal      Deposit      Balance"
	columns := extractHeaderColumns(header)

	// The amount sits under the withdrawal column, the balance under the
	// balance column.
	line := "02 SEP  PAYMENT TO ACME LTD             100.00                   900.00"
	row, ok := e.parseWithColumns([]string{line}, columns)
	require.True(t, ok)
	assert.Equal(t, "02 SEP", row.date)
	assert.Equal(t, "100.00", row.amount)
	assert.Equal(t, "900.00", row.balance)
	assert.Equal(t, "PAYMENT TO ACME LTD", row.description)

	// Value-date continuation lines are not part of the description.
	row, ok = e.parseWithColumns([]string{line, "Value Date: 03 SEP"}, columns)
	require.True(t, ok)
	assert.Equal(t, "PAYMENT TO ACME LTD", row.description)
}

func TestBankSegmenterSecondTableHeaderReplacesColumns(t *testing.T) {
	e := testExtractor()
	seg := &bankSegmenter{extractor: e}

	// Two tables on one page. The second header is narrower, so its amounts
	// sit well left of the first table's columns: parsing them against the
	// stale positions would land "5.00" on the description column and the
	// balance on the withdrawal column.
	seg.run([]string{
		"Date    Description                 Withdrawal      Deposit      Balance",
		"02 SEP  PAYMENT TO ACME LTD             100.00                   900.00",
		"03 SEP  GIRO BILL                     50.00                      850.00",
		"Date  Description         Withdrawal  Balance",
		"04 SEP  ATM FEE       5.00        845.00",
		"05 SEP  CARD CHARGE   2.00        843.00",
	})

	require.Len(t, seg.flushed, 1)
	rows := seg.flushed[0]
	require.Len(t, rows, 4)

	assert.Equal(t, "PAYMENT TO ACME LTD", rows[0].description)
	assert.Equal(t, "100.00", rows[0].amount)
	assert.Equal(t, "900.00", rows[0].balance)

	// The second header took over mid-block.
	assert.Equal(t, "ATM FEE", rows[2].description)
	assert.Equal(t, "5.00", rows[2].amount)
	assert.Equal(t, "845.00", rows[2].balance)

	assert.Equal(t, "CARD CHARGE", rows[3].description)
	assert.Equal(t, "2.00", rows[3].amount)
	assert.Equal(t, "843.00", rows[3].balance)
}

func TestNearestColumn(t *testing.T) {
	columns := []ColumnInfo{
		{Name: "Withdrawal", Center: 30},
		{Name: "Deposit", Center: 50},
		{Name: "Balance", Center: 70},
	}
	assert.Equal(t, 0, nearestColumn(25, columns))
	assert.Equal(t, 1, nearestColumn(49, columns))
	assert.Equal(t, 2, nearestColumn(90, columns))
}
