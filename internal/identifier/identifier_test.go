package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-ingest/internal/parsererror"
)

func TestGenerateIsDeterministic(t *testing.T) {
	in := Input{
		Date:        "01/09/2024",
		Amount:      "100.00",
		Balance:     "900.00",
		Description: "PAYMENT TO ACME LTD",
	}
	first, err := Generate(in)
	require.NoError(t, err)
	second, err := Generate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateFormat(t *testing.T) {
	id, err := Generate(Input{
		Date:        "01/09/2024",
		Amount:      "1,234",
		Balance:     "5,678.5",
		Description: "PAYMENT TO ACME LTD",
	})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("PAYMENT TO ACME LTD"))
	hash8 := hex.EncodeToString(sum[:])[:8]
	assert.Equal(t, fmt.Sprintf("20240901-1234.00-5678.50-%s", hash8), id)
}

func TestGenerateTrimsDescriptionWhitespace(t *testing.T) {
	a, err := Generate(Input{Date: "20240901", Amount: "5.00", Balance: "10.00", Description: "  STARBUCKS  "})
	require.NoError(t, err)
	b, err := Generate(Input{Date: "20240901", Amount: "5.00", Balance: "10.00", Description: "STARBUCKS"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name        string
		date        string
		defaultYear int
		expected    string
	}{
		{"already normalized", "20240901", 0, "20240901"},
		{"iso with dashes", "2024-9-1", 0, "20240901"},
		{"iso with slashes", "2024/09/01", 0, "20240901"},
		{"day first slashes", "01/09/2024", 0, "20240901"},
		{"day first two digit year", "01/09/24", 0, "20240901"},
		{"day first dashes", "1-9-2024", 0, "20240901"},
		{"month name full year", "1 Sep 2024", 0, "20240901"},
		{"month name two digit year", "1 Sep 24", 0, "20240901"},
		{"month name uppercase", "19 SEP 2024", 0, "20240919"},
		{"day and month with default year", "19 SEP", 2024, "20240919"},
		{"sept variant", "3 Sept 2024", 0, "20240903"},
		{"extra whitespace", "  1  Sep  2024 ", 0, "20240901"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.date, tt.defaultYear)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeDateErrors(t *testing.T) {
	tests := []struct {
		name        string
		date        string
		defaultYear int
	}{
		{"day and month without default year", "29 AUG", 0},
		{"calendar invalid date", "30/02/2024", 0},
		{"calendar invalid iso", "2024-2-30", 0},
		{"garbage", "not a date", 0},
		{"empty", "", 2024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeDate(tt.date, tt.defaultYear)
			require.Error(t, err)
			var invalidDate *parsererror.InvalidDateError
			assert.ErrorAs(t, err, &invalidDate)
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1,234", "1234.00"},
		{"5,678.5", "5678.50"},
		{"100", "100.00"},
		{"0.1", "0.10"},
		{" 42.00 ", "42.00"},
		{"1,234,567.89", "1234567.89"},
	}
	for _, tt := range tests {
		got, err := NormalizeAmount("amount", tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestNormalizeAmountErrors(t *testing.T) {
	for _, input := range []string{"", "abc", "12.3.4"} {
		_, err := NormalizeAmount("amount", input)
		require.Error(t, err, "input %q", input)
		var invalidAmount *parsererror.InvalidAmountError
		assert.ErrorAs(t, err, &invalidAmount)
	}
}

func TestMonthBucket(t *testing.T) {
	bucket, err := MonthBucket("20240901")
	require.NoError(t, err)
	assert.Equal(t, "2024-09", bucket)

	_, err = MonthBucket("2024-09-01")
	assert.Error(t, err)
}
