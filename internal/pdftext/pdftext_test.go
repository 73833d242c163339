package pdftext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
)

func TestReadable(t *testing.T) {
	plain := []models.PageText{{Number: 1, Text: "Account Statement\n01 SEP  PAYMENT  100.00"}}
	assert.True(t, readable(plain))

	garbage := []models.PageText{{Number: 1, Text: strings.Repeat("þÃ¶", 50)}}
	assert.False(t, readable(garbage))

	assert.False(t, readable(nil))
}

func TestExtractBytesRejectsNonPDF(t *testing.T) {
	_, err := ExtractBytes([]byte("this is not a pdf"))
	require.Error(t, err)
	var unsupported *parsererror.UnsupportedDocumentError
	assert.ErrorAs(t, err, &unsupported)
}

func TestReadFileBytesMissingFile(t *testing.T) {
	_, err := ReadFileBytes("/nonexistent/statement.pdf")
	require.Error(t, err)
}
