// Package pdftext extracts per-page plain text from PDF statements. It is
// the only package that touches the PDF library; everything downstream
// consumes models.PageText.
package pdftext

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"statement-ingest/internal/logging"
	"statement-ingest/internal/models"
	"statement-ingest/internal/parsererror"
)

var log = logging.GetLogger()

// SetLogger overrides the package logger.
func SetLogger(logger *logrus.Logger) {
	log = logger
}

// ExtractFile reads the PDF at path and returns its pages as line-delimited
// text. Encrypted or image-only PDFs surface as UnsupportedDocumentError.
func ExtractFile(path string) ([]models.PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &parsererror.UnsupportedDocumentError{
			Reason: fmt.Sprintf("cannot open PDF: %v", err),
		}
	}
	defer f.Close()
	return extract(r)
}

// ExtractBytes parses an in-memory PDF, as received from an upload.
func ExtractBytes(data []byte) ([]models.PageText, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &parsererror.UnsupportedDocumentError{
			Reason: fmt.Sprintf("cannot open PDF: %v", err),
		}
	}
	return extract(r)
}

// ReadFileBytes loads a statement file for hashing and extraction in one
// read.
func ReadFileBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading statement file: %w", err)
	}
	return data, nil
}

func extract(r *pdf.Reader) ([]models.PageText, error) {
	numPages := r.NumPage()
	pages := make([]models.PageText, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page)
		if err != nil {
			log.WithError(err).WithField(logging.FieldPage, i).
				Warn("Skipping unreadable page")
			continue
		}
		pages = append(pages, models.PageText{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, &parsererror.UnsupportedDocumentError{
			Reason: "PDF contains no readable pages",
		}
	}
	if !readable(pages) {
		// Identity-encoded fonts decode into garbage instead of erroring.
		return nil, &parsererror.UnsupportedDocumentError{
			Reason: "PDF text could not be decoded into readable content",
		}
	}

	log.WithField(logging.FieldCount, len(pages)).Debug("Extracted PDF pages")
	return pages, nil
}

// readable reports whether the extracted text is mostly plain ASCII. A
// strict ASCII check is deliberate: unicode.IsLetter matches the accented
// garbage produced by custom font encodings.
func readable(pages []models.PageText) bool {
	total, ok := 0, 0
	for _, page := range pages {
		for _, r := range page.Text {
			total++
			if r < 128 && (r == '\n' || r == '\t' || (r >= ' ' && r <= '~')) {
				ok++
			}
		}
	}
	return total > 0 && float64(ok)/float64(total) > 0.6
}

// pageText reassembles a page's positioned text runs into lines. Runs are
// grouped by their Y coordinate and ordered left to right; runs separated by
// a visible horizontal gap are joined with a double space so downstream cell
// splitting can recover column boundaries.
func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}

	var lines []string
	for _, row := range rows {
		var b strings.Builder
		var lastEnd float64
		for i, word := range row.Content {
			if i > 0 {
				if word.X-lastEnd > columnGapPoints {
					b.WriteString("  ")
				} else {
					b.WriteString(" ")
				}
			}
			b.WriteString(word.S)
			lastEnd = word.X + word.W
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n"), nil
}

// columnGapPoints is the horizontal whitespace, in PDF points, treated as a
// column boundary rather than a word space.
const columnGapPoints = 12.0
