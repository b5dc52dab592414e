// Package document extracts ordered page-level text from uploaded PDF blobs.
//
// Extraction is best effort: pages that yield no text are skipped rather
// than failing the whole document, so a scanned or partially malformed PDF
// still produces whatever text it carries.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ErrNotPDF indicates the blob does not carry a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

// Page is the extracted text of a single document page.
type Page struct {
	// Number is the 1-based page number in the source document.
	Number int

	// Text is the page's plain text with collapsed whitespace.
	Text string
}

// ExtractPages parses a PDF blob and returns its pages in document order.
// Pages without extractable text are omitted; an empty slice with a nil
// error means the document parsed but contained no text.
func ExtractPages(data []byte) ([]Page, error) {
	if !isPDF(data) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf reader: %w", err)
	}

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages; the rest of the document is still useful.
			continue
		}

		text = collapseWhitespace(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}

// isPDF sniffs the magic bytes; a PDF starts with "%PDF-".
func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// collapseWhitespace normalizes runs of whitespace (including non-breaking
// spaces) to single spaces.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
