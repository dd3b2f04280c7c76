// Package pdf extracts per-page plain text from PDF file bytes.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page holds the extracted text of one page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor reads per-page text out of PDF bytes
type Extractor struct{}

// NewExtractor creates a new PDF text extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsPDF reports whether the bytes start with the PDF magic header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ExtractPages returns the plain text of every page in order. Pages whose
// text cannot be decoded are returned with empty text rather than failing
// the whole document.
func (e *Extractor) ExtractPages(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Undecodable page contributes no passages
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, Page{Number: i, Text: strings.TrimSpace(text)})
	}

	return pages, nil
}
