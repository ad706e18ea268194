package pdfvalidation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF  = errors.New("missing PDF header")
	ErrNoPages = errors.New("PDF has no pages")
)

// Inspect checks the PDF header, parses the cross-reference table and
// returns the page count
func Inspect(content []byte) (int, error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return 0, ErrNotPDF
	}

	content = sanitizePDF(content)

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return 0, ErrNoPages
	}
	return pages, nil
}

// sanitizePDF drops bytes after the last %%EOF marker; some scanners append
// garbage there and the parser looks for the marker at the very end
func sanitizePDF(content []byte) []byte {
	eof := bytes.LastIndex(content, []byte("%%EOF"))
	if eof == -1 {
		return content
	}

	end := eof + len("%%EOF")
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}
