// Package pdftext extracts and normalizes plain text from PDF files.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction holds the text and page count pulled from one PDF.
type Extraction struct {
	Text       string
	TotalPages int
}

var (
	multiBlankLines = regexp.MustCompile(`\n{3,}`)
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
)

// ExtractFile reads the PDF at path and returns its plain text and page count.
func ExtractFile(path string) (*Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftext: open %s: %w", path, err)
	}
	defer f.Close()

	return extract(reader)
}

func extract(reader *pdf.Reader) (*Extraction, error) {
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdftext: extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("pdftext: read text: %w", err)
	}

	return &Extraction{
		Text:       buf.String(),
		TotalPages: reader.NumPage(),
	}, nil
}

// Clean normalizes extracted text: CRLF line endings become LF, runs of
// spaces and tabs collapse to one space, each line is trimmed, and runs of
// three or more newlines collapse to a single blank line.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = multiBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
