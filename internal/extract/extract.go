// Package extract pulls plain text out of uploaded business plan
// documents. Two content types are accepted: PDF and DOCX.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// MinTextChars is the minimum amount of extracted text required for
	// a meaningful analysis.
	MinTextChars = 100
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

// ErrInsufficientText marks uploads whose extracted text is too short to
// analyze; handlers report it as a validation failure.
var ErrInsufficientText = errors.New("could not extract sufficient text from document")

// FromUpload extracts text from an uploaded document based on its MIME
// type and enforces the minimum text length.
func FromUpload(data []byte, contentType string) (string, error) {
	var (
		text string
		err  error
	)
	switch contentType {
	case ContentTypePDF:
		text, err = FromPDF(data)
	case ContentTypeDOCX:
		text, err = FromDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) < MinTextChars {
		return "", ErrInsufficientText
	}
	return strings.TrimSpace(text), nil
}

// FromPDF walks the document page by page. When the PDF library cannot
// make sense of the file (scanned or exotic encodings), a printable-byte
// scan over the raw content is the last resort.
func FromPDF(data []byte) (string, error) {
	text, err := pdfPages(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	fallback := printableRuns(data)
	if strings.TrimSpace(fallback) == "" {
		if err != nil {
			return "", fmt.Errorf("pdf extraction failed: %w", err)
		}
		return "", errors.New("no extractable text found in pdf")
	}
	return fallback, nil
}

func pdfPages(data []byte) (text string, err error) {
	// The pdf library panics on some malformed files; contain that here
	// so an upload can never crash the request pipeline.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// printableRuns recovers readable runs from arbitrary bytes, dropping
// short fragments that are almost certainly structure rather than prose.
func printableRuns(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if len(s) >= 24 {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	joined := strings.Join(runs, "\n")
	joined = strings.ReplaceAll(joined, "\x00", "")
	return strings.TrimSpace(joined)
}
