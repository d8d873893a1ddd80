package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"pages-chatbot-platform/internal/logger"
)

// 50MB safety cap for in-memory extraction.
const maxPDFBytes = 50 << 20

// PDFExtractor extracts plain text from uploaded PDF files.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	WordCount      int
	CharacterCount int
}

// ExtractText extracts text from an in-memory PDF. Pages that fail to decode
// are skipped; the error surfaces only when nothing at all could be read.
func (e *PDFExtractor) ExtractText(ctx context.Context, content []byte) (*ExtractionResult, error) {
	if len(content) > maxPDFBytes {
		return nil, fmt.Errorf("pdf too large for in-memory extraction (%d bytes)", len(content))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return nil, fmt.Errorf("no text extracted from pdf")
	}

	result := &ExtractionResult{
		Text:           extracted,
		Pages:          pages,
		WordCount:      len(strings.Fields(extracted)),
		CharacterCount: len(extracted),
	}
	return result, nil
}
