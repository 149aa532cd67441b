package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for PDFs without an extractable text layer
var ErrNoText = errors.New("pdf: no extractable text")

// PDFText extracts the plain text layer of a PDF
type PDFText struct {
	// MaxBytes bounds how much of the PDF is read into memory
	MaxBytes int64
}

// Extract reads r fully and returns its text
func (p PDFText) Extract(ctx context.Context, r io.Reader) (string, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = 50 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("pdf larger than %d bytes", limit)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// LooksLikePDF checks the magic header of an upload
func LooksLikePDF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("%PDF-"))
}
