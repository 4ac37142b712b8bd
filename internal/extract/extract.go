// Package extract turns uploaded résumé documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned for documents the extractor cannot decode.
	// Callers should suggest pasting the text instead.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction is returned when a supported document could not be decoded
	// or yielded no text.
	ErrExtraction = errors.New("text extraction failed")
)

const (
	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEJSON     = "application/json"
	MIMEPDF      = "application/pdf"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	mimeOctetStream = "application/octet-stream"
)

// Format is the decoder family selected for a document.
type Format string

const (
	FormatText    Format = "text"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatUnknown Format = "unknown"
)

// Document is an uploaded résumé. It only lives for the duration of one extraction.
type Document struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Extractor converts documents into plain text.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract returns the document text. The result is never empty on success.
func (e *Extractor) Extract(ctx context.Context, doc Document) (string, error) {
	format, resolved := Detect(doc)

	e.logger.Debug("extracting document text",
		zap.String("filename", doc.Filename),
		zap.String("mime_hint", doc.MIMEType),
		zap.String("mime_resolved", resolved),
		zap.String("format", string(format)),
		zap.Int("size", len(doc.Data)),
	)

	var (
		text string
		err  error
	)

	switch format {
	case FormatText:
		text, err = decodeText(doc.Data)
	case FormatPDF:
		text, err = runAsync(ctx, func() (string, error) { return decodePDF(doc.Data) })
	case FormatDOCX:
		text, err = runAsync(ctx, func() (string, error) { return decodeDOCX(doc.Data) })
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, describe(doc, resolved))
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s contains no text", ErrExtraction, describe(doc, resolved))
	}

	return text, nil
}

// Detect picks a decoder for the document. The MIME hint wins, then the file
// extension, then content sniffing.
func Detect(doc Document) (Format, string) {
	hint := normalizeMIME(doc.MIMEType)
	if hint != "" && hint != mimeOctetStream {
		return formatForMIME(hint), hint
	}

	if ext := strings.ToLower(filepath.Ext(doc.Filename)); ext != "" {
		if format := formatForExtension(ext); format != FormatUnknown {
			return format, hint
		}
	}

	if len(doc.Data) == 0 {
		return FormatUnknown, hint
	}

	sniffed := mimetype.Detect(doc.Data)
	for m := sniffed; m != nil; m = m.Parent() {
		if format := formatForMIME(normalizeMIME(m.String())); format != FormatUnknown {
			return format, sniffed.String()
		}
	}

	return FormatUnknown, sniffed.String()
}

func formatForMIME(m string) Format {
	switch {
	case m == MIMEPDF:
		return FormatPDF
	case m == MIMEDOCX:
		return FormatDOCX
	case m == MIMEJSON, strings.HasPrefix(m, "text/"):
		return FormatText
	default:
		return FormatUnknown
	}
}

func formatForExtension(ext string) Format {
	switch ext {
	case ".txt", ".md", ".markdown", ".json", ".csv":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}

func normalizeMIME(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(m); err == nil {
		return strings.ToLower(parsed)
	}
	return strings.ToLower(m)
}

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid utf-8", ErrExtraction)
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}

// runAsync moves CPU bound decoding off the caller's goroutine so ctx
// cancellation is observed. The decoder keeps running to completion in the
// background; its result is discarded.
func runAsync(ctx context.Context, fn func() (string, error)) (string, error) {
	type result struct {
		text string
		err  error
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	done := make(chan result, 1)
	go func() {
		text, err := fn()
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrExtraction, ctx.Err())
	case r := <-done:
		return r.text, r.err
	}
}

func describe(doc Document, resolved string) string {
	parts := make([]string, 0, 2)
	if doc.Filename != "" {
		parts = append(parts, fmt.Sprintf("file %q", doc.Filename))
	}
	if resolved != "" {
		parts = append(parts, fmt.Sprintf("type %s", resolved))
	}
	if len(parts) == 0 {
		return "document"
	}
	return strings.Join(parts, ", ")
}
