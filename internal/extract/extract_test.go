package extract

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  Document
		want Format
	}{
		{name: "plain hint", doc: Document{MIMEType: "text/plain; charset=utf-8"}, want: FormatText},
		{name: "markdown hint", doc: Document{MIMEType: "text/markdown"}, want: FormatText},
		{name: "json hint", doc: Document{MIMEType: "application/json"}, want: FormatText},
		{name: "pdf hint", doc: Document{MIMEType: "application/pdf"}, want: FormatPDF},
		{name: "docx hint", doc: Document{MIMEType: MIMEDOCX}, want: FormatDOCX},
		{name: "executable hint", doc: Document{MIMEType: "application/x-msdownload"}, want: FormatUnknown},
		{name: "extension fallback", doc: Document{MIMEType: "application/octet-stream", Filename: "cv.PDF"}, want: FormatPDF},
		{name: "docx extension", doc: Document{Filename: "cv.docx"}, want: FormatDOCX},
		{name: "markdown extension", doc: Document{Filename: "notes.md"}, want: FormatText},
		{name: "sniffed pdf", doc: Document{Data: []byte("%PDF-1.4\n%âãÏÓ\n")}, want: FormatPDF},
		{name: "sniffed text", doc: Document{Data: []byte("Jane Doe\nGo engineer")}, want: FormatText},
		{name: "sniffed elf", doc: Document{Data: elfHeader()}, want: FormatUnknown},
		{name: "nothing", doc: Document{}, want: FormatUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, _ := Detect(tc.doc)
			if got != tc.want {
				t.Fatalf("Detect() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	t.Parallel()

	e := New(nil)
	text, err := e.Extract(context.Background(), Document{
		Data:     []byte("\n  Jane Doe\nSenior Go engineer  \n"),
		MIMEType: "text/plain",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Jane Doe\nSenior Go engineer" {
		t.Fatalf("Extract() = %q", text)
	}

	text, err = e.Extract(context.Background(), Document{
		Data:     append([]byte{0xef, 0xbb, 0xbf}, "Jane Doe"...),
		MIMEType: "text/plain",
	})
	if err != nil {
		t.Fatalf("Extract() with byte order mark error = %v", err)
	}
	if text != "Jane Doe" {
		t.Fatalf("byte order mark not stripped: %q", text)
	}
}

func TestExtractPDFPages(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/two_pages.pdf")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	e := New(nil)
	text, err := e.Extract(context.Background(), Document{Data: data, MIMEType: MIMEPDF, Filename: "two_pages.pdf"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "page one\npage two" {
		t.Fatalf("Extract() = %q, want pages in order", text)
	}

	// Sniffing alone must reach the pdf decoder as well.
	text, err = e.Extract(context.Background(), Document{Data: data})
	if err != nil || text != "page one\npage two" {
		t.Fatalf("Extract() without hints = %q, %v", text, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Extract(ctx, Document{Data: data, MIMEType: MIMEPDF})
	if !errors.Is(err, ErrExtraction) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the pdf decoder to observe cancellation, got %v", err)
	}
}

func TestExtractUnsupportedExecutable(t *testing.T) {
	t.Parallel()

	e := New(nil)
	_, err := e.Extract(context.Background(), Document{Data: elfHeader(), Filename: "resume"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = e.Extract(context.Background(), Document{Data: []byte("MZ\x90\x00"), MIMEType: "application/x-msdownload", Filename: "setup.exe"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for exe hint, got %v", err)
	}
}

func TestExtractFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  Document
	}{
		{name: "blank text", doc: Document{Data: []byte(" \n\t "), MIMEType: "text/plain"}},
		{name: "invalid utf8", doc: Document{Data: []byte{0xff, 0xfe, 0xfd}, MIMEType: "text/plain"}},
		{name: "broken pdf", doc: Document{Data: []byte("this is not a pdf"), MIMEType: "application/pdf"}},
		{name: "broken docx", doc: Document{Data: []byte("this is not a zip"), MIMEType: MIMEDOCX}},
	}

	e := New(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text, err := e.Extract(context.Background(), tc.doc)
			if !errors.Is(err, ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v (text %q)", err, text)
			}
			if text != "" {
				t.Fatalf("expected empty text on failure, got %q", text)
			}
		})
	}
}

func TestRunAsyncHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runAsync(ctx, func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, ErrExtraction) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled extraction error, got %v", err)
	}
}

func TestDocumentText(t *testing.T) {
	t.Parallel()

	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	got, err := documentText(body)
	if err != nil {
		t.Fatalf("documentText() error = %v", err)
	}
	if want := "Jane Doe\nSkills:\tGo"; got != want {
		t.Fatalf("documentText() = %q, want %q", got, want)
	}
}

func elfHeader() []byte {
	header := []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}
	return append(header, make([]byte, 56)...)
}
