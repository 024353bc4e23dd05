// Package export turns stored note documents into downloadable artifacts:
// plain text, Markdown, HTML and PDF.
package export

import (
	"encoding/json"
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ParseFormat maps a request value onto a Format. "md" and "txt" are accepted
// as aliases.
func ParseFormat(value string) (Format, error) {
	switch value {
	case "text", "txt", "plain":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func (f Format) extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatPDF:
		return ".pdf"
	default:
		return ""
	}
}

func (f Format) mimeType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Options tune how a document is rendered.
type Options struct {
	// IncludeStyles produces a standalone HTML page with the stylesheet
	// instead of a fragment. PDFs are printed from the same HTML, so without
	// it Chrome prints an unstyled fragment.
	IncludeStyles bool
	// Minify shrinks HTML output.
	Minify bool
}

// Request contains parameters for an export operation
type Request struct {
	TenantID string
	NoteID   string
	Format   Format
	Options  Options
}

// Note is the exportable view of a stored note.
type Note struct {
	ID        string
	Title     string
	Content   json.RawMessage
	UpdatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	Cached   bool
}

var (
	// ErrUnsupportedFormat is returned for formats other than text, markdown, html and pdf.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrContentUnavailable indicates note content could not be decoded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
