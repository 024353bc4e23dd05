package export

import (
	"context"
	"fmt"
	"log"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetNoteForExport(ctx context.Context, tenantID, noteID string) (Note, error)
}

// Service provides note export functionality
type Service struct {
	store DataStore
	pdf   PDFRenderer
	cache ArtifactCache
}

// NewService creates a new export service. cache may be nil.
func NewService(store DataStore, pdf PDFRenderer, cache ArtifactCache) *Service {
	if pdf == nil {
		pdf = ChromePDF{}
	}
	return &Service{store: store, pdf: pdf, cache: cache}
}

// Render produces a text artifact for an already decoded document. PDF is
// not a text format and must go through Service.Export.
func Render(root Node, title string, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(ToPlainText(root)), nil
	case FormatMarkdown:
		return []byte(ToMarkdown(root, title)), nil
	case FormatHTML:
		out := ToHTML(root, title, opts.IncludeStyles)
		if opts.Minify {
			minified, err := MinifyHTML(out)
			if err != nil {
				return nil, err
			}
			out = minified
		}
		return []byte(out), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	note, err := s.store.GetNoteForExport(ctx, req.TenantID, req.NoteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	root, err := Decode(note.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	result := &Result{
		Filename: SanitizeFilename(note.Title) + req.Format.extension(),
		MimeType: req.Format.mimeType(),
	}

	if req.Format != FormatPDF {
		result.Data, err = Render(root, note.Title, req.Format, req.Options)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	// Only PDF artifacts are cached; the text formats render in microseconds.
	key := artifactKey(note, req.Format, req.Options)
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("export: cache lookup %s: %v", key, err)
		} else if ok {
			result.Data = data
			result.Cached = true
			return result, nil
		}
	}

	result.Data, err = s.pdf.RenderPDF(ctx, ToHTML(root, note.Title, req.Options.IncludeStyles))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, result.Data, result.MimeType); err != nil {
			log.Printf("export: cache store %s: %v", key, err)
		}
	}
	return result, nil
}
