package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/search"
	"github.com/RanitManik/lucide-note/internal/store"
	"github.com/RanitManik/lucide-note/internal/util"
)

func notePayload(note store.Note) map[string]any {
	content := note.Content
	if len(content) == 0 {
		content = json.RawMessage(`null`)
	}
	return map[string]any{
		"id":         note.ID,
		"title":      note.Title,
		"content":    content,
		"tenant_id":  note.TenantID,
		"author_id":  note.AuthorID,
		"author":     map[string]any{"email": note.AuthorEmail},
		"created_at": timestamp(note.CreatedAt),
		"updated_at": timestamp(note.UpdatedAt),
	}
}

func notesPayload(notes []store.Note) []map[string]any {
	out := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		out = append(out, notePayload(note))
	}
	return out
}

func (s *Service) ListNotes(ctx context.Context, session Session) ([]map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}
	return notesPayload(notes), nil
}

func (s *Service) getNote(ctx context.Context, session Session, noteID string) (store.Note, error) {
	if err := requireTenant(session); err != nil {
		return store.Note{}, err
	}
	note, err := s.store.GetNote(ctx, session.TenantID, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Note{}, errNoteNotFound
	}
	return note, err
}

func (s *Service) GetNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	note, err := s.getNote(ctx, session, noteID)
	if err != nil {
		return nil, err
	}
	return notePayload(note), nil
}

func (s *Service) CreateNote(ctx context.Context, session Session, input CreateNoteInput) (map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	note, err := s.store.InsertNote(ctx, store.Note{
		ID:          util.NewID(""),
		TenantID:    session.TenantID,
		AuthorID:    session.UserID,
		AuthorEmail: session.Email,
		Title:       input.Title,
		Content:     nullableDocument(input.Content),
	}, s.cfg.FreeNoteLimit)
	if errors.Is(err, store.ErrNoteLimitReached) {
		return nil, domainError(http.StatusForbidden, "NOTE_LIMIT_REACHED",
			"Note limit reached. Upgrade to Pro for unlimited notes.",
			map[string]any{"limit": s.cfg.FreeNoteLimit})
	}
	if err != nil {
		return nil, err
	}
	s.search.IndexNote(note)
	return notePayload(note), nil
}

func (s *Service) UpdateNote(ctx context.Context, session Session, noteID string, input UpdateNoteInput) (map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return nil, validationError("title cannot be empty", nil)
		}
		input.Title = &trimmed
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	note, err := s.store.UpdateNote(ctx, session.TenantID, noteID, store.NotePatch{
		Title:   input.Title,
		Content: nullableDocument(input.Content),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	s.search.IndexNote(note)
	return notePayload(note), nil
}

func (s *Service) DeleteNote(ctx context.Context, session Session, noteID string) error {
	if err := requireTenant(session); err != nil {
		return err
	}
	err := s.store.DeleteNote(ctx, session.TenantID, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoteNotFound
	}
	if err != nil {
		return err
	}
	s.search.DeleteNote(noteID)
	return nil
}

// nullableDocument treats a JSON null document like an absent one.
func nullableDocument(raw json.RawMessage) json.RawMessage {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil
	}
	return raw
}

func (s *Service) SearchNotes(ctx context.Context, session Session, query string) ([]map[string]any, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	notes, err := s.search.Search(ctx, search.Query{TenantID: session.TenantID, Text: query})
	if err != nil {
		return nil, err
	}
	return notesPayload(notes), nil
}

// ExportNote renders a note as a downloadable artifact.
func (s *Service) ExportNote(ctx context.Context, session Session, noteID string, input ExportInput) (*export.Result, error) {
	if err := requireTenant(session); err != nil {
		return nil, err
	}
	input.Format = strings.ToLower(strings.TrimSpace(input.Format))
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	format, _ := export.ParseFormat(input.Format)
	includeStyles := true
	if input.IncludeStyles != nil {
		includeStyles = *input.IncludeStyles
	}

	result, err := s.exporter.Export(ctx, export.Request{
		TenantID: session.TenantID,
		NoteID:   noteID,
		Format:   format,
		Options: export.Options{
			IncludeStyles: includeStyles,
			Minify:        input.Minify,
		},
	})
	switch {
	case err == nil:
		outcome := "ok"
		if result.Cached {
			outcome = "cached"
		}
		s.metrics.ObserveExport(string(format), outcome)
		return result, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, errNoteNotFound
	case errors.Is(err, export.ErrPDFDependencyMissing):
		s.metrics.ObserveExport(string(format), "unavailable")
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil)
	default:
		log.Printf("export: note %s as %s: %v", noteID, format, err)
		s.metrics.ObserveExport(string(format), "error")
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "failed to export", nil)
	}
}

// exportSource adapts the note store to the exporter.
type exportSource struct {
	store interface {
		GetNote(context.Context, string, string) (store.Note, error)
	}
}

func (e exportSource) GetNoteForExport(ctx context.Context, tenantID, noteID string) (export.Note, error) {
	note, err := e.store.GetNote(ctx, tenantID, noteID)
	if err != nil {
		return export.Note{}, err
	}
	return export.Note{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		UpdatedAt: note.UpdatedAt,
	}, nil
}
