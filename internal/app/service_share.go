package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/rbac"
	"github.com/RanitManik/lucide-note/internal/share"
	"github.com/RanitManik/lucide-note/internal/store"
	"github.com/dustin/go-humanize"
)

func (s *Service) sharePayload(item store.SharedNote) map[string]any {
	var expiresAt any
	if item.ExpiresAt != nil {
		expiresAt = timestamp(*item.ExpiresAt)
	}
	return map[string]any{
		"id":          item.ID,
		"token":       item.Token,
		"note_id":     item.NoteID,
		"is_public":   item.IsPublic,
		"include_css": item.IncludeCSS,
		"expires_at":  expiresAt,
		"view_count":  item.ViewCount,
		"created_at":  timestamp(item.CreatedAt),
		"updated_at":  timestamp(item.UpdatedAt),
		"url":         share.URL(s.cfg.PublicURL, item.Token),
	}
}

// noteShare loads a tenant note and its share. A missing share is reported
// as sql.ErrNoRows with the note still returned.
func (s *Service) noteShare(ctx context.Context, session Session, noteID string) (store.Note, store.SharedNote, error) {
	note, err := s.getNote(ctx, session, noteID)
	if err != nil {
		return store.Note{}, store.SharedNote{}, err
	}
	item, err := s.store.GetShareByNote(ctx, session.TenantID, noteID)
	return note, item, err
}

func (s *Service) canShare(session Session) error {
	if !s.Can(session.Role, rbac.ActionShare) {
		return forbidden("Forbidden")
	}
	return nil
}

func (s *Service) GetShare(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	_, item, err := s.noteShare(ctx, session, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotShared
	}
	if err != nil {
		return nil, err
	}
	return s.sharePayload(item), nil
}

// CreateShare returns the note's existing share, or creates one. created
// reports which happened.
func (s *Service) CreateShare(ctx context.Context, session Session, noteID string, input CreateShareInput) (payload map[string]any, created bool, err error) {
	if err := s.canShare(session); err != nil {
		return nil, false, err
	}
	note, existing, err := s.noteShare(ctx, session, noteID)
	if err == nil {
		return s.sharePayload(existing), false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	token, err := share.NewToken()
	if err != nil {
		return nil, false, err
	}
	includeCSS := true
	if input.IncludeCSS != nil {
		includeCSS = *input.IncludeCSS
	}
	item, err := s.store.CreateShare(ctx, store.SharedNote{
		Token:      token,
		NoteID:     note.ID,
		IsPublic:   true,
		IncludeCSS: includeCSS,
		ExpiresAt:  share.ExpiryFor(input.ExpiresIn, s.now()),
	})
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with another create; hand back the winner.
		item, err = s.store.GetShareByNote(ctx, session.TenantID, noteID)
		if err != nil {
			return nil, false, err
		}
		return s.sharePayload(item), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s.sharePayload(item), true, nil
}

func (s *Service) UpdateShare(ctx context.Context, session Session, noteID string, input UpdateShareInput) (map[string]any, error) {
	if err := s.canShare(session); err != nil {
		return nil, err
	}
	_, item, err := s.noteShare(ctx, session, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotShared
	}
	if err != nil {
		return nil, err
	}

	if input.IsPublic != nil {
		item.IsPublic = *input.IsPublic
	}
	if input.IncludeCSS != nil {
		item.IncludeCSS = *input.IncludeCSS
	}
	if len(input.ExpiresIn) > 0 {
		var value *string
		if err := json.Unmarshal(input.ExpiresIn, &value); err != nil {
			return nil, validationError("expires_in must be a string or null", nil)
		}
		item.ExpiresAt = share.UpdateExpiry(item.ExpiresAt, value, s.now())
	}

	updated, err := s.store.UpdateShare(ctx, item)
	if err != nil {
		return nil, err
	}
	return s.sharePayload(updated), nil
}

func (s *Service) DeleteShare(ctx context.Context, session Session, noteID string) error {
	if err := s.canShare(session); err != nil {
		return err
	}
	_, item, err := s.noteShare(ctx, session, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotShared
	}
	if err != nil {
		return err
	}
	err = s.store.DeleteShare(ctx, item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotShared
	}
	return err
}

// openShare resolves a public token and checks it may be viewed. On success
// the view counter is bumped in the background.
func (s *Service) openShare(ctx context.Context, token string) (store.SharedNoteView, error) {
	view, err := s.store.GetSharedNoteByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SharedNoteView{}, share.ErrNotFound
	}
	if err != nil {
		return store.SharedNoteView{}, err
	}
	if err := share.Check(view.Share.IsPublic, view.Share.ExpiresAt, s.now()); err != nil {
		return store.SharedNoteView{}, err
	}

	shareID := view.Share.ID
	s.metrics.ShareViewed()
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.IncrementShareViews(ctx, shareID); err != nil {
			log.Printf("share: count view of %s: %v", shareID, err)
		}
	})
	return view, nil
}

// SharedNote returns the public JSON view of a shared note.
func (s *Service) SharedNote(ctx context.Context, token string) (map[string]any, error) {
	view, err := s.openShare(ctx, token)
	if err != nil {
		return nil, err
	}
	payload := notePayload(view.Note)
	delete(payload, "tenant_id")
	delete(payload, "author_id")
	payload["author"] = map[string]any{
		"email":      view.Author.Email,
		"first_name": nilIfEmpty(view.Author.FirstName),
		"last_name":  nilIfEmpty(view.Author.LastName),
	}
	payload["include_css"] = view.Share.IncludeCSS
	payload["view_count"] = view.Share.ViewCount
	return payload, nil
}

// SharedNotePage renders the public page of a shared note.
func (s *Service) SharedNotePage(ctx context.Context, token string) (string, error) {
	view, err := s.openShare(ctx, token)
	if err != nil {
		return "", err
	}

	var body string
	if root, err := export.Decode(view.Note.Content); err == nil {
		body = export.SanitizeFragment(export.ToHTML(root, "", false))
	}
	views := view.Share.ViewCount + 1
	unit := "views"
	if views == 1 {
		unit = "view"
	}
	return export.RenderSharePage(export.SharePageData{
		Title:      view.Note.Title,
		Author:     view.Author.DisplayName(),
		Updated:    humanize.RelTime(view.Note.UpdatedAt, s.now(), "ago", "from now"),
		Views:      fmt.Sprintf("%s %s", humanize.Comma(int64(views)), unit),
		IncludeCSS: view.Share.IncludeCSS,
		Body:       template.HTML(body),
	})
}

func shareStatus(err error) int {
	switch {
	case errors.Is(err, share.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, share.ErrNotPublic):
		return http.StatusForbidden
	case errors.Is(err, share.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
