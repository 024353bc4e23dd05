package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const shareColumns = `s.id, s.token, s.note_id, s.is_public, s.include_css, s.expires_at, s.view_count, s.created_at, s.updated_at`

func scanShare(row rowScanner) (SharedNote, error) {
	var share SharedNote
	var expiresAt sql.NullTime
	err := row.Scan(&share.ID, &share.Token, &share.NoteID, &share.IsPublic, &share.IncludeCSS,
		&expiresAt, &share.ViewCount, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return SharedNote{}, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		share.ExpiresAt = &t
	}
	return share, nil
}

// GetShareByNote returns the share of a note within a tenant, or
// sql.ErrNoRows when the note is not shared.
func (s *PostgresStore) GetShareByNote(ctx context.Context, tenantID, noteID string) (SharedNote, error) {
	return scanShare(s.db.QueryRowContext(ctx, `
		SELECT `+shareColumns+`
		FROM shared_notes s
		JOIN notes n ON n.id = s.note_id
		WHERE n.tenant_id=$1 AND s.note_id=$2
	`, tenantID, noteID))
}

// CreateShare inserts a share. A second share for the same note yields
// ErrConflict.
func (s *PostgresStore) CreateShare(ctx context.Context, share SharedNote) (SharedNote, error) {
	created, err := scanShare(s.db.QueryRowContext(ctx, `
		INSERT INTO shared_notes AS s (token, note_id, is_public, include_css, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+shareColumns,
		share.Token, share.NoteID, share.IsPublic, share.IncludeCSS, nullTime(share.ExpiresAt)))
	if isUniqueViolation(err) {
		return SharedNote{}, fmt.Errorf("share for note %s: %w", share.NoteID, ErrConflict)
	}
	if err != nil {
		return SharedNote{}, fmt.Errorf("insert share: %w", err)
	}
	return created, nil
}

// UpdateShare stores the mutable settings of share.
func (s *PostgresStore) UpdateShare(ctx context.Context, share SharedNote) (SharedNote, error) {
	return scanShare(s.db.QueryRowContext(ctx, `
		UPDATE shared_notes AS s
		SET is_public=$2, include_css=$3, expires_at=$4, updated_at=NOW()
		WHERE s.id=$1
		RETURNING `+shareColumns,
		share.ID, share.IsPublic, share.IncludeCSS, nullTime(share.ExpiresAt)))
}

func (s *PostgresStore) DeleteShare(ctx context.Context, shareID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shared_notes WHERE id=$1`, shareID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetSharedNoteByToken resolves a public token to the share, its note and
// the note's author. It does not look at visibility or expiry.
func (s *PostgresStore) GetSharedNoteByToken(ctx context.Context, token string) (SharedNoteView, error) {
	var view SharedNoteView
	var expiresAt sql.NullTime
	var content []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.token, s.note_id, s.is_public, s.include_css, s.expires_at, s.view_count, s.created_at, s.updated_at,
			n.id, n.tenant_id, n.author_id, n.title, n.content, n.created_at, n.updated_at,
			u.id, u.email, u.first_name, u.last_name
		FROM shared_notes s
		JOIN notes n ON n.id = s.note_id
		JOIN users u ON u.id = n.author_id
		WHERE s.token=$1
	`, token).Scan(
		&view.Share.ID, &view.Share.Token, &view.Share.NoteID, &view.Share.IsPublic, &view.Share.IncludeCSS,
		&expiresAt, &view.Share.ViewCount, &view.Share.CreatedAt, &view.Share.UpdatedAt,
		&view.Note.ID, &view.Note.TenantID, &view.Note.AuthorID, &view.Note.Title, &content, &view.Note.CreatedAt, &view.Note.UpdatedAt,
		&view.Author.ID, &view.Author.Email, &view.Author.FirstName, &view.Author.LastName,
	)
	if err != nil {
		return SharedNoteView{}, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		view.Share.ExpiresAt = &t
	}
	view.Note.Content = json.RawMessage(content)
	view.Note.AuthorEmail = view.Author.Email
	return view, nil
}

func (s *PostgresStore) IncrementShareViews(ctx context.Context, shareID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE shared_notes SET view_count=view_count+1 WHERE id=$1`, shareID)
	if err != nil {
		return fmt.Errorf("increment share views: %w", err)
	}
	return nil
}

// PurgeExpiredShares deletes shares that expired before cutoff.
func (s *PostgresStore) PurgeExpiredShares(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shared_notes WHERE expires_at IS NOT NULL AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired shares: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
