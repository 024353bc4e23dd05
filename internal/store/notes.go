package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const noteColumns = `n.id, n.tenant_id, n.author_id, u.email, n.title, n.content, n.created_at, n.updated_at`

func scanNote(row rowScanner) (Note, error) {
	var note Note
	var content []byte
	err := row.Scan(&note.ID, &note.TenantID, &note.AuthorID, &note.AuthorEmail, &note.Title, &content, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	note.Content = json.RawMessage(content)
	return note, nil
}

// ListNotes returns a tenant's notes, newest first.
func (s *PostgresStore) ListNotes(ctx context.Context, tenantID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n
		JOIN users u ON u.id = n.author_id
		WHERE n.tenant_id=$1
		ORDER BY n.created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		item, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

// GetNote returns sql.ErrNoRows when the note does not exist in the tenant.
func (s *PostgresStore) GetNote(ctx context.Context, tenantID, noteID string) (Note, error) {
	return scanNote(s.db.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n
		JOIN users u ON u.id = n.author_id
		WHERE n.tenant_id=$1 AND n.id=$2
	`, tenantID, noteID))
}

// CountNotes returns how many notes a tenant owns.
func (s *PostgresStore) CountNotes(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE tenant_id=$1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// InsertNote creates a note. While the tenant is on the free plan and
// freeLimit is positive, the insert fails with ErrNoteLimitReached once the
// tenant owns freeLimit notes. The tenant row is locked for the check so
// concurrent creates cannot overshoot the cap.
func (s *PostgresStore) InsertNote(ctx context.Context, note Note, freeLimit int) (Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, fmt.Errorf("begin note tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var plan string
	if err := tx.QueryRowContext(ctx, `SELECT plan FROM tenants WHERE id=$1 FOR UPDATE`, note.TenantID).Scan(&plan); err != nil {
		return Note{}, fmt.Errorf("lock tenant: %w", err)
	}
	if plan == PlanFree && freeLimit > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE tenant_id=$1`, note.TenantID).Scan(&count); err != nil {
			return Note{}, fmt.Errorf("count notes: %w", err)
		}
		if count >= freeLimit {
			return Note{}, ErrNoteLimitReached
		}
	}

	content := note.Content
	if len(content) == 0 {
		content = json.RawMessage(`{"type":"doc","content":[]}`)
	}
	var created Note
	var raw []byte
	err = tx.QueryRowContext(ctx, `
		INSERT INTO notes (id, tenant_id, author_id, title, content)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id, tenant_id, author_id, title, content, created_at, updated_at
	`, note.ID, note.TenantID, note.AuthorID, note.Title, string(content)).Scan(
		&created.ID, &created.TenantID, &created.AuthorID, &created.Title, &raw, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	created.Content = json.RawMessage(raw)
	created.AuthorEmail = note.AuthorEmail

	if err := tx.Commit(); err != nil {
		return Note{}, fmt.Errorf("commit note tx: %w", err)
	}
	return created, nil
}

// UpdateNote applies patch and returns the updated note, or sql.ErrNoRows
// when the note does not exist in the tenant.
func (s *PostgresStore) UpdateNote(ctx context.Context, tenantID, noteID string, patch NotePatch) (Note, error) {
	var content sql.NullString
	if len(patch.Content) > 0 {
		content = sql.NullString{String: string(patch.Content), Valid: true}
	}
	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title=COALESCE($3, title), content=COALESCE($4::jsonb, content), updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2
	`, tenantID, noteID, title, content)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Note{}, sql.ErrNoRows
	}
	return s.GetNote(ctx, tenantID, noteID)
}

// DeleteNote removes a note and, through the foreign key, its share.
func (s *PostgresStore) DeleteNote(ctx context.Context, tenantID, noteID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE tenant_id=$1 AND id=$2`, tenantID, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
