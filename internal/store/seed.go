package store

import (
	"context"
	"fmt"
)

type seedUser struct {
	email     string
	firstName string
	lastName  string
	role      string
	tenant    string
}

type seedNote struct {
	id      string
	tenant  string
	author  string
	title   string
	content string
}

var (
	seedTenants = []Tenant{
		{Slug: "acme", Name: "Acme", Plan: PlanFree},
		{Slug: "globex", Name: "Globex", Plan: PlanFree},
	}
	seedUsers = []seedUser{
		{"admin@acme.test", "Admin", "Acme", "admin", "acme"},
		{"user@acme.test", "User", "Acme", "member", "acme"},
		{"admin@globex.test", "Admin", "Globex", "admin", "globex"},
		{"user@globex.test", "User", "Globex", "member", "globex"},
	}
	seedNotes = []seedNote{
		{
			id: "acme-note-1", tenant: "acme", author: "admin@acme.test",
			title:   "Welcome to Acme Corporation",
			content: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Welcome to the Acme Corporation notes system! This is your first note."}]}]}`,
		},
		{
			id: "acme-note-2", tenant: "acme", author: "user@acme.test",
			title:   "Meeting Notes - Q1 Planning",
			content: `{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Q1 Planning Meeting"}]},{"type":"paragraph","content":[{"type":"text","text":"Key discussion points for Q1 planning..."}]}]}`,
		},
		{
			id: "globex-note-1", tenant: "globex", author: "admin@globex.test",
			title:   "Globex Company Policies",
			content: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"This document contains important company policies and procedures."}]}]}`,
		},
	}
)

// SeedDemoData creates the demo tenants, users and notes. Existing rows are
// left untouched, so it is safe to run repeatedly. Every demo user gets
// passwordHash.
func (s *PostgresStore) SeedDemoData(ctx context.Context, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tenantIDs := map[string]string{}
	for _, tenant := range seedTenants {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tenants (slug, name, plan) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET slug=EXCLUDED.slug
			RETURNING id
		`, tenant.Slug, tenant.Name, tenant.Plan).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed tenant %s: %w", tenant.Slug, err)
		}
		tenantIDs[tenant.Slug] = id
	}

	userIDs := map[string]string{}
	for _, user := range seedUsers {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (email, first_name, last_name, password_hash, role, tenant_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO UPDATE SET email=EXCLUDED.email
			RETURNING id
		`, user.email, user.firstName, user.lastName, passwordHash, user.role, tenantIDs[user.tenant]).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", user.email, err)
		}
		userIDs[user.email] = id
	}

	for _, note := range seedNotes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notes (id, tenant_id, author_id, title, content)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			ON CONFLICT (id) DO NOTHING
		`, note.id, tenantIDs[note.tenant], userIDs[note.author], note.title, note.content)
		if err != nil {
			return fmt.Errorf("seed note %s: %w", note.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
