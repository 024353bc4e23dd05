package store

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

var (
	// ErrNoteLimitReached is returned when a free tenant is at its note cap.
	ErrNoteLimitReached = errors.New("note limit reached")
	// ErrConflict is returned when a unique column (email, slug) is taken.
	ErrConflict = errors.New("already exists")
)

type Tenant struct {
	ID        string
	Slug      string
	Name      string
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	// TenantID is empty until the user sets up or joins an organization.
	TenantID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName joins the user's names, falling back to the email address.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

type Note struct {
	ID          string
	TenantID    string
	AuthorID    string
	AuthorEmail string
	Title       string
	Content     json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NotePatch carries a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title   *string
	Content json.RawMessage
}

type SharedNote struct {
	ID         string
	Token      string
	NoteID     string
	IsPublic   bool
	IncludeCSS bool
	ExpiresAt  *time.Time
	ViewCount  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SharedNoteView is a share joined with the note it exposes and its author.
type SharedNoteView struct {
	Share  SharedNote
	Note   Note
	Author User
}
