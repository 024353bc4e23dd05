package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RanitManik/lucide-note/internal/config"
	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/store"
	"github.com/RanitManik/lucide-note/internal/util"
)

// fakeStore is an in-memory dataStore. The *Fn fields override single
// methods for failure cases.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]store.User
	tenants  map[string]store.Tenant
	notes    map[string]store.Note
	shares   map[string]store.SharedNote
	refresh  map[string]string
	revoked  map[string]bool
	clock    time.Time
	viewHits int

	pingFn       func(context.Context) error
	insertNoteFn func(context.Context, store.Note, int) (store.Note, error)
	incrementFn  func(context.Context, string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]store.User{},
		tenants: map[string]store.Tenant{},
		notes:   map[string]store.Note{},
		shares:  map[string]store.SharedNote{},
		refresh: map[string]string{},
		revoked: map[string]bool{},
		clock:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeStore) addTenant(slug, plan string) store.Tenant {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := store.Tenant{ID: "tenant-" + slug, Slug: slug, Name: strings.ToUpper(slug[:1]) + slug[1:], Plan: plan, CreatedAt: f.tick()}
	f.tenants[tenant.ID] = tenant
	return tenant
}

func (f *fakeStore) addUser(email, role, tenantID string) store.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := store.User{ID: "user-" + email, Email: email, Role: role, TenantID: tenantID, CreatedAt: f.tick()}
	f.users[user.ID] = user
	return user
}

func (f *fakeStore) addNote(tenantID, authorID, title, content string) store.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	note := store.Note{
		ID:          util.NewID(""),
		TenantID:    tenantID,
		AuthorID:    authorID,
		AuthorEmail: f.users[authorID].Email,
		Title:       title,
		Content:     json.RawMessage(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.notes[note.ID] = note
	return note
}

func (f *fakeStore) addShare(noteID string, public bool, expiresAt *time.Time) store.SharedNote {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := store.SharedNote{
		ID:         "share-" + noteID,
		Token:      "tok-" + noteID,
		NoteID:     noteID,
		IsPublic:   public,
		IncludeCSS: true,
		ExpiresAt:  expiresAt,
		ViewCount:  41,
		CreatedAt:  f.tick(),
	}
	f.shares[item.ID] = item
	return item
}

func (f *fakeStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[tokenHash] = userID
	return nil
}

func (f *fakeStore) ConsumeRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refresh[tokenHash]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	delete(f.refresh, tokenHash)
	return store.User{ID: userID}, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, tokenHash)
	return nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) CreateUser(_ context.Context, user store.User) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.User{}, store.ErrConflict
		}
	}
	user.ID = "user-" + user.Email
	user.CreatedAt = f.tick()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) GetTenantByID(_ context.Context, tenantID string) (store.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant, ok := f.tenants[tenantID]
	if !ok {
		return store.Tenant{}, sql.ErrNoRows
	}
	return tenant, nil
}

func (f *fakeStore) SetupOrganization(_ context.Context, userID, slug, name string) (store.Tenant, store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tenant := range f.tenants {
		if tenant.Slug == slug {
			return store.Tenant{}, store.User{}, store.ErrConflict
		}
	}
	user, ok := f.users[userID]
	if !ok || user.TenantID != "" {
		return store.Tenant{}, store.User{}, sql.ErrNoRows
	}
	tenant := store.Tenant{ID: "tenant-" + slug, Slug: slug, Name: name, Plan: store.PlanFree, CreatedAt: f.tick()}
	f.tenants[tenant.ID] = tenant
	user.TenantID = tenant.ID
	user.Role = "admin"
	f.users[userID] = user
	return tenant, user, nil
}

func (f *fakeStore) UpdateTenantPlan(_ context.Context, tenantID, plan string) (store.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant, ok := f.tenants[tenantID]
	if !ok {
		return store.Tenant{}, sql.ErrNoRows
	}
	tenant.Plan = plan
	f.tenants[tenantID] = tenant
	return tenant, nil
}

func (f *fakeStore) ListNotes(_ context.Context, tenantID string) ([]store.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Note{}
	for _, note := range f.notes {
		if note.TenantID == tenantID {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetNote(_ context.Context, tenantID, noteID string) (store.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[noteID]
	if !ok || note.TenantID != tenantID {
		return store.Note{}, sql.ErrNoRows
	}
	return note, nil
}

func (f *fakeStore) CountNotes(_ context.Context, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, note := range f.notes {
		if note.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) InsertNote(ctx context.Context, note store.Note, freeLimit int) (store.Note, error) {
	if f.insertNoteFn != nil {
		return f.insertNoteFn(ctx, note, freeLimit)
	}
	count, _ := f.CountNotes(ctx, note.TenantID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tenants[note.TenantID].Plan == store.PlanFree && freeLimit > 0 && count >= freeLimit {
		return store.Note{}, store.ErrNoteLimitReached
	}
	if len(note.Content) == 0 {
		note.Content = json.RawMessage(`{"type":"doc","content":[]}`)
	}
	note.CreatedAt = f.tick()
	note.UpdatedAt = note.CreatedAt
	f.notes[note.ID] = note
	return note, nil
}

func (f *fakeStore) UpdateNote(_ context.Context, tenantID, noteID string, patch store.NotePatch) (store.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[noteID]
	if !ok || note.TenantID != tenantID {
		return store.Note{}, sql.ErrNoRows
	}
	if patch.Title != nil {
		note.Title = *patch.Title
	}
	if len(patch.Content) > 0 {
		note.Content = patch.Content
	}
	note.UpdatedAt = f.tick()
	f.notes[noteID] = note
	return note, nil
}

func (f *fakeStore) DeleteNote(_ context.Context, tenantID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[noteID]
	if !ok || note.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(f.notes, noteID)
	for id, item := range f.shares {
		if item.NoteID == noteID {
			delete(f.shares, id)
		}
	}
	return nil
}

func (f *fakeStore) GetShareByNote(_ context.Context, tenantID, noteID string) (store.SharedNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note, ok := f.notes[noteID]; !ok || note.TenantID != tenantID {
		return store.SharedNote{}, sql.ErrNoRows
	}
	for _, item := range f.shares {
		if item.NoteID == noteID {
			return item, nil
		}
	}
	return store.SharedNote{}, sql.ErrNoRows
}

func (f *fakeStore) CreateShare(_ context.Context, item store.SharedNote) (store.SharedNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.shares {
		if existing.NoteID == item.NoteID {
			return store.SharedNote{}, store.ErrConflict
		}
	}
	item.ID = "share-" + item.NoteID
	item.CreatedAt = f.tick()
	item.UpdatedAt = item.CreatedAt
	f.shares[item.ID] = item
	return item, nil
}

func (f *fakeStore) UpdateShare(_ context.Context, item store.SharedNote) (store.SharedNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shares[item.ID]; !ok {
		return store.SharedNote{}, sql.ErrNoRows
	}
	item.UpdatedAt = f.tick()
	f.shares[item.ID] = item
	return item, nil
}

func (f *fakeStore) DeleteShare(_ context.Context, shareID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shares[shareID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.shares, shareID)
	return nil
}

func (f *fakeStore) GetSharedNoteByToken(_ context.Context, token string) (store.SharedNoteView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.shares {
		if item.Token != token {
			continue
		}
		note := f.notes[item.NoteID]
		return store.SharedNoteView{Share: item, Note: note, Author: f.users[note.AuthorID]}, nil
	}
	return store.SharedNoteView{}, sql.ErrNoRows
}

func (f *fakeStore) IncrementShareViews(ctx context.Context, shareID string) error {
	if f.incrementFn != nil {
		return f.incrementFn(ctx, shareID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.shares[shareID]
	item.ViewCount++
	f.shares[shareID] = item
	f.viewHits++
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// fakePDF stands in for headless Chrome.
type fakePDF struct {
	err error
}

func (p fakePDF) RenderPDF(_ context.Context, html string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 " + html[:min(len(html), 16)]), nil
}

var _ export.PDFRenderer = fakePDF{}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "test-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		PublicURL:     "https://notes.example",
		FreeNoteLimit: 3,
	}
}

func newTestService(fs *fakeStore) *Service {
	svc := New(testConfig(), fs, Deps{PDF: fakePDF{}})
	svc.async = func(fn func()) { fn() }
	return svc
}

// tokenFor signs in user and returns a bearer token.
func tokenFor(t *testing.T, svc *Service, user store.User) string {
	t.Helper()
	session, err := svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return session.Token
}

func withNames(user store.User, first, last string) store.User {
	user.FirstName = first
	user.LastName = last
	return user
}
