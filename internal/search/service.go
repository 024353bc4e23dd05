package search

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/metrics"
	"github.com/RanitManik/lucide-note/internal/store"
)

// Index is the subset of Meili the facade needs.
type Index interface {
	Healthy() bool
	SearchIDs(q Query) ([]string, error)
	IndexNote(note NoteRecord) error
	IndexNotes(notes []NoteRecord) error
	DeleteNote(id string) error
}

// Service is the facade that tries Meilisearch first and falls back to
// substring matching over the tenant's notes.
type Service struct {
	index   Index
	source  NoteSource
	metrics *metrics.Metrics
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, source NoteSource, m *metrics.Metrics) *Service {
	return &Service{index: index, source: source, metrics: m}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

// Search returns the tenant's notes matching q. Notes always come from the
// source, so a stale index can reorder results but never leak or resurrect
// notes.
func (s *Service) Search(ctx context.Context, q Query) ([]store.Note, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if strings.TrimSpace(q.Text) == "" {
		return []store.Note{}, nil
	}

	notes, err := s.source.ListNotes(ctx, q.TenantID)
	if err != nil {
		return nil, err
	}

	if s.indexReady() {
		start := time.Now()
		ids, err := s.index.SearchIDs(q)
		if err == nil {
			s.metrics.ObserveSearch("meilisearch", time.Since(start))
			return pick(notes, ids), nil
		}
		log.Printf("search: meilisearch error, falling back to substring: %v", err)
	}

	start := time.Now()
	results := Rank(notes, q.Text, q.Limit)
	s.metrics.ObserveSearch("substring", time.Since(start))
	return results, nil
}

// pick returns the notes named by ids, in ids order, skipping unknown ids.
func pick(notes []store.Note, ids []string) []store.Note {
	byID := make(map[string]store.Note, len(notes))
	for _, note := range notes {
		byID[note.ID] = note
	}
	out := make([]store.Note, 0, len(ids))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			out = append(out, note)
		}
	}
	return out
}

// RecordFor builds the index record of a note. The indexed text is the
// note's plain-text rendering.
func RecordFor(note store.Note) NoteRecord {
	record := NoteRecord{
		ID:        note.ID,
		TenantID:  note.TenantID,
		Title:     note.Title,
		CreatedAt: note.CreatedAt.Unix(),
	}
	if root, err := export.Decode(note.Content); err == nil {
		record.Text = export.ToPlainText(root)
	}
	return record
}

// IndexNote indexes a note (fire-and-forget to Meilisearch).
func (s *Service) IndexNote(note store.Note) {
	if !s.indexReady() {
		return
	}
	record := RecordFor(note)
	go func() {
		if err := s.index.IndexNote(record); err != nil {
			log.Printf("search: index note %s: %v", record.ID, err)
		}
	}()
}

// DeleteNote removes a note from the search index (fire-and-forget).
func (s *Service) DeleteNote(id string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.DeleteNote(id); err != nil {
			log.Printf("search: delete note %s: %v", id, err)
		}
	}()
}

// Reindex pushes every note of the given tenants to Meilisearch.
func (s *Service) Reindex(ctx context.Context, tenantIDs []string) {
	if !s.indexReady() {
		return
	}
	for _, tenantID := range tenantIDs {
		notes, err := s.source.ListNotes(ctx, tenantID)
		if err != nil {
			log.Printf("search: reindex load tenant %s: %v", tenantID, err)
			continue
		}
		records := make([]NoteRecord, 0, len(notes))
		for _, note := range notes {
			records = append(records, RecordFor(note))
		}
		if err := s.index.IndexNotes(records); err != nil {
			log.Printf("search: reindex tenant %s: %v", tenantID, err)
		}
	}
}
