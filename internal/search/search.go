package search

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/RanitManik/lucide-note/internal/store"
)

// DefaultLimit caps the number of notes a search returns.
const DefaultLimit = 20

// Query describes a search request. Results never cross TenantID.
type Query struct {
	TenantID string
	Text     string
	Limit    int
}

// NoteSource loads the notes a tenant can search, newest first.
type NoteSource interface {
	ListNotes(ctx context.Context, tenantID string) ([]store.Note, error)
}

// NoteRecord is the data we index for a note.
type NoteRecord struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// Rank filters notes to those whose title or serialized content contains
// query, case-insensitively. Title matches come first; within each group
// newer notes come first. At most limit notes are returned. A blank query
// matches nothing.
func Rank(notes []store.Note, query string, limit int) []store.Note {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []store.Note{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	type hit struct {
		note       store.Note
		titleMatch bool
	}
	hits := make([]hit, 0)
	for _, note := range notes {
		titleMatch := strings.Contains(strings.ToLower(note.Title), needle)
		if titleMatch || strings.Contains(serializedContent(note.Content), needle) {
			hits = append(hits, hit{note: note, titleMatch: titleMatch})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].titleMatch != hits[j].titleMatch {
			return hits[i].titleMatch
		}
		return hits[i].note.CreatedAt.After(hits[j].note.CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]store.Note, len(hits))
	for i, h := range hits {
		out[i] = h.note
	}
	return out
}

// serializedContent returns the lowercased compact JSON of a document, so
// matching does not depend on how the database formatted it. Content that
// is not a JSON object is not searchable.
func serializedContent(content json.RawMessage) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return ""
	}
	return strings.ToLower(buf.String())
}
