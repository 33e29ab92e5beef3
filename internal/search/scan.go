package search

import (
	"sort"
	"strings"

	"daymark/api/internal/habits"
)

// StateLoader fetches a user's full tracker state. The fallback searcher uses
// it to scan note text directly when Meilisearch is unavailable.
type StateLoader func(userID string) (habits.Data, error)

// Scan is a brute-force Searcher over the user's own history. It is always
// healthy and always consistent with the backend, just slower than an index.
type Scan struct {
	load StateLoader
}

func NewScan(load StateLoader) *Scan {
	return &Scan{load: load}
}

// Healthy always reports true; the scan has no external dependency.
func (s *Scan) Healthy() bool { return true }

// Search walks every snapshot of the user's history looking for a
// case-insensitive substring match in note text or note name. Results come
// back newest day first.
func (s *Scan) Search(q Query) ([]Result, int, error) {
	data, err := s.load(q.UserID)
	if err != nil {
		return nil, 0, err
	}

	names := make(map[string]string, len(data.Notes))
	for _, n := range data.Notes {
		names[n.ID] = n.Name
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var matches []Result
	for _, snap := range data.Snapshots {
		for _, entry := range snap.Notes {
			text := strings.TrimSpace(entry.Text)
			if text == "" {
				continue
			}
			name := names[entry.NoteID]
			if needle != "" &&
				!strings.Contains(strings.ToLower(text), needle) &&
				!strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			matches = append(matches, Result{
				NoteID:  entry.NoteID,
				Name:    name,
				Snippet: snippet(text),
				Date:    snap.Date,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date > matches[j].Date
	})

	total := len(matches)
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if q.Offset >= total {
		return []Result{}, total, nil
	}
	matches = matches[q.Offset:]
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

const snippetLimit = 200

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit]) + "…"
}
