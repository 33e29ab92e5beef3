package search

import "fmt"

// Result is a single search hit returned to the caller.
type Result struct {
	NoteID  string `json:"noteId"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

// Query describes a search request. UserID is always required: notes are
// never searchable across accounts.
type Query struct {
	UserID string
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over note text.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push note entries into a search index.
type Indexer interface {
	IndexNotes(records []NoteRecord) error
}

// NoteRecord is the data we index for one note on one day.
type NoteRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	NoteID string `json:"noteId"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

// RecordID builds the index primary key for a note on a given day. Meilisearch
// only accepts [a-zA-Z0-9_-] in document ids, which all three parts satisfy.
func RecordID(userID, noteID, date string) string {
	return fmt.Sprintf("%s_%s_%s", userID, noteID, date)
}
