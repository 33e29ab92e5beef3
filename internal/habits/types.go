// Package habits holds the domain model for daily habit and note tracking:
// definitions, per-day snapshots, the spreadsheet-grid codec and the
// reconciliation engine that turns a sparse history into a gap-free one.
package habits

// Habit is a tracked activity definition. The ID is immutable; Text is the
// display name and is allowed to collide between two habits.
type Habit struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Note is a free-text journal definition. Per-day text lives in snapshots.
type Note struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HabitEntry records one habit's progress for one day.
type HabitEntry struct {
	HabitID   string `json:"habitId"`
	NeedCount int    `json:"habitNeedCount"`
	DidCount  int    `json:"habitDidCount"`
}

// NoteEntry records one note's text for one day. An absent entry means the
// note was not tracked that day, which is distinct from empty text.
type NoteEntry struct {
	NoteID string `json:"noteId"`
	Text   string `json:"noteText"`
}

// DailySnapshot is the recorded state for exactly one calendar day.
type DailySnapshot struct {
	Date   string       `json:"date"` // "YYYY-MM-DD"
	Habits []HabitEntry `json:"habits"`
	Notes  []NoteEntry  `json:"notes"`
}

// Data is the full persisted state triple. The definition lists are
// append-only: deleting a habit or note removes it from today's snapshot but
// never from the list, so historical days still resolve names.
type Data struct {
	Habits    []Habit         `json:"habits"`
	Notes     []Note          `json:"notes"`
	Snapshots []DailySnapshot `json:"snapshots"`
}

// Empty returns a Data value with non-nil empty collections.
func Empty() Data {
	return Data{Habits: []Habit{}, Notes: []Note{}, Snapshots: []DailySnapshot{}}
}

func (d Data) findSnapshot(date string) (DailySnapshot, bool) {
	for _, s := range d.Snapshots {
		if s.Date == date {
			return s, true
		}
	}
	return DailySnapshot{}, false
}
