package habits

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SentinelNoText is written to a note cell whose text is empty, so the cell
// stays non-empty and the day round-trips as "tracked with empty text" rather
// than "not tracked".
const SentinelNoText = "No text for that day"

const (
	categoryHabits = "Habits"
	categoryNotes  = "Notes"
	dateHeader     = "Date"
)

var habitCellRe = regexp.MustCompile(`^(\d+)/(\d+)$`)

// EncodeGrid renders the state triple as a flat cell grid: a category row, a
// column-names row, then one row per snapshot date in ascending order.
// Columns are ordered by sorted habit text / note name, never by id, so that
// DecodeGrid reconstructs ids in the same order. Two definitions sharing a
// name collapse into one column.
func EncodeGrid(hs []Habit, ns []Note, snapshots []DailySnapshot) [][]string {
	habitNames := distinctSorted(len(hs), func(i int) string { return hs[i].Text })
	noteNames := distinctSorted(len(ns), func(i int) string { return ns[i].Name })

	habitName := make(map[string]string, len(hs))
	for _, h := range hs {
		habitName[h.ID] = h.Text
	}
	noteName := make(map[string]string, len(ns))
	for _, n := range ns {
		noteName[n.ID] = n.Name
	}

	categoryRow := []string{dateHeader}
	if len(habitNames) > 0 {
		categoryRow = append(categoryRow, categoryHabits)
		categoryRow = append(categoryRow, blanks(len(habitNames)-1)...)
	}
	if len(noteNames) > 0 {
		categoryRow = append(categoryRow, categoryNotes)
		categoryRow = append(categoryRow, blanks(len(noteNames)-1)...)
	}

	namesRow := []string{dateHeader}
	namesRow = append(namesRow, habitNames...)
	namesRow = append(namesRow, noteNames...)

	// date -> column name -> cell
	cells := make(map[string]map[string]string)
	for _, snap := range snapshots {
		day, ok := cells[snap.Date]
		if !ok {
			day = make(map[string]string)
			cells[snap.Date] = day
		}
		for _, e := range snap.Habits {
			name, ok := habitName[e.HabitID]
			if !ok {
				continue // dangling reference, nothing to write under
			}
			day[name] = fmt.Sprintf("%d/%d", e.DidCount, e.NeedCount)
		}
		for _, e := range snap.Notes {
			name, ok := noteName[e.NoteID]
			if !ok {
				continue
			}
			text := strings.TrimSpace(e.Text)
			if text == "" {
				text = SentinelNoText
			}
			day[name] = text
		}
	}

	dates := make([]string, 0, len(cells))
	for date := range cells {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	grid := make([][]string, 0, 2+len(dates))
	grid = append(grid, categoryRow, namesRow)
	for _, date := range dates {
		day := cells[date]
		row := make([]string, 0, len(namesRow))
		row = append(row, date)
		for _, name := range habitNames {
			row = append(row, day[name])
		}
		for _, name := range noteNames {
			row = append(row, day[name])
		}
		grid = append(grid, row)
	}
	return grid
}

// DecodeGrid parses a cell grid back into the state triple. Malformed input
// (fewer than 3 rows, no data columns) decodes as an empty dataset, never an
// error. Ids are re-derived from column names and so are stable across
// repeated decodes of the same grid.
func DecodeGrid(rows [][]string) Data {
	if len(rows) < 3 {
		return Empty()
	}
	categoryRow, namesRow := rows[0], rows[1]
	if len(namesRow) < 2 {
		return Empty()
	}

	// Classify data columns by the category row, carrying the previous label
	// forward through blank cells. A blank before any label classifies the
	// column as neither; that column drops out of the dataset. Known quirk of
	// the sheet layout, kept as-is.
	var habitNames, noteNames []string
	for i := 1; i < len(namesRow); i++ {
		category := ""
		if i < len(categoryRow) {
			category = categoryRow[i]
		}
		name := namesRow[i]
		switch {
		case category == categoryHabits ||
			(category == "" && len(habitNames) > 0 && len(noteNames) == 0):
			habitNames = append(habitNames, name)
		case category == categoryNotes || (category == "" && len(noteNames) > 0):
			noteNames = append(noteNames, name)
		}
	}

	habits := make([]Habit, 0, len(habitNames))
	for _, name := range habitNames {
		habits = append(habits, Habit{ID: DeriveID(KindHabit, name), Text: name})
	}
	notes := make([]Note, 0, len(noteNames))
	for _, name := range noteNames {
		notes = append(notes, Note{ID: DeriveID(KindNote, name), Name: name})
	}

	snapshots := make([]DailySnapshot, 0, len(rows)-2)
	for _, row := range rows[2:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		snap := DailySnapshot{Date: row[0], Habits: []HabitEntry{}, Notes: []NoteEntry{}}
		for i, habit := range habits {
			match := habitCellRe.FindStringSubmatch(cellAt(row, i+1))
			if match == nil {
				continue // empty or unparseable cell: habit untracked that day
			}
			did, _ := strconv.Atoi(match[1])
			need, _ := strconv.Atoi(match[2])
			snap.Habits = append(snap.Habits, HabitEntry{
				HabitID:   habit.ID,
				NeedCount: need,
				DidCount:  did,
			})
		}
		for i, note := range notes {
			cell := cellAt(row, len(habits)+i+1)
			if cell == "" {
				continue
			}
			text := cell
			if cell == SentinelNoText {
				text = ""
			}
			snap.Notes = append(snap.Notes, NoteEntry{NoteID: note.ID, Text: text})
		}
		snapshots = append(snapshots, snap)
	}

	return Data{Habits: habits, Notes: notes, Snapshots: snapshots}
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blanks(n int) []string {
	return make([]string, n)
}

func distinctSorted(n int, name func(int) string) []string {
	seen := make(map[string]struct{}, n)
	var names []string
	for i := 0; i < n; i++ {
		v := name(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}
