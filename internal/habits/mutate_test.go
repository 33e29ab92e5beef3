package habits

import (
	"reflect"
	"testing"
)

const testToday = "2024-04-10"

func reconciled(d Data, todayStr string) Data {
	_, all := Reconcile(d.Habits, d.Notes, d.Snapshots, todayStr)
	d.Snapshots = all
	return d
}

func stateWithHistory() Data {
	return reconciled(Data{
		Habits: []Habit{{ID: "h1", Text: "Read"}},
		Notes:  []Note{{ID: "n1", Name: "Mood"}},
		Snapshots: []DailySnapshot{{
			Date:   "2024-04-08",
			Habits: []HabitEntry{{HabitID: "h1", NeedCount: 3, DidCount: 2}},
			Notes:  []NoteEntry{{NoteID: "n1", Text: "ok"}},
		}},
	}, testToday)
}

func todayOf(t *testing.T, d Data) DailySnapshot {
	t.Helper()
	snap, ok := d.findSnapshot(testToday)
	if !ok {
		t.Fatalf("today %s missing from state", testToday)
	}
	return snap
}

func TestApplyIncrement(t *testing.T) {
	d := stateWithHistory()
	got := ApplyIncrement(d, testToday, "h1", 1)

	if todayOf(t, got).Habits[0].DidCount != 1 {
		t.Errorf("today did = %d, want 1", todayOf(t, got).Habits[0].DidCount)
	}
	// Historical day untouched.
	if got.Snapshots[0].Habits[0].DidCount != 2 {
		t.Errorf("history mutated: %+v", got.Snapshots[0])
	}
	// Input state untouched.
	if todayOf(t, d).Habits[0].DidCount != 0 {
		t.Errorf("input state mutated: %+v", todayOf(t, d))
	}
}

func TestApplyIncrementUnknownHabit(t *testing.T) {
	d := stateWithHistory()
	got := ApplyIncrement(d, testToday, "h-missing", 5)
	if !reflect.DeepEqual(todayOf(t, got), todayOf(t, d)) {
		t.Error("incrementing an untracked habit must be a no-op")
	}
}

func TestApplyAddHabit(t *testing.T) {
	d := stateWithHistory()
	got := ApplyAddHabit(d, testToday, Habit{ID: "h2", Text: "Run"}, 2)

	if len(got.Habits) != 2 {
		t.Fatalf("definitions = %+v", got.Habits)
	}
	today := todayOf(t, got)
	if len(today.Habits) != 2 {
		t.Fatalf("today habits = %+v", today.Habits)
	}
	added := today.Habits[1]
	if added.HabitID != "h2" || added.NeedCount != 2 || added.DidCount != 0 {
		t.Errorf("added entry = %+v", added)
	}
}

func TestApplyAddHabitDuplicateID(t *testing.T) {
	d := stateWithHistory()
	got := ApplyAddHabit(d, testToday, Habit{ID: "h1", Text: "Read again"}, 9)
	if !reflect.DeepEqual(got, d) {
		t.Error("duplicate id add must return state unchanged")
	}
}

func TestApplyEditHabit(t *testing.T) {
	d := stateWithHistory()
	got := ApplyEditHabit(d, testToday, Habit{ID: "h1", Text: "Read books"}, 5, 4)

	if got.Habits[0].Text != "Read books" {
		t.Errorf("definition text = %q", got.Habits[0].Text)
	}
	today := todayOf(t, got)
	if today.Habits[0].NeedCount != 5 || today.Habits[0].DidCount != 4 {
		t.Errorf("today entry = %+v", today.Habits[0])
	}
	// Edits never touch historical days.
	if got.Snapshots[0].Habits[0].NeedCount != 3 {
		t.Errorf("history mutated: %+v", got.Snapshots[0])
	}
}

func TestApplyDeleteHabitPreservesHistory(t *testing.T) {
	d := stateWithHistory()
	got := ApplyDeleteHabit(d, testToday, "h1")

	if len(todayOf(t, got).Habits) != 0 {
		t.Errorf("today still tracks deleted habit: %+v", todayOf(t, got).Habits)
	}
	if len(got.Snapshots[0].Habits) != 1 {
		t.Errorf("historical day lost its entry: %+v", got.Snapshots[0])
	}
	if len(got.Habits) != 1 || got.Habits[0].ID != "h1" {
		t.Errorf("definition list must keep h1: %+v", got.Habits)
	}
}

func TestApplyAddNote(t *testing.T) {
	d := stateWithHistory()
	got := ApplyAddNote(d, testToday, Note{ID: "n2", Name: "Journal"}, "first entry")

	if len(got.Notes) != 2 {
		t.Fatalf("definitions = %+v", got.Notes)
	}
	today := todayOf(t, got)
	if len(today.Notes) != 2 || today.Notes[1].Text != "first entry" {
		t.Errorf("today notes = %+v", today.Notes)
	}
}

func TestApplyAddNoteDuplicateID(t *testing.T) {
	d := stateWithHistory()
	got := ApplyAddNote(d, testToday, Note{ID: "n1", Name: "Mood again"}, "x")
	if !reflect.DeepEqual(got, d) {
		t.Error("duplicate id add must return state unchanged")
	}
}

func TestApplyEditNote(t *testing.T) {
	d := stateWithHistory()
	got := ApplyEditNote(d, testToday, "n1", "Evening mood", "tired")

	if got.Notes[0].Name != "Evening mood" {
		t.Errorf("definition name = %q", got.Notes[0].Name)
	}
	if todayOf(t, got).Notes[0].Text != "tired" {
		t.Errorf("today text = %q", todayOf(t, got).Notes[0].Text)
	}
	if got.Snapshots[0].Notes[0].Text != "ok" {
		t.Errorf("history mutated: %+v", got.Snapshots[0])
	}
}

func TestApplyDeleteNotePreservesHistory(t *testing.T) {
	d := stateWithHistory()
	got := ApplyDeleteNote(d, testToday, "n1")

	if len(todayOf(t, got).Notes) != 0 {
		t.Errorf("today still tracks deleted note: %+v", todayOf(t, got).Notes)
	}
	if len(got.Snapshots[0].Notes) != 1 {
		t.Errorf("historical day lost its note: %+v", got.Snapshots[0])
	}
	if len(got.Notes) != 1 {
		t.Errorf("definition list must keep n1: %+v", got.Notes)
	}
}
