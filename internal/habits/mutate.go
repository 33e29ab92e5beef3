package habits

// Mutation operations. Each takes the current state triple plus arguments and
// returns a new triple reflecting exactly one logical change; the caller
// persists the result. Only the snapshot dated todayStr is ever modified, so
// history stays immutable. Duplicate-id adds are silent no-ops: callers
// generate fresh random ids, so that path is a guard rather than a flow.

// ApplyIncrement sets today's did-count for a habit. The bound
// 0 <= newCount <= needCount is the caller's to enforce. No-op if the habit
// is not tracked today.
func ApplyIncrement(d Data, todayStr, habitID string, newCount int) Data {
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		entries := copyHabitEntries(s.Habits)
		for i := range entries {
			if entries[i].HabitID == habitID {
				entries[i].DidCount = newCount
			}
		}
		s.Habits = entries
		return s
	})
}

// ApplyAddHabit appends a definition and starts tracking it today at
// 0/needCount. Unchanged if the id already exists.
func ApplyAddHabit(d Data, todayStr string, habit Habit, needCount int) Data {
	for _, h := range d.Habits {
		if h.ID == habit.ID {
			return d
		}
	}
	if today, ok := d.findSnapshot(todayStr); ok {
		for _, e := range today.Habits {
			if e.HabitID == habit.ID {
				return d
			}
		}
	}
	d.Habits = append(copyHabits(d.Habits), habit)
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		s.Habits = append(copyHabitEntries(s.Habits), HabitEntry{
			HabitID:   habit.ID,
			NeedCount: needCount,
		})
		return s
	})
}

// ApplyEditHabit replaces the definition text for habit.ID and updates
// today's need/did counts. The id itself is immutable.
func ApplyEditHabit(d Data, todayStr string, habit Habit, needCount, didCount int) Data {
	defs := copyHabits(d.Habits)
	for i := range defs {
		if defs[i].ID == habit.ID {
			defs[i] = habit
		}
	}
	d.Habits = defs
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		entries := copyHabitEntries(s.Habits)
		for i := range entries {
			if entries[i].HabitID == habit.ID {
				entries[i].NeedCount = needCount
				entries[i].DidCount = didCount
			}
		}
		s.Habits = entries
		return s
	})
}

// ApplyDeleteHabit stops tracking a habit today. The definition stays in the
// list so historical days still resolve its name.
func ApplyDeleteHabit(d Data, todayStr, habitID string) Data {
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		entries := make([]HabitEntry, 0, len(s.Habits))
		for _, e := range s.Habits {
			if e.HabitID != habitID {
				entries = append(entries, e)
			}
		}
		s.Habits = entries
		return s
	})
}

// ApplyAddNote appends a note definition and today's text for it.
// Unchanged if the id already exists.
func ApplyAddNote(d Data, todayStr string, note Note, text string) Data {
	for _, n := range d.Notes {
		if n.ID == note.ID {
			return d
		}
	}
	if today, ok := d.findSnapshot(todayStr); ok {
		for _, e := range today.Notes {
			if e.NoteID == note.ID {
				return d
			}
		}
	}
	d.Notes = append(copyNotes(d.Notes), note)
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		s.Notes = append(copyNoteEntries(s.Notes), NoteEntry{NoteID: note.ID, Text: text})
		return s
	})
}

// ApplyEditNote renames a note definition and replaces today's text.
func ApplyEditNote(d Data, todayStr, noteID, newName, newText string) Data {
	defs := copyNotes(d.Notes)
	for i := range defs {
		if defs[i].ID == noteID {
			defs[i].Name = newName
		}
	}
	d.Notes = defs
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		entries := copyNoteEntries(s.Notes)
		for i := range entries {
			if entries[i].NoteID == noteID {
				entries[i].Text = newText
			}
		}
		s.Notes = entries
		return s
	})
}

// ApplyDeleteNote stops tracking a note today, keeping the definition.
func ApplyDeleteNote(d Data, todayStr, noteID string) Data {
	return updateToday(d, todayStr, func(s DailySnapshot) DailySnapshot {
		entries := make([]NoteEntry, 0, len(s.Notes))
		for _, e := range s.Notes {
			if e.NoteID != noteID {
				entries = append(entries, e)
			}
		}
		s.Notes = entries
		return s
	})
}

func updateToday(d Data, todayStr string, apply func(DailySnapshot) DailySnapshot) Data {
	snaps := make([]DailySnapshot, len(d.Snapshots))
	copy(snaps, d.Snapshots)
	for i := range snaps {
		if snaps[i].Date == todayStr {
			snaps[i] = apply(snaps[i])
		}
	}
	d.Snapshots = snaps
	return d
}

func copyHabits(in []Habit) []Habit {
	out := make([]Habit, len(in))
	copy(out, in)
	return out
}

func copyNotes(in []Note) []Note {
	out := make([]Note, len(in))
	copy(out, in)
	return out
}

func copyHabitEntries(in []HabitEntry) []HabitEntry {
	out := make([]HabitEntry, len(in))
	copy(out, in)
	return out
}

func copyNoteEntries(in []NoteEntry) []NoteEntry {
	out := make([]NoteEntry, len(in))
	copy(out, in)
	return out
}
