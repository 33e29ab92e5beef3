package habits

import (
	"sort"
	"time"
)

const dayFormat = "2006-01-02"

// TodayString resolves "today" for an IANA timezone name. Unknown or empty
// zones fall back to UTC. The reconciliation engine itself never does
// timezone math; it only receives the resulting date string.
func TodayString(tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return time.Now().In(loc).Format(dayFormat)
}

// Reconcile computes today's snapshot and the gap-free history for todayStr.
//
// With no history at all, today is synthesized straight from the definitions
// (need 1, did 0, empty note text). With history, missing days after the
// latest recorded day are synthesized one by one, each copying the previous
// day's habit and note lists with counts reset to zero and text reset to
// empty, and today is synthesized from the last of that chain unless already
// recorded. Pure and idempotent: the same inputs always produce the same
// output, and a gap-free sequence that includes today passes through
// unchanged. The returned history is sorted ascending by date.
func Reconcile(hs []Habit, ns []Note, snapshots []DailySnapshot, todayStr string) (DailySnapshot, []DailySnapshot) {
	for _, s := range snapshots {
		if s.Date == todayStr {
			// Defensive fill in case the stored latest is not actually the
			// max date; normally a no-op.
			return s, fillForward(snapshots, todayStr)
		}
	}

	if len(snapshots) == 0 {
		today := bootstrapSnapshot(todayStr, hs, ns)
		return today, []DailySnapshot{today}
	}

	filled := fillForward(snapshots, previousDay(todayStr))
	today := resetFrom(todayStr, filled[len(filled)-1])
	return today, append(filled, today)
}

// bootstrapSnapshot builds a first-ever snapshot from the definitions alone.
func bootstrapSnapshot(date string, hs []Habit, ns []Note) DailySnapshot {
	snap := DailySnapshot{Date: date, Habits: []HabitEntry{}, Notes: []NoteEntry{}}
	for _, h := range hs {
		snap.Habits = append(snap.Habits, HabitEntry{HabitID: h.ID, NeedCount: 1})
	}
	for _, n := range ns {
		snap.Notes = append(snap.Notes, NoteEntry{NoteID: n.ID})
	}
	return snap
}

// resetFrom copies the previous day's structure with counts and text reset.
func resetFrom(date string, prev DailySnapshot) DailySnapshot {
	snap := DailySnapshot{
		Date:   date,
		Habits: make([]HabitEntry, len(prev.Habits)),
		Notes:  make([]NoteEntry, len(prev.Notes)),
	}
	for i, h := range prev.Habits {
		snap.Habits[i] = HabitEntry{HabitID: h.HabitID, NeedCount: h.NeedCount}
	}
	for i, n := range prev.Notes {
		snap.Notes[i] = NoteEntry{NoteID: n.NoteID}
	}
	return snap
}

// fillForward synthesizes missing days from the latest recorded day through
// upTo inclusive. Interior gaps between two recorded days are left alone;
// recorded days are never overwritten.
func fillForward(snapshots []DailySnapshot, upTo string) []DailySnapshot {
	sorted := sortedByDate(snapshots)
	if len(sorted) == 0 {
		return sorted
	}

	upToDay, ok := parseDay(upTo)
	if !ok {
		return sorted
	}
	last := sorted[len(sorted)-1]
	lastDay, ok := parseDay(last.Date)
	if !ok {
		return sorted
	}

	byDate := make(map[string]struct{}, len(sorted))
	for _, s := range sorted {
		byDate[s.Date] = struct{}{}
	}

	result := sorted
	prev := last
	for day := lastDay.AddDate(0, 0, 1); !day.After(upToDay); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format(dayFormat)
		if _, exists := byDate[dateStr]; exists {
			continue
		}
		filled := resetFrom(dateStr, prev)
		result = append(result, filled)
		byDate[dateStr] = struct{}{}
		prev = filled
	}
	return result
}

func sortedByDate(snapshots []DailySnapshot) []DailySnapshot {
	sorted := make([]DailySnapshot, len(snapshots))
	copy(sorted, snapshots)
	// Zero-padded YYYY-MM-DD makes the string order the calendar order.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	return sorted
}

func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func previousDay(s string) string {
	day, ok := parseDay(s)
	if !ok {
		return s
	}
	return day.AddDate(0, 0, -1).Format(dayFormat)
}
