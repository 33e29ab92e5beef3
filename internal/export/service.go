package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"daymark/api/internal/habits"
)

// Service renders a user's tracker history into the requested format.
type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// Export generates a download for the full history held in data.
func (s *Service) Export(data habits.Data, req Request) (*Result, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Habits history"
	}

	switch req.Format {
	case FormatCSV:
		return exportCSV(habits.EncodeGrid(data.Habits, data.Notes, data.Snapshots), title)
	case FormatPDF:
		html, err := RenderHistoryHTML(s.templateData(data, title))
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportPDF(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func (s *Service) templateData(data habits.Data, title string) TemplateData {
	habitNames := make(map[string]string, len(data.Habits))
	for _, h := range data.Habits {
		habitNames[h.ID] = h.Text
	}
	noteNames := make(map[string]string, len(data.Notes))
	for _, n := range data.Notes {
		noteNames[n.ID] = n.Name
	}

	days := make([]TemplateDay, 0, len(data.Snapshots))
	for _, snap := range data.Snapshots {
		day := TemplateDay{Date: snap.Date}
		for _, e := range snap.Habits {
			day.Habits = append(day.Habits, TemplateHabit{
				Name: habitNames[e.HabitID],
				Did:  e.DidCount,
				Need: e.NeedCount,
				Done: e.NeedCount > 0 && e.DidCount >= e.NeedCount,
			})
		}
		for _, e := range snap.Notes {
			day.Notes = append(day.Notes, TemplateNote{
				Name: noteNames[e.NoteID],
				Text: strings.TrimSpace(e.Text),
			})
		}
		days = append(days, day)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date > days[j].Date })

	return TemplateData{
		Title:     title,
		Generated: s.now(),
		Days:      days,
	}
}
