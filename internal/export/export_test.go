package export

import (
	"strings"
	"testing"
	"time"

	"daymark/api/internal/habits"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "My habits tracker", "My-habits-tracker"},
		{"special chars stripped", "habits: 2024/03!", "habits-202403"},
		{"empty becomes default", "", "history"},
		{"only special chars", "!!!", "history"},
		{"long title truncated", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unreserved untouched", "abc-XYZ_0.9~", "abc-XYZ_0.9~"},
		{"space is %20 not plus", "a b", "a%20b"},
		{"angle brackets", "<p>", "%3Cp%3E"},
		{"multibyte utf8", "é", "%C3%A9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentEncodeForDataURL(tt.input); got != tt.want {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func exportFixture() habits.Data {
	return habits.Data{
		Habits: []habits.Habit{{ID: "h-1", Text: "Read"}},
		Notes:  []habits.Note{{ID: "n-1", Name: "Journal"}},
		Snapshots: []habits.DailySnapshot{
			{
				Date:   "2024-03-01",
				Habits: []habits.HabitEntry{{HabitID: "h-1", NeedCount: 3, DidCount: 3}},
				Notes:  []habits.NoteEntry{{NoteID: "n-1", Text: "Finished the book"}},
			},
			{
				Date:   "2024-03-02",
				Habits: []habits.HabitEntry{{HabitID: "h-1", NeedCount: 3, DidCount: 1}},
				Notes:  []habits.NoteEntry{{NoteID: "n-1", Text: ""}},
			},
		},
	}
}

func TestRenderHistoryHTML(t *testing.T) {
	svc := NewService()
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC) }

	html, err := RenderHistoryHTML(svc.templateData(exportFixture(), "My history"))
	if err != nil {
		t.Fatalf("RenderHistoryHTML() error = %v", err)
	}

	for _, want := range []string{
		"<title>My history</title>",
		"Generated Mar 2, 2024 09:30",
		"2024-03-01",
		"2024-03-02",
		"Read",
		`class="done">3/3`,
		"Finished the book",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}

	// Days are newest first and blank note text is omitted.
	if strings.Index(html, "2024-03-02") > strings.Index(html, "2024-03-01") {
		t.Error("expected newest day first")
	}
	if strings.Count(html, `class="note"`) != 1 {
		t.Error("blank note entry should not render a note block")
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	svc := NewService()
	data := habits.Data{
		Notes: []habits.Note{{ID: "n-1", Name: "Journal"}},
		Snapshots: []habits.DailySnapshot{
			{Date: "2024-03-01", Notes: []habits.NoteEntry{{NoteID: "n-1", Text: "<script>alert(1)</script>"}}},
		},
	}
	html, err := RenderHistoryHTML(svc.templateData(data, "t"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("note text must be HTML-escaped")
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewService()
	result, err := svc.Export(exportFixture(), Request{Format: FormatCSV, Title: "My habits tracker"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "My-habits-tracker.csv" {
		t.Errorf("filename = %q", result.Filename)
	}
	if result.MimeType != "text/csv" {
		t.Errorf("mime = %q", result.MimeType)
	}

	body := string(result.Data)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	// Category row, names row, two day rows.
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4\n%s", len(lines), body)
	}
	if !strings.HasPrefix(lines[2], "2024-03-01,3/3") {
		t.Errorf("day row = %q", lines[2])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewService()
	if _, err := svc.Export(exportFixture(), Request{Format: "docx"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
