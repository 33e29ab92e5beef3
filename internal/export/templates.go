package export

import (
	"bytes"
	"html/template"
	"time"
)

// TemplateData holds data for history template rendering.
type TemplateData struct {
	Title     string
	Generated time.Time
	Days      []TemplateDay
}

// TemplateDay is one day of history, newest first in TemplateData.Days.
type TemplateDay struct {
	Date   string
	Habits []TemplateHabit
	Notes  []TemplateNote
}

type TemplateHabit struct {
	Name string
	Did  int
	Need int
	Done bool
}

type TemplateNote struct {
	Name string
	Text string
}

var historyTemplate = template.Must(template.New("history").Parse(historyTemplateHTML))

// RenderHistoryHTML renders the printable history page.
func RenderHistoryHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := historyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const historyTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .day { page-break-inside: avoid; margin-bottom: 1.5rem; }
    .day h2 { font-size: 1.1em; background: #f0f0f0; padding: 0.3rem 0.6rem; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
    .done { color: #1a7f37; font-weight: bold; }
    .note { background: #fafafa; padding: 0.5rem 0.8rem; margin: 0.4rem 0; border-left: 3px solid #333; }
    .note .name { font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">Generated {{.Generated.Format "Jan 2, 2006 15:04"}}</div>
  {{range .Days}}
  <div class="day">
    <h2>{{.Date}}</h2>
    {{if .Habits}}
    <table>
      <tr><th>Habit</th><th>Progress</th></tr>
      {{range .Habits}}
      <tr><td>{{.Name}}</td><td{{if .Done}} class="done"{{end}}>{{.Did}}/{{.Need}}</td></tr>
      {{end}}
    </table>
    {{end}}
    {{range .Notes}}{{if .Text}}
    <div class="note"><span class="name">{{.Name}}</span><br>{{.Text}}</div>
    {{end}}{{end}}
  </div>
  {{end}}
</body>
</html>`
