package api

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/board.html.tmpl
var templateFS embed.FS

var boardTemplate = template.Must(template.New("board.html.tmpl").
	Funcs(template.FuncMap{"score": formatScore}).
	ParseFS(templateFS, "templates/board.html.tmpl"))

// Page holds what the HTML leaderboard shows besides the standings.
type Page struct {
	Title    string
	Year     int
	Location *time.Location
}

type pageRow struct {
	Rank  int
	Team  string
	Score float64
	Time  string
}

type pageData struct {
	Title string
	Year  int
	Zone  string
	Rows  []pageRow
}

func (p Page) render(w io.Writer, standings []Standing) error {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	data := pageData{Title: p.Title, Year: p.Year, Zone: loc.String(), Rows: make([]pageRow, 0, len(standings))}
	for _, s := range standings {
		data.Rows = append(data.Rows, pageRow{
			Rank:  s.Rank,
			Team:  s.Team,
			Score: s.Score,
			Time:  s.Time.In(loc).Format(time.DateTime),
		})
	}
	if err := boardTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render leaderboard: %w", err)
	}
	return nil
}

func formatScore(f float64) string {
	return fmt.Sprintf("%g", f)
}
