package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gridplan-labs/gridplan/internal/timetable"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

var (
	indexTemplate    = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/index.html"))
	notFoundTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/notfound.html"))
)

// pageData feeds the timetable page and its SSE-patched grid fragment.
type pageData struct {
	Title       string
	Days        []timetable.Day
	Periods     []int
	Grids       []*timetable.GroupGrid
	Summary     timetable.Summary
	Unassigned  map[int][]string
	SolveStatus string
	GeneratedAt time.Time

	AssistEnabled bool
	Question      string
	Answer        template.HTML
	AssistError   string
}

type notFoundData struct {
	Title string
	Path  string
}

// renderGrid renders only the timetable fragment, for SSE patches and as
// context for assistant questions.
func renderGrid(data pageData) (string, error) {
	var buf bytes.Buffer
	if err := indexTemplate.ExecuteTemplate(&buf, "grid", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// assetHandler serves the embedded static assets.
func assetHandler() http.Handler {
	return http.FileServer(http.FS(assetFS))
}
