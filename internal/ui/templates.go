package ui

import (
	"embed"
	"html/template"
	"io/fs"
	"path"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/calendar"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates maps each page file name to base.html plus that page.
var templates = mustParseTemplates()

var funcMap = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(calendar.DateLayout)
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	// nameOf labels comment authors; a nil id means the account was removed.
	"nameOf": func(names map[uuid.UUID]string, id *uuid.UUID) string {
		if id == nil {
			return "Deleted user"
		}
		return names[*id]
	},
}

func mustParseTemplates() map[string]*template.Template {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
	layout := template.Must(template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html"))

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := path.Base(page)
		if name == "base.html" {
			continue
		}
		out[name] = template.Must(template.Must(layout.Clone()).ParseFS(templateFS, page))
	}
	return out
}
