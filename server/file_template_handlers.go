package server

import (
	"embed"
	"html/template"
	"time"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	layoutTemplate = "layout.html"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templateFS = mustSub(templateFiles, "templates")

var templateFuncs = template.FuncMap{
	"datetime": func(t time.Time) string {
		return t.Local().Format("02/01/2006 15:04")
	},
}

// ParseTemplate parses a page together with the shared layout partials.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).ParseFS(templateFS, name, layoutTemplate)
}
