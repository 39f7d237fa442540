package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"skullboard/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageFuncs = template.FuncMap{
	"markdown": Markdown,
	"reply":    ReplyPreview,
	"hexColor": hexColor,
	"clock":    clock,
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(pageFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return tmpl, nil
}

type pageData struct {
	Doc     *models.RenderDocument
	Preview bool
}

func renderPage(tmpl *template.Template, w io.Writer, doc *models.RenderDocument, preview bool) error {
	return tmpl.ExecuteTemplate(w, "render.html", pageData{Doc: doc, Preview: preview})
}

func hexColor(c *int) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("#%06x", *c&0xffffff)
}

// clock formats an RFC 3339 timestamp the way the client shows same-day messages.
func clock(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("01/02/2006 15:04")
}
