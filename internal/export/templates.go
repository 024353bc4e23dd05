package export

import (
	"bytes"
	"embed"
	"html/template"
	"log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const defaultPageTitle = "Exported Note"

type standaloneData struct {
	Title string
	Body  template.HTML
}

// standalonePage wraps rendered markup in a complete document carrying the
// export stylesheet.
func standalonePage(body, title string) string {
	if title == "" {
		title = defaultPageTitle
	}
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "standalone.html", standaloneData{
		Title: title,
		Body:  template.HTML(body),
	}); err != nil {
		log.Printf("export: render standalone page: %v", err)
		return body
	}
	return buf.String()
}

// SharePageData holds the values for the public share page.
type SharePageData struct {
	Title      string
	Author     string
	Updated    string
	Views      string
	IncludeCSS bool
	// Body must already be sanitized markup.
	Body template.HTML
}

// RenderSharePage renders the public page for a shared note.
func RenderSharePage(data SharePageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "share.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
