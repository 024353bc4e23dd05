package export

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// MinifyHTML shrinks a rendered page or fragment. Text content is preserved.
func MinifyHTML(markup string) (string, error) {
	out, err := minifier.String("text/html", markup)
	if err != nil {
		return "", fmt.Errorf("minify html: %w", err)
	}
	return out, nil
}
