package export

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// SharePolicy is applied to rendered fragments before they are served on the
// public share page. It admits exactly the markup ToHTML produces.
var SharePolicy = newSharePolicy()

func newSharePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("mark", "u", "s", "sub", "sup", "input")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^task-list$`)).OnElements("ul")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^task-item$`)).OnElements("li")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	p.AllowStyles("text-align").Matching(alignRegexp).OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowStyles("background-color").Matching(colorRegexp).OnElements("mark")

	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// SanitizeFragment runs markup through SharePolicy.
func SanitizeFragment(html string) string {
	return SharePolicy.Sanitize(html)
}
