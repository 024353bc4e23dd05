package export

import (
	"strconv"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five characters that are significant in markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// ToHTML renders a document as HTML. With includeStyles false the result is
// a fragment suitable for embedding; otherwise it is a standalone page with
// the export stylesheet. All text, link targets, code languages and the title
// are escaped.
func ToHTML(root Node, title string, includeStyles bool) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("<h1>")
		b.WriteString(EscapeHTML(title))
		b.WriteString("</h1>")
	}
	if _, ok := content(root); ok {
		if title != "" {
			b.WriteString("\n")
		}
		writeHTML(&b, root)
	}
	if !includeStyles {
		return b.String()
	}
	return standalonePage(b.String(), title)
}

func writeHTMLChildren(b *strings.Builder, children Children) {
	for _, child := range children {
		writeHTML(b, child)
	}
}

func writeHTML(b *strings.Builder, n Node) {
	if t, ok := n.(Text); ok {
		b.WriteString(htmlMarks(EscapeHTML(t.Text), t.Marks))
		return
	}

	children, ok := content(n)
	if !ok {
		if _, hr := n.(HorizontalRule); hr {
			b.WriteString("<hr />")
		}
		return
	}

	switch v := n.(type) {
	case Paragraph:
		b.WriteString("<p")
		writeAlign(b, v.TextAlign)
		b.WriteString(">")
		writeHTMLChildren(b, children)
		b.WriteString("</p>")
	case Heading:
		tag := "h" + strconv.Itoa(htmlHeadingLevel(v.Level))
		b.WriteString("<" + tag)
		writeAlign(b, v.TextAlign)
		b.WriteString(">")
		writeHTMLChildren(b, children)
		b.WriteString("</" + tag + ">")
	case BulletList:
		wrapHTML(b, "<ul>", "</ul>", children)
	case OrderedList:
		wrapHTML(b, "<ol>", "</ol>", children)
	case ListItem:
		wrapHTML(b, "<li>", "</li>", children)
	case TaskList:
		wrapHTML(b, `<ul class="task-list">`, "</ul>", children)
	case TaskItem:
		if v.Checked {
			b.WriteString(`<li class="task-item"><input type="checkbox" checked disabled />`)
		} else {
			b.WriteString(`<li class="task-item"><input type="checkbox" disabled />`)
		}
		writeHTMLChildren(b, children)
		b.WriteString("</li>")
	case Blockquote:
		wrapHTML(b, "<blockquote>", "</blockquote>", children)
	case CodeBlock:
		if v.Language != "" {
			b.WriteString(`<pre><code class="language-` + EscapeHTML(v.Language) + `">`)
		} else {
			b.WriteString("<pre><code>")
		}
		writeHTMLChildren(b, children)
		b.WriteString("</code></pre>")
	case HorizontalRule:
		b.WriteString("<hr />")
	default:
		writeHTMLChildren(b, children)
	}
}

func wrapHTML(b *strings.Builder, open, close string, children Children) {
	b.WriteString(open)
	writeHTMLChildren(b, children)
	b.WriteString(close)
}

func writeAlign(b *strings.Builder, align string) {
	if align = textAlign(align); align != "" {
		b.WriteString(` style="text-align: ` + align + `"`)
	}
}

// htmlHeadingLevel keeps the tag inside h1..h6. Markdown and plain text pass
// the level through unclamped.
func htmlHeadingLevel(level int) int {
	level = headingLevel(level)
	if level > 6 {
		return 6
	}
	return level
}

// htmlMarks wraps already escaped text. As in Markdown, the last mark is the
// outermost element.
func htmlMarks(text string, marks []Mark) string {
	for _, mark := range marks {
		switch mark.Type {
		case MarkBold:
			text = "<strong>" + text + "</strong>"
		case MarkItalic:
			text = "<em>" + text + "</em>"
		case MarkStrike:
			text = "<s>" + text + "</s>"
		case MarkCode:
			text = "<code>" + text + "</code>"
		case MarkLink:
			text = `<a href="` + EscapeHTML(mark.Href) + `" target="_blank" rel="noopener noreferrer">` + text + "</a>"
		case MarkHighlight:
			text = `<mark style="background-color: ` + highlightColor(mark.Color) + `">` + text + "</mark>"
		case MarkUnderline:
			text = "<u>" + text + "</u>"
		case MarkSubscript:
			text = "<sub>" + text + "</sub>"
		case MarkSuperscript:
			text = "<sup>" + text + "</sup>"
		}
	}
	return text
}
