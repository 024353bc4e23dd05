package export

import (
	"strconv"
	"strings"
)

// ToMarkdown renders a document as Markdown. When title is non-empty it is
// emitted verbatim as a level-one heading before the body. The result is
// trimmed.
//
// Marks wrap the text in array order, so the last mark ends up outermost:
// [bold, italic] renders as _**text**_.
func ToMarkdown(root Node, title string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	if _, ok := content(root); ok {
		writeMarkdown(&b, root, 0)
	}
	return strings.TrimSpace(b.String())
}

func markdownChildren(children Children, depth int) string {
	var b strings.Builder
	for _, child := range children {
		writeMarkdown(&b, child, depth)
	}
	return b.String()
}

func markdownNode(n Node, depth int) string {
	var b strings.Builder
	writeMarkdown(&b, n, depth)
	return b.String()
}

func writeMarkdown(b *strings.Builder, n Node, depth int) {
	if t, ok := n.(Text); ok {
		b.WriteString(markdownMarks(t.Text, t.Marks))
		return
	}

	children, ok := content(n)
	if !ok {
		if _, hr := n.(HorizontalRule); hr {
			b.WriteString("\n---\n\n")
		}
		return
	}

	switch v := n.(type) {
	case Paragraph:
		b.WriteString(markdownChildren(children, depth))
		b.WriteString("\n\n")
	case Heading:
		b.WriteString(strings.Repeat("#", headingLevel(v.Level)))
		b.WriteString(" ")
		b.WriteString(markdownChildren(children, depth))
		b.WriteString("\n\n")
	case BulletList:
		writeMarkdownList(b, children, depth, func(int) string { return "- " })
	case OrderedList:
		writeMarkdownList(b, children, depth, func(i int) string { return strconv.Itoa(i+1) + ". " })
	case TaskList:
		for i, item := range children {
			if i > 0 {
				b.WriteString("\n")
			}
			checked := false
			if task, ok := item.(TaskItem); ok {
				checked = task.Checked
			}
			b.WriteString("- ")
			b.WriteString(checkbox(checked))
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(markdownNode(item, depth)))
		}
		b.WriteString("\n\n")
	case Blockquote:
		first := true
		for _, line := range strings.Split(markdownChildren(children, depth), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !first {
				b.WriteString("\n")
			}
			first = false
			b.WriteString("> ")
			b.WriteString(line)
		}
		b.WriteString("\n\n")
	case CodeBlock:
		b.WriteString("```")
		b.WriteString(v.Language)
		b.WriteString("\n")
		b.WriteString(fenceBody(markdownChildren(children, depth)))
		b.WriteString("```\n\n")
	case HorizontalRule:
		b.WriteString("\n---\n\n")
	default:
		for _, child := range children {
			writeMarkdown(b, child, depth)
		}
	}
}

// writeMarkdownList renders one list level. Items are indented two spaces per
// level of nesting and their own children render one level deeper.
func writeMarkdownList(b *strings.Builder, items Children, depth int, marker func(int) string) {
	indent := strings.Repeat("  ", depth)
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(indent)
		b.WriteString(marker(i))
		b.WriteString(strings.TrimSpace(markdownNode(item, depth+1)))
	}
	b.WriteString("\n\n")
}

func markdownMarks(text string, marks []Mark) string {
	for _, mark := range marks {
		switch mark.Type {
		case MarkBold:
			text = "**" + text + "**"
		case MarkItalic:
			text = "_" + text + "_"
		case MarkStrike:
			text = "~~" + text + "~~"
		case MarkCode:
			text = "`" + text + "`"
		case MarkLink:
			text = "[" + text + "](" + mark.Href + ")"
		case MarkHighlight:
			text = "==" + text + "=="
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
