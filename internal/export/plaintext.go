package export

import "strings"

const bulletGlyph = "• "

// ToPlainText flattens a document into readable text. Blocks are separated by
// blank lines and marks are dropped. A nil root, or a root without a content
// array, yields "".
func ToPlainText(root Node) string {
	if _, ok := content(root); !ok {
		return ""
	}
	var b strings.Builder
	writePlain(&b, root)
	return strings.TrimSpace(b.String())
}

func plainChildren(children Children) string {
	var b strings.Builder
	for _, child := range children {
		writePlain(&b, child)
	}
	return b.String()
}

func writePlain(b *strings.Builder, n Node) {
	if t, ok := n.(Text); ok {
		b.WriteString(t.Text)
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
		b.WriteString(plainChildren(children))
		b.WriteString("\n\n")
	case Heading:
		b.WriteString(strings.Repeat("#", headingLevel(v.Level)))
		b.WriteString(" ")
		b.WriteString(plainChildren(children))
		b.WriteString("\n\n")
	case BulletList, OrderedList, TaskList:
		b.WriteString(plainChildren(children))
		b.WriteString("\n")
	case ListItem:
		b.WriteString(bulletGlyph)
		b.WriteString(strings.TrimSpace(plainChildren(children)))
		b.WriteString("\n")
	case TaskItem:
		b.WriteString(checkbox(v.Checked))
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(plainChildren(children)))
		b.WriteString("\n")
	case Blockquote:
		lines := strings.Split(plainChildren(children), "\n")
		for i, line := range lines {
			if i > 0 {
				b.WriteString("\n")
			}
			if line != "" {
				b.WriteString("> ")
				b.WriteString(line)
			}
		}
		b.WriteString("\n")
	case CodeBlock:
		b.WriteString("```\n")
		b.WriteString(fenceBody(plainChildren(children)))
		b.WriteString("```\n\n")
	case HorizontalRule:
		b.WriteString("\n---\n\n")
	default:
		for _, child := range children {
			writePlain(b, child)
		}
	}
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

func headingLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

// fenceBody makes sure the closing fence starts on its own line.
func fenceBody(code string) string {
	if code == "" || strings.HasSuffix(code, "\n") {
		return code
	}
	return code + "\n"
}
