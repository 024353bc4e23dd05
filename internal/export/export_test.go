package export

import (
	"strings"
	"testing"
)

func mustDecode(t *testing.T, raw string) Node {
	t.Helper()
	node, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", raw, err)
	}
	return node
}

const helloDoc = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello, World!"}]}]}`

const nestedListDoc = `{"type":"doc","content":[{"type":"bulletList","content":[
	{"type":"listItem","content":[
		{"type":"paragraph","content":[{"type":"text","text":"a"}]},
		{"type":"bulletList","content":[{"type":"listItem","content":[
			{"type":"paragraph","content":[{"type":"text","text":"b"}]}
		]}]}
	]}
]}]}`

func TestEmptyInput(t *testing.T) {
	for _, root := range []Node{nil, Doc{}, Text{Text: "orphan"}, HorizontalRule{}} {
		if got := ToPlainText(root); got != "" {
			t.Errorf("ToPlainText(%#v) = %q, want empty", root, got)
		}
		if got := ToMarkdown(root, ""); got != "" {
			t.Errorf("ToMarkdown(%#v) = %q, want empty", root, got)
		}
		if got := ToMarkdown(root, "Title"); got != "# Title" {
			t.Errorf("ToMarkdown(%#v, Title) = %q, want %q", root, got, "# Title")
		}
		if got := ToHTML(root, "", false); got != "" {
			t.Errorf("ToHTML(%#v) = %q, want empty", root, got)
		}
		if got := ToHTML(root, "Title", false); got != "<h1>Title</h1>" {
			t.Errorf("ToHTML(%#v, Title) = %q", root, got)
		}
	}
}

func TestRoundTripScenario(t *testing.T) {
	root := mustDecode(t, helloDoc)

	if got, want := ToMarkdown(root, "Test"), "# Test\n\nHello, World!"; got != want {
		t.Errorf("ToMarkdown() = %q, want %q", got, want)
	}
	if got, want := ToHTML(root, "Test", false), "<h1>Test</h1>\n<p>Hello, World!</p>"; got != want {
		t.Errorf("ToHTML() = %q, want %q", got, want)
	}
	if got, want := ToPlainText(root), "Hello, World!"; got != want {
		t.Errorf("ToPlainText() = %q, want %q", got, want)
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		title    string
		expected string
	}{
		{
			name:     "heading level",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"Hi"}]}]}`,
			expected: "### Hi",
		},
		{
			name:     "heading level is not clamped",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":9},"content":[{"type":"text","text":"Nine"}]}]}`,
			expected: "######### Nine",
		},
		{
			name:     "heading without level",
			input:    `{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"One"}]}]}`,
			expected: "# One",
		},
		{
			name:     "heading level as string",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":"2"},"content":[{"type":"text","text":"Two"}]}]}`,
			expected: "## Two",
		},
		{
			name:     "nested bullet list",
			input:    nestedListDoc,
			expected: "- a\n\n  - b",
		},
		{
			name: "ordered list numbering",
			input: `{"type":"doc","content":[{"type":"orderedList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]},
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"three"}]}]}
			]}]}`,
			expected: "1. one\n2. two\n3. three",
		},
		{
			name: "ordered numbering restarts in nested list",
			input: `{"type":"doc","content":[{"type":"orderedList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[
					{"type":"paragraph","content":[{"type":"text","text":"two"}]},
					{"type":"orderedList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"inner"}]}]}]}
				]}
			]}]}`,
			expected: "1. one\n2. two\n\n  1. inner",
		},
		{
			name: "task list",
			input: `{"type":"doc","content":[{"type":"taskList","content":[
				{"type":"taskItem","attrs":{"checked":true},"content":[{"type":"paragraph","content":[{"type":"text","text":"done"}]}]},
				{"type":"taskItem","attrs":{"checked":false},"content":[{"type":"paragraph","content":[{"type":"text","text":"todo"}]}]}
			]}]}`,
			expected: "- [x] done\n- [ ] todo",
		},
		{
			name: "blockquote drops blank lines",
			input: `{"type":"doc","content":[{"type":"blockquote","content":[
				{"type":"paragraph","content":[{"type":"text","text":"a"}]},
				{"type":"paragraph","content":[{"type":"text","text":"b"}]}
			]}]}`,
			expected: "> a\n> b",
		},
		{
			name:     "code block with language",
			input:    `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"fmt.Println()"}]}]}`,
			expected: "```go\nfmt.Println()\n```",
		},
		{
			name: "horizontal rule",
			input: `{"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"text","text":"a"}]},
				{"type":"horizontalRule"},
				{"type":"paragraph","content":[{"type":"text","text":"b"}]}
			]}`,
			expected: "a\n\n\n---\n\nb",
		},
		{
			name:     "title is not escaped",
			input:    helloDoc,
			title:    "<b>T</b>",
			expected: "# <b>T</b>\n\nHello, World!",
		},
		{
			name:     "unknown node passes children through",
			input:    `{"type":"doc","content":[{"type":"callout","content":[{"type":"paragraph","content":[{"type":"text","text":"x"}]}]}]}`,
			expected: "x",
		},
		{
			name:     "empty container renders nothing",
			input:    `{"type":"doc","content":[{"type":"paragraph"},{"type":"paragraph","content":[{"type":"text","text":"kept"}]}]}`,
			expected: "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToMarkdown(mustDecode(t, tt.input), tt.title)
			if got != tt.expected {
				t.Errorf("ToMarkdown() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMarkComposition(t *testing.T) {
	tests := []struct {
		name     string
		marks    string
		markdown string
		html     string
	}{
		{
			name:     "last mark is outermost",
			marks:    `[{"type":"bold"},{"type":"italic"}]`,
			markdown: "_**hi**_",
			html:     "<em><strong>hi</strong></em>",
		},
		{
			name:     "reversed order",
			marks:    `[{"type":"italic"},{"type":"bold"}]`,
			markdown: "**_hi_**",
			html:     "<strong><em>hi</em></strong>",
		},
		{
			name:     "link around bold",
			marks:    `[{"type":"bold"},{"type":"link","attrs":{"href":"https://example.com"}}]`,
			markdown: "[**hi**](https://example.com)",
			html:     `<a href="https://example.com" target="_blank" rel="noopener noreferrer"><strong>hi</strong></a>`,
		},
		{
			name:     "link without href",
			marks:    `[{"type":"link"}]`,
			markdown: "[hi]()",
			html:     `<a href="" target="_blank" rel="noopener noreferrer">hi</a>`,
		},
		{
			name:     "strike and code",
			marks:    `[{"type":"code"},{"type":"strike"}]`,
			markdown: "~~`hi`~~",
			html:     "<s><code>hi</code></s>",
		},
		{
			name:     "highlight default colour",
			marks:    `[{"type":"highlight"}]`,
			markdown: "==hi==",
			html:     `<mark style="background-color: #ffff00">hi</mark>`,
		},
		{
			name:     "highlight colour",
			marks:    `[{"type":"highlight","attrs":{"color":"rgb(1, 2, 3)"}}]`,
			markdown: "==hi==",
			html:     `<mark style="background-color: rgb(1, 2, 3)">hi</mark>`,
		},
		{
			name:     "html-only marks",
			marks:    `[{"type":"underline"},{"type":"subscript"},{"type":"superscript"}]`,
			markdown: "<sup><sub><u>hi</u></sub></sup>",
			html:     "<sup><sub><u>hi</u></sub></sup>",
		},
		{
			name:     "unknown marks are ignored",
			marks:    `[{"type":"sparkle"},"junk",{"type":"bold"}]`,
			markdown: "**hi**",
			html:     "<strong>hi</strong>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustDecode(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":`+tt.marks+`}]}]}`)
			if got := ToMarkdown(root, ""); got != tt.markdown {
				t.Errorf("ToMarkdown() = %q, want %q", got, tt.markdown)
			}
			if got, want := ToHTML(root, "", false), "<p>"+tt.html+"</p>"; got != want {
				t.Errorf("ToHTML() = %q, want %q", got, want)
			}
			if got := ToPlainText(root); got != "hi" {
				t.Errorf("ToPlainText() = %q, want %q", got, "hi")
			}
		})
	}
}

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "heading level",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"Hi"}]}]}`,
			expected: "<h3>Hi</h3>",
		},
		{
			name:     "heading tag stays within h6",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":9},"content":[{"type":"text","text":"Nine"}]}]}`,
			expected: "<h6>Nine</h6>",
		},
		{
			name:     "nested bullet list",
			input:    nestedListDoc,
			expected: "<ul><li><p>a</p><ul><li><p>b</p></li></ul></li></ul>",
		},
		{
			name: "task list",
			input: `{"type":"doc","content":[{"type":"taskList","content":[
				{"type":"taskItem","attrs":{"checked":true},"content":[{"type":"paragraph","content":[{"type":"text","text":"done"}]}]},
				{"type":"taskItem","content":[{"type":"paragraph","content":[{"type":"text","text":"todo"}]}]}
			]}]}`,
			expected: `<ul class="task-list"><li class="task-item"><input type="checkbox" checked disabled /><p>done</p></li>` +
				`<li class="task-item"><input type="checkbox" disabled /><p>todo</p></li></ul>`,
		},
		{
			name:     "ordered list and blockquote",
			input:    `{"type":"doc","content":[{"type":"blockquote","content":[{"type":"orderedList","content":[{"type":"listItem","content":[{"type":"text","text":"x"}]}]}]}]}`,
			expected: "<blockquote><ol><li>x</li></ol></blockquote>",
		},
		{
			name:     "code block language is escaped",
			input:    `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go\"><script>"},"content":[{"type":"text","text":"if a < b {}"}]}]}`,
			expected: `<pre><code class="language-go&quot;&gt;&lt;script&gt;">if a &lt; b {}</code></pre>`,
		},
		{
			name:     "code block without language",
			input:    `{"type":"doc","content":[{"type":"codeBlock","content":[{"type":"text","text":"x"}]}]}`,
			expected: "<pre><code>x</code></pre>",
		},
		{
			name: "horizontal rule",
			input: `{"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"text","text":"a"}]},
				{"type":"horizontalRule"},
				{"type":"paragraph","content":[{"type":"text","text":"b"}]}
			]}`,
			expected: "<p>a</p><hr /><p>b</p>",
		},
		{
			name:     "text alignment",
			input:    `{"type":"doc","content":[{"type":"paragraph","attrs":{"textAlign":"center"},"content":[{"type":"text","text":"x"}]}]}`,
			expected: `<p style="text-align: center">x</p>`,
		},
		{
			name:     "heading alignment",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":2,"textAlign":"right"},"content":[{"type":"text","text":"x"}]}]}`,
			expected: `<h2 style="text-align: right">x</h2>`,
		},
		{
			name:     "hostile alignment is dropped",
			input:    `{"type":"doc","content":[{"type":"paragraph","attrs":{"textAlign":"center\" onclick=\"alert(1)"},"content":[{"type":"text","text":"x"}]}]}`,
			expected: "<p>x</p>",
		},
		{
			name:     "char alignment is dropped",
			input:    `{"type":"doc","content":[{"type":"paragraph","attrs":{"textAlign":"char"},"content":[{"type":"text","text":"x"}]}]}`,
			expected: "<p>x</p>",
		},
		{
			name:     "alignment is lowercased",
			input:    `{"type":"doc","content":[{"type":"paragraph","attrs":{"textAlign":"JUSTIFY"},"content":[{"type":"text","text":"x"}]}]}`,
			expected: `<p style="text-align: justify">x</p>`,
		},
		{
			name:     "hostile highlight colour falls back",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"highlight","attrs":{"color":"red\"><script>alert(1)</script>"}}]}]}]}`,
			expected: `<p><mark style="background-color: #ffff00">x</mark></p>`,
		},
		{
			name:     "escaping",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"<script>alert(\"x\") & 'y'</script>"}]}]}`,
			expected: "<p>&lt;script&gt;alert(&quot;x&quot;) &amp; &#039;y&#039;&lt;/script&gt;</p>",
		},
		{
			name:     "link href is escaped",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"t","marks":[{"type":"link","attrs":{"href":"\" onmouseover=\"x"}}]}]}]}`,
			expected: `<p><a href="&quot; onmouseover=&quot;x" target="_blank" rel="noopener noreferrer">t</a></p>`,
		},
		{
			name:     "non-object children are skipped",
			input:    `{"type":"doc","content":[42,"str",null,{"type":"paragraph","content":[{"type":"text","text":"x"}]}]}`,
			expected: "<p>x</p>",
		},
		{
			name:     "unknown node passes children through",
			input:    `{"type":"doc","content":[{"type":"details","content":[{"type":"paragraph","content":[{"type":"text","text":"x"}]}]}]}`,
			expected: "<p>x</p>",
		},
		{
			name:     "wrong-shaped content is treated as absent",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":"nope"},{"type":"paragraph","attrs":"nope","content":[{"type":"text","text":42}]}]}`,
			expected: "<p></p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToHTML(mustDecode(t, tt.input), "", false)
			if got != tt.expected {
				t.Errorf("ToHTML() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHTMLTitleIsEscaped(t *testing.T) {
	got := ToHTML(mustDecode(t, helloDoc), `<img src=x onerror="alert('t')">`, false)
	want := "<h1>&lt;img src=x onerror=&quot;alert(&#039;t&#039;)&quot;&gt;</h1>\n<p>Hello, World!</p>"
	if got != want {
		t.Errorf("ToHTML() = %q, want %q", got, want)
	}
}

func TestHTMLStandalone(t *testing.T) {
	page := ToHTML(mustDecode(t, helloDoc), "", true)
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Exported Note</title>",
		"@media print",
		"<p>Hello, World!</p>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("standalone page missing %q", want)
		}
	}

	titled := ToHTML(mustDecode(t, helloDoc), "<Plan>", true)
	if !strings.Contains(titled, "<title>&lt;Plan&gt;</title>") {
		t.Errorf("title not escaped in <title>: %s", titled)
	}
	if !strings.Contains(titled, "<h1>&lt;Plan&gt;</h1>\n<p>Hello, World!</p>") {
		t.Errorf("body heading missing: %s", titled)
	}

	empty := ToHTML(nil, "Only", true)
	if !strings.Contains(empty, "<h1>Only</h1>") || !strings.Contains(empty, "<!DOCTYPE html>") {
		t.Errorf("empty document page = %s", empty)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "heading keeps hashes",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Title"}]},{"type":"paragraph","content":[{"type":"text","text":"body"}]}]}`,
			expected: "## Title\n\nbody",
		},
		{
			name:     "nested bullet list",
			input:    nestedListDoc,
			expected: "• a\n\n• b",
		},
		{
			name: "task items",
			input: `{"type":"doc","content":[{"type":"taskList","content":[
				{"type":"taskItem","attrs":{"checked":true},"content":[{"type":"paragraph","content":[{"type":"text","text":"done"}]}]},
				{"type":"taskItem","content":[{"type":"paragraph","content":[{"type":"text","text":"todo"}]}]}
			]}]}`,
			expected: "[x] done\n[ ] todo",
		},
		{
			name: "blockquote keeps blank lines unprefixed",
			input: `{"type":"doc","content":[{"type":"blockquote","content":[
				{"type":"paragraph","content":[{"type":"text","text":"a"}]},
				{"type":"paragraph","content":[{"type":"text","text":"b"}]}
			]}]}`,
			expected: "> a\n\n> b",
		},
		{
			name:     "code block is fenced",
			input:    `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"x := 1\n"}]}]}`,
			expected: "```\nx := 1\n```",
		},
		{
			name:     "marks are dropped",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a","marks":[{"type":"bold"}]},{"type":"text","text":"<b>"}]}]}`,
			expected: "a<b>",
		},
		{
			name:     "horizontal rule",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a"}]},{"type":"horizontalRule"}]}`,
			expected: "a\n\n\n---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPlainText(mustDecode(t, tt.input))
			if got != tt.expected {
				t.Errorf("ToPlainText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	if node, err := Decode([]byte("null")); err != nil || node != nil {
		t.Errorf("Decode(null) = %v, %v", node, err)
	}
	if node, err := Decode(nil); err != nil || node != nil {
		t.Errorf("Decode(nil) = %v, %v", node, err)
	}
	if _, err := Decode([]byte("{bad")); err == nil {
		t.Error("Decode() expected error for invalid JSON")
	}
	if node, err := Decode([]byte(`[1,2]`)); err != nil || node != nil {
		t.Errorf("Decode(array) = %v, %v", node, err)
	}

	node := mustDecode(t, `{"type":"doc","content":[]}`)
	doc, ok := node.(Doc)
	if !ok {
		t.Fatalf("Decode() = %T, want Doc", node)
	}
	if doc.Content == nil {
		t.Error("empty content array decoded as absent")
	}

	node = mustDecode(t, `{"type":"mystery","content":[{"type":"text","text":"x"}]}`)
	unknown, ok := node.(Unknown)
	if !ok || unknown.Type() != "mystery" || len(unknown.Content) != 1 {
		t.Errorf("Decode() = %#v, want Unknown mystery with one child", node)
	}
}

func TestDecodeBoundsDepth(t *testing.T) {
	var b strings.Builder
	const depth = 2000
	b.WriteString(`{"type":"doc","content":[`)
	for i := 0; i < depth; i++ {
		b.WriteString(`{"type":"blockquote","content":[`)
	}
	b.WriteString(`{"type":"text","text":"deep"}`)
	for i := 0; i < depth; i++ {
		b.WriteString(`]}`)
	}
	b.WriteString(`]}`)

	root := mustDecode(t, b.String())
	out := ToHTML(root, "", false)
	count := strings.Count(out, "<blockquote>")
	if count == 0 || count >= MaxDepth {
		t.Errorf("rendered %d blockquotes, want between 1 and %d", count, MaxDepth)
	}
	if strings.Contains(out, "deep") {
		t.Error("text below the depth bound should not render")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"é", "%C3%A9"},                        // UTF-8 bytes
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello_World"},
		{"Q3: plan / review?", "Q3_plan_review"},
		{`a<b>c"d|e*f\g`, "abcdefg"},
		{"  tabs\tand\nnewlines ", "_tabs_and_newlines_"},
		{"", "untitled"},
		{"???", "untitled"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
		{strings.Repeat("é", 120), strings.Repeat("é", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, value := range []string{"text", "txt", "markdown", "md", "html", "pdf"} {
		if _, err := ParseFormat(value); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", value, err)
		}
	}
	if _, err := ParseFormat("docx"); err != ErrUnsupportedFormat {
		t.Errorf("ParseFormat(docx) error = %v, want ErrUnsupportedFormat", err)
	}
}
