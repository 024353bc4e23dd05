package export

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDepth bounds how deep a decoded tree may nest. Subtrees below it are
// replaced with an empty Unknown node.
const MaxDepth = 256

// Node is one element of a ProseMirror/TipTap document tree. The concrete
// types below are the closed set of kinds the renderers understand; anything
// else decodes to Unknown.
type Node interface {
	// Type returns the editor's type string for the node.
	Type() string
}

// Children is the ordered child list of a container node. A nil slice means
// the node carried no content array at all, which renders differently from an
// empty one.
type Children []Node

type Doc struct{ Content Children }

type Paragraph struct {
	TextAlign string
	Content   Children
}

type Heading struct {
	Level     int
	TextAlign string
	Content   Children
}

type BulletList struct{ Content Children }

type OrderedList struct{ Content Children }

type ListItem struct{ Content Children }

type TaskList struct{ Content Children }

type TaskItem struct {
	Checked bool
	Content Children
}

type Blockquote struct{ Content Children }

type CodeBlock struct {
	Language string
	Content  Children
}

type HorizontalRule struct{ Content Children }

type Text struct {
	Text  string
	Marks []Mark
}

// Unknown keeps the children of a node whose type is not recognised so they
// still render, without any wrapping markup.
type Unknown struct {
	Kind    string
	Content Children
}

func (Doc) Type() string            { return "doc" }
func (Paragraph) Type() string      { return "paragraph" }
func (Heading) Type() string        { return "heading" }
func (BulletList) Type() string     { return "bulletList" }
func (OrderedList) Type() string    { return "orderedList" }
func (ListItem) Type() string       { return "listItem" }
func (TaskList) Type() string       { return "taskList" }
func (TaskItem) Type() string       { return "taskItem" }
func (Blockquote) Type() string     { return "blockquote" }
func (CodeBlock) Type() string      { return "codeBlock" }
func (HorizontalRule) Type() string { return "horizontalRule" }
func (Text) Type() string           { return "text" }
func (u Unknown) Type() string      { return u.Kind }

// MarkType identifies an inline annotation on a text node.
type MarkType string

const (
	MarkBold        MarkType = "bold"
	MarkItalic      MarkType = "italic"
	MarkStrike      MarkType = "strike"
	MarkCode        MarkType = "code"
	MarkLink        MarkType = "link"
	MarkHighlight   MarkType = "highlight"
	MarkUnderline   MarkType = "underline"
	MarkSubscript   MarkType = "subscript"
	MarkSuperscript MarkType = "superscript"
)

// Mark is an inline annotation. Href is only meaningful for links and Color
// only for highlights; both are empty when the attribute was absent.
type Mark struct {
	Type  MarkType
	Href  string
	Color string
}

// content returns the child list of a node and whether the node carried one.
func content(n Node) (Children, bool) {
	var c Children
	switch v := n.(type) {
	case Doc:
		c = v.Content
	case Paragraph:
		c = v.Content
	case Heading:
		c = v.Content
	case BulletList:
		c = v.Content
	case OrderedList:
		c = v.Content
	case ListItem:
		c = v.Content
	case TaskList:
		c = v.Content
	case TaskItem:
		c = v.Content
	case Blockquote:
		c = v.Content
	case CodeBlock:
		c = v.Content
	case HorizontalRule:
		c = v.Content
	case Unknown:
		c = v.Content
	default:
		return nil, false
	}
	return c, c != nil
}

// Decode parses a JSON document tree. Only syntactically invalid JSON is an
// error; wrong-shaped fields are treated as absent.
func Decode(data []byte) (Node, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return FromValue(raw), nil
}

// FromValue converts a generic JSON value, as produced by encoding/json into
// an any, into a Node. A nil or non-object value yields nil.
func FromValue(v any) Node {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return decodeNode(obj, 0)
}

func decodeNode(obj map[string]any, depth int) Node {
	kind, _ := obj["type"].(string)
	if depth >= MaxDepth {
		return Unknown{Kind: kind}
	}
	attrs, _ := obj["attrs"].(map[string]any)

	if kind == "text" {
		text, _ := obj["text"].(string)
		return Text{Text: text, Marks: decodeMarks(obj["marks"])}
	}

	children := decodeChildren(obj["content"], depth+1)
	switch kind {
	case "doc":
		return Doc{Content: children}
	case "paragraph":
		return Paragraph{TextAlign: attrString(attrs, "textAlign"), Content: children}
	case "heading":
		return Heading{Level: attrInt(attrs, "level"), TextAlign: attrString(attrs, "textAlign"), Content: children}
	case "bulletList":
		return BulletList{Content: children}
	case "orderedList":
		return OrderedList{Content: children}
	case "listItem":
		return ListItem{Content: children}
	case "taskList":
		return TaskList{Content: children}
	case "taskItem":
		return TaskItem{Checked: attrBool(attrs, "checked"), Content: children}
	case "blockquote":
		return Blockquote{Content: children}
	case "codeBlock":
		return CodeBlock{Language: attrString(attrs, "language"), Content: children}
	case "horizontalRule":
		return HorizontalRule{Content: children}
	default:
		return Unknown{Kind: kind, Content: children}
	}
}

func decodeChildren(v any, depth int) Children {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	children := make(Children, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			children = append(children, Unknown{})
			continue
		}
		children = append(children, decodeNode(obj, depth))
	}
	return children
}

func decodeMarks(v any) []Mark {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	marks := make([]Mark, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := obj["type"].(string)
		attrs, _ := obj["attrs"].(map[string]any)
		marks = append(marks, Mark{
			Type:  MarkType(kind),
			Href:  attrString(attrs, "href"),
			Color: attrString(attrs, "color"),
		})
	}
	return marks
}

func attrString(attrs map[string]any, key string) string {
	value, _ := attrs[key].(string)
	return value
}

// maxAttrInt bounds integer attributes so a hostile level cannot make a
// renderer allocate without limit. Larger values are treated as absent.
const maxAttrInt = 1 << 16

// attrInt accepts JSON numbers and numeric strings. Fractions are truncated.
func attrInt(attrs map[string]any, key string) int {
	var f float64
	switch v := attrs[key].(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.Abs(f) >= maxAttrInt {
		return 0
	}
	return int(f)
}

func attrBool(attrs map[string]any, key string) bool {
	value, _ := attrs[key].(bool)
	return value
}
