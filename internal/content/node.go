// Package content models rich-text documents stored as JSON trees and
// renders them to HTML fragments.
package content

// Node is a closed set of document node variants. Only types in this
// package implement it; Render switches over every variant.
type Node interface {
	nodeType() string
}

// Doc is the document root. Children render in a vertical stack.
type Doc struct {
	Children []Node
}

type Paragraph struct {
	Children []Node
}

// Heading carries a level clamped to 1..6 during parsing.
type Heading struct {
	Level    int
	Children []Node
}

type BulletList struct {
	Children []Node
}

type OrderedList struct {
	Start    int
	Children []Node
}

type ListItem struct {
	Children []Node
}

type Blockquote struct {
	Children []Node
}

// CodeBlock renders the text of its children literally.
type CodeBlock struct {
	Language string
	Children []Node
}

// Text is a leaf carrying ordered marks.
type Text struct {
	Text  string
	Marks []Mark
}

type Image struct {
	Src     string
	Alt     string
	Caption string
}

type HorizontalRule struct{}

type HardBreak struct{}

// Unknown keeps node types this package does not recognise. It renders as
// nothing.
type Unknown struct {
	Type string
}

func (Doc) nodeType() string            { return "doc" }
func (Paragraph) nodeType() string      { return "paragraph" }
func (Heading) nodeType() string        { return "heading" }
func (BulletList) nodeType() string     { return "bulletList" }
func (OrderedList) nodeType() string    { return "orderedList" }
func (ListItem) nodeType() string       { return "listItem" }
func (Blockquote) nodeType() string     { return "blockquote" }
func (CodeBlock) nodeType() string      { return "codeBlock" }
func (Text) nodeType() string           { return "text" }
func (Image) nodeType() string          { return "image" }
func (HorizontalRule) nodeType() string { return "horizontalRule" }
func (HardBreak) nodeType() string      { return "hardBreak" }
func (u Unknown) nodeType() string      { return u.Type }

// TypeOf returns the serialized type name of a node.
func TypeOf(n Node) string {
	if n == nil {
		return ""
	}
	return n.nodeType()
}

// MarkType names an inline formatting annotation.
type MarkType string

const (
	MarkBold      MarkType = "bold"
	MarkItalic    MarkType = "italic"
	MarkUnderline MarkType = "underline"
	MarkStrike    MarkType = "strike"
	MarkCode      MarkType = "code"
	MarkLink      MarkType = "link"
)

// Mark is an inline annotation on a Text node. Href is only used by links.
type Mark struct {
	Type MarkType
	Href string
}
