package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse 表示内容不是合法的 JSON 文档树。
var ErrParse = errors.New("content parse error")

type rawNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs"`
	Content []rawNode      `json:"content"`
	Text    string         `json:"text"`
	Marks   []rawMark      `json:"marks"`
}

type rawMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs"`
}

// Parse decodes a serialized document into a typed tree.
func Parse(raw []byte) (Node, error) {
	var root rawNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if strings.TrimSpace(root.Type) == "" {
		return nil, fmt.Errorf("%w: missing node type", ErrParse)
	}
	return convert(root), nil
}

// ParseString is Parse for string input.
func ParseString(raw string) (Node, error) {
	return Parse([]byte(raw))
}

func convert(r rawNode) Node {
	switch r.Type {
	case "doc":
		return Doc{Children: convertAll(r.Content)}
	case "paragraph":
		return Paragraph{Children: convertAll(r.Content)}
	case "heading":
		return Heading{Level: clampLevel(intAttr(r.Attrs, "level", 1)), Children: convertAll(r.Content)}
	case "bulletList":
		return BulletList{Children: convertAll(r.Content)}
	case "orderedList":
		return OrderedList{Start: intAttr(r.Attrs, "start", 1), Children: convertAll(r.Content)}
	case "listItem":
		return ListItem{Children: convertAll(r.Content)}
	case "blockquote":
		return Blockquote{Children: convertAll(r.Content)}
	case "codeBlock":
		return CodeBlock{Language: stringAttr(r.Attrs, "language"), Children: convertAll(r.Content)}
	case "text":
		return Text{Text: r.Text, Marks: convertMarks(r.Marks)}
	case "image":
		caption := stringAttr(r.Attrs, "caption")
		if caption == "" {
			caption = stringAttr(r.Attrs, "title")
		}
		return Image{Src: stringAttr(r.Attrs, "src"), Alt: stringAttr(r.Attrs, "alt"), Caption: caption}
	case "horizontalRule":
		return HorizontalRule{}
	case "hardBreak":
		return HardBreak{}
	default:
		return Unknown{Type: r.Type}
	}
}

func convertAll(raws []rawNode) []Node {
	if len(raws) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(raws))
	for _, r := range raws {
		nodes = append(nodes, convert(r))
	}
	return nodes
}

func convertMarks(raws []rawMark) []Mark {
	if len(raws) == 0 {
		return nil
	}
	marks := make([]Mark, 0, len(raws))
	for _, r := range raws {
		mark := Mark{Type: MarkType(r.Type)}
		if mark.Type == MarkLink {
			mark.Href = stringAttr(r.Attrs, "href")
		}
		marks = append(marks, mark)
	}
	return marks
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func intAttr(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
