package content

import (
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ErrorPlaceholder 是内容无法解析时展示的占位节点。
const ErrorPlaceholder template.HTML = `<div class="content-error" role="alert">Error rendering content</div>`

var headingClasses = [7]string{
	1: "text-4xl font-bold mt-8 mb-4",
	2: "text-3xl font-bold mt-8 mb-4",
	3: "text-2xl font-semibold mt-6 mb-3",
	4: "text-xl font-semibold mt-6 mb-3",
	5: "text-lg font-medium mt-4 mb-2",
	6: "text-base font-medium mt-4 mb-2",
}

// Render walks the tree once and returns its HTML. The input is not modified.
func Render(n Node) template.HTML {
	var b strings.Builder
	renderNode(&b, n)
	return template.HTML(b.String())
}

func renderNode(b *strings.Builder, n Node) {
	switch node := n.(type) {
	case Doc:
		b.WriteString(`<div class="space-y-4">`)
		renderChildren(b, node.Children)
		b.WriteString(`</div>`)
	case Paragraph:
		b.WriteString(`<p class="leading-7">`)
		renderChildren(b, node.Children)
		b.WriteString(`</p>`)
	case Heading:
		lvl := clampLevel(node.Level)
		level := strconv.Itoa(lvl)
		b.WriteString(`<h` + level + ` class="` + headingClasses[lvl] + `">`)
		renderChildren(b, node.Children)
		b.WriteString(`</h` + level + `>`)
	case BulletList:
		b.WriteString(`<ul class="list-disc pl-6 space-y-1">`)
		renderChildren(b, node.Children)
		b.WriteString(`</ul>`)
	case OrderedList:
		if node.Start > 1 {
			b.WriteString(`<ol class="list-decimal pl-6 space-y-1" start="` + strconv.Itoa(node.Start) + `">`)
		} else {
			b.WriteString(`<ol class="list-decimal pl-6 space-y-1">`)
		}
		renderChildren(b, node.Children)
		b.WriteString(`</ol>`)
	case ListItem:
		b.WriteString(`<li>`)
		renderChildren(b, node.Children)
		b.WriteString(`</li>`)
	case Blockquote:
		b.WriteString(`<blockquote class="border-l-4 pl-4 italic">`)
		renderChildren(b, node.Children)
		b.WriteString(`</blockquote>`)
	case CodeBlock:
		b.WriteString(`<pre class="overflow-x-auto rounded bg-muted p-4"><code>`)
		b.WriteString(html.EscapeString(plainText(node.Children)))
		b.WriteString(`</code></pre>`)
	case Text:
		b.WriteString(ApplyMarks(node.Text, node.Marks))
	case Image:
		if node.Src == "" {
			return
		}
		b.WriteString(`<figure class="my-6">`)
		b.WriteString(`<img src="` + html.EscapeString(node.Src) + `" alt="` + html.EscapeString(node.Alt) + `" class="rounded-lg">`)
		if node.Caption != "" {
			b.WriteString(`<figcaption class="text-center text-sm text-muted">` + html.EscapeString(node.Caption) + `</figcaption>`)
		}
		b.WriteString(`</figure>`)
	case HorizontalRule:
		b.WriteString(`<hr class="my-8">`)
	case HardBreak:
		b.WriteString(`<br>`)
	case Unknown:
		// 未识别的节点不输出任何内容
	}
}

func renderChildren(b *strings.Builder, children []Node) {
	for _, child := range children {
		renderNode(b, child)
	}
}

// PlainText 返回节点树中全部文本，块级节点之间以空格分隔。
func PlainText(n Node) string {
	return strings.TrimSpace(plainText([]Node{n}))
}

func plainText(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch node := n.(type) {
		case Text:
			b.WriteString(node.Text)
		case HardBreak:
			b.WriteString("\n")
		case Doc:
			b.WriteString(plainText(node.Children))
		case Paragraph:
			b.WriteString(plainText(node.Children) + " ")
		case Heading:
			b.WriteString(plainText(node.Children) + " ")
		case BulletList:
			b.WriteString(plainText(node.Children))
		case OrderedList:
			b.WriteString(plainText(node.Children))
		case ListItem:
			b.WriteString(plainText(node.Children) + " ")
		case Blockquote:
			b.WriteString(plainText(node.Children) + " ")
		case CodeBlock:
			b.WriteString(plainText(node.Children) + " ")
		}
	}
	return b.String()
}

// Renderer turns stored post content into sanitized HTML.
type Renderer struct {
	logger       *zap.Logger
	policy       *bluemonday.Policy
	onParseError func()
}

// NewRenderer creates a Renderer; a nil logger is replaced by a no-op one.
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger, policy: newPolicy()}
}

// OnParseError registers fn to be called each time stored content fails to
// parse.
func (r *Renderer) OnParseError(fn func()) *Renderer {
	r.onParseError = fn
	return r
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("role").OnElements("div")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	return p
}

// RenderString renders serialized content. Absent or empty content yields an
// empty fragment; malformed content is logged and replaced by the
// ErrorPlaceholder instead of failing.
func (r *Renderer) RenderString(content *string) template.HTML {
	if content == nil {
		return ""
	}
	raw := strings.TrimSpace(*content)
	if raw == "" || raw == "null" {
		return ""
	}

	root, err := ParseString(raw)
	if err != nil {
		r.logger.Warn("failed to parse post content", zap.Error(err))
		if r.onParseError != nil {
			r.onParseError()
		}
		return ErrorPlaceholder
	}

	return template.HTML(r.policy.Sanitize(string(Render(root))))
}
