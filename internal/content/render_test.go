package content

import (
	"strings"
	"testing"
)

const sampleDoc = `{
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Intro"}]},
    {"type": "paragraph", "content": [
      {"type": "text", "text": "Hello "},
      {"type": "text", "text": "world", "marks": [{"type": "bold"}, {"type": "link", "attrs": {"href": "https://example.com"}}]}
    ]},
    {"type": "bulletList", "content": [
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "one"}]}]}
    ]},
    {"type": "codeBlock", "attrs": {"language": "go"}, "content": [{"type": "text", "text": "if a < b {}", "marks": [{"type": "bold"}]}]},
    {"type": "image", "attrs": {"src": "/img/a.png", "alt": "A", "caption": "Figure A"}},
    {"type": "horizontalRule"},
    {"type": "mysteryWidget", "content": [{"type": "text", "text": "hidden"}]}
  ]
}`

func TestRenderMapsNodeTypes(t *testing.T) {
	root, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out := string(Render(root))

	wants := []string{
		`<div class="space-y-4">`,
		`<h2 class="` + headingClasses[2] + `">Intro</h2>`,
		`<ul class="list-disc pl-6 space-y-1"><li><p class="leading-7">one</p></li></ul>`,
		`<pre class="overflow-x-auto rounded bg-muted p-4"><code>if a &lt; b {}</code></pre>`,
		`<img src="/img/a.png" alt="A" class="rounded-lg">`,
		`<figcaption class="text-center text-sm text-muted">Figure A</figcaption>`,
		`<hr class="my-8">`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("unknown node should not render, got %s", out)
	}
}

func TestHeadingLevelsUseDistinctClasses(t *testing.T) {
	seen := make(map[string]int)
	for level := 1; level <= 6; level++ {
		out := string(Render(Heading{Level: level, Children: []Node{Text{Text: "h"}}}))
		if _, dup := seen[out]; dup {
			t.Fatalf("heading level %d renders identically to level %d", level, seen[out])
		}
		seen[out] = level
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	renderer := NewRenderer(nil)
	raw := sampleDoc

	first := renderer.RenderString(&raw)
	second := renderer.RenderString(&raw)
	if first != second {
		t.Fatalf("expected identical output, got %q and %q", first, second)
	}
	if raw != sampleDoc {
		t.Fatalf("input must not be modified")
	}
}

func TestRenderDoesNotMutateTree(t *testing.T) {
	text := Text{Text: "x", Marks: []Mark{{Type: MarkBold}}}
	root := Doc{Children: []Node{Paragraph{Children: []Node{text}}}}

	Render(root)

	got := root.Children[0].(Paragraph).Children[0].(Text)
	if got.Text != "x" || len(got.Marks) != 1 || got.Marks[0].Type != MarkBold {
		t.Fatalf("tree changed after render: %+v", got)
	}
}

func TestRenderStringMalformedReturnsPlaceholder(t *testing.T) {
	renderer := NewRenderer(nil)

	for _, raw := range []string{"{not valid", `"just a string"`, `{"content": []}`} {
		raw := raw
		t.Run(raw, func(t *testing.T) {
			if got := renderer.RenderString(&raw); got != ErrorPlaceholder {
				t.Fatalf("expected placeholder, got %q", got)
			}
		})
	}
}

func TestRenderStringEmptyContent(t *testing.T) {
	renderer := NewRenderer(nil)

	if got := renderer.RenderString(nil); got != "" {
		t.Fatalf("expected empty output for nil content, got %q", got)
	}
	empty := "  "
	if got := renderer.RenderString(&empty); got != "" {
		t.Fatalf("expected empty output for blank content, got %q", got)
	}
	null := "null"
	if got := renderer.RenderString(&null); got != "" {
		t.Fatalf("expected empty output for null content, got %q", got)
	}
}

func TestRenderStringSanitizesLinks(t *testing.T) {
	renderer := NewRenderer(nil)
	raw := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"click","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]}]}]}`

	out := string(renderer.RenderString(&raw))
	if strings.Contains(out, "javascript:") {
		t.Fatalf("expected javascript url to be stripped, got %s", out)
	}
	if !strings.Contains(out, "click") {
		t.Fatalf("expected link text to survive, got %s", out)
	}
}

func TestRenderEscapesText(t *testing.T) {
	out := string(Render(Paragraph{Children: []Node{Text{Text: "<script>x</script>"}}}))
	if strings.Contains(out, "<script>") {
		t.Fatalf("text must be escaped, got %s", out)
	}
}

func TestPlainText(t *testing.T) {
	root, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := PlainText(root)
	for _, word := range []string{"Intro", "Hello world", "one", "if a < b {}"} {
		if !strings.Contains(got, word) {
			t.Fatalf("expected plain text to contain %q, got %q", word, got)
		}
	}
}

func TestRenderStringReportsParseErrors(t *testing.T) {
	calls := 0
	renderer := NewRenderer(nil).OnParseError(func() { calls++ })

	bad := "{not valid"
	good := `{"type":"doc","content":[]}`
	renderer.RenderString(&bad)
	renderer.RenderString(&good)

	if calls != 1 {
		t.Fatalf("expected one parse error callback, got %d", calls)
	}
}
