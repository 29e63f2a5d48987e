package content

import "html"

type wrapFunc func(string) string

// ApplyMarks escapes text and folds its marks over it in list order: each
// mark wraps the result accumulated so far, so the last mark is outermost.
func ApplyMarks(text string, marks []Mark) string {
	return reduce(marks, html.EscapeString(text), func(acc string, m Mark) string {
		return wrapperFor(m)(acc)
	})
}

func reduce[T, A any](items []T, seed A, fn func(A, T) A) A {
	acc := seed
	for _, item := range items {
		acc = fn(acc, item)
	}
	return acc
}

func wrapperFor(m Mark) wrapFunc {
	switch m.Type {
	case MarkBold:
		return wrapTag("strong", "")
	case MarkItalic:
		return wrapTag("em", "")
	case MarkUnderline:
		return wrapTag("u", "")
	case MarkStrike:
		return wrapTag("s", "")
	case MarkCode:
		return wrapTag("code", "rounded bg-muted px-1 font-mono text-sm")
	case MarkLink:
		href := m.Href
		if href == "" {
			href = "#"
		}
		return func(inner string) string {
			return `<a href="` + html.EscapeString(href) + `" class="text-primary underline">` + inner + `</a>`
		}
	default:
		return func(inner string) string { return inner }
	}
}

func wrapTag(name, class string) wrapFunc {
	open := "<" + name + ">"
	if class != "" {
		open = "<" + name + ` class="` + class + `">`
	}
	closing := "</" + name + ">"
	return func(inner string) string {
		return open + inner + closing
	}
}
