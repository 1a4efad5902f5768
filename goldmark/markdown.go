// Package goldmark renders answer text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling. Bare URLs in the
// text become styled terminal hyperlinks.
package goldmark

import "github.com/fwojciec/campus"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func Render(source string, width int, theme campus.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}

// RenderText renders source as plain text, word-wrapped to width, with
// only its URLs styled. It is used for text the user typed.
func RenderText(source string, width int, theme campus.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.wrap(r.linkify(source), width)
}
