package goldmark

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/campus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// minWrap is the narrowest width nested content is wrapped to.
const minWrap = 10

type renderer struct {
	strong   lipgloss.Style
	emphasis lipgloss.Style
	heading  lipgloss.Style
	muted    lipgloss.Style
	link     lipgloss.Style
}

func newRenderer(theme campus.Theme) *renderer {
	return &renderer{
		strong:   lipgloss.NewStyle().Bold(true),
		emphasis: lipgloss.NewStyle().Italic(true),
		heading:  lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		link:     lipgloss.NewStyle().Foreground(ansiColor(theme.Link)).Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte, width int) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	return strings.Join(r.blocks(doc, source, width), "\n\n")
}

// blocks renders each block child of node. Empty blocks are dropped.
func (r *renderer) blocks(node ast.Node, source []byte, width int) []string {
	var out []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, source, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *renderer) block(node ast.Node, source []byte, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.wrap(r.inline(n, source), width)

	case *ast.Heading:
		return r.wrap(r.heading.Render(r.inline(n, source)), width)

	case *ast.FencedCodeBlock:
		code := r.code(n, source)
		if lang := n.Language(source); len(lang) > 0 {
			return r.muted.Render(string(lang)) + "\n" + code
		}
		return code

	case *ast.CodeBlock:
		return r.code(n, source)

	case *ast.List:
		var b strings.Builder
		r.list(n, source, width, 0, &b)
		return strings.TrimRight(b.String(), "\n")

	case *ast.Blockquote:
		inner := r.blocks(n, source, max(width-2, minWrap))
		return gutter(strings.Join(inner, "\n\n"), r.muted.Render("│")+" ")

	case *ast.ThematicBreak:
		return "---"

	case *ast.HTMLBlock:
		// Markup is shown as typed, never interpreted.
		return strings.TrimRight(rawLines(n, source), "\n")

	default:
		return strings.Join(r.blocks(node, source, width), "\n\n")
	}
}

// code renders a code block verbatim, without reflow, behind a gutter.
func (r *renderer) code(n ast.Node, source []byte) string {
	return gutter(strings.TrimRight(rawLines(n, source), "\n"), r.muted.Render("│")+" ")
}

func (r *renderer) list(n *ast.List, source []byte, width, depth int, b *strings.Builder) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			if sub, ok := ic.(*ast.List); ok {
				r.list(sub, source, width, depth+1, b)
				continue
			}
			content := r.block(ic, source, max(width-len(prefix), minWrap))
			if content == "" {
				continue
			}
			b.WriteString(hang(content, prefix))
			b.WriteString("\n")
			prefix = strings.Repeat(" ", len(prefix))
		}
	}
}

// inline renders the inline children of node. Adjacent text nodes are
// joined before URLs are detected: goldmark splits text at delimiter
// characters such as '_', which appear in URLs.
func (r *renderer) inline(node ast.Node, source []byte) string {
	var b, pending strings.Builder
	flush := func() {
		b.WriteString(r.linkify(pending.String()))
		pending.Reset()
	}
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			flush()
			b.WriteString(r.span(c, source))
			continue
		}
		pending.Write(t.Segment.Value(source))
		switch {
		case t.HardLineBreak():
			pending.WriteByte('\n')
		case t.SoftLineBreak():
			pending.WriteByte(' ')
		}
	}
	flush()
	return b.String()
}

func (r *renderer) span(node ast.Node, source []byte) string {
	switch n := node.(type) {
	case *ast.String:
		return string(n.Value)

	case *ast.Emphasis:
		// ***x*** parses as nested emphasis, so levels are 1 or 2.
		if n.Level == 1 {
			return r.emphasis.Render(r.inline(n, source))
		}
		return r.strong.Render(r.inline(n, source))

	case *ast.CodeSpan:
		return r.strong.Render(r.inline(n, source))

	case *ast.Link:
		label := ansi.Strip(r.inline(n, source))
		url := string(n.Destination)
		if label == url {
			return r.hyperlink(url, label)
		}
		return r.hyperlink(url, label) + " " + r.muted.Render("("+url+")")

	case *ast.AutoLink:
		url := string(n.URL(source))
		return r.hyperlink(url, url)

	case *ast.Image:
		url := string(n.Destination)
		return r.hyperlink(url, ansi.Strip(r.inline(n, source))) + " " + r.muted.Render("("+url+")")

	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}
		return b.String()

	default:
		return r.inline(node, source)
	}
}

// linkify styles every URL in plain text as a terminal hyperlink.
func (r *renderer) linkify(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range campus.Linkify(s) {
		if seg.Kind == campus.SegmentLink {
			b.WriteString(r.hyperlink(seg.Text, seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// hyperlink renders label as an OSC 8 hyperlink to url. Terminals without
// OSC 8 support show the styled label only.
func (r *renderer) hyperlink(url, label string) string {
	return ansi.SetHyperlink(url) + r.link.Render(label) + ansi.ResetHyperlink()
}

func (r *renderer) wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func rawLines(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// gutter prefixes every line of s.
func gutter(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// hang prefixes the first line of s and indents the rest to line up under it.
func hang(s, prefix string) string {
	indent := strings.Repeat(" ", len(prefix))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if i == 0 {
			lines[i] = prefix + l
			continue
		}
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}
