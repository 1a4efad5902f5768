package campus

import "regexp"

// SegmentKind tells plain text apart from a navigable link.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentLink
)

// Link attributes for opening a URL in a new browsing context without
// giving it access to the opener.
const (
	LinkTarget = "_blank"
	LinkRel    = "noopener noreferrer"
)

// Segment is one piece of rendered message text.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Target string // set for links
	Rel    string // set for links
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Linkify splits text into alternating text and link segments. The result
// always starts and ends with a text segment, which may be empty, and the
// concatenation of all segment texts equals text.
func Linkify(text string) []Segment {
	matches := urlPattern.FindAllStringIndex(text, -1)
	segments := make([]Segment, 0, 2*len(matches)+1)
	prev := 0
	for _, m := range matches {
		segments = append(segments,
			Segment{Kind: SegmentText, Text: text[prev:m[0]]},
			Segment{Kind: SegmentLink, Text: text[m[0]:m[1]], Target: LinkTarget, Rel: LinkRel},
		)
		prev = m[1]
	}
	return append(segments, Segment{Kind: SegmentText, Text: text[prev:]})
}
