package campus

import "github.com/rivo/uniseg"

// DeriveTitle returns the first n characters of text followed by suffix.
// Characters are grapheme clusters, so a title never ends inside an emoji
// or a combining sequence. The suffix is appended even when text is short.
func DeriveTitle(text string, n int, suffix string) string {
	end := 0
	state := -1
	rest := text
	for i := 0; i < n && rest != ""; i++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		end += len(cluster)
	}
	return text[:end] + suffix
}
