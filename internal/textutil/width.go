package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks text cut by Truncate.
const Ellipsis = "…"

// Width is the number of terminal cells text occupies. Zero-width runes
// count as one cell so every rune stays addressable.
func Width(text string) int {
	width := 0
	for _, r := range text {
		width += cellWidth(r)
	}
	return width
}

// Truncate shortens text to at most max cells, ending it with Ellipsis when
// anything was cut.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if Width(text) <= max {
		return text
	}
	if max == 1 {
		return Ellipsis
	}

	var b strings.Builder
	used := 0
	for _, r := range text {
		w := cellWidth(r)
		if used+w > max-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString(Ellipsis)
	return b.String()
}

// TruncateLeft keeps the end of text, which is the useful part of a long
// path.
func TruncateLeft(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if Width(text) <= max {
		return text
	}
	if max == 1 {
		return Ellipsis
	}

	runes := []rune(text)
	used := 0
	start := len(runes)
	for start > 0 {
		w := cellWidth(runes[start-1])
		if used+w > max-1 {
			break
		}
		used += w
		start--
	}
	return Ellipsis + string(runes[start:])
}

// PadRight fills text with spaces up to width cells.
func PadRight(text string, width int) string {
	if gap := width - Width(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}

func cellWidth(r rune) int {
	if w := runewidth.RuneWidth(r); w > 0 {
		return w
	}
	return 1
}
