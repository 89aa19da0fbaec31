// Package textutil prepares file names and messages for a terminal cell grid.
package textutil

import "strings"

// Invisible runes that can reorder or hide parts of a file name are shown
// by their abbreviation instead.
var invisibleRunes = map[rune]string{
	0x00AD: "SHY",
	0x061C: "ALM",
	0x180E: "MVS",
	0x200B: "ZWSP",
	0x200C: "ZWNJ",
	0x200D: "ZWJ",
	0x200E: "LRM",
	0x200F: "RLM",
	0x2028: "LSEP",
	0x2029: "PSEP",
	0x202A: "LRE",
	0x202B: "RLE",
	0x202C: "PDF",
	0x202D: "LRO",
	0x202E: "RLO",
	0x2060: "WJ",
	0x2066: "LRI",
	0x2067: "RLI",
	0x2068: "FSI",
	0x2069: "PDI",
	0xFEFF: "BOM",
}

// SafeName returns name in a form that cannot move the terminal cursor or
// emit escape sequences. Line breaks and tabs become spaces, other control
// characters become '?' and invisible formatting runes are spelled out as
// ⟪ABBR⟫. Names that need no change are returned as is.
func SafeName(name string) string {
	if !NeedsEscaping(name) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 8)
	for _, r := range name {
		if abbr, ok := invisibleRunes[r]; ok {
			b.WriteString("⟪" + abbr + "⟫")
			continue
		}
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case isControl(r):
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NeedsEscaping reports whether SafeName would change name.
func NeedsEscaping(name string) bool {
	for _, r := range name {
		if _, ok := invisibleRunes[r]; ok || r == '\t' || isControl(r) {
			return true
		}
	}
	return false
}

func isControl(r rune) bool {
	return (r >= 0 && r < 0x20) || r == 0x7f || (r >= 0x80 && r < 0xa0)
}
