package render

import (
	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/textutil"
)

type helpOverlayEntry struct {
	keys string
	desc string
}

type helpOverlaySection struct {
	title   string
	entries []helpOverlayEntry
}

func buildHelpOverlayLines(state *statepkg.AppState) []string {
	multi := state != nil && state.Tree != nil && state.Tree.MultiSelect()

	selection := []helpOverlayEntry{
		{keys: "↵", desc: "Make the node current and open or close it"},
	}
	if multi {
		selection = append(selection,
			helpOverlayEntry{keys: "space", desc: "Check or uncheck; closed directories load completely"},
			helpOverlayEntry{keys: "a", desc: "Check everything"},
			helpOverlayEntry{keys: "c", desc: "Clear all checks"},
			helpOverlayEntry{keys: "click [ ]", desc: "Toggle the checkbox"},
		)
	}

	actions := []helpOverlayEntry{
		{keys: "*", desc: "Expand the whole subtree"},
		{keys: "r", desc: "Reload from the source"},
	}
	if state != nil && state.ClipboardAvailable {
		actions = append(actions, helpOverlayEntry{keys: "y", desc: "Yank path to clipboard"})
	}
	if state != nil && state.EditorAvailable {
		actions = append(actions, helpOverlayEntry{keys: "e", desc: "Open in external editor ($EDITOR)"})
	}

	sections := []helpOverlaySection{
		{
			title: "Navigation",
			entries: []helpOverlayEntry{
				{keys: "↑/↓ j/k", desc: "Move selection"},
				{keys: "→ l", desc: "Open directory / step inside"},
				{keys: "← h", desc: "Close directory / go to parent"},
				{keys: "PgUp/PgDn", desc: "Page"},
				{keys: "Home/End g/G", desc: "First / last row"},
			},
		},
		{title: "Selection", entries: selection},
		{title: "Actions", entries: actions},
		{
			title: "Exit",
			entries: []helpOverlayEntry{
				{keys: "x", desc: "Quit and print the selection"},
				{keys: "q", desc: "Quit"},
				{keys: "Ctrl+C", desc: "Quit immediately"},
				{keys: "?", desc: "Close this help"},
			},
		},
	}

	lines := make([]string, 0, 32)
	for i, section := range sections {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, section.title)
		for _, entry := range section.entries {
			lines = append(lines, "  "+textutil.PadRight(entry.keys, 14)+" "+entry.desc)
		}
	}
	return lines
}

func (r *Renderer) drawHelpOverlay(state *statepkg.AppState, w, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	for y := 0; y < h; y++ {
		r.fill(0, y, w, baseStyle)
	}

	headerStyle := baseStyle.Background(r.theme.HeaderBg).Foreground(r.theme.HeaderFg).Bold(true)
	title := " Help "
	titleStart := 0
	if tw := textutil.Width(title); w > tw {
		titleStart = (w - tw) / 2
	}
	r.drawText(titleStart, 0, w, title, headerStyle)

	row := 2
	for _, line := range buildHelpOverlayLines(state) {
		if row >= h-1 {
			break
		}
		r.drawText(2, row, w-2, textutil.Truncate(line, w-4), baseStyle)
		row++
	}

	if h > 1 {
		r.drawText(0, h-1, w, textutil.Truncate("? toggle · Esc/q close", w), headerStyle)
	}
}
