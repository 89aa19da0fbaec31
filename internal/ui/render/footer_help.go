package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/rtree/internal/state"
)

// buildFooterHelpText returns the footer hint string with leading/trailing padding.
func buildFooterHelpText(state *statepkg.AppState) string {
	parts := buildFooterHelpSegments(state)
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  ") + " "
}

func buildFooterHelpSegments(state *statepkg.AppState) []string {
	if state == nil {
		return nil
	}

	segments := []string{"↑/↓: move", "→/←: open/close"}
	if state.Tree != nil && state.Tree.MultiSelect() {
		segments = append(segments, "space: check", "a: all", "c: clear")
	} else {
		segments = append(segments, "↵: choose")
	}
	segments = append(segments, "*: expand", "r: reload")

	if state.ClipboardAvailable {
		segments = append(segments, "y: yank path")
	}
	if state.EditorAvailable {
		segments = append(segments, "e: edit")
	}
	return append(segments, "x/q: export/quit", "?: help")
}
