package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/textutil"
	"github.com/kk-code-lab/rtree/internal/tree"
)

// Screen rows: a header, the tree, a status line and the footer.
const (
	headerRows = 1
	treeTop    = headerRows
)

const (
	guideBar   = "│  "
	guideBlank = "   "
	branchMid  = "├─ "
	branchLast = "└─ "
	markWidth  = 4
)

// rowLayout is the horizontal decomposition of one tree row.
type rowLayout struct {
	guides string // indentation and branch connectors
	mark   string // checkbox or cursor marker, markWidth cells when present
	toggle string // disclosure triangle for directories
	label  string
}

func layoutRow(row tree.Row, multi bool) rowLayout {
	var b strings.Builder
	for _, bar := range row.Guides {
		if bar {
			b.WriteString(guideBar)
		} else {
			b.WriteString(guideBlank)
		}
	}
	if row.Depth > 0 {
		if row.Last {
			b.WriteString(branchLast)
		} else {
			b.WriteString(branchMid)
		}
	}
	out := rowLayout{guides: b.String()}

	switch row.Placeholder {
	case tree.PlaceholderEmpty:
		out.label = "(empty)"
		return out
	case tree.PlaceholderLoading:
		out.label = "loading…"
		return out
	}

	switch {
	case multi && row.Checked:
		out.mark = "[x] "
	case multi:
		out.mark = "[ ] "
	case row.Active:
		out.mark = " ●  "
	default:
		out.mark = "    "
	}
	if row.Container {
		if row.Toggled {
			out.toggle = "▾ "
		} else {
			out.toggle = "▸ "
		}
	} else {
		out.toggle = "  "
	}
	out.label = textutil.SafeName(row.Name)
	return out
}

// HitTest maps a screen cell to a visible row. onCheckbox is set when the
// cell lies on the row's checkbox in multi-select mode.
func HitTest(state *statepkg.AppState, x, y int) (index int, onCheckbox bool, ok bool) {
	if state == nil || state.HelpVisible {
		return 0, false, false
	}
	if y < treeTop || y >= treeTop+state.VisibleLines() {
		return 0, false, false
	}
	rows := state.VisibleRows()
	index = state.ScrollOffset + y - treeTop
	if index < 0 || index >= len(rows) {
		return 0, false, false
	}

	multi := state.Tree != nil && state.Tree.MultiSelect()
	if multi {
		l := layoutRow(rows[index], true)
		if l.mark != "" {
			start := textutil.Width(l.guides)
			onCheckbox = x >= start && x < start+markWidth-1
		}
	}
	return index, onCheckbox, true
}
