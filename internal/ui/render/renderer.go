package render

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/textutil"
	"github.com/kk-code-lab/rtree/internal/tree"
)

const yankFlashDuration = 600 * time.Millisecond

// Renderer handles all UI rendering
type Renderer struct {
	screen tcell.Screen
	theme  ColorTheme
	now    func() time.Time
}

// NewRenderer creates a new renderer
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		theme:  GetColorTheme(),
		now:    time.Now,
	}
}

// Render draws the entire UI based on state
func (r *Renderer) Render(state *statepkg.AppState) {
	r.screen.Clear()
	w, h := r.screen.Size()

	if state.HelpVisible {
		r.drawHelpOverlay(state, w, h)
		r.screen.Show()
		return
	}

	r.drawHeader(state, w)
	r.drawTree(state, w, h)
	r.drawStatusLine(state, w, h)
	r.screen.Show()
}

// drawHeader renders the program name, the source and selection counters.
func (r *Renderer) drawHeader(state *statepkg.AppState, w int) {
	style := tcell.StyleDefault.Background(r.theme.HeaderBg).Foreground(r.theme.HeaderFg)

	var right string
	if state.Tree != nil {
		if state.Tree.MultiSelect() {
			right = fmt.Sprintf(" %d selected ", len(statepkg.Selection(state.Tree, "")))
		}
		if pending := state.Tree.Pending(); pending > 0 {
			right = fmt.Sprintf(" loading %d…", pending) + right
		}
	}
	rightWidth := textutil.Width(right)

	x := r.drawText(0, 0, w, "rtree ", style.Bold(true))
	label := textutil.SafeName(state.SourceLabel)
	if state.SourceKind != statepkg.SourceFS {
		label = string(state.SourceKind) + ": " + label
	}
	x = r.drawText(x, 0, w-rightWidth, textutil.Truncate(label, w-rightWidth-x), style)
	r.fill(x, 0, w, style)
	if rightWidth < w {
		r.drawText(w-rightWidth, 0, w, right, style.Foreground(r.theme.NoticeFg))
	}
}

func (r *Renderer) drawTree(state *statepkg.AppState, w, h int) {
	base := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	rows := state.VisibleRows()
	multi := state.Tree.MultiSelect()
	lines := state.VisibleLines()

	if len(rows) == 0 {
		msg := "loading…"
		if !state.Loading() {
			msg = "nothing to show"
		}
		r.drawText(1, treeTop, w, msg, base.Foreground(r.theme.PlaceholderFg))
		return
	}

	for i := 0; i < lines && treeTop+i < h-2; i++ {
		idx := state.ScrollOffset + i
		if idx >= len(rows) {
			break
		}
		r.drawRow(rows[idx], treeTop+i, w, multi, idx == state.SelectedIndex, base)
	}
}

func (r *Renderer) drawRow(row tree.Row, y, w int, multi, selected bool, base tcell.Style) {
	l := layoutRow(row, multi)

	guideStyle := base.Foreground(r.theme.GuideFg)
	markStyle := base
	labelStyle := base.Foreground(r.theme.FileFg)

	switch {
	case row.Placeholder != tree.PlaceholderNone:
		labelStyle = base.Foreground(r.theme.PlaceholderFg).Italic(true)
	case !tree.AccessOf(row.Permissions).Read:
		labelStyle = base.Foreground(r.theme.LockedFg)
	case row.Container:
		labelStyle = base.Foreground(r.theme.DirectoryFg)
	}
	if row.Checked {
		markStyle = markStyle.Foreground(r.theme.CheckedFg)
	}
	if row.Active {
		markStyle = markStyle.Foreground(r.theme.ActiveFg)
		labelStyle = labelStyle.Bold(true)
	}
	if selected {
		sel := base.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)
		guideStyle, markStyle, labelStyle = sel, sel, sel.Bold(row.Active)
	}

	x := r.drawText(0, y, w, l.guides, guideStyle)
	x = r.drawText(x, y, w, l.mark, markStyle)
	x = r.drawText(x, y, w, l.toggle, labelStyle)
	x = r.drawText(x, y, w, textutil.Truncate(l.label, w-x), labelStyle)
	if selected {
		r.fill(x, y, w, labelStyle)
	}
}

// drawStatusLine renders the location or message line and the key hints.
func (r *Renderer) drawStatusLine(state *statepkg.AppState, w, h int) {
	if h < 2 {
		return
	}
	style := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)

	y := h - 2
	var text string
	lineStyle := style
	switch {
	case state.ErrorText() != "":
		text = "error: " + state.ErrorText()
		lineStyle = style.Foreground(r.theme.ErrorFg)
	case state.Notice != "":
		text = state.Notice
		lineStyle = style.Foreground(r.theme.NoticeFg)
	default:
		text = state.SelectedLocation()
		if !state.LastYankTime.IsZero() && r.now().Sub(state.LastYankTime) < yankFlashDuration {
			lineStyle = style.Foreground(r.theme.FlashFg).Bold(true)
		}
	}
	text = textutil.TruncateLeft(textutil.SafeName(text), w)
	x := r.drawText(0, y, w, text, lineStyle)
	r.fill(x, y, w, lineStyle)

	help := textutil.Truncate(buildFooterHelpText(state), w)
	x = r.drawText(0, h-1, w, help, style)
	r.fill(x, h-1, w, style)
}
