package input

import (
	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/rtree/internal/state"
)

// InputHandler converts tcell key events to Actions. Mouse events are
// translated by the application, which knows the screen layout.
type InputHandler struct {
	emit  func(statepkg.Action)
	state *statepkg.AppState // for help and editor checks
}

// NewInputHandler creates a new input handler that hands every action to
// emit. emit runs on the caller's goroutine and must not block.
func NewInputHandler(emit func(statepkg.Action)) *InputHandler {
	return &InputHandler{
		emit: emit,
	}
}

// SetState sets the state reference for mode checking
func (ih *InputHandler) SetState(state *statepkg.AppState) {
	ih.state = state
}

// ProcessEvent converts a tcell event into an Action. It returns false once
// the event asked the application to stop.
func (ih *InputHandler) ProcessEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return ih.processKeyEvent(ev)
	case *tcell.EventResize:
		w, h := ev.Size()
		ih.emit(statepkg.ResizeAction{Width: w, Height: h})
		return true
	default:
		return true
	}
}

func (ih *InputHandler) processKeyEvent(ev *tcell.EventKey) bool {
	if ih.state != nil && ih.state.HelpVisible {
		return ih.processHelpKey(ev)
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		ih.emit(statepkg.QuitAction{})
		return false
	case tcell.KeyCtrlZ:
		ih.emit(statepkg.SuspendAction{})
		return true
	case tcell.KeyEscape:
		ih.emit(statepkg.ClearErrorAction{})
		return true
	case tcell.KeyUp:
		ih.emit(statepkg.NavigateUpAction{})
		return true
	case tcell.KeyDown:
		ih.emit(statepkg.NavigateDownAction{})
		return true
	case tcell.KeyRight:
		ih.emit(statepkg.ExpandAction{})
		return true
	case tcell.KeyLeft:
		ih.emit(statepkg.CollapseAction{})
		return true
	case tcell.KeyEnter:
		ih.emit(statepkg.ActivateAction{})
		return true
	case tcell.KeyPgUp:
		ih.emit(statepkg.ScrollPageUpAction{})
		return true
	case tcell.KeyPgDn:
		ih.emit(statepkg.ScrollPageDownAction{})
		return true
	case tcell.KeyHome:
		ih.emit(statepkg.GoHomeAction{})
		return true
	case tcell.KeyEnd:
		ih.emit(statepkg.GoEndAction{})
		return true
	case tcell.KeyRune:
		return ih.processRune(ev.Rune())
	default:
		return true
	}
}

func (ih *InputHandler) processHelpKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		ih.emit(statepkg.QuitAction{})
		return false
	case tcell.KeyEscape:
		ih.emit(statepkg.HelpHideAction{})
	case tcell.KeyRune:
		switch ev.Rune() {
		case '?', 'q', 'Q':
			ih.emit(statepkg.HelpHideAction{})
		}
	}
	return true
}

func (ih *InputHandler) processRune(r rune) bool {
	switch r {
	case 'q':
		ih.emit(statepkg.QuitAction{})
		return false
	case 'x':
		ih.emit(statepkg.QuitAndExportAction{})
		return false
	case 'k':
		ih.emit(statepkg.NavigateUpAction{})
	case 'j':
		ih.emit(statepkg.NavigateDownAction{})
	case 'l':
		ih.emit(statepkg.ExpandAction{})
	case 'h':
		ih.emit(statepkg.CollapseAction{})
	case 'g':
		ih.emit(statepkg.GoHomeAction{})
	case 'G':
		ih.emit(statepkg.GoEndAction{})
	case ' ':
		ih.emit(statepkg.ToggleCheckAction{})
	case 'a':
		ih.emit(statepkg.CheckAllAction{})
	case 'c':
		ih.emit(statepkg.ClearCheckedAction{})
	case '*':
		ih.emit(statepkg.ExpandSubtreeAction{})
	case 'r', 'R':
		ih.emit(statepkg.ReloadAction{})
	case '?':
		ih.emit(statepkg.HelpToggleAction{})
	case 'y':
		ih.emit(statepkg.YankPathAction{})
	case 'e', 'E':
		if ih.state != nil && ih.state.EditorAvailable {
			ih.emit(statepkg.OpenEditorAction{})
		}
	}
	return true
}
