package state

import "github.com/kk-code-lab/rtree/internal/tree"

// Action is the base interface for all state mutations
type Action interface{}

// ===== NAVIGATION ACTIONS =====

type NavigateUpAction struct{}
type NavigateDownAction struct{}
type ScrollPageUpAction struct{}
type ScrollPageDownAction struct{}
type GoHomeAction struct{}
type GoEndAction struct{}

// MouseSelectAction highlights a row; OnCheckbox also flips its checkbox.
type MouseSelectAction struct {
	Index      int
	OnCheckbox bool
}

// ===== TREE ACTIONS =====

type ExpandAction struct{}   // → open the highlighted directory
type CollapseAction struct{} // ← close it, or jump to the parent
type ActivateAction struct{} // ↵ make the node the cursor and toggle it
type ExpandSubtreeAction struct{}
type ToggleCheckAction struct{}
type CheckAllAction struct{}
type ClearCheckedAction struct{}
type ReloadAction struct{}

// TreeLoadResultAction carries a finished load back to the event loop.
type TreeLoadResultAction struct {
	Result tree.LoadResult
}

// SourceChangedAction reports that the listing of Dir is stale.
type SourceChangedAction struct {
	Dir string
}

// ===== VIEW ACTIONS =====

type ResizeAction struct {
	Width  int
	Height int
}

type HelpToggleAction struct{}
type HelpHideAction struct{}
type ClearErrorAction struct{}
type YankPathAction struct{}
type OpenEditorAction struct{}

// ===== APPLICATION ACTIONS =====

type QuitAction struct{}          // q - leave without output
type QuitAndExportAction struct{} // x - print the checked paths on exit
type SuspendAction struct{}
