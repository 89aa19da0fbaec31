package state

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// StateReducer applies actions to an AppState. Like the model it drives, it
// must only be used from the event loop goroutine.
type StateReducer struct {
	log          *zap.Logger
	beforeReload func()
}

// NewStateReducer creates a reducer.
func NewStateReducer(logger *zap.Logger) *StateReducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateReducer{log: logger}
}

// SetReloadHook registers fn to run before a full reload, for example to
// drop cached listings.
func (r *StateReducer) SetReloadHook(fn func()) {
	r.beforeReload = fn
}

// Reduce applies action and keeps the highlighted row in sync with the tree.
func (r *StateReducer) Reduce(state *AppState, action Action) (*AppState, error) {
	err := r.reduce(state, action)
	state.syncSelection()
	return state, err
}

func (r *StateReducer) reduce(state *AppState, action Action) error {
	switch a := action.(type) {

	// ===== NAVIGATION =====

	case NavigateDownAction:
		state.Notice = ""
		state.selectIndex(state.SelectedIndex + 1)
		return nil

	case NavigateUpAction:
		state.Notice = ""
		state.selectIndex(state.SelectedIndex - 1)
		return nil

	case ScrollPageDownAction:
		state.selectIndex(state.SelectedIndex + state.VisibleLines())
		return nil

	case ScrollPageUpAction:
		state.selectIndex(state.SelectedIndex - state.VisibleLines())
		return nil

	case GoHomeAction:
		state.selectIndex(0)
		return nil

	case GoEndAction:
		state.selectIndex(len(state.VisibleRows()) - 1)
		return nil

	case MouseSelectAction:
		if a.Index < 0 || a.Index >= len(state.VisibleRows()) {
			return nil
		}
		state.selectIndex(a.Index)
		if a.OnCheckbox {
			return r.toggleCheck(state)
		}
		return nil

	// ===== TREE =====

	case ExpandAction:
		row, ok := r.selectedNode(state)
		if !ok || !row.Container {
			return nil
		}
		if row.Toggled && row.State == tree.Loaded {
			// Already open: step into the first child.
			state.selectIndex(state.SelectedIndex + 1)
			return nil
		}
		return state.Tree.Expand(row.ID)

	case CollapseAction:
		row, ok := state.SelectedRow()
		if !ok {
			return nil
		}
		if row.Container && row.Toggled && row.Placeholder == tree.PlaceholderNone {
			return state.Tree.Collapse(row.ID)
		}
		if row.Parent != "" {
			state.selectID(row.Parent)
		}
		return nil

	case ActivateAction:
		return r.activate(state)

	case ExpandSubtreeAction:
		row, ok := r.selectedNode(state)
		if !ok || !row.Container {
			return nil
		}
		id := row.ID
		return state.Tree.ExpandDepth(id, -1, func() {
			state.Notice = fmt.Sprintf("expanded %s", displayPath(id))
		})

	case ToggleCheckAction:
		return r.toggleCheck(state)

	case CheckAllAction:
		if !state.Tree.MultiSelect() {
			return nil
		}
		root := state.Tree.RootID()
		if root == "" {
			return nil
		}
		state.Notice = "selecting everything…"
		return state.Tree.CascadeExpandAndCheck(root, true, func() {
			state.Notice = fmt.Sprintf("%d selected", len(Selection(state.Tree, "")))
		})

	case ClearCheckedAction:
		state.Tree.ClearChecked()
		state.Notice = ""
		return nil

	case ReloadAction:
		r.reload(state)
		return nil

	case TreeLoadResultAction:
		state.Tree.Apply(a.Result)
		return nil

	case SourceChangedAction:
		id := tree.IDFromPath(a.Dir)
		if a.Dir == "" {
			id = state.Tree.RootID()
		}
		err := state.Tree.Refresh(id, nil)
		if errors.Is(err, tree.ErrNodeNotFound) || errors.Is(err, tree.ErrNotInitialized) {
			r.log.Debug("change outside the loaded tree", zap.String("dir", a.Dir))
			return nil
		}
		return err

	// ===== VIEW =====

	case ResizeAction:
		state.ScreenWidth = a.Width
		state.ScreenHeight = a.Height
		state.ensureSelectionVisible()
		return nil

	case HelpToggleAction:
		state.HelpVisible = !state.HelpVisible
		return nil

	case HelpHideAction:
		state.HelpVisible = false
		return nil

	case ClearErrorAction:
		state.LastError = nil
		state.Notice = ""
		state.Tree.ClearError()
		return nil
	}

	return nil
}

// selectedNode returns the highlighted row unless it is a placeholder.
func (r *StateReducer) selectedNode(state *AppState) (tree.Row, bool) {
	row, ok := state.SelectedRow()
	if !ok || row.Placeholder != tree.PlaceholderNone {
		return tree.Row{}, false
	}
	return row, true
}

func (r *StateReducer) activate(state *AppState) error {
	row, ok := r.selectedNode(state)
	if !ok {
		return nil
	}
	expand := !row.Toggled
	if !row.Container {
		expand = false
	}
	if err := state.Tree.Toggle(row.ID, expand, true, nil); err != nil {
		return err
	}
	if denied, ok := state.Policy.TakeDenied(); ok {
		return fmt.Errorf("permission denied: %s", displayPath(denied))
	}
	return nil
}

// toggleCheck flips the checkbox of the highlighted node. Directories whose
// contents are not on screen are loaded completely first.
func (r *StateReducer) toggleCheck(state *AppState) error {
	if !state.Tree.MultiSelect() {
		return r.activate(state)
	}
	row, ok := r.selectedNode(state)
	if !ok {
		return nil
	}
	checked := !row.Checked

	if row.Container && (!row.Toggled || row.State == tree.Unloaded) {
		id := row.ID
		state.Notice = fmt.Sprintf("loading %s…", displayPath(id))
		return state.Tree.CascadeExpandAndCheck(id, checked, func() {
			state.Notice = fmt.Sprintf("%d selected", len(Selection(state.Tree, "")))
		})
	}
	return state.Tree.SetChecked(row.ID, checked)
}

// reload fetches the root again and re-opens every directory that was open.
func (r *StateReducer) reload(state *AppState) {
	if r.beforeReload != nil {
		r.beforeReload()
	}
	expanded := state.Tree.ExpandedIDs()
	checked := state.Tree.Checked()
	selected := state.selectedID
	r.log.Info("reloading tree", zap.Int("expanded", len(expanded)), zap.Int("checked", len(checked)))

	state.LastError = nil
	state.Notice = "reloading…"
	state.Tree.Initialize(state.SourceLabel, func() {
		state.Tree.ExpandAll(expanded, func() {
			state.Tree.RestoreChecked(checked)
			state.Notice = ""
			state.selectedID = selected
			state.syncSelection()
		})
	})
}

func displayPath(id tree.NodeID) string {
	if p := tree.PathFromID(id, false); p != "" {
		return p
	}
	return "/"
}
