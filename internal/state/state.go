package state

import (
	"time"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// SourceKind names the backend a tree was loaded from.
type SourceKind string

const (
	SourceFS     SourceKind = "fs"
	SourceRemote SourceKind = "remote"
	SourceS3     SourceKind = "s3"
)

// AppState is the single source of truth
type AppState struct {
	Tree        *tree.Model
	Policy      *PermissionPolicy
	SourceLabel string
	SourceKind  SourceKind
	// SourceRoot is the location paths are shown relative to: a directory
	// for local trees, a base URL or bucket url otherwise.
	SourceRoot string

	// Selection & viewport
	SelectedIndex int
	ScrollOffset  int
	selectedID    tree.NodeID
	lastCursor    tree.NodeID

	// Dimensions
	ScreenWidth  int
	ScreenHeight int

	// Status line
	HelpVisible        bool
	Notice             string
	ClipboardAvailable bool
	EditorAvailable    bool
	LastYankTime       time.Time

	// Error state
	LastError error

	rows        []tree.Row
	rowsVersion uint64
	rowsValid   bool
}

// NewAppState wraps an initialized or initializing model.
func NewAppState(m *tree.Model, policy *PermissionPolicy, label string, kind SourceKind, root string) *AppState {
	return &AppState{
		Tree:        m,
		Policy:      policy,
		SourceLabel: label,
		SourceKind:  kind,
		SourceRoot:  root,
	}
}

// VisibleRows returns the flattened tree, rebuilt only when the model changed.
func (s *AppState) VisibleRows() []tree.Row {
	if s.Tree == nil {
		return nil
	}
	if v := s.Tree.Version(); !s.rowsValid || v != s.rowsVersion {
		s.rows = s.Tree.Rows()
		s.rowsVersion = v
		s.rowsValid = true
	}
	return s.rows
}

// SelectedRow returns the highlighted row.
func (s *AppState) SelectedRow() (tree.Row, bool) {
	rows := s.VisibleRows()
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(rows) {
		return tree.Row{}, false
	}
	return rows[s.SelectedIndex], true
}

// SelectedPath returns the source path of the highlighted node, "" for the
// root or a placeholder.
func (s *AppState) SelectedPath() string {
	row, ok := s.SelectedRow()
	if !ok || row.Placeholder != tree.PlaceholderNone {
		return ""
	}
	return tree.PathFromID(row.ID, false)
}

// VisibleLines is the number of tree rows that fit between the header and
// the two status lines.
func (s *AppState) VisibleLines() int {
	lines := s.ScreenHeight - 3
	if lines < 1 {
		return 1
	}
	return lines
}

// Loading reports whether any fetch is outstanding.
func (s *AppState) Loading() bool {
	return s.Tree != nil && s.Tree.Pending() > 0
}

func (s *AppState) rowIndex(id tree.NodeID) int {
	for i, row := range s.VisibleRows() {
		if row.ID == id {
			return i
		}
	}
	return -1
}

func (s *AppState) selectIndex(idx int) {
	rows := s.VisibleRows()
	if len(rows) == 0 {
		s.SelectedIndex = 0
		s.selectedID = ""
		s.ScrollOffset = 0
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rows) {
		idx = len(rows) - 1
	}
	s.SelectedIndex = idx
	s.selectedID = rows[idx].ID
	s.ensureSelectionVisible()
}

func (s *AppState) selectID(id tree.NodeID) bool {
	idx := s.rowIndex(id)
	if idx < 0 {
		return false
	}
	s.selectIndex(idx)
	return true
}

// syncSelection keeps the highlight on the same node while rows appear and
// disappear around it. A cursor moved by the model wins; a node that left
// the view hands the highlight to its closest visible ancestor.
func (s *AppState) syncSelection() {
	if s.Tree == nil {
		return
	}
	if cursor, ok := s.Tree.Cursor(); ok && cursor != s.lastCursor {
		s.lastCursor = cursor
		if s.selectID(cursor) {
			return
		}
	} else if !ok {
		s.lastCursor = ""
	}

	if s.selectedID == "" {
		s.selectIndex(s.SelectedIndex)
		return
	}
	if s.selectID(s.selectedID) {
		return
	}
	for id := s.selectedID; id != ""; {
		parent, ok := s.parentOf(id)
		if !ok {
			break
		}
		if s.selectID(parent) {
			return
		}
		id = parent
	}
	s.selectIndex(s.SelectedIndex)
}

func (s *AppState) parentOf(id tree.NodeID) (tree.NodeID, bool) {
	if parent, ok := s.Tree.Parent(id); ok {
		return parent, true
	}
	// Placeholders and removed nodes are resolved by their id.
	if id == s.Tree.RootID() {
		return "", false
	}
	cut := len(id) - len(id.Name()) - len(tree.Separator)
	if cut <= 0 {
		return "", false
	}
	return id[:cut], true
}

func (s *AppState) ensureSelectionVisible() {
	visible := s.VisibleLines()
	if s.SelectedIndex < s.ScrollOffset {
		s.ScrollOffset = s.SelectedIndex
	} else if s.SelectedIndex >= s.ScrollOffset+visible {
		s.ScrollOffset = s.SelectedIndex - visible + 1
	}

	maxOffset := len(s.VisibleRows()) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.ScrollOffset > maxOffset {
		s.ScrollOffset = maxOffset
	}
	if s.ScrollOffset < 0 {
		s.ScrollOffset = 0
	}
}

// WatchedDirs lists the source paths of expanded, loaded directories. The
// app keeps a filesystem watcher on exactly these.
func (s *AppState) WatchedDirs() []string {
	var dirs []string
	for _, row := range s.VisibleRows() {
		if !row.Container || !row.Toggled || row.Placeholder != tree.PlaceholderNone {
			continue
		}
		if row.State == tree.Loaded || row.State == tree.Empty {
			dirs = append(dirs, tree.PathFromID(row.ID, false))
		}
	}
	return dirs
}

// ErrorText returns the message for the status line: an action error first,
// then the model's last load failure.
func (s *AppState) ErrorText() string {
	if s.LastError != nil {
		return s.LastError.Error()
	}
	if s.Tree != nil {
		return s.Tree.LoadError()
	}
	return ""
}

// SelectedLocation is the highlighted node's full location: a file path for
// local trees, a URL for remote ones.
func (s *AppState) SelectedLocation() string {
	return s.Location(tree.PathFromID(s.selectedNodeID(), false))
}

// Location joins rel, a source path, with the source root.
func (s *AppState) Location(rel string) string {
	if rel == "" {
		return s.SourceRoot
	}
	return joinBase(s.SourceRoot, rel)
}

func (s *AppState) selectedNodeID() tree.NodeID {
	row, ok := s.SelectedRow()
	if !ok || row.Placeholder != tree.PlaceholderNone {
		return ""
	}
	return row.ID
}
