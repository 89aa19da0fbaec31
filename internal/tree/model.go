// Package tree implements an incrementally loaded file tree. Directories are
// fetched on first expansion through a Runner, results are merged on the
// goroutine that owns the Model, and renderers read immutable snapshots.
//
// A Model is not safe for concurrent use. Every method, including Apply, must
// be called from the goroutine that owns it; Runner callbacks are expected to
// hand their LoadResult back to that goroutine through the dispatch function.
package tree

import (
	"sort"

	"go.uber.org/zap"
)

const fallbackLoadError = "unable to fetch data"

// Model holds the tree, the checked set and the cursor.
type Model struct {
	runner   Runner
	dispatch func(LoadResult)
	policy   SelectionPolicy
	multi    bool
	log      *zap.Logger

	nodes   map[NodeID]*node
	root    NodeID
	checked map[NodeID]struct{}
	cursor  NodeID
	loadErr string

	pending    map[uint64]*pendingLoad
	nextToken  uint64
	generation uint64
	version    uint64
}

type pendingLoad struct {
	token      uint64
	target     NodeID
	root       bool
	refresh    bool
	rootName   string
	generation uint64
	waiters    []func(ok bool)
}

// Option configures a Model.
type Option func(*Model)

// WithDispatch sets how load results travel back to the owning goroutine.
// The default applies results in place, which suits synchronous runners and
// tests that drive callbacks by hand.
func WithDispatch(fn func(LoadResult)) Option {
	return func(m *Model) {
		m.dispatch = fn
	}
}

// WithMultiSelect enables checkbox selection. Without it the model runs in
// single-select mode and consults the policy before every toggle.
func WithMultiSelect(enabled bool) Option {
	return func(m *Model) {
		m.multi = enabled
	}
}

// WithSelectionPolicy installs the veto and notification hooks.
func WithSelectionPolicy(p SelectionPolicy) Option {
	return func(m *Model) {
		m.policy = p
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates an empty model that loads through runner.
func New(runner Runner, opts ...Option) *Model {
	m := &Model{
		runner:  runner,
		log:     zap.NewNop(),
		nodes:   make(map[NodeID]*node),
		checked: make(map[NodeID]struct{}),
		pending: make(map[uint64]*pendingLoad),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dispatch == nil {
		m.dispatch = m.Apply
	}
	return m
}

// MultiSelect reports whether checkbox selection is enabled.
func (m *Model) MultiSelect() bool {
	return m.multi
}

// Initialize discards the current tree and fetches the root listing.
// onSettled runs once the new root is in place; it does not run on failure.
func (m *Model) Initialize(rootName string, onSettled func()) {
	orphaned := m.pending
	m.generation++
	m.pending = make(map[uint64]*pendingLoad)
	m.nodes = make(map[NodeID]*node)
	m.root = ""
	m.checked = make(map[NodeID]struct{})
	m.cursor = ""
	m.version++

	// Walks waiting on the old tree observe the generation change and stop.
	for _, p := range orphaned {
		settle(p.waiters, false)
	}

	p := &pendingLoad{
		token:    m.allocToken(),
		target:   RootID,
		root:     true,
		rootName: rootName,
	}
	m.start(p, "", succeeded(onSettled))
}

// Apply merges a settled load. Results for loads this model no longer tracks
// are dropped without error.
func (m *Model) Apply(res LoadResult) {
	p, ok := m.pending[res.Token]
	if !ok || p.generation != m.generation {
		m.log.Debug("dropping stale load", zap.Uint64("token", res.Token), zap.String("path", res.Path))
		return
	}
	delete(m.pending, res.Token)

	if p.root {
		m.applyRoot(p, res)
		return
	}

	n, ok := m.nodes[p.target]
	if !ok || n.token != p.token {
		m.log.Debug("dropping load for missing node", zap.String("id", string(p.target)))
		settle(p.waiters, false)
		return
	}

	if res.Err != nil {
		m.loadErr = loadErrorMessage(res.Err)
		m.version++
		m.log.Warn("directory load failed", zap.String("path", res.Path), zap.Error(res.Err))
		settle(p.waiters, false)
		return
	}

	if p.refresh {
		m.mergeChildren(n, res.Listing.entries())
	} else {
		m.replaceChildren(n, res.Listing.entries())
	}
	m.loadErr = ""
	m.version++
	m.log.Debug("directory loaded", zap.String("path", res.Path), zap.Int("entries", len(n.children)))
	settle(p.waiters, true)
}

func (m *Model) applyRoot(p *pendingLoad, res LoadResult) {
	m.version++
	if res.Err != nil {
		m.loadErr = loadErrorMessage(res.Err)
		m.log.Warn("root load failed", zap.Error(res.Err))
		settle(p.waiters, false)
		return
	}

	if spec := res.Listing.Root; spec != nil && len(res.Listing.Entries) == 0 {
		id := spec.ID
		if id == "" {
			id = NodeID(spec.Name)
		}
		root := &node{
			id:          id,
			name:        spec.Name,
			container:   true,
			toggled:     len(spec.Children) > 0,
			data:        spec.Data,
			permissions: spec.Permissions,
		}
		m.nodes[id] = root
		m.root = id
		m.replaceChildren(root, spec.Children)
		if len(spec.Children) == 0 {
			root.state = Unloaded
		}
	} else {
		root := &node{
			id:        RootID,
			name:      p.rootName,
			container: true,
			toggled:   true,
		}
		m.nodes[RootID] = root
		m.root = RootID
		m.replaceChildren(root, res.Listing.Entries)
	}

	m.loadErr = ""
	m.log.Debug("root loaded", zap.String("root", string(m.root)), zap.Int("nodes", len(m.nodes)))
	settle(p.waiters, true)
}

// replaceChildren swaps n's children for specs and settles its load state.
func (m *Model) replaceChildren(n *node, specs []NodeSpec) {
	for _, child := range n.children {
		m.dropSubtree(child)
	}
	n.children = n.children[:0]

	for _, spec := range specs {
		m.addChild(n, spec)
	}
	m.settleState(n)
}

// addChild creates the node for spec below n. It reports false for entries
// that cannot be part of the tree.
func (m *Model) addChild(n *node, spec NodeSpec) bool {
	if spec.Name == "" {
		m.log.Warn("skipping entry without a name", zap.String("parent", string(n.id)))
		return false
	}
	id := ChildID(n.id, spec.Name)
	if spec.ID != "" && spec.ID != id {
		m.log.Warn("entry id does not match its path, using derived id",
			zap.String("given", string(spec.ID)), zap.String("derived", string(id)))
	}
	if _, exists := m.nodes[id]; exists {
		m.log.Warn("skipping duplicate entry", zap.String("id", string(id)))
		return false
	}

	child := &node{
		id:          id,
		name:        spec.Name,
		parent:      n.id,
		container:   spec.IsContainer(),
		state:       Loaded,
		data:        spec.Data,
		permissions: spec.Permissions,
	}
	m.nodes[id] = child
	n.children = append(n.children, id)

	if child.container {
		if len(spec.Children) == 0 {
			child.state = Unloaded
		} else {
			m.replaceChildren(child, spec.Children)
		}
	}
	return true
}

func (m *Model) settleState(n *node) {
	if len(n.children) == 0 {
		n.state = Empty
	} else {
		n.state = Loaded
	}
}

func (m *Model) dropSubtree(id NodeID) {
	n, ok := m.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.children {
		m.dropSubtree(child)
	}
	delete(m.nodes, id)
	delete(m.checked, id)
	if m.cursor == id {
		m.cursor = ""
	}
}

// Remove deletes a node and everything below it. A parent left without
// children becomes Empty. Loads still outstanding for removed directories
// are ignored when they settle.
func (m *Model) Remove(id NodeID) error {
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	if id == m.root {
		return ErrInvalidID
	}

	if parent, ok := m.nodes[n.parent]; ok {
		kept := parent.children[:0]
		for _, c := range parent.children {
			if c != id {
				kept = append(kept, c)
			}
		}
		parent.children = kept
		if len(kept) == 0 && parent.state == Loaded {
			parent.state = Empty
		}
	}
	m.dropSubtree(id)
	m.version++
	return nil
}

func (m *Model) allocToken() uint64 {
	m.nextToken++
	return m.nextToken
}

// start registers p before handing the request to the runner so that
// synchronous runners can settle it inline.
func (m *Model) start(p *pendingLoad, path string, waiter func(bool)) {
	p.generation = m.generation
	if waiter != nil {
		p.waiters = append(p.waiters, waiter)
	}
	m.pending[p.token] = p
	m.log.Debug("load started", zap.Uint64("token", p.token), zap.String("path", path))

	dispatch := m.dispatch
	m.runner.Start(LoadRequest{
		Token: p.token,
		Path:  path,
		Callback: func(res LoadResult) {
			dispatch(res)
		},
	})
}

func (m *Model) lookup(id NodeID) (*node, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	if m.root == "" {
		return nil, ErrNotInitialized
	}
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// ===== READ ACCESS =====

// RootID returns the id of the current root, or "" before the first load.
func (m *Model) RootID() NodeID {
	return m.root
}

// Root returns a snapshot of the whole tree, or nil when no tree is loaded.
func (m *Model) Root() *NodeView {
	n, ok := m.nodes[m.root]
	if !ok {
		return nil
	}
	return m.snapshot(n)
}

func (m *Model) snapshot(n *node) *NodeView {
	v := m.view(n)
	if !n.container {
		return &v
	}
	v.Children = make([]*NodeView, 0, len(n.children))
	switch n.state {
	case Loading:
		v.Children = append(v.Children, placeholderView(n.id, PlaceholderLoading))
	case Empty:
		v.Children = append(v.Children, placeholderView(n.id, PlaceholderEmpty))
	case Loaded:
		for _, id := range n.children {
			if child, ok := m.nodes[id]; ok {
				v.Children = append(v.Children, m.snapshot(child))
			}
		}
	}
	return &v
}

func (m *Model) view(n *node) NodeView {
	_, checked := m.checked[n.id]
	return NodeView{
		ID:          n.id,
		Name:        n.name,
		Container:   n.container,
		State:       n.state,
		Toggled:     n.toggled,
		Active:      n.active,
		Checked:     checked,
		Data:        n.data,
		Permissions: n.permissions,
	}
}

// Node returns a snapshot of a single node without its children.
func (m *Model) Node(id NodeID) (NodeView, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return NodeView{}, false
	}
	return m.view(n), true
}

// Parent returns the id of a node's parent.
func (m *Model) Parent(id NodeID) (NodeID, bool) {
	n, ok := m.nodes[id]
	if !ok || n.parent == "" {
		return "", false
	}
	return n.parent, true
}

// Rows flattens the visible part of the tree in display order. Collapsed
// containers hide their children; expanded ones in Loading or Empty state
// contribute a single placeholder row.
func (m *Model) Rows() []Row {
	root, ok := m.nodes[m.root]
	if !ok {
		return nil
	}
	rows := make([]Row, 0, 64)
	rows = append(rows, Row{NodeView: m.view(root), Last: true})
	if root.toggled {
		rows = m.appendRows(rows, root, 1, nil)
	}
	return rows
}

func (m *Model) appendRows(rows []Row, parent *node, depth int, guides []bool) []Row {
	switch parent.state {
	case Loading, Empty:
		kind := PlaceholderEmpty
		if parent.state == Loading {
			kind = PlaceholderLoading
		}
		return append(rows, Row{
			NodeView: *placeholderView(parent.id, kind),
			Depth:    depth,
			Parent:   parent.id,
			Last:     true,
			Guides:   cloneGuides(guides),
		})
	case Unloaded:
		return rows
	}

	for i, id := range parent.children {
		child, ok := m.nodes[id]
		if !ok {
			continue
		}
		last := i == len(parent.children)-1
		rows = append(rows, Row{
			NodeView: m.view(child),
			Depth:    depth,
			Parent:   parent.id,
			Last:     last,
			Guides:   cloneGuides(guides),
		})
		if child.container && child.toggled {
			rows = m.appendRows(rows, child, depth+1, append(cloneGuides(guides), !last))
		}
	}
	return rows
}

func cloneGuides(g []bool) []bool {
	if len(g) == 0 {
		return nil
	}
	out := make([]bool, len(g))
	copy(out, g)
	return out
}

// Checked returns the checked ids in sorted order.
func (m *Model) Checked() []NodeID {
	ids := make([]NodeID, 0, len(m.checked))
	for id := range m.checked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsChecked reports whether id is in the checked set.
func (m *Model) IsChecked(id NodeID) bool {
	_, ok := m.checked[id]
	return ok
}

// Cursor returns the active node, if any.
func (m *Model) Cursor() (NodeID, bool) {
	return m.cursor, m.cursor != ""
}

// LoadError returns the message of the most recent failed load.
func (m *Model) LoadError() string {
	return m.loadErr
}

// ClearError forgets the last load error.
func (m *Model) ClearError() {
	if m.loadErr != "" {
		m.loadErr = ""
		m.version++
	}
}

// Version increases with every committed change.
func (m *Model) Version() uint64 {
	return m.version
}

// Pending returns the number of loads that have not settled.
func (m *Model) Pending() int {
	return len(m.pending)
}

// Len returns the number of real nodes in the tree.
func (m *Model) Len() int {
	return len(m.nodes)
}

func loadErrorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return fallbackLoadError
	}
	return err.Error()
}

func succeeded(fn func()) func(bool) {
	if fn == nil {
		return nil
	}
	return func(ok bool) {
		if ok {
			fn()
		}
	}
}

func settle(waiters []func(bool), ok bool) {
	for _, w := range waiters {
		w(ok)
	}
}
