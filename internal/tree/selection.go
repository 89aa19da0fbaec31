package tree

// SelectionPolicy lets the owner of a model veto toggles and observe checkbox
// changes.
type SelectionPolicy interface {
	// CanToggle is consulted before every toggle in single-select mode.
	// Returning false aborts the toggle without side effects.
	CanToggle(id NodeID, container bool, node NodeView) bool
	// OnSelectionChanged fires once per node touched by SetChecked. The
	// result is informational.
	OnSelectionChanged(id NodeID, checked, container bool, node NodeView) bool
}

// PolicyFuncs adapts plain functions to SelectionPolicy. Nil fields allow
// every toggle and ignore notifications.
type PolicyFuncs struct {
	CanToggleFunc          func(id NodeID, container bool, node NodeView) bool
	OnSelectionChangedFunc func(id NodeID, checked, container bool, node NodeView) bool
}

func (p PolicyFuncs) CanToggle(id NodeID, container bool, node NodeView) bool {
	if p.CanToggleFunc == nil {
		return true
	}
	return p.CanToggleFunc(id, container, node)
}

func (p PolicyFuncs) OnSelectionChanged(id NodeID, checked, container bool, node NodeView) bool {
	if p.OnSelectionChangedFunc == nil {
		return true
	}
	return p.OnSelectionChangedFunc(id, checked, container, node)
}

// SetChecked checks or unchecks id and every loaded descendant, parents
// before children. Placeholders are never part of the checked set.
func (m *Model) SetChecked(id NodeID, checked bool) error {
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	m.applyChecked(n, checked, true)
	m.version++
	return nil
}

// RestoreChecked marks exactly the listed ids that exist in the tree, without
// cascading into their children. It pairs with Checked to carry a selection
// across a reload. It returns how many ids were restored.
func (m *Model) RestoreChecked(ids []NodeID) int {
	restored := 0
	for _, id := range ids {
		n, ok := m.nodes[id]
		if !ok {
			continue
		}
		m.setOne(n, true)
		restored++
	}
	if restored > 0 {
		m.version++
	}
	return restored
}

// ClearChecked empties the checked set without notifying the policy.
func (m *Model) ClearChecked() {
	if len(m.checked) == 0 {
		return
	}
	m.checked = make(map[NodeID]struct{})
	m.version++
}

// applyChecked updates n and, when deep, its whole loaded subtree. Without
// deep only n and its direct leaf children are touched.
func (m *Model) applyChecked(n *node, checked, deep bool) {
	m.setOne(n, checked)
	if n.state != Loaded {
		return
	}
	for _, id := range n.children {
		child, ok := m.nodes[id]
		if !ok {
			continue
		}
		switch {
		case deep:
			m.applyChecked(child, checked, true)
		case !child.container:
			m.setOne(child, checked)
		}
	}
}

func (m *Model) setOne(n *node, checked bool) {
	if checked {
		m.checked[n.id] = struct{}{}
	} else {
		delete(m.checked, n.id)
	}
	if m.policy != nil {
		m.policy.OnSelectionChanged(n.id, checked, n.container, m.view(n))
	}
}

type cascade struct {
	checked    bool
	generation uint64
	pending    int
	onComplete func()
}

func (c *cascade) done() {
	c.pending--
	if c.pending == 0 && c.onComplete != nil {
		c.onComplete()
	}
}

// CascadeExpandAndCheck expands id, fetching it if needed, then walks every
// container below it the same way and applies the checked value as each
// directory settles. Directories are checked as soon as their own listing
// arrives, so a slow fetch never holds back its siblings. onComplete runs
// once every visited directory has settled, whether or not its fetch
// succeeded. Only the cascade root becomes the cursor: directories below it
// are opened without marking them active, so the cursor stays where the
// cascade started.
func (m *Model) CascadeExpandAndCheck(id NodeID, checked bool, onComplete func()) error {
	if _, err := m.lookup(id); err != nil {
		return err
	}
	c := &cascade{
		checked:    checked,
		generation: m.generation,
		onComplete: onComplete,
	}
	return m.cascadeNode(c, id, true)
}

func (m *Model) cascadeNode(c *cascade, id NodeID, root bool) error {
	c.pending++
	vetoed, err := m.toggleNode(id, true, root, func(bool) {
		if c.generation == m.generation {
			if n, ok := m.nodes[id]; ok {
				if n.state == Loaded {
					for _, childID := range append([]NodeID(nil), n.children...) {
						if child, ok := m.nodes[childID]; ok && child.container {
							_ = m.cascadeNode(c, childID, false)
						}
					}
				}
				m.applyChecked(n, c.checked, false)
				m.version++
			}
		}
		c.done()
	}, root)
	if err != nil || vetoed {
		c.done()
	}
	return err
}
