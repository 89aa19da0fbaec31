package tree

import "sort"

// ExpandedIDs returns every expanded container below the root, parents
// before children. It pairs with ExpandAll to restore a view after a reload.
func (m *Model) ExpandedIDs() []NodeID {
	var ids []NodeID
	for id, n := range m.nodes {
		if id != m.root && n.container && n.toggled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type walk struct {
	generation uint64
	pending    int
	onComplete func()
}

func (w *walk) done() {
	w.pending--
	if w.pending == 0 && w.onComplete != nil {
		w.onComplete()
	}
}

// ExpandAll re-opens the given containers. Each one is expanded only once its
// parent's listing has arrived, so ids that no longer exist are skipped.
// Selection policies are not consulted. onComplete runs after every
// expansion has settled.
func (m *Model) ExpandAll(ids []NodeID, onComplete func()) {
	root, ok := m.nodes[m.root]
	if !ok {
		if onComplete != nil {
			onComplete()
		}
		return
	}

	wanted := make(map[NodeID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	w := &walk{generation: m.generation, onComplete: onComplete}
	w.pending++
	m.expandWanted(w, root, wanted)
	w.done()
}

func (m *Model) expandWanted(w *walk, parent *node, wanted map[NodeID]struct{}) {
	if parent.state != Loaded {
		return
	}
	for _, id := range append([]NodeID(nil), parent.children...) {
		if _, ok := wanted[id]; !ok {
			continue
		}
		childID := id
		w.pending++
		_, err := m.toggleNode(childID, true, false, func(ok bool) {
			if ok && w.generation == m.generation {
				if child, found := m.nodes[childID]; found {
					m.expandWanted(w, child, wanted)
				}
			}
			w.done()
		}, false)
		if err != nil {
			w.done()
		}
	}
}

// ExpandDepth expands id and every container up to depth levels below it.
// A negative depth expands the whole subtree. onComplete runs after every
// fetch it started has settled.
func (m *Model) ExpandDepth(id NodeID, depth int, onComplete func()) error {
	if _, err := m.lookup(id); err != nil {
		return err
	}
	w := &walk{generation: m.generation, onComplete: onComplete}
	w.pending++
	m.expandLevel(w, id, depth)
	w.done()
	return nil
}

func (m *Model) expandLevel(w *walk, id NodeID, depth int) {
	n, ok := m.nodes[id]
	if !ok || !n.container {
		return
	}
	w.pending++
	_, err := m.toggleNode(id, true, false, func(ok bool) {
		if ok && depth != 0 && w.generation == m.generation {
			if n, found := m.nodes[id]; found && n.state == Loaded {
				for _, child := range append([]NodeID(nil), n.children...) {
					m.expandLevel(w, child, depth-1)
				}
			}
		}
		w.done()
	}, false)
	if err != nil {
		w.done()
	}
}
