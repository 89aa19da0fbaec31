package tree

import "go.uber.org/zap"

// Refresh fetches the listing of an already loaded directory again and merges
// it into the tree. Children that are still listed keep their subtrees,
// expansion and checked state; vanished ones are dropped and new ones are
// added, checked when their parent is. Containers that were never loaded or
// are loading have nothing stale, so onSettled runs right away.
func (m *Model) Refresh(id NodeID, onSettled func()) error {
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !n.container {
		return ErrInvalidID
	}
	if n.state == Unloaded || n.state == Loading {
		if onSettled != nil {
			onSettled()
		}
		return nil
	}

	n.token = m.allocToken()
	p := &pendingLoad{
		token:   n.token,
		target:  n.id,
		refresh: true,
	}
	m.start(p, PathFromID(n.id, false), succeeded(onSettled))
	return nil
}

func (m *Model) mergeChildren(n *node, specs []NodeSpec) {
	previous := n.children
	n.children = make([]NodeID, 0, len(specs))
	kept := make(map[NodeID]struct{}, len(specs))
	_, parentChecked := m.checked[n.id]

	for _, spec := range specs {
		if spec.Name == "" {
			continue
		}
		id := ChildID(n.id, spec.Name)
		if _, dup := kept[id]; dup {
			continue
		}
		if existing, ok := m.nodes[id]; ok {
			if existing.parent == n.id && existing.container == spec.IsContainer() {
				existing.data = spec.Data
				existing.permissions = spec.Permissions
				n.children = append(n.children, id)
				kept[id] = struct{}{}
				continue
			}
			m.dropSubtree(id)
		}
		if m.addChild(n, spec) {
			kept[id] = struct{}{}
			if parentChecked {
				m.applyChecked(m.nodes[id], true, true)
			}
		}
	}

	removed := 0
	for _, id := range previous {
		if _, ok := kept[id]; !ok {
			m.dropSubtree(id)
			removed++
		}
	}
	m.settleState(n)
	m.log.Debug("directory refreshed",
		zap.String("id", string(n.id)),
		zap.Int("entries", len(n.children)),
		zap.Int("removed", removed),
	)
}
