package tree

import "go.uber.org/zap"

// Toggle expands or collapses id. With markActive the node also becomes the
// cursor. Containers that were never fetched start loading, and onSettled
// runs once their children are in place. For nodes that need no fetch
// onSettled runs before Toggle returns.
//
// In single-select mode the selection policy may veto the toggle, in which
// case nothing changes and onSettled never runs.
func (m *Model) Toggle(id NodeID, expand, markActive bool, onSettled func()) error {
	_, err := m.toggleNode(id, expand, markActive, succeeded(onSettled), true)
	return err
}

// Expand is shorthand for Toggle(id, true, false, nil).
func (m *Model) Expand(id NodeID) error {
	return m.Toggle(id, true, false, nil)
}

// Collapse hides the children of id without discarding them.
func (m *Model) Collapse(id NodeID) error {
	return m.Toggle(id, false, false, nil)
}

// SetCursor moves the active flag to id without expanding or collapsing it.
func (m *Model) SetCursor(id NodeID) error {
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	m.markActive(n)
	m.version++
	return nil
}

// toggleNode reports vetoed=true when the policy refused the toggle. waiter
// receives the outcome of the fetch the toggle triggered or joined; it is
// never called after a veto or an error.
func (m *Model) toggleNode(id NodeID, expand, markActive bool, waiter func(bool), gate bool) (bool, error) {
	n, err := m.lookup(id)
	if err != nil {
		return false, err
	}

	if gate && !m.multi && m.policy != nil {
		if !m.policy.CanToggle(id, n.container, m.view(n)) {
			m.log.Debug("toggle vetoed", zap.String("id", string(id)))
			return true, nil
		}
	}

	if markActive {
		m.markActive(n)
	}
	n.toggled = expand
	m.version++

	if !n.container {
		if waiter != nil {
			waiter(true)
		}
		return false, nil
	}

	switch n.state {
	case Unloaded:
		m.fetch(n, waiter)
	case Loading:
		if p, ok := m.pending[n.token]; ok && p.target == n.id {
			if waiter != nil {
				p.waiters = append(p.waiters, waiter)
			}
		} else {
			m.log.Debug("retrying directory load", zap.String("id", string(id)))
			m.fetch(n, waiter)
		}
	default:
		if waiter != nil {
			waiter(true)
		}
	}
	return false, nil
}

func (m *Model) markActive(n *node) {
	if prev, ok := m.nodes[m.cursor]; ok {
		prev.active = false
	}
	n.active = true
	m.cursor = n.id
}

func (m *Model) fetch(n *node, waiter func(bool)) {
	n.state = Loading
	n.token = m.allocToken()
	p := &pendingLoad{
		token:  n.token,
		target: n.id,
	}
	m.start(p, PathFromID(n.id, false), waiter)
}
