package state

import (
	"go.uber.org/zap"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// PermissionPolicy refuses to make unreadable nodes the cursor in
// single-select mode and counts checkbox changes.
type PermissionPolicy struct {
	log     *zap.Logger
	denied  tree.NodeID
	changes int
}

// NewPermissionPolicy returns a policy that logs to logger.
func NewPermissionPolicy(logger *zap.Logger) *PermissionPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionPolicy{log: logger}
}

// CanToggle implements tree.SelectionPolicy.
func (p *PermissionPolicy) CanToggle(id tree.NodeID, container bool, node tree.NodeView) bool {
	if tree.AccessOf(node.Permissions).Read {
		return true
	}
	p.denied = id
	p.log.Debug("toggle refused", zap.String("id", string(id)), zap.Bool("container", container))
	return false
}

// OnSelectionChanged implements tree.SelectionPolicy. Unreadable nodes are
// still checked; the result only reports whether they can be used.
func (p *PermissionPolicy) OnSelectionChanged(id tree.NodeID, checked, container bool, node tree.NodeView) bool {
	p.changes++
	return tree.AccessOf(node.Permissions).Read
}

// TakeDenied returns and forgets the last refused node.
func (p *PermissionPolicy) TakeDenied() (tree.NodeID, bool) {
	if p == nil || p.denied == "" {
		return "", false
	}
	id := p.denied
	p.denied = ""
	return id, true
}

// Changes returns how many checkbox notifications were observed.
func (p *PermissionPolicy) Changes() int {
	if p == nil {
		return 0
	}
	return p.changes
}
