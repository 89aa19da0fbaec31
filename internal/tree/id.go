package tree

import (
	"errors"
	"strings"
)

// NodeID identifies a node by its full path from the root. Segments are
// joined with Separator and ids under the synthesized root start with RootID.
type NodeID string

const (
	// Separator joins path segments inside a NodeID.
	Separator = "|"
	// RootID is the id of the synthesized root container.
	RootID NodeID = "|root"
	// EmptySuffix names the placeholder child of a directory that loaded empty.
	// Placeholders are never stored, so a real entry may carry the same name.
	EmptySuffix = "*empty"
	// LoadingSuffix names the placeholder child of a directory being fetched.
	LoadingSuffix = "*loading"
)

var (
	// ErrInvalidID is returned for ids that cannot name a node.
	ErrInvalidID = errors.New("tree: invalid node id")
	// ErrNodeNotFound is returned when an id is not present in the tree.
	ErrNodeNotFound = errors.New("tree: node not found")
	// ErrNotInitialized is returned when the tree has no root yet.
	ErrNotInitialized = errors.New("tree: not initialized")
)

// ChildID returns the id of the child called name under parent.
func ChildID(parent NodeID, name string) NodeID {
	return parent + Separator + NodeID(name)
}

// IDFromPath encodes a server-relative path ("a/b/c") as a node id under
// the synthesized root. The empty path is the root itself.
func IDFromPath(path string) NodeID {
	if path == "" {
		return RootID
	}
	return RootID + Separator + NodeID(strings.ReplaceAll(path, "/", Separator))
}

// PathFromID converts a node id into the server-relative path handed to the
// loader. The root sentinel is stripped when present. With excludeLeaf the
// last segment is dropped, which yields the parent directory's path.
func PathFromID(id NodeID, excludeLeaf bool) string {
	s := stripRoot(string(id))
	if excludeLeaf {
		if i := strings.LastIndex(s, Separator); i >= 0 {
			s = s[:i]
		} else {
			s = ""
		}
	}
	return strings.ReplaceAll(s, Separator, "/")
}

// Name returns the last segment of id.
func (id NodeID) Name() string {
	s := stripRoot(string(id))
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[i+1:]
	}
	return s
}

func stripRoot(s string) string {
	root := string(RootID)
	if s == root {
		return ""
	}
	if strings.HasPrefix(s, root+Separator) {
		return s[len(root)+len(Separator):]
	}
	return s
}

func validID(id NodeID) bool {
	return id != ""
}
