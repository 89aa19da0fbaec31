package tree

// LoadState tracks where a container is in its lazy-load lifecycle.
type LoadState int

const (
	// Unloaded containers have never been fetched.
	Unloaded LoadState = iota
	// Loading containers have a fetch outstanding, or their last fetch failed.
	Loading
	// Empty containers were fetched and had no entries.
	Empty
	// Loaded containers hold real children. Leaves are always Loaded.
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Empty:
		return "empty"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Placeholder marks synthetic children that stand in for directory state.
type Placeholder int

const (
	PlaceholderNone Placeholder = iota
	PlaceholderEmpty
	PlaceholderLoading
)

// NodeSpec is one entry returned by a Loader. A nil Children slice means the
// entry is a file; a non-nil slice (even empty) means a directory whose
// children are unloaded unless the slice has entries.
type NodeSpec struct {
	Name        string
	ID          NodeID
	Children    []NodeSpec
	Data        any
	Permissions any
}

// IsContainer reports whether the spec describes a directory.
func (s NodeSpec) IsContainer() bool {
	return s.Children != nil
}

// Listing is the result of a single Loader call. Sources either return the
// entries of the requested directory or, for the root listing only, a single
// already-rooted object.
type Listing struct {
	Root    *NodeSpec
	Entries []NodeSpec
}

// entries returns the directory entries of a child listing. A rooted result
// is unwrapped into its children.
func (l Listing) entries() []NodeSpec {
	if len(l.Entries) == 0 && l.Root != nil {
		return l.Root.Children
	}
	return l.Entries
}

type node struct {
	id          NodeID
	name        string
	parent      NodeID
	children    []NodeID
	container   bool
	state       LoadState
	toggled     bool
	active      bool
	token       uint64
	data        any
	permissions any
}

// NodeView is an immutable copy of a node handed to renderers and policies.
type NodeView struct {
	ID          NodeID
	Name        string
	Container   bool
	State       LoadState
	Toggled     bool
	Active      bool
	Checked     bool
	Placeholder Placeholder
	Data        any
	Permissions any
	// Children is nil for leaves. Containers get a non-nil slice which holds
	// real entries, a single empty placeholder, or a single loading placeholder.
	Children []*NodeView
}

// Row is one visible line of the flattened tree.
type Row struct {
	NodeView
	Depth  int
	Parent NodeID
	Last   bool
	// Guides[i] is true when the ancestor at depth i+1 has siblings below it,
	// which renderers draw as a vertical rule.
	Guides []bool
}

func placeholderView(parent NodeID, kind Placeholder) *NodeView {
	suffix := EmptySuffix
	if kind == PlaceholderLoading {
		suffix = LoadingSuffix
	}
	return &NodeView{
		ID:          ChildID(parent, suffix),
		Name:        suffix,
		State:       Loaded,
		Placeholder: kind,
	}
}

// Access is the permission payload sources attach to NodeSpec.Permissions.
// Models treat permissions as opaque; selection policies may inspect them.
type Access struct {
	Read  bool
	Write bool
}

// AccessOf extracts an Access payload, defaulting to full access.
func AccessOf(permissions any) Access {
	switch p := permissions.(type) {
	case Access:
		return p
	case *Access:
		if p != nil {
			return *p
		}
	}
	return Access{Read: true, Write: true}
}
