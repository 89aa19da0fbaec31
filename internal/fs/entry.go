package fs

import (
	"os"
	"time"
)

// Entry is the metadata the local source attaches to every node it lists.
// It travels in tree.NodeSpec.Data.
type Entry struct {
	Name      string
	Path      string // slash separated, relative to the source root
	FullPath  string
	IsDir     bool
	IsSymlink bool
	Size      int64
	Modified  time.Time
	Mode      os.FileMode
}

// IsHidden reports whether the entry should be treated as hidden.
func (e Entry) IsHidden() bool {
	return IsHidden(e.FullPath, e.Name)
}

// Kind classifies the entry, sniffing file content when needed.
func (e Entry) Kind() Kind {
	return Classify(e.FullPath, e.IsDir)
}
