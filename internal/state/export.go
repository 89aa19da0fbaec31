package state

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// Export formats.
const (
	ExportLines = "lines"
	ExportJSON  = "json"
)

// SelectedPath is one checked node in an export.
type SelectedPath struct {
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// Selection lists the checked nodes below the root in path order. base is
// joined in front of every path; the root itself is left out.
func Selection(m *tree.Model, base string) []SelectedPath {
	if m == nil {
		return nil
	}
	out := make([]SelectedPath, 0, len(m.Checked()))
	for _, id := range m.Checked() {
		if id == m.RootID() {
			continue
		}
		view, ok := m.Node(id)
		if !ok {
			continue
		}
		out = append(out, SelectedPath{
			Path: joinBase(base, tree.PathFromID(id, false)),
			Dir:  view.Container,
		})
	}
	return out
}

// Exported is what leaving with export prints: the checked nodes in
// multi-select mode, otherwise the cursor node.
func (s *AppState) Exported() []SelectedPath {
	if s.Tree == nil {
		return nil
	}
	if s.Tree.MultiSelect() {
		return Selection(s.Tree, s.SourceRoot)
	}
	id, ok := s.Tree.Cursor()
	if !ok {
		return nil
	}
	view, ok := s.Tree.Node(id)
	if !ok {
		return nil
	}
	return []SelectedPath{{Path: s.Location(tree.PathFromID(id, false)), Dir: view.Container}}
}

func joinBase(base, rel string) string {
	switch {
	case base == "":
		return rel
	case strings.Contains(base, "://"):
		return strings.TrimRight(base, "/") + "/" + rel
	default:
		return filepath.Join(base, filepath.FromSlash(rel))
	}
}

// WriteSelection writes paths in the given format.
func WriteSelection(w io.Writer, paths []SelectedPath, format string) error {
	switch format {
	case ExportJSON:
		if paths == nil {
			paths = []SelectedPath{}
		}
		data, err := json.MarshalIndent(paths, "", "  ")
		if err != nil {
			return fmt.Errorf("encode selection: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case ExportLines, "":
		bw := bufio.NewWriter(w)
		for _, p := range paths {
			line := p.Path
			if p.Dir {
				line += "/"
			}
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
