package state

import (
	"context"
	"errors"
	"testing"

	"github.com/kk-code-lab/rtree/internal/tree"
)

type fakeSource map[string][]tree.NodeSpec

func (f fakeSource) Load(_ context.Context, path string) (tree.Listing, error) {
	entries, ok := f[path]
	if !ok {
		return tree.Listing{}, errors.New("no such directory: " + path)
	}
	return tree.Listing{Entries: entries}, nil
}

func dir(name string) tree.NodeSpec {
	return tree.NodeSpec{Name: name, Children: []tree.NodeSpec{}}
}

func file(name string) tree.NodeSpec {
	return tree.NodeSpec{Name: name}
}

func sampleSource() fakeSource {
	return fakeSource{
		"":          {dir("docs"), dir("src"), file("README.md")},
		"docs":      {file("guide.md"), file("intro.md")},
		"src":       {dir("empty"), file("main.go")},
		"src/empty": {},
	}
}

func newTestState(t *testing.T, src tree.Loader, multi bool) (*AppState, *StateReducer) {
	t.Helper()
	policy := NewPermissionPolicy(nil)
	m := tree.New(tree.NewSyncRunner(src),
		tree.WithMultiSelect(multi),
		tree.WithSelectionPolicy(policy),
	)
	m.Initialize("project", nil)

	s := NewAppState(m, policy, "project", SourceFS, "/work/project")
	s.ScreenWidth = 80
	s.ScreenHeight = 24
	r := NewStateReducer(nil)
	s.syncSelection()
	return s, r
}

func mustReduce(t *testing.T, r *StateReducer, s *AppState, actions ...Action) {
	t.Helper()
	for _, a := range actions {
		if _, err := r.Reduce(s, a); err != nil {
			t.Fatalf("reduce %T: %v", a, err)
		}
	}
}

func selectedName(s *AppState) string {
	row, ok := s.SelectedRow()
	if !ok {
		return ""
	}
	if row.Placeholder != tree.PlaceholderNone {
		return row.ID.Name()
	}
	return row.Name
}

func rowNames(s *AppState) []string {
	rows := s.VisibleRows()
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Name
	}
	return out
}
