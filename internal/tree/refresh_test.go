package tree

import (
	"errors"
	"testing"
)

func TestRefreshMergesListing(t *testing.T) {
	t.Parallel()

	fsys := fakeFS{
		"":     {dir("keep"), dir("gone"), file("old.txt")},
		"keep": {file("inner.txt")},
		"gone": {file("x")},
	}
	m := newInitialized(t, NewSyncRunner(fsys.loader()))

	keep := IDFromPath("keep")
	if err := m.Expand(keep); err != nil {
		t.Fatalf("expand: %v", err)
	}
	if err := m.SetChecked(RootID, true); err != nil {
		t.Fatalf("check: %v", err)
	}

	fsys[""] = []NodeSpec{dir("keep"), file("new.txt"), file("old.txt")}
	settled := false
	if err := m.Refresh(RootID, func() { settled = true }); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !settled {
		t.Fatalf("expected refresh to settle")
	}

	if got := childIDs(findView(m.Root(), RootID)); len(got) != 3 || got[0] != keep || got[1] != IDFromPath("new.txt") {
		t.Fatalf("unexpected children %v", got)
	}
	node, ok := m.Node(keep)
	if !ok || !node.Toggled || node.State != Loaded {
		t.Fatalf("expected keep to stay expanded and loaded, got %+v", node)
	}
	if _, ok := m.Node(IDFromPath("keep/inner.txt")); !ok {
		t.Fatalf("expected grandchildren to survive the refresh")
	}
	if _, ok := m.Node(IDFromPath("gone")); ok {
		t.Fatalf("expected vanished directory to be dropped")
	}
	if !m.IsChecked(IDFromPath("new.txt")) {
		t.Fatalf("expected new child of a checked directory to be checked")
	}
	if m.IsChecked(IDFromPath("gone")) {
		t.Fatalf("dropped nodes must leave the checked set")
	}
}

func TestRefreshEmptiesDirectory(t *testing.T) {
	t.Parallel()

	fsys := fakeFS{"": {dir("d")}, "d": {file("a")}}
	m := newInitialized(t, NewSyncRunner(fsys.loader()))
	d := IDFromPath("d")
	if err := m.Expand(d); err != nil {
		t.Fatalf("expand: %v", err)
	}

	fsys["d"] = nil
	if err := m.Refresh(d, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	node := findView(m.Root(), d)
	if node == nil || node.State != Empty || len(node.Children) != 1 || node.Children[0].Placeholder != PlaceholderEmpty {
		t.Fatalf("expected empty placeholder after refresh, got %+v", node)
	}
}

func TestRefreshFailureKeepsChildren(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := New(runner)
	m.Initialize("root", nil)
	runner.resolve(t, "", file("a"), file("b"))

	if err := m.Refresh(RootID, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	runner.fail(t, "", errors.New("gone away"))

	if got := childIDs(findView(m.Root(), RootID)); len(got) != 2 {
		t.Fatalf("expected children to survive a failed refresh, got %v", got)
	}
	if m.LoadError() != "gone away" {
		t.Fatalf("unexpected load error %q", m.LoadError())
	}
}

func TestRefreshSkipsUnloadedDirectories(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := New(runner)
	m.Initialize("root", nil)
	runner.resolve(t, "", dir("d"), file("f"))

	settled := false
	if err := m.Refresh(IDFromPath("d"), func() { settled = true }); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !settled || len(runner.requests) != 0 {
		t.Fatalf("expected immediate settle without a fetch, got %d requests", len(runner.requests))
	}
	if err := m.Refresh(IDFromPath("f"), nil); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for a leaf, got %v", err)
	}
}
