package tree

import (
	"errors"
	"reflect"
	"testing"
)

type recordingPolicy struct {
	allow   map[NodeID]bool
	changes []NodeID
}

func (p *recordingPolicy) CanToggle(id NodeID, _ bool, _ NodeView) bool {
	allowed, ok := p.allow[id]
	return !ok || allowed
}

func (p *recordingPolicy) OnSelectionChanged(id NodeID, _, _ bool, _ NodeView) bool {
	p.changes = append(p.changes, id)
	return true
}

func TestSetCheckedCascadesToKnownChildren(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	policy := &recordingPolicy{}
	m := newInitialized(t, runner, WithMultiSelect(true), WithSelectionPolicy(policy))
	runner.resolve(t, "", dir("docs", file("a.txt"), file("b.txt")))

	if err := m.SetChecked("|root|docs", true); err != nil {
		t.Fatalf("set checked: %v", err)
	}

	want := []NodeID{"|root|docs", "|root|docs|a.txt", "|root|docs|b.txt"}
	if got := m.Checked(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual(policy.changes, want) {
		t.Fatalf("expected pre-order notifications %v, got %v", want, policy.changes)
	}
}

func TestSetCheckedIsIdempotent(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	policy := &recordingPolicy{}
	m := newInitialized(t, runner, WithMultiSelect(true), WithSelectionPolicy(policy))
	runner.resolve(t, "", dir("docs", file("a.txt")))

	_ = m.SetChecked("|root|docs", true)
	once := m.Checked()
	_ = m.SetChecked("|root|docs", true)

	if got := m.Checked(); !reflect.DeepEqual(got, once) {
		t.Fatalf("expected %v after second check, got %v", once, got)
	}
	if len(policy.changes) != 4 {
		t.Fatalf("expected notifications on both calls, got %d", len(policy.changes))
	}

	_ = m.SetChecked("|root|docs|a.txt", false)
	if m.IsChecked("|root|docs|a.txt") || !m.IsChecked("|root|docs") {
		t.Fatalf("unchecking a child must not touch its parent")
	}
}

func TestSetCheckedSkipsPlaceholders(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := newInitialized(t, runner, WithMultiSelect(true))
	runner.resolve(t, "", dir("empty"), dir("slow"))

	_ = m.Toggle("|root|empty", true, false, nil)
	runner.resolve(t, "empty")
	_ = m.Toggle("|root|slow", true, false, nil)

	_ = m.SetChecked(RootID, true)
	for _, id := range m.Checked() {
		if name := id.Name(); name == EmptySuffix || name == LoadingSuffix {
			t.Fatalf("placeholder %q ended up in the checked set", id)
		}
	}
	if len(m.Checked()) != 3 {
		t.Fatalf("expected root and both directories checked, got %v", m.Checked())
	}
	if err := m.SetChecked("|root|slow|*loading", true); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected placeholder ids to be unknown nodes, got %v", err)
	}
}

func TestVetoLeavesModelUntouched(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	policy := &recordingPolicy{allow: map[NodeID]bool{"|root|locked": false}}
	m := newInitialized(t, runner, WithSelectionPolicy(policy))
	runner.resolve(t, "", dir("open"), dir("locked"), file("f"))

	_ = m.Toggle("|root|f", false, true, nil)
	_ = m.SetChecked("|root|f", true)

	beforeRoot := m.Root()
	beforeChecked := m.Checked()
	beforeCursor, _ := m.Cursor()
	beforeVersion := m.Version()

	called := false
	if err := m.Toggle("|root|locked", true, true, func() { called = true }); err != nil {
		t.Fatalf("veto should not be an error: %v", err)
	}

	if called {
		t.Fatalf("onSettled ran after a veto")
	}
	if len(runner.requests) != 0 {
		t.Fatalf("veto must not fetch, got %v", runner.paths())
	}
	if !reflect.DeepEqual(m.Root(), beforeRoot) {
		t.Fatalf("root changed after veto")
	}
	if !reflect.DeepEqual(m.Checked(), beforeChecked) {
		t.Fatalf("checked set changed after veto")
	}
	if cur, _ := m.Cursor(); cur != beforeCursor {
		t.Fatalf("cursor moved from %q to %q", beforeCursor, cur)
	}
	if m.Version() != beforeVersion {
		t.Fatalf("version changed after veto")
	}
}

func TestVetoIgnoredInMultiSelect(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	policy := &recordingPolicy{allow: map[NodeID]bool{"|root|locked": false}}
	m := newInitialized(t, runner, WithMultiSelect(true), WithSelectionPolicy(policy))
	runner.resolve(t, "", dir("locked"))

	_ = m.Toggle("|root|locked", true, false, nil)
	if len(runner.requests) != 1 {
		t.Fatalf("expected the gate to be skipped in multi-select mode")
	}
}

func TestCascadeExpandAndCheckLoadsEverything(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := newInitialized(t, runner, WithMultiSelect(true))
	runner.resolve(t, "", dir("top"))

	done := false
	if err := m.CascadeExpandAndCheck("|root|top", true, func() { done = true }); err != nil {
		t.Fatalf("cascade: %v", err)
	}
	runner.resolve(t, "top", dir("slow"), dir("fast"), file("a.txt"))

	if !m.IsChecked("|root|top") || !m.IsChecked("|root|top|a.txt") {
		t.Fatalf("expected top and its files checked once top settled, got %v", m.Checked())
	}

	// The fast sibling settles first and must not wait for the slow one.
	runner.resolve(t, "top/fast", file("f.txt"))
	if !m.IsChecked("|root|top|fast|f.txt") {
		t.Fatalf("fast subtree should be checked before slow settles")
	}
	if done {
		t.Fatalf("cascade completed while a fetch was outstanding")
	}

	runner.resolve(t, "top/slow", dir("deep"))
	runner.resolve(t, "top/slow/deep", file("z.bin"))

	if !done {
		t.Fatalf("expected onComplete once every directory settled")
	}
	want := []NodeID{
		"|root|top",
		"|root|top|a.txt",
		"|root|top|fast",
		"|root|top|fast|f.txt",
		"|root|top|slow",
		"|root|top|slow|deep",
		"|root|top|slow|deep|z.bin",
	}
	if got := m.Checked(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, id := range []NodeID{"|root|top", "|root|top|slow", "|root|top|slow|deep", "|root|top|fast"} {
		v, _ := m.Node(id)
		if !v.Toggled {
			t.Fatalf("expected %s expanded", id)
		}
	}
	if cur, _ := m.Cursor(); cur != "|root|top" {
		t.Fatalf("expected cursor on cascade root, got %q", cur)
	}
	for _, id := range []NodeID{"|root|top|slow", "|root|top|slow|deep", "|root|top|fast"} {
		if v, _ := m.Node(id); v.Active {
			t.Fatalf("expected %s opened without becoming active", id)
		}
	}
}

func TestCascadeCompletesWhenFetchFails(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := newInitialized(t, runner, WithMultiSelect(true))
	runner.resolve(t, "", dir("top"))

	done := false
	_ = m.CascadeExpandAndCheck("|root|top", true, func() { done = true })
	runner.resolve(t, "top", dir("broken"), file("ok.txt"))
	runner.fail(t, "top/broken", errTest)

	if !done {
		t.Fatalf("expected cascade to complete after a failed fetch")
	}
	if !m.IsChecked("|root|top|broken") || !m.IsChecked("|root|top|ok.txt") {
		t.Fatalf("expected reachable nodes checked, got %v", m.Checked())
	}
	if m.LoadError() == "" {
		t.Fatalf("expected the failure to be recorded")
	}
}

func TestCascadeUncheck(t *testing.T) {
	t.Parallel()

	fs := fakeFS{
		"":    {dir("a")},
		"a":   {dir("b"), file("1")},
		"a/b": {file("2")},
	}
	m := New(NewSyncRunner(fs.loader()), WithMultiSelect(true))
	m.Initialize("Files", nil)

	completed := 0
	_ = m.CascadeExpandAndCheck("|root|a", true, func() { completed++ })
	if len(m.Checked()) != 4 {
		t.Fatalf("expected 4 checked ids, got %v", m.Checked())
	}
	_ = m.CascadeExpandAndCheck("|root|a", false, func() { completed++ })
	if len(m.Checked()) != 0 {
		t.Fatalf("expected everything unchecked, got %v", m.Checked())
	}
	if completed != 2 {
		t.Fatalf("expected two completions, got %d", completed)
	}
}

func TestCascadeAbandonedByInitialize(t *testing.T) {
	t.Parallel()

	runner := &manualRunner{}
	m := newInitialized(t, runner, WithMultiSelect(true))
	runner.resolve(t, "", dir("a"))

	done := false
	_ = m.CascadeExpandAndCheck("|root|a", true, func() { done = true })
	m.Initialize("Files", nil)
	runner.resolve(t, "", dir("a"))

	if !done {
		t.Fatalf("expected abandoned cascade to complete")
	}
	if len(m.Checked()) != 0 {
		t.Fatalf("abandoned cascade must not check nodes in the new tree, got %v", m.Checked())
	}
}

func TestExpandAllRestoresNestedDirectories(t *testing.T) {
	t.Parallel()

	fs := fakeFS{
		"":    {dir("a"), dir("b")},
		"a":   {dir("c")},
		"a/c": {file("x")},
		"b":   {},
	}
	m := New(NewSyncRunner(fs.loader()))
	m.Initialize("Files", nil)

	done := false
	m.ExpandAll([]NodeID{"|root|a|c", "|root|a", "|root|gone"}, func() { done = true })

	if !done {
		t.Fatalf("expected ExpandAll to complete")
	}
	want := []NodeID{"|root|a", "|root|a|c"}
	if got := m.ExpandedIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected expanded %v, got %v", want, got)
	}
	if _, ok := m.Node("|root|a|c|x"); !ok {
		t.Fatalf("expected nested listing to be loaded")
	}
}

func TestExpandDepthStopsAtLimit(t *testing.T) {
	t.Parallel()

	fs := fakeFS{
		"":      {dir("a")},
		"a":     {dir("b")},
		"a/b":   {dir("c")},
		"a/b/c": {file("x")},
	}
	m := New(NewSyncRunner(fs.loader()))
	m.Initialize("Files", nil)

	if err := m.ExpandDepth(RootID, 2, nil); err != nil {
		t.Fatalf("expand depth: %v", err)
	}
	if v, _ := m.Node("|root|a|b"); !v.Toggled || v.State != Loaded {
		t.Fatalf("expected b expanded, got %+v", v)
	}
	if v, _ := m.Node("|root|a|b|c"); v.Toggled || v.State != Unloaded {
		t.Fatalf("expected c untouched, got %+v", v)
	}

	if err := m.ExpandDepth(RootID, -1, nil); err != nil {
		t.Fatalf("expand all: %v", err)
	}
	if _, ok := m.Node("|root|a|b|c|x"); !ok {
		t.Fatalf("expected full expansion to reach x")
	}
}
