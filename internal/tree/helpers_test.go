package tree

import (
	"context"
	"errors"
	"testing"
)

var errTest = errors.New("boom")

// manualRunner records requests so tests decide when, and in which order,
// loads settle.
type manualRunner struct {
	requests []LoadRequest
}

func (r *manualRunner) Start(req LoadRequest) {
	r.requests = append(r.requests, req)
}

func (r *manualRunner) paths() []string {
	out := make([]string, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.Path
	}
	return out
}

func (r *manualRunner) take(t *testing.T, path string) LoadRequest {
	t.Helper()
	for i, req := range r.requests {
		if req.Path == path {
			r.requests = append(r.requests[:i], r.requests[i+1:]...)
			return req
		}
	}
	t.Fatalf("no outstanding load for %q (outstanding: %v)", path, r.paths())
	return LoadRequest{}
}

func (r *manualRunner) resolve(t *testing.T, path string, entries ...NodeSpec) {
	t.Helper()
	req := r.take(t, path)
	req.Callback(LoadResult{Token: req.Token, Path: req.Path, Listing: Listing{Entries: entries}})
}

func (r *manualRunner) fail(t *testing.T, path string, err error) {
	t.Helper()
	req := r.take(t, path)
	req.Callback(LoadResult{Token: req.Token, Path: req.Path, Err: err})
}

func dir(name string, children ...NodeSpec) NodeSpec {
	if children == nil {
		children = []NodeSpec{}
	}
	return NodeSpec{Name: name, Children: children}
}

func file(name string) NodeSpec {
	return NodeSpec{Name: name}
}

// fakeFS serves listings from a nested map keyed by path.
type fakeFS map[string][]NodeSpec

func (f fakeFS) load(path string) (Listing, error) {
	entries, ok := f[path]
	if !ok {
		return Listing{}, errors.New("no such directory: " + path)
	}
	return Listing{Entries: entries}, nil
}

func (f fakeFS) loader() Loader {
	return LoaderFunc(func(_ context.Context, path string) (Listing, error) {
		return f.load(path)
	})
}

func newInitialized(t *testing.T, runner Runner, opts ...Option) *Model {
	t.Helper()
	m := New(runner, opts...)
	m.Initialize("Files", nil)
	return m
}

func childIDs(v *NodeView) []NodeID {
	if v == nil {
		return nil
	}
	ids := make([]NodeID, len(v.Children))
	for i, c := range v.Children {
		ids[i] = c.ID
	}
	return ids
}

func findView(v *NodeView, id NodeID) *NodeView {
	if v == nil {
		return nil
	}
	if v.ID == id {
		return v
	}
	for _, c := range v.Children {
		if found := findView(c, id); found != nil {
			return found
		}
	}
	return nil
}
