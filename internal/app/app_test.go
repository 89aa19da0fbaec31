package app

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rtree/internal/fs"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/tree"
)

func TestParseEditorCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "vim", want: []string{"vim"}},
		{in: "  code --wait  ", want: []string{"code", "--wait"}},
		{in: `"/Applications/Sublime Text.app/bin/subl" -w`, want: []string{"/Applications/Sublime Text.app/bin/subl", "-w"}},
		{in: `emacs -nw --eval '(setq x "y")'`, want: []string{"emacs", "-nw", "--eval", `(setq x "y")`}},
		{in: `vim ""`, want: []string{"vim", ""}},
	}
	for _, tt := range tests {
		if got := parseEditorCommand(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseEditorCommand(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func lookPathFor(found map[string]string) lookPathFunc {
	return func(cmd string) (string, error) {
		if path, ok := found[cmd]; ok {
			return path, nil
		}
		return "", errors.New("not found")
	}
}

func TestDetectClipboard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		goos  string
		found map[string]string
		want  []string
	}{
		{
			name:  "pbcopy",
			goos:  "darwin",
			found: map[string]string{"pbcopy": "/usr/bin/pbcopy"},
			want:  []string{"/usr/bin/pbcopy"},
		},
		{
			name:  "xclip gets clipboard selection",
			goos:  "linux",
			found: map[string]string{"xclip": "/usr/bin/xclip", "xsel": "/usr/bin/xsel"},
			want:  []string{"/usr/bin/xclip", "-selection", "clipboard"},
		},
		{
			name:  "clip on windows",
			goos:  "windows",
			found: map[string]string{"clip.exe": `C:\Windows\System32\clip.exe`},
			want:  []string{`C:\Windows\System32\clip.exe`},
		},
		{
			name:  "powershell fallback",
			goos:  "windows",
			found: map[string]string{"powershell": `C:\ps.exe`},
			want:  []string{`C:\ps.exe`, "-NoLogo", "-NoProfile", "-Command", "Set-Clipboard"},
		},
		{
			name:  "nothing",
			goos:  "linux",
			found: map[string]string{},
		},
	}

	for _, tt := range tests {
		got, ok := detectClipboardInternal(tt.goos, lookPathFor(tt.found))
		if ok != (tt.want != nil) || !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: expected %v, got %v (ok=%v)", tt.name, tt.want, got, ok)
		}
	}
}

func TestDetectEditorCommand(t *testing.T) {
	t.Parallel()

	env := map[string]string{"EDITOR": "nvim -p"}
	getenv := func(k string) string { return env[k] }

	got, ok := detectEditorCommandInternal("linux", getenv, lookPathFor(map[string]string{
		"nvim": "/usr/bin/nvim",
		"vim":  "/usr/bin/vim",
	}))
	if !ok || !reflect.DeepEqual(got, []string{"/usr/bin/nvim", "-p"}) {
		t.Fatalf("expected $EDITOR to win, got %v", got)
	}

	got, ok = detectEditorCommandInternal("linux", getenv, lookPathFor(map[string]string{"nano": "/bin/nano"}))
	if !ok || !reflect.DeepEqual(got, []string{"/bin/nano"}) {
		t.Fatalf("expected fallback to nano, got %v", got)
	}

	got, ok = detectEditorCommandInternal("windows", func(string) string { return "" }, lookPathFor(map[string]string{"notepad.exe": `C:\notepad.exe`}))
	if !ok || !reflect.DeepEqual(got, []string{`C:\notepad.exe`}) {
		t.Fatalf("expected notepad, got %v", got)
	}
}

func TestNormalizeClipboardPath(t *testing.T) {
	t.Parallel()

	if got := normalizeClipboardPath(`C:\Users\me/project/file.txt`, "windows"); got != `C:\Users\me\project\file.txt` {
		t.Fatalf("unexpected windows path %q", got)
	}
	if got := normalizeClipboardPath("/tmp/project/dir/../file.txt", "linux"); got != "/tmp/project/file.txt" {
		t.Fatalf("unexpected unix path %q", got)
	}
}

// ===== application =====

type mapLoader struct {
	mu       sync.Mutex
	listings map[string][]tree.NodeSpec
}

func (l *mapLoader) Load(_ context.Context, path string) (tree.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.listings[path]
	if !ok {
		return tree.Listing{}, errors.New("missing " + path)
	}
	return tree.Listing{Entries: append([]tree.NodeSpec(nil), entries...)}, nil
}

func (l *mapLoader) set(path string, entries ...tree.NodeSpec) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listings[path] = entries
}

type fakeWatcher struct {
	events  chan fsutil.Change
	watched map[string]struct{}
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsutil.Change, 4), watched: make(map[string]struct{})}
}

func (w *fakeWatcher) Events() <-chan fsutil.Change { return w.events }
func (w *fakeWatcher) Watch(rel string) error      { w.watched[rel] = struct{}{}; return nil }
func (w *fakeWatcher) Unwatch(rel string)          { delete(w.watched, rel) }
func (w *fakeWatcher) Watched() []string {
	out := make([]string, 0, len(w.watched))
	for rel := range w.watched {
		out = append(out, rel)
	}
	return out
}

func newTestApp(t *testing.T, loader tree.Loader, multi bool, watcher Watcher) *Application {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	app, err := NewApplication(Options{
		Screen:  screen,
		Loader:  loader,
		Label:   "project",
		Kind:    statepkg.SourceFS,
		Root:    "/work/project",
		Multi:   multi,
		Watcher: watcher,
	})
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	t.Cleanup(func() {
		_ = app.Close()
	})
	screen.SetSize(60, 20)
	app.state.ScreenWidth, app.state.ScreenHeight = 60, 20
	return app
}

// drain applies queued actions and load results until cond holds.
func drain(t *testing.T, app *Application, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		app.processActions()
		if cond() {
			return
		}
		select {
		case <-app.results.Ready():
		case <-deadline:
			t.Fatalf("timed out waiting for the tree to settle")
		}
	}
}

func rowNames(app *Application) string {
	var names []string
	for _, row := range app.state.VisibleRows() {
		names = append(names, row.Name)
	}
	return strings.Join(names, ",")
}

func sampleLoader() *mapLoader {
	return &mapLoader{listings: map[string][]tree.NodeSpec{
		"":     {{Name: "docs", Children: []tree.NodeSpec{}}, {Name: "notes.txt"}},
		"docs": {{Name: "a.md"}, {Name: "b.md"}},
	}}
}

func TestApplicationLoadsThroughEventLoop(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, sampleLoader(), true, nil)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 0 })

	app.handleAction(statepkg.NavigateDownAction{})
	app.handleAction(statepkg.ToggleCheckAction{})
	drain(t, app, func() bool { return !app.state.Loading() })

	if got := rowNames(app); got != "project,docs,a.md,b.md,notes.txt" {
		t.Fatalf("unexpected rows %s", got)
	}
	got := app.Exported()
	if len(got) != 3 || !got[0].Dir || !strings.HasSuffix(got[2].Path, "b.md") {
		t.Fatalf("unexpected export %+v", got)
	}
}

func TestQuitActions(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, sampleLoader(), true, nil)
	app.handleAction(statepkg.QuitAction{})
	if !app.shouldQuit || app.ExportRequested() {
		t.Fatalf("expected plain quit")
	}

	app = newTestApp(t, sampleLoader(), true, nil)
	app.handleAction(statepkg.QuitAndExportAction{})
	if !app.shouldQuit || !app.ExportRequested() {
		t.Fatalf("expected quit with export")
	}
}

func TestWatchesFollowOpenDirectories(t *testing.T) {
	t.Parallel()

	loader := sampleLoader()
	watcher := newFakeWatcher()
	app := newTestApp(t, loader, true, watcher)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 0 })
	app.syncWatches()
	if got := watcher.Watched(); len(got) != 1 || got[0] != "" {
		t.Fatalf("expected only the root to be watched, got %v", got)
	}

	app.handleAction(statepkg.NavigateDownAction{})
	app.handleAction(statepkg.ExpandAction{})
	drain(t, app, func() bool { return !app.state.Loading() })
	if _, ok := watcher.watched["docs"]; !ok {
		t.Fatalf("expected docs to be watched, got %v", watcher.Watched())
	}

	loader.set("docs", tree.NodeSpec{Name: "a.md"}, tree.NodeSpec{Name: "c.md"})
	app.handleAction(statepkg.SourceChangedAction{Dir: "docs"})
	drain(t, app, func() bool { return !app.state.Loading() })
	if got := rowNames(app); got != "project,docs,a.md,c.md,notes.txt" {
		t.Fatalf("unexpected rows after change %s", got)
	}

	app.handleAction(statepkg.CollapseAction{})
	if _, ok := watcher.watched["docs"]; ok {
		t.Fatalf("expected docs to be unwatched after collapse")
	}
}

func TestMouseClicks(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, sampleLoader(), true, nil)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 0 })

	next := func() statepkg.Action {
		if len(app.pending) == 0 {
			return nil
		}
		action := app.pending[0]
		app.pending = app.pending[1:]
		return action
	}

	// Checkbox of "docs" on screen row 2.
	app.handleMouse(tcell.NewEventMouse(4, 2, tcell.Button1, tcell.ModNone))
	if got, ok := next().(statepkg.MouseSelectAction); !ok || got.Index != 1 || !got.OnCheckbox {
		t.Fatalf("expected checkbox click on row 1, got %#v", got)
	}
	app.handleMouse(tcell.NewEventMouse(4, 2, tcell.ButtonNone, tcell.ModNone))

	// Name of "notes.txt", twice: select then activate.
	app.handleMouse(tcell.NewEventMouse(12, 3, tcell.Button1, tcell.ModNone))
	app.handleMouse(tcell.NewEventMouse(12, 3, tcell.ButtonNone, tcell.ModNone))
	app.handleMouse(tcell.NewEventMouse(12, 3, tcell.Button1, tcell.ModNone))
	if got, ok := next().(statepkg.MouseSelectAction); !ok || got.Index != 2 || got.OnCheckbox {
		t.Fatalf("expected row select, got %#v", got)
	}
	if _, ok := next().(statepkg.MouseSelectAction); !ok {
		t.Fatalf("expected second select")
	}
	if _, ok := next().(statepkg.ActivateAction); !ok {
		t.Fatalf("expected double click to activate")
	}

	// Dragging does not repeat clicks.
	app.handleMouse(tcell.NewEventMouse(12, 3, tcell.Button1, tcell.ModNone))
	if got := next(); got != nil {
		t.Fatalf("expected held button to be ignored, got %T", got)
	}

	app.handleMouse(tcell.NewEventMouse(0, 5, tcell.WheelDown, tcell.ModNone))
	if _, ok := next().(statepkg.NavigateDownAction); !ok {
		t.Fatalf("expected wheel to move the selection")
	}
}

func TestHandleClipboard(t *testing.T) {
	app := newTestApp(t, sampleLoader(), true, nil)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 0 })
	app.handleAction(statepkg.GoEndAction{})
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip"}

	var recorded []string
	withFakeCommandBuilder(t, 7, &recorded, func() {
		app.handleClipboard()
	})
	if app.state.LastError == nil || !strings.Contains(app.state.LastError.Error(), "fake-clip") {
		t.Fatalf("expected clipboard failure to be reported, got %v", app.state.LastError)
	}
	if !app.state.LastYankTime.IsZero() {
		t.Fatalf("expected LastYankTime to remain zero on failure")
	}

	app.state.LastError = nil
	withFakeCommandBuilder(t, 0, &recorded, func() {
		app.handleClipboard()
	})
	if app.state.LastError != nil || app.state.LastYankTime.IsZero() {
		t.Fatalf("expected successful yank, got %v", app.state.LastError)
	}
	if !reflect.DeepEqual(recorded, []string{"fake-clip"}) {
		t.Fatalf("unexpected command %v", recorded)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	code, err := strconv.Atoi(os.Getenv("HELPER_PROCESS_EXIT"))
	if err != nil {
		code = 1
	}
	os.Exit(code)
}

func withFakeCommandBuilder(t *testing.T, exitCode int, recorded *[]string, fn func()) {
	t.Helper()
	orig := commandBuilder
	commandBuilder = func(name string, args ...string) *exec.Cmd {
		*recorded = append([]string{name}, args...)
		cmdArgs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.Command(os.Args[0], cmdArgs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_PROCESS_EXIT="+strconv.Itoa(exitCode),
		)
		return cmd
	}
	defer func() {
		commandBuilder = orig
	}()
	fn()
}

func TestEditorRefusesBinaryFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(dir+"/blob.bin", []byte{0, 1, 2}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := fsutil.NewSource(dir, fsutil.Options{})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	app := newTestApp(t, src, false, nil)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 1 })
	app.state.EditorAvailable = true
	app.editorCmd = []string{"fake-editor"}

	app.handleAction(statepkg.NavigateDownAction{})
	app.handleAction(statepkg.OpenEditorAction{})
	if app.state.LastError == nil || !strings.Contains(app.state.LastError.Error(), "not a text file") {
		t.Fatalf("expected binary file to be refused, got %v", app.state.LastError)
	}
}

func TestLoadBurstDoesNotBlockInput(t *testing.T) {
	t.Parallel()

	const dirs = 200
	loader := &mapLoader{listings: map[string][]tree.NodeSpec{}}
	var root []tree.NodeSpec
	for i := 0; i < dirs; i++ {
		name := "d" + strconv.Itoa(1000 + i)[1:]
		root = append(root, tree.NodeSpec{Name: name, Children: []tree.NodeSpec{}})
		loader.listings[name] = []tree.NodeSpec{{Name: "f.txt"}}
	}
	loader.listings[""] = root

	app := newTestApp(t, loader, true, nil)
	drain(t, app, func() bool { return !app.state.Loading() && len(app.state.VisibleRows()) > 0 })

	app.handleAction(statepkg.CheckAllAction{})
	deadline := time.Now().Add(2 * time.Second)
	for app.results.len() < dirs {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d queued results, got %d", dirs, app.results.len())
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		app.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'j', 0))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("key press blocked behind queued load results")
	}

	drain(t, app, func() bool { return !app.state.Loading() })
	if got := len(app.Exported()); got != 2*dirs {
		t.Fatalf("expected %d checked paths, got %d", 2*dirs, got)
	}
	row, ok := app.state.SelectedRow()
	if !ok || row.Name != "d000" {
		t.Fatalf("expected the key press to move to d000, got %q", row.Name)
	}
}
