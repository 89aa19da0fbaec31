// Package app runs the terminal tree browser: it owns the screen, the event
// loop and the tree model, and queues load results back to the loop.
package app

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	fsutil "github.com/kk-code-lab/rtree/internal/fs"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/tree"
	inputui "github.com/kk-code-lab/rtree/internal/ui/input"
	renderui "github.com/kk-code-lab/rtree/internal/ui/render"
)

// Watcher follows loaded directories of a local source. *fs.Watcher
// implements it.
type Watcher interface {
	Events() <-chan fsutil.Change
	Watch(rel string) error
	Unwatch(rel string)
	Watched() []string
}

// Options configures a new Application.
type Options struct {
	// Screen defaults to the terminal.
	Screen tcell.Screen
	Loader tree.Loader
	Label  string
	Kind   statepkg.SourceKind
	// Root is the location checked paths are exported relative to.
	Root        string
	Multi       bool
	MaxInFlight int64
	LoadTimeout time.Duration
	// Watcher is optional; only local sources provide one.
	Watcher Watcher
	// OnReload runs before a full reload, e.g. to drop cached listings.
	OnReload func()
	Logger   *zap.Logger
}

// Application represents the running app.
type Application struct {
	screen   tcell.Screen
	state    *statepkg.AppState
	reducer  *statepkg.StateReducer
	renderer *renderui.Renderer
	input    *inputui.InputHandler
	runner   *tree.AsyncRunner
	watcher  Watcher
	results  *loadQueue
	log      *zap.Logger

	// pending holds actions produced on the loop goroutine itself.
	pending []statepkg.Action

	shouldQuit bool
	export     bool

	clipboardCmd   []string
	clipboardAvail bool
	editorCmd      []string

	mouseHeld     bool
	lastClickRow  int
	lastClickTime time.Time
}

// NewApplication sets up the screen and starts loading the root listing.
func NewApplication(opts Options) (*Application, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("no source to browse")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	screen := opts.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return nil, err
		}
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	clipboardCmd, clipboardAvail := detectClipboard()
	editorCmd, editorAvail := detectEditorCommand()

	app := &Application{
		screen:         screen,
		watcher:        opts.Watcher,
		results:        newLoadQueue(),
		log:            log,
		clipboardCmd:   clipboardCmd,
		clipboardAvail: clipboardAvail,
		editorCmd:      editorCmd,
		lastClickRow:   -1,
	}

	app.runner = tree.NewAsyncRunner(opts.Loader, tree.AsyncOptions{
		Timeout:     opts.LoadTimeout,
		MaxInFlight: opts.MaxInFlight,
	})
	policy := statepkg.NewPermissionPolicy(log.Named("policy"))
	model := tree.New(app.runner,
		tree.WithMultiSelect(opts.Multi),
		tree.WithSelectionPolicy(policy),
		tree.WithDispatch(app.results.push),
		tree.WithLogger(log.Named("tree")),
	)

	state := statepkg.NewAppState(model, policy, opts.Label, opts.Kind, opts.Root)
	state.ClipboardAvailable = clipboardAvail
	state.EditorAvailable = editorAvail && opts.Kind == statepkg.SourceFS
	state.ScreenWidth, state.ScreenHeight = screen.Size()
	app.state = state

	app.reducer = statepkg.NewStateReducer(log.Named("reducer"))
	app.reducer.SetReloadHook(opts.OnReload)
	app.renderer = renderui.NewRenderer(screen)
	app.input = inputui.NewInputHandler(app.enqueue)
	app.input.SetState(state)

	model.Initialize(opts.Label, nil)
	return app, nil
}

// enqueue schedules an action produced on the loop goroutine.
func (app *Application) enqueue(action statepkg.Action) {
	app.pending = append(app.pending, action)
}

// Close cleans up resources.
func (app *Application) Close() error {
	app.runner.Close()
	app.results.close()
	app.screen.Fini()
	return nil
}

// ExportRequested reports whether the user quit with the export key.
func (app *Application) ExportRequested() bool {
	return app.export
}

// Exported returns the paths to print after an export quit.
func (app *Application) Exported() []statepkg.SelectedPath {
	return app.state.Exported()
}
