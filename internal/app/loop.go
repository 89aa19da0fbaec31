package app

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	fsutil "github.com/kk-code-lab/rtree/internal/fs"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
	renderui "github.com/kk-code-lab/rtree/internal/ui/render"
)

const (
	doubleClickThreshold = 300 * time.Millisecond
	flashRedrawDelay     = 650 * time.Millisecond
)

// Run processes input, load results and filesystem changes until the user
// quits or ctx is done.
func (app *Application) Run(ctx context.Context) {
	app.syncWatches()
	app.renderer.Render(app.state)
	renderPending := false

	eventChan := make(chan tcell.Event)
	quitEvents := make(chan struct{})
	defer close(quitEvents)
	go func() {
		for {
			ev := app.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quitEvents:
				return
			}
		}
	}()

	var sigContCh chan os.Signal
	if sigs := contSignals(); len(sigs) > 0 {
		sigContCh = make(chan os.Signal, 1)
		signal.Notify(sigContCh, sigs...)
		defer signal.Stop(sigContCh)
	}

	var changes <-chan fsutil.Change
	if app.watcher != nil {
		changes = app.watcher.Events()
	}

	var flashTimer *time.Timer
	var flashCh <-chan time.Time
	defer func() {
		if flashTimer != nil {
			flashTimer.Stop()
		}
	}()

	for !app.shouldQuit {
		if renderPending {
			app.renderer.Render(app.state)
			renderPending = false
		}

		// One more frame once the yank highlight has expired.
		if flashCh == nil && app.flashing() {
			flashTimer = time.NewTimer(flashRedrawDelay)
			flashCh = flashTimer.C
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-eventChan:
			if app.handleEvent(ev) {
				renderPending = true
			}
		case <-app.results.Ready():
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if app.handleAction(statepkg.SourceChangedAction{Dir: change.Dir}) {
				renderPending = true
			}
		case <-flashCh:
			flashCh = nil
			renderPending = true
		case <-sigContCh:
			if app.resumeAfterStop() {
				renderPending = true
			}
		}

		if app.processActions() {
			renderPending = true
		}
	}
}

func (app *Application) flashing() bool {
	return !app.state.LastYankTime.IsZero() && time.Since(app.state.LastYankTime) < flashRedrawDelay
}

func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey, *tcell.EventResize:
		if !app.input.ProcessEvent(ev) {
			app.shouldQuit = true
		}
	case *tcell.EventMouse:
		app.handleMouse(ev)
	case *tcell.EventInterrupt:
		return true
	default:
		return false
	}
	return true
}

// handleMouse maps primary clicks to selection, double clicks to activation
// and the wheel to movement.
func (app *Application) handleMouse(ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	switch {
	case buttons&tcell.WheelUp != 0:
		app.enqueue(statepkg.NavigateUpAction{})
		return
	case buttons&tcell.WheelDown != 0:
		app.enqueue(statepkg.NavigateDownAction{})
		return
	}

	pressed := buttons&tcell.Button1 != 0
	wasHeld := app.mouseHeld
	app.mouseHeld = pressed
	if !pressed || wasHeld {
		return
	}

	x, y := ev.Position()
	index, onCheckbox, ok := renderui.HitTest(app.state, x, y)
	if !ok {
		return
	}

	doubleClick := !onCheckbox && app.lastClickRow == index && time.Since(app.lastClickTime) <= doubleClickThreshold
	app.lastClickRow = index
	app.lastClickTime = time.Now()

	app.enqueue(statepkg.MouseSelectAction{Index: index, OnCheckbox: onCheckbox})
	if doubleClick {
		app.lastClickRow = -1
		app.enqueue(statepkg.ActivateAction{})
	}
}

// processActions applies queued input actions first, then load results,
// until both are empty or the app is quitting.
func (app *Application) processActions() bool {
	changed := false
	for !app.shouldQuit {
		if len(app.pending) > 0 {
			action := app.pending[0]
			app.pending = app.pending[1:]
			if app.handleAction(action) {
				changed = true
			}
			continue
		}
		results := app.results.drain()
		if len(results) == 0 {
			break
		}
		for _, res := range results {
			if app.handleAction(statepkg.TreeLoadResultAction{Result: res}) {
				changed = true
			}
		}
	}
	if len(app.pending) == 0 {
		app.pending = nil
	}
	return changed
}

func (app *Application) handleAction(action statepkg.Action) bool {
	if action == nil {
		return false
	}

	switch action.(type) {
	case statepkg.QuitAction:
		app.shouldQuit = true
		return false
	case statepkg.QuitAndExportAction:
		app.export = true
		app.shouldQuit = true
		return false
	case statepkg.SuspendAction:
		app.suspendToShell()
		app.resumeAfterStop()
		return true
	case statepkg.YankPathAction:
		return app.handleClipboard()
	case statepkg.OpenEditorAction:
		return app.handleEditorOpen()
	}

	if _, err := app.reducer.Reduce(app.state, action); err != nil {
		app.log.Debug("action failed", zap.String("action", actionName(action)), zap.Error(err))
		app.state.LastError = err
	}
	app.syncWatches()
	return true
}

// syncWatches keeps the watcher on exactly the open, loaded directories.
func (app *Application) syncWatches() {
	if app.watcher == nil {
		return
	}
	wanted := make(map[string]struct{})
	for _, dir := range app.state.WatchedDirs() {
		wanted[dir] = struct{}{}
	}
	for _, dir := range app.watcher.Watched() {
		if _, ok := wanted[dir]; !ok {
			app.watcher.Unwatch(dir)
		}
	}
	watched := make(map[string]struct{})
	for _, dir := range app.watcher.Watched() {
		watched[dir] = struct{}{}
	}
	for dir := range wanted {
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := app.watcher.Watch(dir); err != nil {
			app.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
}
