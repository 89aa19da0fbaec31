package app

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	fsutil "github.com/kk-code-lab/rtree/internal/fs"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
)

// commandBuilder is replaced in tests.
var commandBuilder = exec.Command

func actionName(action statepkg.Action) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", action), "state.")
}

func (app *Application) handleClipboard() bool {
	if !app.clipboardAvail || len(app.clipboardCmd) == 0 {
		return true
	}
	location := app.state.SelectedLocation()
	if app.state.SourceKind == statepkg.SourceFS {
		location = normalizeClipboardPath(location, runtime.GOOS)
	}

	cmd := commandBuilder(app.clipboardCmd[0], app.clipboardCmd[1:]...)
	cmd.Stdin = strings.NewReader(location)
	if err := cmd.Run(); err != nil {
		app.state.LastError = fmt.Errorf("%s: %w", filepath.Base(app.clipboardCmd[0]), err)
		return true
	}
	app.state.LastYankTime = time.Now()
	return true
}

func normalizeClipboardPath(inputPath string, goos string) string {
	if strings.EqualFold(goos, "windows") {
		cleaned := filepath.Clean(inputPath)
		return strings.ReplaceAll(cleaned, "/", `\`)
	}
	return path.Clean(filepath.ToSlash(inputPath))
}

// handleEditorOpen opens the highlighted local text file in $EDITOR.
func (app *Application) handleEditorOpen() bool {
	if !app.state.EditorAvailable || len(app.editorCmd) == 0 {
		return false
	}
	row, ok := app.state.SelectedRow()
	if !ok || row.Container || app.state.SelectedPath() == "" {
		return false
	}
	if entry, isLocal := row.Data.(fsutil.Entry); isLocal && entry.Kind() == fsutil.KindBinary {
		app.state.LastError = fmt.Errorf("not a text file: %s", entry.Name)
		return true
	}

	if err := app.openFileInEditor(app.state.SelectedLocation()); err != nil {
		app.state.LastError = err
	}
	return true
}

func (app *Application) openFileInEditor(filePath string) error {
	editorArgs := app.editorArgsWithFile(filePath)
	if runtime.GOOS == "windows" {
		return app.openFileInEditorFallback(editorArgs)
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return app.openFileInEditorFallback(editorArgs)
	}
	defer func() {
		_ = tty.Close()
	}()

	if err := app.screen.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend screen: %w", err)
	}

	cmd := commandBuilder(editorArgs[0], editorArgs[1:]...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	runErr := cmd.Run()

	if err := app.screen.Resume(); err != nil {
		return fmt.Errorf("failed to resume screen: %w", err)
	}
	app.screen.Sync()
	if runErr != nil {
		return fmt.Errorf("%s: %w", filepath.Base(editorArgs[0]), runErr)
	}
	return nil
}

func (app *Application) openFileInEditorFallback(args []string) error {
	if err := app.screen.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend screen: %w", err)
	}
	defer func() {
		_ = app.screen.Resume()
		app.screen.Sync()
	}()

	cmd := commandBuilder(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	return nil
}

func (app *Application) editorArgsWithFile(filePath string) []string {
	args := make([]string, len(app.editorCmd)+1)
	copy(args, app.editorCmd)
	args[len(app.editorCmd)] = filePath
	return args
}
