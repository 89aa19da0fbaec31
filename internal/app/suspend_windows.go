//go:build windows

package app

// Job control is unavailable on Windows.
func (app *Application) suspendToShell() {
}

func (app *Application) resumeAfterStop() bool {
	return false
}
