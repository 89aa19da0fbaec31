package app

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"unicode"

	"github.com/mitchellh/go-homedir"
)

type lookPathFunc func(string) (string, error)

// clipboardCommands lists copy commands in order of preference. The first
// element is looked up on PATH; the rest are arguments.
func clipboardCommands(goos string) [][]string {
	unix := [][]string{{"pbcopy"}, {"wl-copy"}, {"xclip", "-selection", "clipboard"}, {"xsel", "--clipboard", "--input"}}
	if strings.EqualFold(goos, "windows") {
		return append([][]string{
			{"clip.exe"},
			{"clip"},
			{"powershell", "-NoLogo", "-NoProfile", "-Command", "Set-Clipboard"},
			{"pwsh", "-NoLogo", "-NoProfile", "-Command", "Set-Clipboard"},
		}, unix...)
	}
	return unix
}

func detectClipboard() ([]string, bool) {
	return detectClipboardInternal(runtime.GOOS, exec.LookPath)
}

func detectClipboardInternal(goos string, lookPath lookPathFunc) ([]string, bool) {
	return firstAvailable(clipboardCommands(goos), lookPath)
}

func detectEditorCommand() ([]string, bool) {
	return detectEditorCommandInternal(runtime.GOOS, os.Getenv, exec.LookPath)
}

// detectEditorCommandInternal prefers $VISUAL, then $EDITOR, then a
// platform default.
func detectEditorCommandInternal(goos string, getenv func(string) string, lookPath lookPathFunc) ([]string, bool) {
	var candidates [][]string
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if args := parseEditorCommand(getenv(env)); len(args) > 0 {
			candidates = append(candidates, args)
		}
	}
	if strings.EqualFold(goos, "windows") {
		candidates = append(candidates, []string{"code", "--wait"}, []string{"notepad++.exe"}, []string{"notepad.exe"})
	} else {
		candidates = append(candidates, []string{"vim"}, []string{"nano"}, []string{"vi"})
	}
	return firstAvailable(candidates, lookPath)
}

func firstAvailable(candidates [][]string, lookPath lookPathFunc) ([]string, bool) {
	for _, candidate := range candidates {
		if len(candidate) == 0 || candidate[0] == "" {
			continue
		}
		resolved, err := lookPath(expandUserPath(candidate[0]))
		if err != nil || resolved == "" {
			continue
		}
		return append([]string{resolved}, candidate[1:]...), true
	}
	return nil, false
}

// parseEditorCommand splits a command line on unquoted whitespace. Single
// and double quotes group words; the quotes themselves are dropped.
func parseEditorCommand(cmd string) []string {
	var args []string
	var current strings.Builder
	var quote rune
	inWord := false

	for _, r := range strings.TrimSpace(cmd) {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			inWord = true
		case quote == 0 && unicode.IsSpace(r):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		args = append(args, current.String())
	}
	return args
}

func expandUserPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}
