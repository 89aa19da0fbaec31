//go:build !windows

package fs

// IsHidden reports dot files as hidden.
func IsHidden(_ string, name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// isProtected never hides entries outside Windows.
func isProtected(_, _ string) bool {
	return false
}
