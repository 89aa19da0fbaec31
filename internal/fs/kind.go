package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind is a coarse classification of a local entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindDirectory
	KindText
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return "?"
	}
}

const (
	sniffSize           = 4096
	nonPrintablePercent = 30
)

var binaryExtensions = map[string]struct{}{
	".7z": {}, ".apk": {}, ".avi": {}, ".bin": {}, ".bmp": {}, ".bz2": {},
	".class": {}, ".dat": {}, ".dll": {}, ".doc": {}, ".docx": {}, ".dylib": {},
	".exe": {}, ".flac": {}, ".gif": {}, ".gz": {}, ".ico": {}, ".iso": {},
	".jar": {}, ".jpeg": {}, ".jpg": {}, ".mkv": {}, ".mov": {}, ".mp3": {},
	".mp4": {}, ".ogg": {}, ".otf": {}, ".pdf": {}, ".png": {}, ".ppt": {},
	".pptx": {}, ".psd": {}, ".so": {}, ".tar": {}, ".tgz": {}, ".ttf": {},
	".wav": {}, ".wasm": {}, ".woff": {}, ".woff2": {}, ".xls": {}, ".xlsx": {},
	".xz": {}, ".zip": {},
}

// Classify reports what lives at fullPath. Well-known binary extensions are
// decided by name; anything else reads at most a few kilobytes.
func Classify(fullPath string, isDir bool) Kind {
	if isDir {
		return KindDirectory
	}
	if hasBinaryExtension(fullPath) {
		return KindBinary
	}
	sample, err := readHead(fullPath, sniffSize)
	if err != nil {
		return KindUnknown
	}
	if looksLikeText(sample) {
		return KindText
	}
	return KindBinary
}

func hasBinaryExtension(path string) bool {
	if path == "" {
		return false
	}
	_, ok := binaryExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func readHead(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(io.LimitReader(f, limit))
}

func looksLikeText(sample []byte) bool {
	if len(sample) == 0 || hasUnicodeBOM(sample) {
		return true
	}
	if bytes.IndexByte(sample, 0x00) != -1 {
		return false
	}
	if utf8.Valid(sample) {
		return true
	}

	bad := 0
	for _, b := range sample {
		if !isTextByte(b) {
			bad++
		}
	}
	return bad < len(sample) && bad*100/len(sample) < nonPrintablePercent
}

func hasUnicodeBOM(sample []byte) bool {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return true
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}), bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return true
	}
	return false
}

func isTextByte(b byte) bool {
	switch {
	case b == '\t' || b == '\n' || b == '\r' || b == 0x1B:
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	case b >= 0x80:
		return true
	}
	return false
}
