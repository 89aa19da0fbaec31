package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// Options controls what a Source lists.
type Options struct {
	ShowHidden     bool
	UseIgnoreFiles bool
	Logger         *zap.Logger
}

// Source lists directories below a local root. It implements tree.Loader and
// is safe to call from several goroutines.
type Source struct {
	root   string
	opts   Options
	log    *zap.Logger
	ignore *ignoreProvider

	// Names are NFC-normalized for display and ids, so on-disk paths of
	// listed directories are remembered to find them again.
	dirs sync.Map // slash rel path -> full path
}

// NewSource opens root, which may start with "~".
func NewSource(root string, opts Options) (*Source, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	s := &Source{
		root: abs,
		opts: opts,
		log:  opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if opts.UseIgnoreFiles {
		s.ignore = newIgnoreProvider(abs)
	}
	return s, nil
}

// Root returns the absolute directory being browsed.
func (s *Source) Root() string {
	return s.root
}

// Label is the display name for the synthesized tree root.
func (s *Source) Label() string {
	return norm.NFC.String(filepath.Base(s.root))
}

// FullPath maps a slash separated relative path to its location on disk.
func (s *Source) FullPath(rel string) string {
	if rel == "" {
		return s.root
	}
	if full, ok := s.dirs.Load(rel); ok {
		return full.(string)
	}
	parent, name := splitRel(rel)
	if full, ok := s.dirs.Load(parent); ok {
		return filepath.Join(full.(string), name)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Invalidate drops cached ignore rules for rel and its subdirectories.
func (s *Source) Invalidate(rel string) {
	if s.ignore != nil {
		s.ignore.invalidate(rel)
	}
}

// Load lists the directory at rel.
func (s *Source) Load(ctx context.Context, rel string) (tree.Listing, error) {
	if err := ctx.Err(); err != nil {
		return tree.Listing{}, err
	}

	dir := s.FullPath(rel)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return tree.Listing{}, fmt.Errorf("permission denied: %s", displayRel(rel))
		}
		return tree.Listing{}, fmt.Errorf("cannot read directory %s: %w", displayRel(rel), err)
	}

	var matcher *IgnoreMatcher
	if s.ignore != nil {
		matcher = s.ignore.matcherFor(rel)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e, ok := s.entry(dir, rel, de)
		if !ok {
			continue
		}
		if !s.opts.ShowHidden && e.IsHidden() {
			continue
		}
		if matcher != nil && (e.Name == ".git" || matcher.Match(e.Path, e.IsDir)) {
			continue
		}
		if e.IsDir {
			s.dirs.Store(e.Path, e.FullPath)
		}
		entries = append(entries, e)
	}
	sortEntries(entries)

	specs := make([]tree.NodeSpec, len(entries))
	for i, e := range entries {
		specs[i] = tree.NodeSpec{
			Name:        e.Name,
			Data:        e,
			Permissions: accessFromMode(e.Mode),
		}
		if e.IsDir {
			specs[i].Children = []tree.NodeSpec{}
		}
	}
	s.log.Debug("listed directory", zap.String("path", displayRel(rel)), zap.Int("entries", len(specs)))
	return tree.Listing{Entries: specs}, nil
}

func (s *Source) entry(dir, rel string, de os.DirEntry) (Entry, bool) {
	raw := de.Name()
	full := filepath.Join(dir, raw)
	if isProtected(full, raw) {
		return Entry{}, false
	}

	info, err := de.Info()
	if err != nil {
		return Entry{}, false
	}

	name := norm.NFC.String(raw)
	if strings.Contains(name, tree.Separator) {
		s.log.Warn("skipping entry with reserved character", zap.String("name", raw))
		return Entry{}, false
	}

	isDir := de.IsDir()
	isSymlink := info.Mode()&os.ModeSymlink != 0
	if isSymlink {
		if target, err := os.Stat(full); err == nil {
			isDir = target.IsDir()
		}
	}

	return Entry{
		Name:      name,
		Path:      joinRel(rel, name),
		FullPath:  full,
		IsDir:     isDir,
		IsSymlink: isSymlink,
		Size:      info.Size(),
		Modified:  info.ModTime(),
		Mode:      info.Mode(),
	}, true
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

func accessFromMode(mode os.FileMode) tree.Access {
	perm := mode.Perm()
	return tree.Access{
		Read:  perm&0o400 != 0,
		Write: perm&0o200 != 0,
	}
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func splitRel(rel string) (string, string) {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[:i], rel[i+1:]
	}
	return "", rel
}

func displayRel(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
