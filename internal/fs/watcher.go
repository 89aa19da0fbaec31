package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change reports that the listing of a watched directory is stale.
type Change struct {
	Dir string // slash separated, relative to the source root
}

// Watcher follows the directories the tree has loaded and reports bursts of
// filesystem activity once per directory.
type Watcher struct {
	src    *Source
	fsw    *fsnotify.Watcher
	log    *zap.Logger
	delay  time.Duration
	events chan Change

	mu      sync.Mutex
	watched map[string]string // full path -> rel
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
}

// NewWatcher creates a watcher for src. delay is the quiet period used to
// coalesce events.
func NewWatcher(src *Source, delay time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Watcher{
		src:     src,
		fsw:     fsw,
		log:     logger,
		delay:   delay,
		events:  make(chan Change, 64),
		watched: make(map[string]string),
		pending: make(map[string]struct{}),
	}, nil
}

// Events delivers coalesced changes. The channel closes when Run returns.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Watch starts following the directory at rel.
func (w *Watcher) Watch(rel string) error {
	full := filepath.Clean(w.src.FullPath(rel))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if _, ok := w.watched[full]; ok {
		return nil
	}
	if err := w.fsw.Add(full); err != nil {
		return fmt.Errorf("watch %s: %w", displayRel(rel), err)
	}
	w.watched[full] = rel
	return nil
}

// Unwatch stops following rel and its subdirectories.
func (w *Watcher) Unwatch(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for full, r := range w.watched {
		if r == rel || rel == "" || (len(r) > len(rel) && r[:len(rel)+1] == rel+"/") {
			_ = w.fsw.Remove(full)
			delete(w.watched, full)
		}
	}
}

// Watched returns the relative paths currently followed, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for _, rel := range w.watched {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Run forwards events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		_ = w.Close()
		w.mu.Lock()
		close(w.events)
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(evt)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	if evt.Op == fsnotify.Chmod {
		return
	}
	name := filepath.Clean(evt.Name)

	w.mu.Lock()
	rel, ok := w.watched[filepath.Dir(name)]
	if self, isDir := w.watched[name]; isDir && evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		_ = w.fsw.Remove(name)
		delete(w.watched, name)
		rel, ok = parentRel(self), true
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	for _, ignoreName := range ignoreFiles {
		if filepath.Base(name) == ignoreName {
			w.src.Invalidate(rel)
			break
		}
	}
	w.log.Debug("filesystem event", zap.String("op", evt.Op.String()), zap.String("dir", displayRel(rel)))
	w.enqueue(rel)
}

func (w *Watcher) enqueue(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[rel] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.flush)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer = nil
	if w.closed {
		return
	}

	dirs := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		dirs = append(dirs, rel)
	}
	sort.Strings(dirs)
	for _, rel := range dirs {
		select {
		case w.events <- Change{Dir: rel}:
			delete(w.pending, rel)
		default:
			// Consumer is busy; the rest stays pending for the next round.
			w.log.Debug("change delivery deferred", zap.Int("pending", len(w.pending)))
			w.timer = time.AfterFunc(w.delay, w.flush)
			return
		}
	}
}

// Close releases the underlying watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func parentRel(rel string) string {
	parent, _ := splitRel(rel)
	return parent
}
