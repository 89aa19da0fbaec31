package tree

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Loader lists one directory. The empty path requests the root listing;
// other paths are produced by PathFromID.
type Loader interface {
	Load(ctx context.Context, path string) (Listing, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Listing, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (Listing, error) {
	return f(ctx, path)
}

// LoadRequest describes a directory fetch to perform.
type LoadRequest struct {
	Token    uint64
	Path     string
	Callback func(LoadResult)
}

// LoadResult is emitted by a Runner once a fetch settles.
type LoadResult struct {
	Token   uint64
	Path    string
	Listing Listing
	Err     error
}

// Runner performs loads and reports each one through the request callback.
type Runner interface {
	Start(req LoadRequest)
}

// NewSyncRunner returns a Runner that loads inline and calls back before
// Start returns.
func NewSyncRunner(loader Loader) Runner {
	return syncRunner{loader: loader}
}

type syncRunner struct {
	loader Loader
}

func (r syncRunner) Start(req LoadRequest) {
	if req.Callback == nil {
		return
	}
	listing, err := r.loader.Load(context.Background(), req.Path)
	req.Callback(LoadResult{Token: req.Token, Path: req.Path, Listing: listing, Err: err})
}

// AsyncOptions tunes an AsyncRunner.
type AsyncOptions struct {
	// Timeout bounds each load. Zero means no timeout.
	Timeout time.Duration
	// MaxInFlight caps concurrent loads. Zero means unlimited.
	MaxInFlight int64
}

// AsyncRunner runs every load on its own goroutine.
type AsyncRunner struct {
	loader  Loader
	timeout time.Duration
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncRunner constructs the default goroutine-based runner.
func NewAsyncRunner(loader Loader, opts AsyncOptions) *AsyncRunner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &AsyncRunner{
		loader:  loader,
		timeout: opts.Timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	if opts.MaxInFlight > 0 {
		r.sem = semaphore.NewWeighted(opts.MaxInFlight)
	}
	return r
}

func (r *AsyncRunner) Start(req LoadRequest) {
	if req.Callback == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		if r.sem != nil {
			if err := r.sem.Acquire(r.ctx, 1); err != nil {
				return
			}
			defer r.sem.Release(1)
		}

		ctx := r.ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		listing, err := r.loader.Load(ctx, req.Path)

		if r.isClosed() {
			return
		}
		req.Callback(LoadResult{Token: req.Token, Path: req.Path, Listing: listing, Err: err})
	}()
}

// Close stops delivering results. Loads already running finish in the
// background and are discarded.
func (r *AsyncRunner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// Wait blocks until every started load has returned.
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}

func (r *AsyncRunner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
