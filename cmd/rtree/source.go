package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apppkg "github.com/kk-code-lab/rtree/internal/app"
	"github.com/kk-code-lab/rtree/internal/bucket"
	"github.com/kk-code-lab/rtree/internal/config"
	fsutil "github.com/kk-code-lab/rtree/internal/fs"
	"github.com/kk-code-lab/rtree/internal/remote"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/tree"
)

// source is an opened backend ready to hand to the tree model.
type source struct {
	Loader tree.Loader
	Label  string
	Kind   statepkg.SourceKind
	// Root prefixes exported paths.
	Root     string
	OnReload func()

	watcher *fsutil.Watcher
	cancel  context.CancelFunc
}

func (s *source) watcherOrNil() apppkg.Watcher {
	if s.watcher == nil {
		return nil
	}
	return s.watcher
}

// Close stops the filesystem watcher, if any.
func (s *source) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}

func openSource(ctx context.Context, arg string, settings config.Settings, log *zap.Logger) (*source, error) {
	switch {
	case strings.HasPrefix(arg, "s3://"):
		return openBucket(ctx, arg, settings, log)
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return openRemote(arg, settings, log), nil
	default:
		return openLocal(ctx, arg, settings, log)
	}
}

func openLocal(ctx context.Context, arg string, settings config.Settings, log *zap.Logger) (*source, error) {
	src, err := fsutil.NewSource(arg, fsutil.Options{
		ShowHidden:     settings.ShowHidden,
		UseIgnoreFiles: settings.IgnoreFiles,
		Logger:         log.Named("fs"),
	})
	if err != nil {
		return nil, err
	}
	out := &source{
		Loader:   src,
		Label:    src.Label(),
		Kind:     statepkg.SourceFS,
		Root:     src.Root(),
		OnReload: func() { src.Invalidate("") },
	}
	if !settings.Watch {
		return out, nil
	}

	watcher, err := fsutil.NewWatcher(src, settings.WatchDelay, log.Named("watch"))
	if err != nil {
		// Browsing still works without live updates.
		log.Warn("filesystem watching disabled", zap.Error(err))
		return out, nil
	}
	watchCtx, cancel := context.WithCancel(ctx)
	out.watcher = watcher
	out.cancel = cancel
	go watcher.Run(watchCtx)
	return out, nil
}

func openRemote(arg string, settings config.Settings, log *zap.Logger) *source {
	retry := remote.DefaultRetryConfig()
	retry.MaxAttempts = settings.Remote.Retries + 1
	client := remote.New(remote.Config{
		BaseURL: arg,
		Token:   settings.Remote.Token,
		Timeout: settings.Remote.Timeout,
		Retry:   retry,
		Logger:  log.Named("remote"),
	})

	out := &source{
		Loader: client,
		Label:  client.Label(),
		Kind:   statepkg.SourceRemote,
		Root:   strings.TrimRight(arg, "/") + "/",
	}
	if settings.Remote.CacheTTL > 0 {
		cache := remote.NewCache(client, settings.Remote.CacheTTL)
		out.Loader = cache
		out.OnReload = cache.Purge
	}
	return out
}

func openBucket(ctx context.Context, arg string, settings config.Settings, log *zap.Logger) (*source, error) {
	name, prefix, err := bucket.ParseURL(arg)
	if err != nil {
		return nil, err
	}
	src, err := bucket.New(ctx, bucket.Config{
		Bucket:       name,
		Prefix:       prefix,
		Region:       settings.S3.Region,
		Endpoint:     settings.S3.Endpoint,
		AccessKey:    settings.S3.AccessKey,
		SecretKey:    settings.S3.SecretKey,
		UsePathStyle: settings.S3.PathStyle,
		PageSize:     settings.S3.PageSize,
		Logger:       log.Named("s3"),
	})
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	root := "s3://" + name + "/"
	if p := strings.Trim(prefix, "/"); p != "" {
		root += p + "/"
	}
	return &source{
		Loader: src,
		Label:  src.Label(),
		Kind:   statepkg.SourceS3,
		Root:   root,
	}, nil
}
