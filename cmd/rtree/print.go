package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kk-code-lab/rtree/internal/config"
	"github.com/kk-code-lab/rtree/internal/logging"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
	"github.com/kk-code-lab/rtree/internal/textutil"
	"github.com/kk-code-lab/rtree/internal/tree"
)

type printOptions struct {
	depth int
	paths bool
}

func newPrintCmd(c *cli) *cobra.Command {
	var opts printOptions
	cmd := &cobra.Command{
		Use:   "print [source]",
		Short: "Load a tree without the terminal UI and print it",
		Long: `print expands the source down to --depth levels (all levels when negative)
and draws it, or with --paths lists every node in the export format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(cmd.Context(), sourceArg(args), withoutWatch(c.settings), logging.L())
			if err != nil {
				return err
			}
			defer src.Close()
			return printSource(cmd.Context(), cmd.OutOrStdout(), src, c.settings.MaxInFlight, opts, c.settings.Format)
		},
	}
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", -1, "levels to expand below the root")
	cmd.Flags().BoolVar(&opts.paths, "paths", false, "print checked paths instead of a drawing")
	return cmd
}

func withoutWatch(s config.Settings) config.Settings {
	s.Watch = false
	return s
}

// headless drives a model from the calling goroutine: load results are
// queued by the runner and applied here, one at a time.
type headless struct {
	model   *tree.Model
	runner  *tree.AsyncRunner
	results chan tree.LoadResult
	done    chan struct{}
}

func newHeadless(loader tree.Loader, maxInFlight int64, log *zap.Logger) *headless {
	h := &headless{results: make(chan tree.LoadResult, 64), done: make(chan struct{})}
	h.runner = tree.NewAsyncRunner(loader, tree.AsyncOptions{MaxInFlight: maxInFlight})
	h.model = tree.New(h.runner,
		tree.WithMultiSelect(true),
		tree.WithDispatch(func(res tree.LoadResult) {
			select {
			case h.results <- res:
			case <-h.done:
			}
		}),
		tree.WithLogger(log),
	)
	return h
}

// settle applies results until done reports true or nothing is left to
// wait for.
func (h *headless) settle(ctx context.Context, done func() bool) error {
	for !done() {
		if h.model.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-h.results:
			h.model.Apply(res)
		}
	}
	return nil
}

func (h *headless) Close() {
	close(h.done)
	h.runner.Close()
}

func printSource(ctx context.Context, w io.Writer, src *source, maxInFlight int64, opts printOptions, format string) error {
	h := newHeadless(src.Loader, maxInFlight, logging.Named("print"))
	defer h.Close()

	finished := false
	h.model.Initialize(src.Label, func() {
		root := h.model.RootID()
		var err error
		if opts.paths {
			err = h.model.CascadeExpandAndCheck(root, true, func() { finished = true })
		} else {
			err = h.model.ExpandDepth(root, opts.depth, func() { finished = true })
		}
		if err != nil {
			finished = true
		}
	})
	if err := h.settle(ctx, func() bool { return finished }); err != nil {
		return err
	}
	if h.model.RootID() == "" {
		msg := h.model.LoadError()
		if msg == "" {
			msg = "no listing"
		}
		return errors.New(msg)
	}
	if msg := h.model.LoadError(); msg != "" {
		logging.L().Warn("some directories could not be listed", zap.String("error", msg))
	}

	if opts.paths {
		return statepkg.WriteSelection(w, statepkg.Selection(h.model, src.Root), format)
	}
	return drawTree(w, h.model.Rows())
}

var (
	dirColor         = color.New(color.FgBlue, color.Bold)
	guideColor       = color.New(color.Faint)
	placeholderColor = color.New(color.Faint, color.Italic)
	lockedColor      = color.New(color.FgRed)
)

func drawTree(w io.Writer, rows []tree.Row) error {
	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for _, bar := range row.Guides {
			if bar {
				b.WriteString(guideColor.Sprint("│   "))
			} else {
				b.WriteString("    ")
			}
		}
		if row.Depth > 0 {
			branch := "├── "
			if row.Last {
				branch = "└── "
			}
			b.WriteString(guideColor.Sprint(branch))
		}

		switch {
		case row.Placeholder == tree.PlaceholderEmpty:
			b.WriteString(placeholderColor.Sprint("(empty)"))
		case row.Placeholder == tree.PlaceholderLoading:
			b.WriteString(placeholderColor.Sprint("(not loaded)"))
		case !tree.AccessOf(row.Permissions).Read:
			b.WriteString(lockedColor.Sprint(textutil.SafeName(row.Name)))
		case row.Container:
			b.WriteString(dirColor.Sprint(textutil.SafeName(row.Name) + "/"))
		default:
			b.WriteString(textutil.SafeName(row.Name))
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("write tree: %w", err)
		}
	}
	return nil
}
