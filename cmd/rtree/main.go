// Command rtree browses a directory tree, an HTTP tree API or an S3 bucket
// in the terminal and prints the nodes picked on exit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	apppkg "github.com/kk-code-lab/rtree/internal/app"
	"github.com/kk-code-lab/rtree/internal/config"
	"github.com/kk-code-lab/rtree/internal/logging"
	statepkg "github.com/kk-code-lab/rtree/internal/state"
)

func main() {
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtree: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the viper instance shared by every subcommand.
type cli struct {
	v          *viper.Viper
	configFile string
	settings   config.Settings
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "rtree [path | http(s)://host | s3://bucket/prefix]",
		Short: "Lazy-loading tree browser",
		Long: `rtree lists a directory tree one level at a time as you open it.

The source is a local directory (default "."), the base URL of a tree API
or an s3:// bucket URL. Press x to quit and print the checked paths, q to
quit without output.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.browse(cmd.Context(), sourceArg(args))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default .rtree.yaml in $HOME or the working directory)")
	flags.Bool("hidden", false, "show dot files")
	flags.Bool("ignore-files", false, "skip entries matched by .gitignore and .rtreeignore")
	flags.String("token", "", "bearer token for tree API sources")
	flags.String("log-file", "", "write logs to this file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("format", config.FormatLines, "export format: lines or json")

	local := root.Flags()
	local.BoolP("multi", "m", false, "check several nodes instead of choosing one")
	local.StringP("output", "o", "", "write the export to this file instead of stdout")
	local.Bool("watch", true, "reload directories that change on disk")

	bindFlags(c.v, root, map[string]string{
		"hidden":       "hidden",
		"ignore-files": "ignore_files",
		"token":        "remote.token",
		"log-file":     "log.file",
		"log-level":    "log.level",
		"format":       "format",
		"multi":        "multi",
		"output":       "output",
		"watch":        "watch",
	})

	root.AddCommand(newPrintCmd(c), newConfigCmd(c))
	return root
}

// bindFlags lets set flags override config file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

func (c *cli) load() error {
	settings, err := config.Load(c.v, c.configFile)
	if err != nil {
		return err
	}
	c.settings = settings
	if err := logging.Init(logging.Config{
		Level:      settings.Log.Level,
		Format:     settings.Log.Format,
		OutputPath: settings.Log.File,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	return nil
}

func sourceArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func (c *cli) browse(ctx context.Context, arg string) error {
	log := logging.L()
	src, err := openSource(ctx, arg, c.settings, log)
	if err != nil {
		return err
	}
	defer src.Close()

	app, err := apppkg.NewApplication(apppkg.Options{
		Loader:      src.Loader,
		Label:       src.Label,
		Kind:        src.Kind,
		Root:        src.Root,
		Multi:       c.settings.Multi,
		MaxInFlight: c.settings.MaxInFlight,
		LoadTimeout: c.settings.LoadTimeout,
		Watcher:     src.watcherOrNil(),
		OnReload:    src.OnReload,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	log.Info("browsing", zap.String("source", arg), zap.String("kind", string(src.Kind)), zap.Bool("multi", c.settings.Multi))
	app.Run(ctx)
	_ = app.Close()

	if !app.ExportRequested() {
		return nil
	}
	return writeExport(app.Exported(), c.settings.Output, c.settings.Format)
}

func writeExport(paths []statepkg.SelectedPath, output, format string) error {
	if output == "" {
		return statepkg.WriteSelection(os.Stdout, paths, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := statepkg.WriteSelection(f, paths, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.settings.YAML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
