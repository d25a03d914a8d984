// Package main implements the contextgen CLI and MCP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/contextgen/internal/aggregator"
	"github.com/taigrr/contextgen/internal/config"
	"github.com/taigrr/contextgen/internal/filesystem"
	"github.com/taigrr/contextgen/internal/github"
	"github.com/taigrr/contextgen/internal/pathfilter"
)

// options holds the flags shared by every command.
type options struct {
	configPath  string
	include     []string
	exclude     []string
	outputDir   string
	concurrency int
	strict      bool
	timeout     time.Duration
	stdout      bool
	verbose     bool
	ref         string
	noExcludes  bool
	dryRun      bool
}

var (
	opts     options
	settings config.Config
	logger   = slog.Default()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(
		ctx,
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts = options{}

	cmd := &cobra.Command{
		Use:   "contextgen",
		Short: "Aggregate repository files into a single context document",
		Long: `contextgen walks a GitHub repository or a local directory, keeps the
files selected by include/exclude glob patterns and concatenates them into
one markdown document, one "File: <path>" record per file.

The same generator is exposed as a Model Context Protocol server with
"contextgen serve".`,
		Example: `contextgen github taigrr/contextgen --include '*.go'
contextgen local . --exclude '**/testdata' -o build/context
contextgen serve`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/"+config.RelPath+")")
	flags.StringArrayVar(&opts.include, "include", nil, "glob of files to include (repeatable)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "glob of files or directories to exclude (repeatable)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "directory artifacts are written to")
	flags.BoolVar(&opts.noExcludes, "no-default-excludes", false, "do not apply the built-in exclude patterns")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "maximum concurrent GitHub API requests")
	flags.BoolVar(&opts.strict, "strict", false, "fail on unreadable local files instead of skipping them")
	flags.DurationVar(&opts.timeout, "timeout", 0, "abort generation after this long (0 disables)")
	flags.BoolVar(&opts.stdout, "stdout", false, "print the generated document instead of the artifact path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newGitHubCmd(),
		newLocalCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return cmd
}

// setup configures logging and resolves the effective config.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath, config.Overrides{
		Ref:               opts.ref,
		Include:           opts.include,
		Exclude:           opts.exclude,
		OutputDir:         opts.outputDir,
		Concurrency:       opts.concurrency,
		Strict:            opts.strict,
		NoDefaultExcludes: opts.noExcludes,
	})
	if err != nil {
		return err
	}
	settings = cfg
	return nil
}

// newAggregator wires the fetchers for cfg. Remote sources are only
// available when a GitHub token is configured.
func newAggregator(cfg config.Config, filter *pathfilter.PathFilter) (*aggregator.Aggregator, error) {
	var remote aggregator.RemoteFetcher
	if cfg.GitHub.Token != "" {
		client, err := github.NewClient(github.Options{
			Token:  cfg.GitHub.Token,
			APIURL: cfg.GitHub.APIURL,
		})
		if err != nil {
			return nil, err
		}
		remote = github.NewFetcher(client, filter,
			github.WithConcurrency(cfg.Concurrency),
			github.WithLogger(logger),
		)
	}

	local := filesystem.New(filter,
		filesystem.WithStrict(cfg.Strict),
		filesystem.WithLogger(logger),
	)

	return aggregator.New(remote, local, aggregator.WithLogger(logger)), nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if opts.timeout > 0 {
		return context.WithTimeout(ctx, opts.timeout)
	}
	return context.WithCancel(ctx)
}

func printResult(cmd *cobra.Command, artifactPath, content string) error {
	out := cmd.OutOrStdout()
	if opts.stdout {
		_, err := fmt.Fprint(out, content)
		return err
	}
	_, err := fmt.Fprintln(out, artifactPath)
	return err
}
