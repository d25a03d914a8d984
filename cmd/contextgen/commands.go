package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/contextgen/internal/config"
	"github.com/taigrr/contextgen/internal/filesystem"
	"github.com/taigrr/contextgen/internal/types"
	"github.com/taigrr/contextgen/internal/uri"
)

func newGitHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github <owner/repo | url>",
		Short: "Aggregate a GitHub repository",
		Example: `contextgen github taigrr/contextgen
contextgen github https://github.com/taigrr/contextgen/tree/main --include '*.go'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := uri.ParseRepository(args[0])
			if err != nil {
				return &types.ConfigurationError{Field: "repository", Err: err}
			}
			src = resolveRef(src, opts.ref, settings.GitHub.Ref)
			if settings.GitHub.Token == "" {
				return &types.ConfigurationError{
					Field: "github.token",
					Err:   fmt.Errorf("set GITHUB_TOKEN or github.token in %s", config.RelPath),
				}
			}
			return generate(cmd, src)
		},
	}
	cmd.Flags().StringVar(&opts.ref, "ref", "", "branch, tag or commit to read (default: repository default branch)")
	return cmd
}

func newLocalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local <dir>",
		Short: "Aggregate a local directory",
		Example: `contextgen local ~/src/project --include '*.py'
contextgen local . --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dryRun {
				return listLocal(cmd, args[0])
			}
			return generate(cmd, types.LocalSource{Path: args[0]})
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list the selected files without writing an artifact")
	return cmd
}

// listLocal prints the files a local run would aggregate, one per line.
func listLocal(cmd *cobra.Command, root string) error {
	filter, err := settings.Validate()
	if err != nil {
		return err
	}
	fetcher := filesystem.New(filter,
		filesystem.WithStrict(settings.Strict),
		filesystem.WithLogger(logger),
	)

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	entries, err := fetcher.Files(ctx, root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, entry := range entries {
		if _, err := fmt.Fprintln(out, entry.Path); err != nil {
			return err
		}
	}
	logger.Debug("dry run", "path", root, "files", len(entries))
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := settings.Validate(); err != nil {
				return err
			}

			server := mcp.NewServer(&mcp.Implementation{
				Name:    "contextgen",
				Version: version,
			}, nil)

			registerTools(server)

			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("error running server: %w", err)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				var err error
				if path, err = config.Path(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to stat config file: %w", err)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	// init must work before any config file exists.
	initCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(settings.Redacted())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// generate runs the aggregator for src using the effective config.
func generate(cmd *cobra.Command, src types.Source) error {
	filter, err := settings.Validate()
	if err != nil {
		return err
	}
	agg, err := newAggregator(settings, filter)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	artifact, content, err := agg.Generate(ctx, src, settings.Output.Directory)
	if err != nil {
		return err
	}
	return printResult(cmd, artifact.Path, content)
}

// resolveRef picks the ref to read: an explicit flag, then the one embedded
// in the URL, then the configured default.
func resolveRef(src types.RemoteSource, flagRef, defaultRef string) types.RemoteSource {
	switch {
	case flagRef != "":
		src.Ref = flagRef
	case src.Ref == "":
		src.Ref = defaultRef
	}
	return src
}
