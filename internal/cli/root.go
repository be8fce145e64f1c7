// Package cli contains all commands of the newssummarizer binary.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/infrastructure/storage"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo records version details injected at link time.
func SetBuildInfo(v, c, bt string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if bt != "" {
		buildTime = bt
	}
}

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the command tree. Without a subcommand the service is started.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "newssummarizer",
		Short: "Serve news per topic and summarize articles in the background",
		Long: `newssummarizer fetches news articles per topic, caches them and attaches
LLM-generated summaries in the background. Cached data is served immediately;
summaries appear as the worker completes them.

Example usage:
  newssummarizer serve --config config.yaml
  newssummarizer stats
  newssummarizer retry --all
  newssummarizer prune --older-than 720h`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default from NEWS_SUMMARIZER_CONFIG)")

	serve := newServeCmd(opts)
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newRetryCmd(opts),
		newStatsCmd(opts),
		newPruneCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// withStore loads configuration and opens the cache store for one admin command.
func withStore(ctx context.Context, opts *rootOptions, fn func(cfg config.Config, store *storage.SQLStore) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer store.Close()

	return fn(cfg, store)
}
