// Package app wires configuration, logging and the content service into the
// gizzle command line.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gizzletv/client/internal/config"
	"github.com/gizzletv/client/internal/logging"
)

type dependencyLoader func(ctx context.Context) (*dependencies, error)

// Run executes the gizzle command line. SIGINT and SIGTERM cancel the running
// command.
func Run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(loadDependencies)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func loadDependencies(ctx context.Context) (*dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	return buildDependencies(ctx, cfg, logger)
}

func newRootCommand(load dependencyLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "gizzle",
		Short:         "Upload, browse and play media on a Gizzle content service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newUploadCommand(load),
		newListCommand(load),
		newPlayCommand(load),
		newHealthCommand(load),
	)
	return root
}

func newHealthCommand(load dependencyLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the content service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if err := deps.content.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}
