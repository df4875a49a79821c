package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/baggage"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/config"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/tracing"
)

const appVersion = "0.3.0"

// commandContext carries the state shared by all subcommands.
type commandContext struct {
	configFlag  string
	dataDirFlag string
	output      outputConfig

	deps     app.Deps
	cfg      *config.Config
	shutdown func(context.Context) error
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(app.Deps{})
}

// newRootCommandWith builds the command tree with injected collaborators.
func newRootCommandWith(deps app.Deps) *cobra.Command {
	ctx := &commandContext{deps: deps}

	rootCmd := &cobra.Command{
		Use:           "librelauncher",
		Short:         "Local game library launcher",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.teardown(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.dataDirFlag, "data-dir", "", "Directory holding the library, catalog and caches")
	flags.BoolVar(&ctx.output.JSON, "json", false, "Output in JSON format")
	flags.BoolVarP(&ctx.output.Quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newFavoriteCommand(ctx))
	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newTUICommand(ctx))

	return rootCmd
}

func (c *commandContext) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadPath(strings.TrimSpace(c.configFlag))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.dataDirFlag != "" {
		cfg.DataDir = c.dataDirFlag
	}
	c.cfg = cfg

	logging.Setup(logging.Config{
		Format:     cfg.Logging.Format,
		Level:      cfg.Logging.Level,
		Output:     cmd.ErrOrStderr(),
		ShortPaths: true,
	})

	m, _ := baggage.NewMember("app.version", appVersion)
	b, _ := baggage.New(m)
	ctx := baggage.ContextWithBaggage(cmd.Context(), b)
	cmd.SetContext(ctx)

	tcfg := tracing.DefaultConfig()
	tcfg.Version = appVersion
	shutdown, err := tracing.Setup(ctx, tcfg)
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	}
	c.shutdown = shutdown
	return nil
}

func (c *commandContext) teardown(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}
	if err := c.shutdown(ctx); err != nil {
		logging.Error("failed to shutdown tracing", "error", err)
	}
	return nil
}

// withApp opens the library for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := app.New(cmd.Context(), c.cfg, c.deps)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Warn("failed to close library", "error", err)
		}
	}()
	return fn(a)
}
