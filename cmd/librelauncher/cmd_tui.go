package main

import (
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/tui"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the library in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines would tear the alternate screen.
			logging.Setup(logging.Config{Format: ctx.cfg.Logging.Format, Level: "error", Output: cmd.ErrOrStderr()})
			return ctx.withApp(cmd, func(a *app.App) error {
				a.Start(cmd.Context())
				err := tui.Run(cmd.Context(), a)
				a.Wait()
				return err
			})
		},
	}
}
