package main

import (
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <game>",
		Short: "Launch a game and wait for it to exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				rec, err := findGame(a, args[0])
				if err != nil {
					return err
				}
				if err := a.Launch(cmd.Context(), rec.ExePath); err != nil {
					return err
				}
				ctx.printInfo(cmd, "Started %s\n", rec.Name)

				a.WaitGames()
				after, err := a.Get(rec.ExePath)
				if err != nil {
					return err
				}
				session := after.PlayTime - rec.PlayTime
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), after)
				}
				ctx.printInfo(cmd, "%s exited after %s (total %s)\n",
					rec.Name, formatPlayTime(session), formatPlayTime(after.PlayTime))
				return nil
			})
		},
	}
}
