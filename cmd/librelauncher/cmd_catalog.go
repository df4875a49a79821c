package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/match"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and refresh the store catalog",
	}
	cmd.AddCommand(newCatalogRefreshCommand(ctx))
	cmd.AddCommand(newCatalogInfoCommand(ctx))
	cmd.AddCommand(newCatalogMatchCommand(ctx))
	return cmd
}

func newCatalogRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the full application list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				bar := ctx.newByteBar(cmd, "Downloading catalog")
				n, err := a.RefreshCatalog(cmd.Context(), bar)
				_ = bar.Finish()
				if err != nil {
					return fmt.Errorf("download catalog: %w", err)
				}
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), map[string]int{"entries": n})
				}
				ctx.printInfo(cmd, "Catalog refreshed: %s entries\n", humanize.Comma(int64(n)))
				return nil
			})
		},
	}
}

func newCatalogInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the loaded catalog snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				n := a.Catalog().Index().Len()
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"path":    ctx.cfg.CatalogPath(),
						"entries": n,
					})
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Path:    %s\nEntries: %s\n",
					ctx.cfg.CatalogPath(), humanize.Comma(int64(n)))
				return nil
			})
		},
	}
}

func newCatalogMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <title>",
		Short: "Show which catalog entry a title resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := ctx.ensureCatalog(cmd, a); err != nil {
					return err
				}
				m := &match.Matcher{Cutoff: ctx.cfg.GetMatchCutoff()}
				res := m.Match(args[0], a.Catalog().Index())
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"matched": res.OK,
						"app_id":  res.AppID,
						"name":    res.Name,
						"score":   res.Score,
					})
				}
				if !res.OK {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No match for %q\n", args[0])
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (app %d, score %.2f)\n", res.Name, res.AppID, res.Score)
				return nil
			})
		},
	}
}
