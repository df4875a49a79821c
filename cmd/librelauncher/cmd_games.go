package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/game"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Add games from .exe files or .lnk shortcuts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return fmt.Errorf("resolve path %s: %w", p, err)
				}
				paths = append(paths, abs)
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				added, err := a.AddPaths(cmd.Context(), paths)
				a.Wait()
				if ctx.output.JSON {
					if jerr := printJSON(cmd.OutOrStdout(), added); jerr != nil {
						return jerr
					}
				}
				for _, rec := range added {
					ctx.printInfo(cmd, "Game added: %s\n  Path: %s\n", rec.Name, rec.ExePath)
				}
				if len(added) == 0 && err == nil {
					ctx.printInfo(cmd, "No new games added\n")
				}
				return err
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var favorites bool

	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List games sorted by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				var games []game.Record
				for _, rec := range a.List(filter) {
					if favorites && !rec.Favorite {
						continue
					}
					games = append(games, rec)
				}
				if ctx.output.JSON {
					if games == nil {
						games = []game.Record{}
					}
					return printJSON(cmd.OutOrStdout(), games)
				}
				if len(games) == 0 {
					ctx.printInfo(cmd, "No games found\n")
					return nil
				}

				rows := make([][]string, 0, len(games))
				for _, rec := range games {
					fav := ""
					if rec.Favorite {
						fav = "*"
					}
					rows = append(rows, []string{
						fav,
						rec.Name,
						formatPlayTime(rec.PlayTime),
						lastPlayed(rec),
						reviewText(rec),
					})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"", "Name", "Play time", "Last played", "Reviews"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only list favorite games")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <game>",
		Short: "Show a game's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				rec, err := findGame(a, args[0])
				if err != nil {
					return err
				}
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				out := cmd.OutOrStdout()
				color := shouldColorize(out)
				label := func(s string) string { return styled(labelStyle, s, color) }

				_, _ = fmt.Fprintln(out, styled(titleStyle, rec.Name, color))
				_, _ = fmt.Fprintf(out, "%s %s\n", label("Path:"), rec.ExePath)
				_, _ = fmt.Fprintf(out, "%s %s\n", label("Play time:"), formatPlayTime(rec.PlayTime))
				_, _ = fmt.Fprintf(out, "%s %s\n", label("Last played:"), lastPlayed(rec))
				_, _ = fmt.Fprintf(out, "%s %t\n", label("Favorite:"), rec.Favorite)

				class := game.ReviewNeutral
				if rec.ReviewSummary != nil {
					class = game.ClassifyReview(*rec.ReviewSummary)
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", label("Reviews:"), styled(reviewStyles[class], reviewText(rec), color))

				if rec.Description != "" {
					_, _ = fmt.Fprintf(out, "\n%s\n%s\n", label("Description:"), rec.Description)
				}
				if rec.SystemRequirements != nil && *rec.SystemRequirements != "" {
					_, _ = fmt.Fprintf(out, "\n%s\n%s\n", label("System requirements:"), *rec.SystemRequirements)
				}
				return nil
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var name, path, description string

	cmd := &cobra.Command{
		Use:   "edit <game>",
		Short: "Edit a game's name, path or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ch app.Changes
			if cmd.Flags().Changed("name") {
				ch.Name = &name
			}
			if cmd.Flags().Changed("path") {
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve path %s: %w", path, err)
				}
				ch.Path = &abs
			}
			if cmd.Flags().Changed("description") {
				ch.Description = &description
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				rec, err := findGame(a, args[0])
				if err != nil {
					return err
				}
				rec, err = a.Edit(cmd.Context(), rec.ExePath, ch)
				if err != nil {
					return err
				}
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				ctx.printInfo(cmd, "Game updated: %s\n", rec.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name (ignored when blank)")
	cmd.Flags().StringVar(&path, "path", "", "New executable or shortcut")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <game>",
		Aliases: []string{"remove"},
		Short:   "Remove a game and its cached images",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				rec, err := findGame(a, args[0])
				if err != nil {
					return err
				}
				if err := a.Delete(cmd.Context(), rec.ExePath); err != nil {
					return err
				}
				ctx.printInfo(cmd, "Game removed: %s\n", rec.Name)
				return nil
			})
		},
	}
}

func newFavoriteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fav <game>",
		Short: "Toggle a game's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				rec, err := findGame(a, args[0])
				if err != nil {
					return err
				}
				rec, err = a.ToggleFavorite(cmd.Context(), rec.ExePath)
				if err != nil {
					return err
				}
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				state := "removed from"
				if rec.Favorite {
					state = "added to"
				}
				ctx.printInfo(cmd, "%s %s favorites\n", rec.Name, state)
				return nil
			})
		},
	}
}

// findGame looks a game up by executable path, then by exact name.
func findGame(a *app.App, arg string) (game.Record, error) {
	if rec, err := a.Get(arg); err == nil {
		return rec, nil
	}
	if abs, err := filepath.Abs(arg); err == nil {
		if rec, err := a.Get(abs); err == nil {
			return rec, nil
		}
	}

	var found []game.Record
	for _, rec := range a.List("") {
		if strings.EqualFold(rec.Name, arg) {
			found = append(found, rec)
		}
	}
	switch len(found) {
	case 0:
		return game.Record{}, game.NotFoundError("find game", arg)
	case 1:
		return found[0], nil
	default:
		return game.Record{}, &game.RecordError{
			Op:  "find game",
			Key: arg,
			Err: fmt.Errorf("%w: %d games share this name, use the path", game.ErrInvalidArg, len(found)),
		}
	}
}

func lastPlayed(rec game.Record) string {
	if rec.LastPlayed == nil {
		return "Never"
	}
	return humanize.Time(*rec.LastPlayed)
}

func reviewText(rec game.Record) string {
	if rec.ReviewSummary == nil {
		return "N/A"
	}
	s := *rec.ReviewSummary
	if rec.ReviewPercentage != nil {
		s += " (" + strconv.Itoa(*rec.ReviewPercentage) + "% positive)"
	}
	return s
}
