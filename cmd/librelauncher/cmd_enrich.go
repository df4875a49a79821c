package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/app"
	"github.com/ryanm101/librelauncher/internal/enrich"
	"github.com/ryanm101/librelauncher/internal/game"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "enrich [game]",
		Short: "Fetch reviews, banner, description and requirements from the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("specify a game or --all")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := ctx.ensureCatalog(cmd, a); err != nil {
					return err
				}

				var keys []string
				if all {
					for _, rec := range a.List("") {
						if rec.NeedsEnrichment() {
							keys = append(keys, rec.ExePath)
						}
					}
					if a.EnrichAll() == 0 {
						ctx.printInfo(cmd, "All games are up to date\n")
						return nil
					}
				} else {
					rec, err := findGame(a, args[0])
					if err != nil {
						return err
					}
					if !rec.NeedsEnrichment() {
						ctx.printInfo(cmd, "%s is up to date\n", rec.Name)
						return nil
					}
					if _, err := a.Enrich(rec.ExePath); err != nil {
						return err
					}
					keys = []string{rec.ExePath}
				}

				bar := ctx.newProgressBar(cmd, len(keys), "Enriching")
				awaitUnits(a, func(e enrich.Event) {
					if e.Kind == enrich.EventDetails {
						_ = bar.Add(1)
					}
				})
				_ = bar.Finish()

				results := make([]enrichResult, 0, len(keys))
				for _, key := range keys {
					if rec, err := a.Get(key); err == nil {
						results = append(results, newEnrichResult(rec))
					}
				}
				if ctx.output.JSON {
					return printJSON(cmd.OutOrStdout(), results)
				}
				for _, r := range results {
					ctx.printInfo(cmd, "%s: %d fetched, %d failed\n", r.Name, r.Fetched, r.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Enrich every game that is missing metadata")
	return cmd
}

type enrichResult struct {
	Name    string `json:"name"`
	ExePath string `json:"exe_path"`
	Fetched int    `json:"fetched"`
	Failed  int    `json:"failed"`
}

func newEnrichResult(rec game.Record) enrichResult {
	r := enrichResult{Name: rec.Name, ExePath: rec.ExePath}
	for _, attr := range game.Attributes {
		switch rec.StatusOf(attr) {
		case game.StatusFetched:
			r.Fetched++
		case game.StatusFailed:
			r.Failed++
		}
	}
	return r
}

// awaitUnits feeds events to fn until every background unit has finished.
func awaitUnits(a *app.App, fn func(enrich.Event)) {
	done := make(chan struct{})
	go func() {
		a.Wait()
		close(done)
	}()
	for {
		select {
		case e := <-a.Events():
			fn(e)
		case <-done:
			for {
				select {
				case e := <-a.Events():
					fn(e)
				default:
					return
				}
			}
		}
	}
}

// ensureCatalog downloads the catalog when no snapshot is available.
func (c *commandContext) ensureCatalog(cmd *cobra.Command, a *app.App) error {
	if a.Catalog().Index().Len() > 0 {
		return nil
	}
	bar := c.newByteBar(cmd, "Downloading catalog")
	n, err := a.RefreshCatalog(cmd.Context(), bar)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("download catalog: %w", err)
	}
	c.printInfo(cmd, "Catalog loaded: %d entries\n", n)
	return nil
}

func (c *commandContext) newProgressBar(cmd *cobra.Command, n int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!c.output.Quiet && !c.output.JSON),
	)
}

func (c *commandContext) newByteBar(cmd *cobra.Command, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!c.output.Quiet && !c.output.JSON),
	)
}
