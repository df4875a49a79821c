// Package app wires the registry, catalog, enrichment and launching into the
// operations a front end needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ryanm101/librelauncher/internal/catalog"
	"github.com/ryanm101/librelauncher/internal/config"
	"github.com/ryanm101/librelauncher/internal/enrich"
	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/icon"
	"github.com/ryanm101/librelauncher/internal/launch"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/match"
	"github.com/ryanm101/librelauncher/internal/shortcut"
	"github.com/ryanm101/librelauncher/internal/steam"
	"github.com/ryanm101/librelauncher/internal/store"
)

// Deps overrides the collaborators New would otherwise build from the
// configuration.
type Deps struct {
	Store     store.Store
	Source    enrich.Source
	Catalog   catalog.Fetcher
	Extractor icon.Extractor
	Shortcuts shortcut.Resolver
	Starter   launch.Starter
}

// App is the launcher core. Its methods are safe for concurrent use; network
// work always happens in background units.
type App struct {
	cfg       *config.Config
	registry  *game.Registry
	gate      *store.Gate
	catalog   *catalog.Service
	coord     *enrich.Coordinator
	launcher  *launch.Launcher
	shortcuts shortcut.Resolver
}

// New loads the registry and the catalog snapshot and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	st := deps.Store
	if st == nil {
		path := cfg.RegistryPath()
		if cfg.Store.Driver == "sqlite" {
			path = cfg.StorePath()
		}
		var err error
		if st, err = store.Open(cfg.Store.Driver, path); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	if deps.Source == nil || deps.Catalog == nil {
		client := steam.New(nil, steam.Options{
			CatalogURL:     cfg.Steam.CatalogURL,
			StoreURL:       cfg.Steam.StoreURL,
			APIURL:         cfg.Steam.APIURL,
			CDNURL:         cfg.Steam.CDNURL,
			Language:       steam.Language(cfg.Steam.Locale),
			UserAgent:      cfg.Steam.UserAgent,
			CatalogTimeout: cfg.Steam.CatalogTimeout,
			RequestTimeout: cfg.Steam.RequestTimeout,
		})
		if deps.Source == nil {
			deps.Source = client
		}
		if deps.Catalog == nil {
			deps.Catalog = client
		}
	}
	if deps.Shortcuts == nil {
		deps.Shortcuts = shortcut.LinkResolver{}
	}

	gate := store.NewGate(st)
	registry := game.NewRegistry(gate.Load(ctx))
	cat := catalog.NewService(cfg.CatalogPath(), deps.Catalog)
	cat.Load()

	coord := enrich.New(enrich.Options{
		Registry:  registry,
		Catalog:   cat,
		Matcher:   &match.Matcher{Cutoff: cfg.GetMatchCutoff()},
		Fetcher:   enrich.NewFetcher(deps.Source, cfg.BannersPath()),
		Icons:     icon.NewResolver(cfg.IconsPath(), deps.Extractor),
		Gate:      gate,
		CacheDirs: []string{cfg.BannersPath(), cfg.IconsPath()},
	})

	logging.Info("library loaded", "games", registry.Len(), "catalog_entries", cat.Index().Len())
	return &App{
		cfg:       cfg,
		registry:  registry,
		gate:      gate,
		catalog:   cat,
		coord:     coord,
		launcher:  launch.New(deps.Starter),
		shortcuts: deps.Shortcuts,
	}, nil
}

// Start makes sure a catalog is available, downloading it in the background
// when no snapshot exists. The returned channel closes once that is settled.
func (a *App) Start(ctx context.Context) <-chan struct{} {
	return a.catalog.Ensure(ctx)
}

// Close stops background units and releases the store.
func (a *App) Close() error {
	a.coord.Close()
	return a.gate.Close()
}

// Events returns enrichment, icon and launch notifications.
func (a *App) Events() <-chan enrich.Event {
	return a.coord.Events()
}

// Registry exposes the owned registry for read access.
func (a *App) Registry() *game.Registry {
	return a.registry
}

// Catalog returns the catalog service.
func (a *App) Catalog() *catalog.Service {
	return a.catalog
}

// Get returns the record stored under key.
func (a *App) Get(key string) (game.Record, error) {
	rec, ok := a.registry.Get(key)
	if !ok {
		return game.Record{}, game.NotFoundError("get game", key)
	}
	return rec, nil
}

// List returns the records sorted by name, filtered by a case-insensitive
// substring of the name.
func (a *App) List(filter string) []game.Record {
	return a.registry.Sorted(filter)
}

// Select returns the record and schedules whatever it is missing: metadata
// and an icon.
func (a *App) Select(key string) (game.Record, error) {
	rec, err := a.Get(key)
	if err != nil {
		return game.Record{}, err
	}
	a.coord.Request(key)
	a.coord.RequestIcon(key)
	return rec, nil
}

// Add registers the executable or shortcut at path. The name is the file
// stem of the executable.
func (a *App) Add(ctx context.Context, path string) (game.Record, error) {
	exe, err := a.resolve(path)
	if err != nil {
		return game.Record{}, err
	}
	rec := game.Record{Name: game.NameFromPath(exe), ExePath: exe}
	if err := a.registry.Add(rec); err != nil {
		return game.Record{}, err
	}
	a.gate.Flush(ctx, a.registry)
	a.coord.RequestIcon(exe)
	logging.Game(exe).Info("game added")
	return rec, nil
}

// AddPaths adds several files, skipping ones already in the library. It
// returns the records added and the errors of files that were rejected.
func (a *App) AddPaths(ctx context.Context, paths []string) ([]game.Record, error) {
	var (
		added []game.Record
		errs  []error
	)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		exe, err := a.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rec := game.Record{Name: game.NameFromPath(exe), ExePath: exe}
		if err := a.registry.Add(rec); err != nil {
			if errors.Is(err, game.ErrDuplicate) {
				logging.Game(exe).Debug("skipping game already in library")
				continue
			}
			errs = append(errs, err)
			continue
		}
		added = append(added, rec)
	}

	if len(added) > 0 {
		a.gate.Flush(ctx, a.registry)
		for _, rec := range added {
			a.coord.RequestIcon(rec.ExePath)
		}
	}
	return added, errors.Join(errs...)
}

// Changes is a user edit. Nil fields are left alone.
type Changes struct {
	Name        *string
	Path        *string
	Description *string
}

// Edit applies user changes to the record at key. A new path may be a
// shortcut, which is resolved first. It returns the updated record.
func (a *App) Edit(ctx context.Context, key string, ch Changes) (game.Record, error) {
	var newPath string
	if ch.Path != nil && strings.TrimSpace(*ch.Path) != "" {
		exe, err := a.resolve(strings.TrimSpace(*ch.Path))
		if err != nil {
			return game.Record{}, err
		}
		newPath = exe
	}

	rec, err := a.registry.Update(key, func(r *game.Record) {
		if ch.Name != nil {
			if name := strings.TrimSpace(*ch.Name); name != "" {
				r.Name = name
			}
		}
		if newPath != "" {
			r.ExePath = newPath
		}
		if ch.Description != nil {
			r.Description = *ch.Description
		}
	})
	if err != nil {
		return game.Record{}, err
	}
	a.gate.Flush(ctx, a.registry)
	return rec, nil
}

// ToggleFavorite flips the favorite flag of the record at key.
func (a *App) ToggleFavorite(ctx context.Context, key string) (game.Record, error) {
	rec, err := a.registry.Update(key, func(r *game.Record) { r.Favorite = !r.Favorite })
	if err != nil {
		return game.Record{}, err
	}
	a.gate.Flush(ctx, a.registry)
	return rec, nil
}

// Delete removes the record at key together with its cached icon and
// banner. A unit still running for it finds the record gone and is dropped.
func (a *App) Delete(ctx context.Context, key string) error {
	rec, err := a.registry.Remove(key)
	if err != nil {
		return err
	}
	a.removeCached(rec.IconPath, a.cfg.IconsPath())
	a.removeCached(rec.BannerPath, a.cfg.BannersPath())
	a.gate.Flush(ctx, a.registry)
	logging.Game(key).Info("game deleted")
	return nil
}

// Launch starts the game at key. Last played is set at launch; the play time
// grows once the process exits. A failure is returned and published once.
func (a *App) Launch(ctx context.Context, key string) error {
	if !a.registry.Contains(key) {
		return game.NotFoundError("launch game", key)
	}

	start, err := a.launcher.Launch(key, func(s launch.Session) {
		if _, err := a.registry.RecordSession(key, s.Start, s.End); err != nil {
			logging.Game(key).Debug("session for removed game ignored")
			return
		}
		a.gate.Flush(context.WithoutCancel(ctx), a.registry)
		a.coord.Publish(enrich.Event{Kind: enrich.EventPlayed, Key: key, Err: s.Err})
	})
	if err != nil {
		logging.Game(key).Warn("failed to launch game", "error", err)
		a.coord.Publish(enrich.Event{Kind: enrich.EventLaunchFailed, Key: key, Err: err})
		return err
	}

	if _, err := a.registry.Update(key, func(r *game.Record) { r.LastPlayed = &start }); err == nil {
		a.gate.Flush(ctx, a.registry)
	}
	return nil
}

// Running reports whether the game at key is running.
func (a *App) Running(key string) bool {
	return a.launcher.Running(key)
}

// WaitGames blocks until every launched game has exited.
func (a *App) WaitGames() {
	a.launcher.Wait()
}

// Enrich requests enrichment of one record.
func (a *App) Enrich(key string) (bool, error) {
	if !a.registry.Contains(key) {
		return false, game.NotFoundError("enrich game", key)
	}
	return a.coord.Request(key), nil
}

// EnrichAll requests enrichment of every record and returns how many units
// were dispatched.
func (a *App) EnrichAll() int {
	return a.coord.RequestAll()
}

// Wait blocks until all background units have finished.
func (a *App) Wait() {
	a.coord.Wait()
}

// RefreshCatalog downloads the catalog, at most once per process.
func (a *App) RefreshCatalog(ctx context.Context, progress io.Writer) (int, error) {
	idx, err := a.catalog.Refresh(ctx, progress)
	return idx.Len(), err
}

// resolve validates a picked file and returns the executable it names.
func (a *App) resolve(path string) (string, error) {
	if !shortcut.Supported(path) {
		return "", &game.RecordError{Op: "add game", Key: path, Err: fmt.Errorf("%w: only .exe and .lnk files", game.ErrInvalidArg)}
	}
	if !shortcut.IsShortcut(path) {
		return path, nil
	}

	target, err := a.shortcuts.Resolve(path)
	if err != nil {
		return "", &game.RecordError{Op: "resolve shortcut", Key: path, Err: err}
	}
	if !strings.EqualFold(filepath.Ext(target), ".exe") {
		return "", &game.RecordError{Op: "resolve shortcut", Key: path, Err: fmt.Errorf("%w: target %s is not an executable", game.ErrInvalidArg, target)}
	}
	if _, err := os.Stat(target); err != nil {
		return "", &game.RecordError{Op: "resolve shortcut", Key: path, Err: err}
	}
	return target, nil
}

// removeCached deletes path if it lies inside dir.
func (a *App) removeCached(path, dir string) {
	if path == "" {
		return
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove cached file", "path", path, "error", err)
	}
}
