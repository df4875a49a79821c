package enrich

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryanm101/librelauncher/internal/catalog"
	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/match"
	"github.com/ryanm101/librelauncher/internal/metrics"
	"github.com/ryanm101/librelauncher/internal/store"
	"github.com/ryanm101/librelauncher/internal/tracing"
)

// EventKind identifies what changed.
type EventKind int

const (
	EventDetails EventKind = iota + 1
	EventIcon
	EventLaunchFailed
	EventPlayed
)

func (k EventKind) String() string {
	switch k {
	case EventDetails:
		return "details"
	case EventIcon:
		return "icon"
	case EventLaunchFailed:
		return "launch_failed"
	case EventPlayed:
		return "played"
	default:
		return "unknown"
	}
}

// Event tells observers that the record with Key changed or failed.
type Event struct {
	Kind EventKind
	Key  string
	Err  error
}

// IndexSource provides the current catalog index.
type IndexSource interface {
	Index() *catalog.Index
}

// DetailFetcher retrieves the attributes a record is missing.
type DetailFetcher interface {
	Fetch(ctx context.Context, appID int, snapshot game.Record) Outcome
}

// IconResolver produces a local icon file for a record.
type IconResolver interface {
	Resolve(ctx context.Context, rec game.Record) (string, error)
}

// Flusher persists the registry.
type Flusher interface {
	Flush(ctx context.Context, src store.Snapshotter)
}

// Options wires a coordinator.
type Options struct {
	Registry    *game.Registry
	Catalog     IndexSource
	Matcher     *match.Matcher
	Fetcher     DetailFetcher
	Icons       IconResolver
	Gate        Flusher
	EventBuffer int // default 64

	// CacheDirs holds the directories units write banners and icons to.
	// Files a dropped result left there are removed.
	CacheDirs []string
}

// Coordinator runs enrichment and icon units in the background, at most one
// of each kind per record at a time, and merges their results into the
// registry.
type Coordinator struct {
	registry *game.Registry
	catalog  IndexSource
	matcher  *match.Matcher
	fetcher  DetailFetcher
	icons    IconResolver
	gate     Flusher
	caches   []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	details  map[string]string // key -> task id
	iconing  map[string]string
	events   chan Event
	closed   bool
	released bool
}

// New creates a coordinator.
func New(opts Options) *Coordinator {
	if opts.Matcher == nil {
		opts.Matcher = match.NewMatcher()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry: opts.Registry,
		catalog:  opts.Catalog,
		matcher:  opts.Matcher,
		fetcher:  opts.Fetcher,
		icons:    opts.Icons,
		gate:     opts.Gate,
		caches:   opts.CacheDirs,
		ctx:      ctx,
		cancel:   cancel,
		details:  make(map[string]string),
		iconing:  make(map[string]string),
		events:   make(chan Event, opts.EventBuffer),
	}
}

// Events returns the channel observers read from. Events are dropped when
// the buffer is full. The channel is closed by Close.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Request schedules an enrichment unit for key if the record is missing
// metadata and no unit for it is running. It reports whether a unit was
// dispatched.
func (c *Coordinator) Request(key string) bool {
	rec, ok := c.registry.Get(key)
	if !ok {
		return false
	}
	if !rec.NeedsEnrichment() {
		metrics.EnrichTasks.WithLabelValues("not_needed").Inc()
		return false
	}

	id, ok := c.claim(c.details, key)
	if !ok {
		metrics.EnrichTasks.WithLabelValues("deduped").Inc()
		return false
	}
	metrics.EnrichTasks.WithLabelValues("dispatched").Inc()
	metrics.InFlight.WithLabelValues("details").Inc()
	go c.runDetails(id, key)
	return true
}

// RequestIcon schedules an icon unit for key unless the record already has
// an icon file or a unit is running.
func (c *Coordinator) RequestIcon(key string) bool {
	if c.icons == nil {
		return false
	}
	rec, ok := c.registry.Get(key)
	if !ok {
		return false
	}
	if rec.IconPath != "" {
		if _, err := os.Stat(rec.IconPath); err == nil {
			return false
		}
	}

	id, ok := c.claim(c.iconing, key)
	if !ok {
		return false
	}
	metrics.InFlight.WithLabelValues("icon").Inc()
	go c.runIcon(id, key)
	return true
}

// RequestAll requests enrichment for every record and returns how many
// units were dispatched.
func (c *Coordinator) RequestAll() int {
	n := 0
	for _, rec := range c.registry.List() {
		if c.Request(rec.ExePath) {
			n++
		}
	}
	return n
}

// InFlight reports whether an enrichment unit for key is running.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.details[key]
	return ok
}

// Wait blocks until all dispatched units have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Publish sends an event to observers.
func (c *Coordinator) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	select {
	case c.events <- e:
	default:
		logging.Game(e.Key).Debug("event dropped", logging.KeyKind, e.Kind.String())
	}
}

// Close stops accepting requests, cancels running units and waits for them
// to finish. The events channel is closed afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.released = true
	close(c.events)
	c.mu.Unlock()
}

// claim marks key as in flight in set and returns a new task id.
func (c *Coordinator) claim(set map[string]string, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", false
	}
	if _, busy := set[key]; busy {
		return "", false
	}
	id := uuid.NewString()
	set[key] = id
	c.wg.Add(1)
	return id, true
}

func (c *Coordinator) release(set map[string]string, key string) {
	c.mu.Lock()
	delete(set, key)
	c.mu.Unlock()
	c.wg.Done()
}

func (c *Coordinator) runDetails(id, key string) {
	defer c.release(c.details, key)
	defer metrics.InFlight.WithLabelValues("details").Dec()
	defer metrics.RecordEnrichDuration(time.Now())

	log := logging.Task("details", id, key)
	ctx, span := tracing.StartUnit(c.ctx, "enrich.unit", id, key)
	defer span.End()

	rec, ok := c.registry.Get(key)
	if !ok {
		metrics.EnrichTasks.WithLabelValues("dropped").Inc()
		return
	}

	idx := c.catalog.Index()
	if idx.Len() == 0 {
		log.Debug("catalog empty, skipping enrichment")
		metrics.EnrichTasks.WithLabelValues("no_catalog").Inc()
		return
	}

	var o Outcome
	res := c.matcher.Match(rec.Name, idx)
	if res.OK {
		tracing.Annotate(span, tracing.KeyAppID.Int(res.AppID), tracing.KeyMatchScore.Float64(res.Score))
		log.Debug("matched catalog entry", "app_id", res.AppID, "title", res.Name, "score", res.Score)
		o = c.fetcher.Fetch(ctx, res.AppID, rec)
	} else {
		log.Info("no catalog match", "name", rec.Name)
		metrics.EnrichTasks.WithLabelValues("no_match").Inc()
		o = Failed(rec)
	}

	if len(o.Status) == 0 {
		return
	}
	c.merge(ctx, log, key, o.Apply, EventDetails, o.BannerPath)
}

func (c *Coordinator) runIcon(id, key string) {
	defer c.release(c.iconing, key)
	defer metrics.InFlight.WithLabelValues("icon").Dec()

	log := logging.Task("icon", id, key)
	ctx, span := tracing.StartUnit(c.ctx, "enrich.icon", id, key)
	defer span.End()

	rec, ok := c.registry.Get(key)
	if !ok {
		return
	}
	path, err := c.icons.Resolve(ctx, rec)
	if err != nil {
		tracing.RecordError(span, err)
		log.Warn("icon unavailable", "error", err)
		return
	}
	c.merge(ctx, log, key, func(r *game.Record) { r.IconPath = path }, EventIcon, path)
}

// merge applies a unit's result to the canonical record, persists the
// registry and notifies observers. Results for deleted records are dropped
// along with the file the unit wrote.
func (c *Coordinator) merge(ctx context.Context, log *slog.Logger, key string, apply func(*game.Record), kind EventKind, written string) {
	if _, err := c.registry.Update(key, apply); err != nil {
		if errors.Is(err, game.ErrNotFound) {
			log.Debug("record removed while in flight, dropping result")
			metrics.EnrichTasks.WithLabelValues("dropped").Inc()
			c.discard(log, written)
			return
		}
		log.Warn("merge failed", "error", err)
		return
	}
	if kind == EventDetails {
		metrics.EnrichTasks.WithLabelValues("merged").Inc()
	}
	if c.gate != nil {
		// Close cancels ctx; results that made it this far are still saved.
		c.gate.Flush(context.WithoutCancel(ctx), c.registry)
	}
	c.Publish(Event{Kind: kind, Key: key})
}

// discard removes a cached file written for a dropped result. Files outside
// the cache dirs and files another record still points at are kept.
func (c *Coordinator) discard(log *slog.Logger, path string) {
	if path == "" || !c.cached(path) {
		return
	}
	for _, rec := range c.registry.List() {
		if rec.BannerPath == path || rec.IconPath == path {
			return
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove cached file", logging.KeyPath, path, "error", err)
	}
}

func (c *Coordinator) cached(path string) bool {
	for _, dir := range c.caches {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}
