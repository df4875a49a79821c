// Package enrich fills game records with catalog metadata in the background.
package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/metrics"
	"github.com/ryanm101/librelauncher/internal/steam"
	"github.com/ryanm101/librelauncher/internal/tracing"
)

// Source is the remote side of the fetcher. *steam.Client implements it.
type Source interface {
	FetchReviews(ctx context.Context, appID int) (steam.Reviews, error)
	FetchBanner(ctx context.Context, appID int) ([]byte, error)
	FetchDetails(ctx context.Context, appID int) (steam.Details, error)
}

// Outcome carries the results of one enrichment unit. Only attributes listed
// in Status were attempted; values are meaningful for fetched ones.
type Outcome struct {
	AppID        int
	Reviews      steam.Reviews
	BannerPath   string
	Description  string
	Requirements string
	Status       map[game.Attribute]game.FieldStatus
}

// Apply merges the outcome into rec. Attributes that were not attempted are
// left untouched, and a failed banner keeps the previous one. Attributes rec
// no longer needs, such as a description the user typed while the fetch ran,
// keep their current value and status.
func (o Outcome) Apply(rec *game.Record) {
	for attr, status := range o.Status {
		if !rec.Needs(attr) {
			continue
		}
		rec.SetStatus(attr, status)
		if status != game.StatusFetched {
			continue
		}
		switch attr {
		case game.AttrReviews:
			summary := o.Reviews.Summary
			rec.ReviewSummary = &summary
			rec.ReviewPercentage = nil
			if o.Reviews.Percentage != nil {
				p := *o.Reviews.Percentage
				rec.ReviewPercentage = &p
			}
		case game.AttrBanner:
			rec.BannerPath = o.BannerPath
		case game.AttrDescription:
			rec.Description = o.Description
		case game.AttrRequirements:
			reqs := o.Requirements
			rec.SystemRequirements = &reqs
		}
	}
}

// Failed returns an outcome that marks every attribute rec still needs as
// failed.
func Failed(rec game.Record) Outcome {
	o := Outcome{Status: make(map[game.Attribute]game.FieldStatus)}
	for _, attr := range game.Attributes {
		if rec.Needs(attr) {
			o.Status[attr] = game.StatusFailed
		}
	}
	return o
}

// Fetcher retrieves the missing attributes of one record.
type Fetcher struct {
	source     Source
	bannersDir string
}

// NewFetcher creates a fetcher that stores banners below bannersDir.
func NewFetcher(src Source, bannersDir string) *Fetcher {
	return &Fetcher{source: src, bannersDir: bannersDir}
}

// Fetch runs the sub-fetches needed by snapshot concurrently. Every failure is
// contained in the outcome; Fetch itself never fails. Reviews and the banner
// use one request each, description and requirements share one.
func (f *Fetcher) Fetch(ctx context.Context, appID int, snapshot game.Record) Outcome {
	ctx, span := tracing.StartFetch(ctx, "enrich.fetch", appID)
	defer span.End()

	var (
		reviews       steam.Reviews
		reviewsStatus game.FieldStatus
		bannerPath    string
		bannerStatus  game.FieldStatus
		details       steam.Details
		detailsErr    error
	)
	needDesc := snapshot.Needs(game.AttrDescription)
	needReqs := snapshot.Needs(game.AttrRequirements)

	var g errgroup.Group
	if snapshot.Needs(game.AttrReviews) {
		g.Go(func() error {
			var err error
			reviews, err = f.fetchReviews(ctx, appID)
			reviewsStatus = statusFor(game.AttrReviews, appID, err)
			return nil
		})
	}
	if snapshot.Needs(game.AttrBanner) {
		g.Go(func() error {
			var err error
			bannerPath, err = f.fetchBanner(ctx, appID, snapshot.Name)
			bannerStatus = statusFor(game.AttrBanner, appID, err)
			return nil
		})
	}
	if needDesc || needReqs {
		g.Go(func() error {
			details, detailsErr = f.fetchDetails(ctx, appID)
			return nil
		})
	}
	_ = g.Wait()

	o := Outcome{AppID: appID, Status: make(map[game.Attribute]game.FieldStatus)}
	if reviewsStatus != "" {
		o.Status[game.AttrReviews] = reviewsStatus
		o.Reviews = reviews
	}
	if bannerStatus != "" {
		o.Status[game.AttrBanner] = bannerStatus
		o.BannerPath = bannerPath
	}
	if needDesc {
		o.Status[game.AttrDescription] = statusFor(game.AttrDescription, appID, detailsErr)
		o.Description = details.Description
	}
	if needReqs {
		err := detailsErr
		if err == nil && !details.HasRequirements {
			err = fmt.Errorf("%w: pc_requirements is not an object", steam.ErrShape)
		}
		o.Status[game.AttrRequirements] = statusFor(game.AttrRequirements, appID, err)
		o.Requirements = details.Requirements
	}
	return o
}

func (f *Fetcher) fetchReviews(ctx context.Context, appID int) (steam.Reviews, error) {
	ctx, span := tracing.StartFetch(ctx, "enrich.reviews", appID)
	r, err := f.source.FetchReviews(ctx, appID)
	tracing.End(span, err)
	return r, err
}

func (f *Fetcher) fetchDetails(ctx context.Context, appID int) (steam.Details, error) {
	ctx, span := tracing.StartFetch(ctx, "enrich.details", appID)
	d, err := f.source.FetchDetails(ctx, appID)
	tracing.End(span, err)
	return d, err
}

// fetchBanner downloads the banner and stores it under a name derived from
// the game name, replacing any previous file.
func (f *Fetcher) fetchBanner(ctx context.Context, appID int, name string) (path string, err error) {
	ctx, span := tracing.StartFetch(ctx, "enrich.banner", appID)
	defer func() { tracing.End(span, err) }()

	data, err := f.source.FetchBanner(ctx, appID)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(f.bannersDir, game.SafeName(name)+".jpg")
	if err := writeFileAtomic(dest, data); err != nil {
		return "", fmt.Errorf("save banner: %w", err)
	}
	return dest, nil
}

func statusFor(attr game.Attribute, appID int, err error) game.FieldStatus {
	if err != nil {
		logging.Warn("sub-fetch failed", "attribute", attr, "app_id", appID, "error", err)
		metrics.SubFetches.WithLabelValues(string(attr), string(game.StatusFailed)).Inc()
		return game.StatusFailed
	}
	metrics.SubFetches.WithLabelValues(string(attr), string(game.StatusFetched)).Inc()
	return game.StatusFetched
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // Standard dir permissions
		return err
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil { //nolint:gosec // Cached media is not secret
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
