// Package game holds the game record model and the owned registry of records.
package game

import (
	"encoding/json"
	"math"
	"os"
	"time"
)

// Attribute names a piece of metadata filled in by enrichment.
type Attribute string

const (
	AttrReviews      Attribute = "reviews"
	AttrBanner       Attribute = "banner"
	AttrDescription  Attribute = "description"
	AttrRequirements Attribute = "requirements"
)

// Attributes lists every enrichable attribute.
var Attributes = []Attribute{AttrReviews, AttrBanner, AttrDescription, AttrRequirements}

// FieldStatus records whether an attribute was fetched.
type FieldStatus string

const (
	StatusUnset   FieldStatus = "unset"
	StatusFetched FieldStatus = "fetched"
	StatusFailed  FieldStatus = "failed"
)

// Record is a locally installed game. ExePath is its identity key.
type Record struct {
	Name               string
	ExePath            string
	IconPath           string
	BannerPath         string
	Description        string
	PlayTime           time.Duration
	LastPlayed         *time.Time
	Favorite           bool
	ReviewSummary      *string
	ReviewPercentage   *int
	SystemRequirements *string
	Status             map[Attribute]FieldStatus
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.LastPlayed != nil {
		t := *r.LastPlayed
		c.LastPlayed = &t
	}
	if r.ReviewSummary != nil {
		s := *r.ReviewSummary
		c.ReviewSummary = &s
	}
	if r.ReviewPercentage != nil {
		p := *r.ReviewPercentage
		c.ReviewPercentage = &p
	}
	if r.SystemRequirements != nil {
		s := *r.SystemRequirements
		c.SystemRequirements = &s
	}
	if r.Status != nil {
		c.Status = make(map[Attribute]FieldStatus, len(r.Status))
		for k, v := range r.Status {
			c.Status[k] = v
		}
	}
	return c
}

// StatusOf returns the fetch status of an attribute.
func (r Record) StatusOf(attr Attribute) FieldStatus {
	if s, ok := r.Status[attr]; ok {
		return s
	}
	return StatusUnset
}

// SetStatus sets the fetch status of an attribute.
func (r *Record) SetStatus(attr Attribute, s FieldStatus) {
	if r.Status == nil {
		r.Status = make(map[Attribute]FieldStatus, len(Attributes))
	}
	r.Status[attr] = s
}

// Has reports whether the attribute already carries a value. Values entered
// by the user count as present even if they were never fetched.
func (r Record) Has(attr Attribute) bool {
	if r.StatusOf(attr) == StatusFetched && attr != AttrBanner {
		return true
	}
	switch attr {
	case AttrReviews:
		return r.ReviewSummary != nil
	case AttrBanner:
		if r.BannerPath == "" {
			return false
		}
		_, err := os.Stat(r.BannerPath)
		return err == nil
	case AttrDescription:
		return r.Description != ""
	case AttrRequirements:
		return r.SystemRequirements != nil && *r.SystemRequirements != ""
	}
	return false
}

// Needs reports whether enrichment should still try to fetch the attribute.
// An attribute that failed in this session is not retried.
func (r Record) Needs(attr Attribute) bool {
	return !r.Has(attr) && r.StatusOf(attr) != StatusFailed
}

// NeedsEnrichment reports whether displaying the record should trigger an
// enrichment task. The banner alone never triggers one.
func (r Record) NeedsEnrichment() bool {
	return r.Needs(AttrDescription) || r.Needs(AttrRequirements) || r.Needs(AttrReviews)
}

// clearFailures resets failed statuses so a new session retries them once.
func (r *Record) clearFailures() {
	for k, v := range r.Status {
		if v == StatusFailed {
			r.Status[k] = StatusUnset
		}
	}
}

// recordJSON is the on-disk layout of a record.
type recordJSON struct {
	Name               string                    `json:"name"`
	ExePath            string                    `json:"exe_path"`
	IconPath           *string                   `json:"icon_path"`
	BannerPath         *string                   `json:"banner_path"`
	Description        string                    `json:"description"`
	PlayTime           float64                   `json:"play_time"`
	LastPlayed         *float64                  `json:"last_played"`
	IsFavorite         bool                      `json:"is_favorite"`
	ReviewSummary      *string                   `json:"review_summary"`
	ReviewPercentage   *int                      `json:"review_percentage"`
	SystemRequirements *string                   `json:"system_requirements"`
	FetchStatus        map[Attribute]FieldStatus `json:"fetch_status,omitempty"`
}

// MarshalJSON writes play time and last played as float seconds.
func (r Record) MarshalJSON() ([]byte, error) {
	w := recordJSON{
		Name:               r.Name,
		ExePath:            r.ExePath,
		IconPath:           optionalString(r.IconPath),
		BannerPath:         optionalString(r.BannerPath),
		Description:        r.Description,
		PlayTime:           DurationSeconds(r.PlayTime),
		IsFavorite:         r.Favorite,
		ReviewSummary:      r.ReviewSummary,
		ReviewPercentage:   r.ReviewPercentage,
		SystemRequirements: r.SystemRequirements,
		FetchStatus:        r.Status,
	}
	if r.LastPlayed != nil {
		s := UnixSeconds(*r.LastPlayed)
		w.LastPlayed = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the layout written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		Name:               w.Name,
		ExePath:            w.ExePath,
		Description:        w.Description,
		PlayTime:           SecondsDuration(w.PlayTime),
		Favorite:           w.IsFavorite,
		ReviewSummary:      w.ReviewSummary,
		ReviewPercentage:   w.ReviewPercentage,
		SystemRequirements: w.SystemRequirements,
		Status:             w.FetchStatus,
	}
	if w.IconPath != nil {
		r.IconPath = *w.IconPath
	}
	if w.BannerPath != nil {
		r.BannerPath = *w.BannerPath
	}
	if w.LastPlayed != nil {
		t := SecondsTime(*w.LastPlayed)
		r.LastPlayed = &t
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DurationSeconds converts d to seconds at microsecond precision.
func DurationSeconds(d time.Duration) float64 {
	return float64(d/time.Microsecond) / 1e6
}

// SecondsDuration is the inverse of DurationSeconds.
func SecondsDuration(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

// UnixSeconds converts t to unix seconds at microsecond precision.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// SecondsTime is the inverse of UnixSeconds.
func SecondsTime(s float64) time.Time {
	return time.UnixMicro(int64(math.Round(s * 1e6)))
}
