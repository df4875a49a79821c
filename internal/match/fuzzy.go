// Package match resolves local game titles to catalog entries.
package match

import (
	"github.com/ryanm101/librelauncher/internal/catalog"
)

// DefaultCutoff is the minimum similarity for a candidate to count.
const DefaultCutoff = 0.6

// Matcher provides fuzzy matching of titles against a catalog index.
type Matcher struct {
	Cutoff float64 // Minimum similarity ratio in [0, 1] (default: 0.6)
}

// NewMatcher creates a new matcher with the default cutoff.
func NewMatcher() *Matcher {
	return &Matcher{Cutoff: DefaultCutoff}
}

// Result is the outcome of a match. OK is false when nothing matched.
type Result struct {
	AppID int
	Name  string
	Score float64
	OK    bool
}

// Match returns the catalog entry most similar to name. Names are compared
// as-is, without case folding. Entries scoring below the cutoff are ignored;
// among equal scores the entry listed first in the catalog wins.
func (m *Matcher) Match(name string, idx *catalog.Index) Result {
	var best Result
	entries := idx.Entries()
	if len(entries) == 0 {
		return best
	}

	cutoff := m.Cutoff
	sm := newSequenceMatcher(name)
	for _, e := range entries {
		a := []rune(e.Name)
		if sm.realQuickRatio(a) < cutoff || sm.quickRatio(a) < cutoff {
			continue
		}
		score := sm.ratio(a)
		if score < cutoff {
			continue
		}
		if !best.OK || score > best.Score {
			best = Result{AppID: e.AppID, Name: e.Name, Score: score, OK: true}
		}
	}
	return best
}
