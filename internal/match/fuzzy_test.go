package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ryanm101/librelauncher/internal/catalog"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abcd", "bcde", 0.75},
		{"hello world", "hello", 10.0 / 16.0},
		{"apple", "appel", 0.8},
		{"ape", "appel", 0.75},
		{"peach", "appel", 0.4},
		{"Portal 2", "Portal", 12.0 / 14.0},
		{"abc", "", 0},
	}

	for _, tc := range tests {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Ratio(tc.a, tc.b), 1e-9)
		})
	}
}

func TestRatio_CaseSensitive(t *testing.T) {
	assert.InDelta(t, 18.0/22.0, Ratio("Half-Life 2", "half-life 2"), 1e-9)
}

func TestRatio_LongQueryPopularRunes(t *testing.T) {
	long := strings.Repeat("a", 250)
	assert.InDelta(t, 1.0, Ratio(long, long), 1e-9)
}

func TestRatio_Unicode(t *testing.T) {
	assert.InDelta(t, 1.0, Ratio("Ведьмак 3", "Ведьмак 3"), 1e-9)
	assert.InDelta(t, 14.0/16.0, Ratio("Ведьмак 3", "Ведьмак"), 1e-9)
}

func TestMatcher_ExactTitle(t *testing.T) {
	idx := catalog.NewIndex([]catalog.Entry{
		{AppID: 70, Name: "Half-Life"},
		{AppID: 220, Name: "Half-Life 2"},
		{AppID: 380, Name: "Half-Life 2: Episode One"},
	})

	res := NewMatcher().Match("Half-Life 2", idx)

	assert.True(t, res.OK)
	assert.Equal(t, 220, res.AppID)
	assert.Equal(t, 1.0, res.Score)
}

func TestMatcher_NoMatch(t *testing.T) {
	idx := catalog.NewIndex([]catalog.Entry{
		{AppID: 220, Name: "Half-Life 2"},
		{AppID: 400, Name: "Portal"},
	})

	res := NewMatcher().Match("completely unrelated xyz", idx)
	assert.False(t, res.OK)
	assert.Zero(t, res.AppID)
}

func TestMatcher_EmptyIndex(t *testing.T) {
	assert.False(t, NewMatcher().Match("Portal", catalog.NewIndex(nil)).OK)
	assert.False(t, NewMatcher().Match("Portal", nil).OK)
}

func TestMatcher_TieGoesToFirstEntry(t *testing.T) {
	idx := catalog.NewIndex([]catalog.Entry{
		{AppID: 10, Name: "Doom X"},
		{AppID: 20, Name: "Doom Y"},
		{AppID: 30, Name: "Doom X"},
	})

	res := NewMatcher().Match("Doom Z", idx)
	assert.True(t, res.OK)
	assert.Equal(t, 10, res.AppID)
}

func TestMatcher_BestScoreWins(t *testing.T) {
	idx := catalog.NewIndex([]catalog.Entry{
		{AppID: 1, Name: "ape"},
		{AppID: 2, Name: "apple"},
		{AppID: 3, Name: "peach"},
	})

	res := NewMatcher().Match("appel", idx)
	assert.Equal(t, 2, res.AppID)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
}

func TestMatcher_CutoffIsInclusive(t *testing.T) {
	idx := catalog.NewIndex([]catalog.Entry{{AppID: 1, Name: "ape"}})

	m := &Matcher{Cutoff: 0.75}
	assert.True(t, m.Match("appel", idx).OK)

	m.Cutoff = 0.76
	assert.False(t, m.Match("appel", idx).OK)
}
