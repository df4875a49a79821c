package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DropsDuplicatesAndClearsFailures(t *testing.T) {
	failed := Record{Name: "A", ExePath: "/a.exe"}
	failed.SetStatus(AttrReviews, StatusFailed)
	failed.SetStatus(AttrDescription, StatusFetched)

	reg := NewRegistry([]Record{
		failed,
		{Name: "A again", ExePath: "/a.exe"},
		{Name: "no path"},
		{Name: "B", ExePath: "/b.exe"},
	})

	require.Equal(t, 2, reg.Len())
	a, ok := reg.Get("/a.exe")
	require.True(t, ok)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, StatusUnset, a.StatusOf(AttrReviews))
	assert.Equal(t, StatusFetched, a.StatusOf(AttrDescription))
}

func TestRegistry_AddRejectsDuplicate(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Add(Record{Name: "A", ExePath: "/a.exe"}))

	err := reg.Add(Record{Name: "A2", ExePath: "/a.exe"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	err = reg.Add(Record{Name: "nothing"})
	assert.True(t, errors.Is(err, ErrInvalidArg))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewRegistry([]Record{{Name: "A", ExePath: "/a.exe"}})

	rec, _ := reg.Get("/a.exe")
	rec.Name = "changed"

	again, _ := reg.Get("/a.exe")
	assert.Equal(t, "A", again.Name)
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry([]Record{{Name: "A", ExePath: "/a.exe"}, {Name: "B", ExePath: "/b.exe"}})

	removed, err := reg.Remove("/a.exe")
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Name)
	assert.False(t, reg.Contains("/a.exe"))

	_, err = reg.Remove("/a.exe")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_UpdateIdentityCollision(t *testing.T) {
	reg := NewRegistry([]Record{{Name: "A", ExePath: "/a.exe"}, {Name: "B", ExePath: "/b.exe"}})

	_, err := reg.Update("/a.exe", func(r *Record) { r.ExePath = "/b.exe" })
	assert.True(t, errors.Is(err, ErrDuplicate))

	updated, err := reg.Update("/a.exe", func(r *Record) { r.ExePath = "/c.exe" })
	require.NoError(t, err)
	assert.Equal(t, "/c.exe", updated.ExePath)
	assert.True(t, reg.Contains("/c.exe"))
	assert.False(t, reg.Contains("/a.exe"))
}

func TestRegistry_Sorted(t *testing.T) {
	reg := NewRegistry([]Record{
		{Name: "portal", ExePath: "/p.exe"},
		{Name: "Half-Life", ExePath: "/h.exe"},
		{Name: "Portal 2", ExePath: "/p2.exe"},
	})

	names := func(recs []Record) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Name
		}
		return out
	}

	assert.Equal(t, []string{"Half-Life", "portal", "Portal 2"}, names(reg.Sorted("")))
	assert.Equal(t, []string{"portal", "Portal 2"}, names(reg.Sorted("PORT")))
}

func TestRegistry_RecordSession(t *testing.T) {
	reg := NewRegistry([]Record{{Name: "A", ExePath: "/a.exe", PlayTime: time.Minute}})
	start := time.Unix(1000, 0)

	rec, err := reg.RecordSession("/a.exe", start, start.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, rec.PlayTime)

	rec, err = reg.RecordSession("/a.exe", start, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, rec.PlayTime, "negative spans never reduce play time")
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	reg := NewRegistry([]Record{{Name: "A", ExePath: "/a.exe"}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Update("/a.exe", func(r *Record) { r.PlayTime += time.Second })
		}()
	}
	wg.Wait()

	rec, _ := reg.Get("/a.exe")
	assert.Equal(t, 50*time.Second, rec.PlayTime)
}
