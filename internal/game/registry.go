package game

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the ordered collection of game records. All mutations go
// through its methods, which are serialized by a single lock; callers only
// ever receive copies.
type Registry struct {
	mu      sync.RWMutex
	records []*Record
}

// NewRegistry builds a registry from loaded records. Records with an empty
// or repeated executable path are dropped (first occurrence wins), and
// failures recorded by an earlier session are cleared.
func NewRegistry(records []Record) *Registry {
	r := &Registry{records: make([]*Record, 0, len(records))}
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.ExePath == "" || seen[rec.ExePath] {
			continue
		}
		seen[rec.ExePath] = true
		c := rec.Clone()
		c.clearFailures()
		r.records = append(r.records, &c)
	}
	return r
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Get returns a copy of the record with the given key.
func (r *Registry) Get(key string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(key); i >= 0 {
		return r.records[i].Clone(), true
	}
	return Record{}, false
}

// Contains reports whether a record with the key exists.
func (r *Registry) Contains(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(key) >= 0
}

// List returns copies of all records in insertion order.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Clone()
	}
	return out
}

// Sorted returns records whose name contains filter (case-insensitive),
// ordered by lower-cased name.
func (r *Registry) Sorted(filter string) []Record {
	filter = strings.ToLower(filter)
	all := r.List()
	out := all[:0]
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.Name), filter) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Add appends a record. The executable path must be set and unique.
func (r *Registry) Add(rec Record) error {
	if rec.ExePath == "" {
		return &RecordError{Op: "add game", Err: ErrInvalidArg}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(rec.ExePath) >= 0 {
		return &RecordError{Op: "add game", Key: rec.ExePath, Err: ErrDuplicate}
	}
	c := rec.Clone()
	r.records = append(r.records, &c)
	return nil
}

// Remove deletes the record and returns what was removed.
func (r *Registry) Remove(key string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(key)
	if i < 0 {
		return Record{}, NotFoundError("remove game", key)
	}
	removed := *r.records[i]
	r.records = append(r.records[:i], r.records[i+1:]...)
	return removed, nil
}

// Update applies fn to a copy of the record and stores the result. If fn
// changes the executable path to one already in use, nothing is stored.
func (r *Registry) Update(key string, fn func(*Record)) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(key)
	if i < 0 {
		return Record{}, NotFoundError("update game", key)
	}
	c := r.records[i].Clone()
	fn(&c)
	if c.ExePath == "" {
		return Record{}, &RecordError{Op: "update game", Key: key, Err: ErrInvalidArg}
	}
	if c.ExePath != key && r.indexOf(c.ExePath) >= 0 {
		return Record{}, &RecordError{Op: "update game", Key: c.ExePath, Err: ErrDuplicate}
	}
	r.records[i] = &c
	return c.Clone(), nil
}

// RecordSession adds the elapsed time between start and end to the play
// time of the record. Negative spans count as zero.
func (r *Registry) RecordSession(key string, start, end time.Time) (Record, error) {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return r.Update(key, func(rec *Record) {
		rec.PlayTime += elapsed.Truncate(time.Microsecond)
	})
}

func (r *Registry) indexOf(key string) int {
	for i, rec := range r.records {
		if rec.ExePath == key {
			return i
		}
	}
	return -1
}
