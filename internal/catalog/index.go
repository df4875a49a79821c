// Package catalog holds the in-memory snapshot of the remote game catalog
// and its on-disk cache.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is one title of the remote catalog.
type Entry struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// Index is an immutable, ordered set of catalog entries.
type Index struct {
	entries []Entry
}

// NewIndex builds an index from entries, keeping their order.
func NewIndex(entries []Entry) *Index {
	c := make([]Entry, len(entries))
	copy(c, entries)
	return &Index{entries: c}
}

// Len returns the number of entries. A nil index is empty.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Entries returns the entries in catalog order. The slice must not be modified.
func (i *Index) Entries() []Entry {
	if i == nil {
		return nil
	}
	return i.entries
}

// LoadFile reads a snapshot written by SaveFile. A missing or unreadable
// file yields an empty index together with the error.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path from configuration
	if err != nil {
		return NewIndex(nil), err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return NewIndex(nil), fmt.Errorf("parse catalog snapshot %s: %w", path, err)
	}
	return &Index{entries: entries}, nil
}

// SaveFile writes the index as an indented JSON array, replacing any
// previous snapshot.
func SaveFile(path string, idx *Index) error {
	entries := idx.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // Standard dir permissions
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
