// Package store persists small JSON snapshots (edit state, UI layout) under a
// per-site directory. Reads are best-effort: a missing or unreadable value is
// reported as absent, never as a fatal error, so the editor keeps working
// memory-only when the disk misbehaves.
package store

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/peterbourgon/diskv/v3"
)

// Store wraps a diskv keyspace rooted at one site's state directory.
type Store struct {
	d   *diskv.Diskv
	dir string
	log *slog.Logger
}

// Open returns a Store rooted at dir. The directory is created lazily by
// diskv on first write. A nil logger discards.
func Open(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		dir: dir,
		log: log,
	}
}

// Dir returns the base directory backing this store.
func (s *Store) Dir() string { return s.dir }

// Get returns the raw value for key, or ok=false if absent or unreadable.
func (s *Store) Get(key string) ([]byte, bool) {
	data, err := s.d.Read(key)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

// Set writes the raw value for key.
func (s *Store) Set(key string, data []byte) error {
	return s.d.Write(key, data)
}

// Clear removes key. Clearing an absent key is not an error.
func (s *Store) Clear(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	return s.d.Erase(key)
}

// Has reports whether key exists.
func (s *Store) Has(key string) bool { return s.d.Has(key) }

// GetJSON unmarshals the value for key into v. Absent or corrupt values are
// treated as missing; corruption is logged.
func (s *Store) GetJSON(key string, v any) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("state snapshot corrupt, ignoring", "key", key, "err", err)
		return false
	}
	return true
}

// SetJSON marshals v and writes it under key.
func (s *Store) SetJSON(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.d.Write(key, data)
}
