// Package localstore is the console's durable local state: one JSON file
// per key under a state directory. It mirrors the semantics the app
// needs from browser local storage — corrupt or unreadable entries read
// as absent, never as errors.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Get decodes the value stored under key into out and reports whether a
// usable value existed. Corrupt JSON reads as absent.
func (s *Store) Get(key string, out any) bool {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// Set writes the value under key atomically (temp file + rename), so a
// crash mid-write never leaves a truncated entry behind.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *Store) Delete(key string) {
	_ = os.Remove(s.path(key))
}

// Has reports whether any entry exists under key, readable or not.
func (s *Store) Has(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

func (s *Store) path(key string) string {
	// Keys are dotted namespaces ("sharecycle.activeTrip.<riderId>");
	// keep them readable on disk while staying filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(s.dir, safe+".json")
}
