package config

import "sync"

// Store holds the live settings of a long-running front-end and writes
// every update back to its file.
type Store struct {
	mu   sync.RWMutex
	cur  Settings
	path string
}

// NewStore returns a store seeded with s that persists to path (ConfigPath
// when empty).
func NewStore(s Settings, path string) *Store {
	return &Store{cur: s, path: path}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cur
	out.Env = append([]string(nil), s.cur.Env...)
	return out
}

// Update saves next and makes it current. The current settings are kept
// when the save fails.
func (s *Store) Update(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(next, s.path); err != nil {
		return err
	}
	s.cur = next
	return nil
}
