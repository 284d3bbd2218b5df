package cache

import (
	"sync"
	"time"
)

type slot struct {
	version string
	v       any
	exp     time.Time
}

// versionedStore holds at most one parsed value per source. A lookup only hits
// when the stored version matches, so a newer file version replaces the old
// entry instead of accumulating next to it.
type versionedStore struct {
	mu    sync.Mutex
	slots map[string]slot
}

func newVersionedStore() *versionedStore {
	return &versionedStore{slots: make(map[string]slot)}
}

func (s *versionedStore) get(source, version string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[source]
	if !ok || sl.version != version {
		return nil, false
	}
	if !sl.exp.IsZero() && time.Now().After(sl.exp) {
		delete(s.slots, source)
		return nil, false
	}
	return sl.v, true
}

// put stores v for source; ttl <= 0 keeps it until the version changes.
func (s *versionedStore) put(source, version string, v any, ttl time.Duration) {
	sl := slot{version: version, v: v}
	if ttl > 0 {
		sl.exp = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.slots[source] = sl
	s.mu.Unlock()
}

func (s *versionedStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
