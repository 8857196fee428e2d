// Package progress keeps a petition's displayed progress in sync with
// the datastore: a shared snapshot store plus a synchronizer that
// refetches the row whenever the realtime channel reports a signature
// change. Counts are never derived from events; every update is a full
// re-read of the authoritative row.
package progress

import (
	"sync"

	"groundswell/api/internal/store"
)

// Store holds at most one petition snapshot. Set replaces the snapshot
// wholesale, so a reader never observes fields from two different row
// versions. There is exactly one writer operation and no field-level
// mutation.
type Store struct {
	mu       sync.Mutex
	current  *store.Petition
	watchers map[int]chan store.Petition
	nextID   int
}

func NewStore() *Store {
	return &Store{watchers: make(map[int]chan store.Petition)}
}

// Get returns the current snapshot. The second result is false until
// the first successful Set.
func (s *Store) Get() (store.Petition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return store.Petition{}, false
	}
	return *s.current, true
}

// Set replaces the snapshot and wakes every watcher. Watchers get
// latest-wins delivery: an undelivered older snapshot is dropped in
// favor of the new one.
func (s *Store) Set(petition store.Petition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := petition
	s.current = &snapshot
	for _, ch := range s.watchers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Watch registers a consumer. The returned channel carries whole
// snapshots; cancel unregisters synchronously and no snapshot is
// delivered after it returns.
func (s *Store) Watch() (<-chan store.Petition, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan store.Petition, 1)
	s.watchers[id] = ch
	if s.current != nil {
		ch <- *s.current
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
	return ch, cancel
}
