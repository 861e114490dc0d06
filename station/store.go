package station

import "sync"

// Store holds the most recent Reading for concurrent consumers. The
// controller goroutine writes; the HTTP API, MQTT publisher and UI read.
type Store struct {
	mu      sync.Mutex
	latest  Reading
	hasData bool
}

func NewStore() *Store {
	return &Store{}
}

// Update replaces the latest reading.
func (s *Store) Update(r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = r
	s.hasData = true
}

// Latest returns the most recent reading; ok is false until the first Update.
func (s *Store) Latest() (Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasData
}
