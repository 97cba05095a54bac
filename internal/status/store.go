// internal/status/store.go
package status

import (
	"sync"

	"github.com/tamzrod/obd-monitor/internal/obd"
)

// Store holds the latest published telemetry snapshot.
//
// There is exactly one writer (the acquisition poller) and any number of
// readers. The lock is held only for the duration of a value copy, so
// readers never wait on bus latency.
type Store struct {
	mu   sync.RWMutex
	snap obd.Snapshot
	seq  uint64
}

// NewStore returns a store holding a zero snapshot.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the whole snapshot.
func (s *Store) Publish(snap obd.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.seq++
	s.mu.Unlock()
}

// Latest returns a copy of the most recently published snapshot.
func (s *Store) Latest() obd.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

// Load returns the latest snapshot together with its publish sequence.
// The sequence is 0 until the first Publish.
func (s *Store) Load() (obd.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap, s.seq
}
