package counter

import (
	"sync"

	"github.com/cvyl/cloudflare-websocket-livecount/metrics"
)

// Persister stores room counts out of process, best effort. Put must not
// block and must never surface an error to the counting path.
type Persister interface {
	Put(room string, count int)
}

// Store holds the live visitor count per room plus the process-wide
// total. Counts never go negative, and a room entry is dropped as soon
// as it empties, so the rooms map only ever lists occupied rooms. The
// total always equals the sum of the per-room counts.
type Store struct {
	mu      sync.Mutex
	counts  map[string]int
	total   int
	persist Persister // nil disables persistence
}

func New(persist Persister) *Store {
	return &Store{counts: make(map[string]int), persist: persist}
}

// Increment adds one visitor to room and returns the new room count.
func (s *Store) Increment(room string) int {
	s.mu.Lock()
	n := s.counts[room] + 1
	s.counts[room] = n
	s.total++
	total := s.total
	s.mu.Unlock()

	metrics.RoomOccupancy.WithLabelValues(room).Set(float64(n))
	metrics.TotalVisitors.Set(float64(total))
	if s.persist != nil {
		s.persist.Put(room, n)
	}
	return n
}

// Decrement removes one visitor from room, clamped at zero, and returns
// the new room count. A room that reaches zero is deleted rather than
// stored as zero.
func (s *Store) Decrement(room string) int {
	s.mu.Lock()
	n := s.counts[room] - 1
	if n <= 0 {
		n = 0
		delete(s.counts, room)
	} else {
		s.counts[room] = n
	}
	if s.total > 0 {
		s.total--
	}
	total := s.total
	s.mu.Unlock()

	if n == 0 {
		metrics.RoomOccupancy.DeleteLabelValues(room)
	} else {
		metrics.RoomOccupancy.WithLabelValues(room).Set(float64(n))
	}
	metrics.TotalVisitors.Set(float64(total))
	if s.persist != nil {
		s.persist.Put(room, n)
	}
	return n
}

// Snapshot returns a copy of the per-room counts and the visitor total.
func (s *Store) Snapshot() (map[string]int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make(map[string]int, len(s.counts))
	for room, n := range s.counts {
		rooms[room] = n
	}
	return rooms, s.total
}
