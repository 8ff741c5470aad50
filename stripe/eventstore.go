package stripe

import (
	"sync"
	"time"
)

const defaultEventTTL = 24 * time.Hour

// EventStore tracks already processed webhook events so redeliveries are
// acknowledged without running fulfillment twice.
type EventStore interface {
	EventExists(eventID string) bool
	MarkProcessed(eventID string)
}

// MemoryEventStore is an in-memory EventStore with TTL based expiry. Entries
// older than the TTL are purged on write, so the map stays bounded without a
// background goroutine.
type MemoryEventStore struct {
	mtx    sync.Mutex
	events map[string]time.Time
	ttl    time.Duration
}

// NewMemoryEventStore creates a MemoryEventStore. A non-positive ttl falls
// back to the default of 24 hours.
func NewMemoryEventStore(ttl time.Duration) *MemoryEventStore {
	if ttl <= 0 {
		ttl = defaultEventTTL
	}
	return &MemoryEventStore{
		events: make(map[string]time.Time),
		ttl:    ttl,
	}
}

// EventExists reports whether the event has already been processed within the
// TTL window.
func (s *MemoryEventStore) EventExists(eventID string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	seen, ok := s.events[eventID]
	if !ok {
		return false
	}
	if time.Since(seen) > s.ttl {
		delete(s.events, eventID)
		return false
	}
	return true
}

// MarkProcessed records the event as processed and purges expired entries.
func (s *MemoryEventStore) MarkProcessed(eventID string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	now := time.Now()
	for id, seen := range s.events {
		if now.Sub(seen) > s.ttl {
			delete(s.events, id)
		}
	}
	s.events[eventID] = now
}
