package kds

import (
	"sort"
	"sync"

	"github.com/yeremiapane/tableorder/metrics"
)

// Subscription is the handle returned by Hub.Join. Close it when the view
// that owns it goes away.
type Subscription struct {
	hub *Hub
	ch  chan Message

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// C yields delivered messages. It is closed by Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

func (s *Subscription) Join(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.rooms[room]; ok {
		return
	}
	s.rooms[room] = struct{}{}
	s.hub.add(s, room)
}

func (s *Subscription) Leave(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return
	}
	delete(s.rooms, room)
	s.hub.remove(s, room)
}

func (s *Subscription) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Close leaves every room and closes C. Calling it again is a no-op.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	s.hub.mu.Lock()
	for r := range s.rooms {
		s.hub.removeLocked(s, r)
	}
	// No publisher can be sending: deliver holds the read lock while it sends.
	close(s.ch)
	s.hub.mu.Unlock()

	s.rooms = nil
	metrics.Subscribers.Dec()
}
