package state

import (
	"slices"
	"sync"
)

// Dispatcher is the only way callers change state.
type Dispatcher interface {
	Dispatch(a Action)
}

// Store serializes dispatches so each reduction sees the previous result.
type Store struct {
	mu         sync.Mutex
	state      State
	outbox     []State
	delivering bool

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int
}

func NewStore(initial State) *Store {
	return &Store{state: initial, subs: make(map[int]func(State))}
}

// Dispatch reduces a and queues the resulting snapshot for subscribers.
// Snapshots reach subscribers in reduction order, one delivering goroutine
// at a time. A dispatch made while another goroutine is delivering, or from
// inside a subscriber, returns once queued; the delivering goroutine hands
// its snapshot on.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.outbox = append(s.outbox, s.state)
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.outbox) == 0 {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		snapshot := s.outbox[0]
		s.outbox[0] = State{}
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		for _, fn := range s.subscribers() {
			fn(snapshot)
		}
	}
}

func (s *Store) subscribers() []func(State) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

// State returns the current snapshot. Treat its slices and maps as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}
