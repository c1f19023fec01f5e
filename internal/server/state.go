package server

import (
	gosync "sync"

	"github.com/toparuz/marketsync/internal/sync"
)

// historyLimit bounds the in-memory cycle history.
const historyLimit = 50

// State holds the latest published cycle summaries for inspection. Cycles
// publish into it; HTTP handlers only read.
type State struct {
	mu      gosync.RWMutex
	latest  map[string]*sync.Summary
	history []*sync.Summary
}

// NewState creates an empty State.
func NewState() *State {
	return &State{latest: make(map[string]*sync.Summary)}
}

// Publish records a finished cycle's summary.
func (s *State) Publish(sum *sync.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[sum.Pairing] = sum
	s.history = append(s.history, sum)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// Latest returns the most recent summary per pairing.
func (s *State) Latest() map[string]*sync.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*sync.Summary, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

// History returns recent summaries, oldest first.
func (s *State) History() []*sync.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*sync.Summary, len(s.history))
	copy(out, s.history)
	return out
}
