// Package scheduler drives one reconciliation-and-sync cycle per pairing on
// an independent timer. Cycles of the same pairing never overlap; different
// pairings never block each other. The next run is scheduled a fixed delay
// after completion, success or failure, so a slow cycle pushes the next one
// out rather than stacking up.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/toparuz/marketsync/pkg/logging"
)

// CycleFunc runs one full reconciliation-and-sync cycle for a pairing.
type CycleFunc func(ctx context.Context) error

// Pairing is one (local catalog, external marketplace) combination driving
// an independent cycle loop.
type Pairing struct {
	// Name identifies the pairing in logs, e.g. "billz-yandex".
	Name string

	// Delay is measured from cycle completion to the next start.
	Delay time.Duration

	// Timeout bounds a single cycle. Zero means no per-cycle timeout.
	Timeout time.Duration

	// Run executes one cycle.
	Run CycleFunc
}

// Outcome reports what a cycle request did.
type Outcome int

// Cycle request outcomes.
const (
	// OutcomeRan means the cycle ran to completion.
	OutcomeRan Outcome = iota

	// OutcomeSkippedOverlap means a cycle for the same pairing was still
	// running and the request was dropped.
	OutcomeSkippedOverlap
)

// pairingState owns the per-pairing running flag. Each pairing has its own;
// nothing is shared across pairings.
type pairingState struct {
	pairing Pairing
	running atomic.Bool
}

// Scheduler owns one state machine per pairing.
type Scheduler struct {
	states []*pairingState

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler for the given pairings.
func New(pairings ...Pairing) *Scheduler {
	s := &Scheduler{states: make([]*pairingState, 0, len(pairings))}
	for _, p := range pairings {
		s.states = append(s.states, &pairingState{pairing: p})
	}
	return s
}

// Start launches one loop goroutine per pairing. Each loop runs a cycle
// immediately, then reschedules Delay after every completion until the
// context is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return // already started
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, st := range s.states {
		s.wg.Add(1)
		go func(st *pairingState) {
			defer s.wg.Done()
			s.loop(ctx, st)
		}(st)
	}
}

// Stop cancels all pairing loops and waits for in-flight cycles to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until all pairing loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunNow requests an immediate cycle for the named pairing, outside its
// timer. If a cycle is already running the request is skipped, not queued.
func (s *Scheduler) RunNow(ctx context.Context, name string) Outcome {
	for _, st := range s.states {
		if st.pairing.Name == name {
			return s.runCycle(ctx, st)
		}
	}
	return OutcomeSkippedOverlap
}

// loop is the per-pairing state machine: Running, then Idle for Delay,
// forever. Errors are logged and never escape the loop; the worst outcome
// of a cycle is that it accomplished nothing.
func (s *Scheduler) loop(ctx context.Context, st *pairingState) {
	for {
		s.runCycle(ctx, st)

		timer := time.NewTimer(st.pairing.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// runCycle transitions Idle → Running → Idle, dropping the request when the
// pairing is already Running.
func (s *Scheduler) runCycle(ctx context.Context, st *pairingState) Outcome {
	if !st.running.CompareAndSwap(false, true) {
		logging.FromContext(ctx).Warn().
			Str("pairing", st.pairing.Name).
			Msg("Cycle skipped: previous run still in progress")
		return OutcomeSkippedOverlap
	}
	defer st.running.Store(false)

	cycleCtx := logging.WithPairing(ctx, st.pairing.Name)
	if st.pairing.Timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(cycleCtx, st.pairing.Timeout)
		defer cancel()
	}

	if err := st.pairing.Run(cycleCtx); err != nil {
		// The cycle failed; the loop still reschedules.
		logging.FromContext(ctx).Error().
			Err(err).
			Str("pairing", st.pairing.Name).
			Msg("Cycle failed")
	}
	return OutcomeRan
}
