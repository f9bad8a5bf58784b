// Package appstate holds the process-wide lifecycle flags read by the
// health HTTP surface and written only by the orchestrator.
package appstate

import "sync/atomic"

// State exposes alive/ready/has-started as independent atomic booleans.
// Because the two flags backing Ready() are set independently, a caller
// can observe a transient false-negative around startup if it reads
// between the two stores; this is acceptable for a liveness/readiness
// probe and self-corrects on the next poll.
type State struct {
	alive      atomic.Bool
	ready      atomic.Bool
	hasStarted atomic.Bool
}

// New returns a State with Alive true and everything else false, matching
// process start.
func New() *State {
	s := &State{}
	s.alive.Store(true)
	return s
}

func (s *State) Alive() bool { return s.alive.Load() }
func (s *State) Ready() bool { return s.ready.Load() && s.hasStarted.Load() }
func (s *State) HasStarted() bool { return s.hasStarted.Load() }

// SetReady marks dependencies initialized and the consumer subscribed.
func (s *State) SetReady() { s.ready.Store(true) }

// SetHasStarted marks that the orchestrator has completed initial setup.
func (s *State) SetHasStarted() { s.hasStarted.Store(true) }

// SetNotAlive marks the start of graceful shutdown.
func (s *State) SetNotAlive() { s.alive.Store(false) }
