// Package status holds the process-wide session context: connection state,
// the last surfaced error, the pending pairing challenge and the history
// sync flag.
package status

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// State is the connection state of the session.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

// validTransitions defines allowed state transitions. Self transitions cover
// retries while connecting and repeated logouts.
var validTransitions = map[State][]State{
	Disconnected: {Disconnected, Connecting},
	Connecting:   {Connecting, Connected, Disconnected},
	Connected:    {Connecting, Disconnected},
}

// Snapshot is a consistent copy of the session context.
type Snapshot struct {
	Status           State
	Error            string
	PairingChallenge string
	SyncInProgress   bool
}

// Session is the single session context of the process. Reads may come from
// any goroutine; writes come from the dispatch loop and the lifecycle
// manager.
type Session struct {
	mu        sync.RWMutex
	current   State
	err       string
	challenge string

	syncing atomic.Bool
}

// New returns an initialized session context in the Disconnected state.
func New() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset returns to Disconnected and drops any error and pairing challenge.
// The sync flag is left alone: only the holder of the flag may clear it.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Disconnected
	s.err = ""
	s.challenge = ""
}

// Current returns the current state.
func (s *Session) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(validTransitions[s.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", s.current, to)
	}
	s.current = to
	return nil
}

// SetError sets the user-facing error message. Empty clears it.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// SetPairingChallenge stores the pending QR payload. Empty clears it.
func (s *Session) SetPairingChallenge(code string) {
	s.mu.Lock()
	s.challenge = code
	s.mu.Unlock()
}

// Snapshot returns a copy of the current context.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Status:           s.current,
		Error:            s.err,
		PairingChallenge: s.challenge,
		SyncInProgress:   s.syncing.Load(),
	}
}

// TryBeginSync sets the history sync flag. It returns false, leaving the
// flag untouched, if a sync is already in flight.
func (s *Session) TryBeginSync() bool {
	return s.syncing.CompareAndSwap(false, true)
}

// EndSync clears the history sync flag.
func (s *Session) EndSync() {
	s.syncing.Store(false)
}

// SyncInProgress reports whether a history sync holds the flag.
func (s *Session) SyncInProgress() bool {
	return s.syncing.Load()
}
