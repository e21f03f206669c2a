// Package state holds the process-wide phase/reply pair shared with external readers.
package state

import (
	"sync"
	"time"

	"github.com/rbright/uplink/internal/fsm"
)

// Snapshot is one atomically written (phase, text) pair. Seq increases with
// every write, so consumers can discard a snapshot older than one they have seen.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	Phase     fsm.State `json:"phase"`
	Text      string    `json:"text"`
	Cycle     string    `json:"cycle,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a single-writer, multi-reader holder for the latest Snapshot.
// Readers always observe a pair that was written as a unit.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewStore returns a store parked in idle with the given standby text.
func NewStore(initialText string) *Store {
	s := &Store{now: time.Now}
	s.snap = Snapshot{Phase: fsm.StateIdle, Text: initialText, UpdatedAt: s.now()}
	return s
}

// Read returns the current snapshot.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Phase returns the current phase.
func (s *Store) Phase() fsm.State {
	return s.Read().Phase
}

// Text returns the current reply text.
func (s *Store) Text() string {
	return s.Read().Text
}

// Write replaces phase and text together.
func (s *Store) Write(phase fsm.State, text string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Seq: s.snap.Seq + 1, Phase: phase, Text: text, Cycle: s.snap.Cycle, UpdatedAt: s.now()}
	return s.snap
}

// SetPhase moves to phase and keeps the last committed text.
func (s *Store) SetPhase(phase fsm.State) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Seq++
	s.snap.Phase = phase
	s.snap.UpdatedAt = s.now()
	return s.snap
}

// BeginCycle tags subsequent snapshots with a cycle id and moves to phase.
func (s *Store) BeginCycle(id string, phase fsm.State) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Seq++
	s.snap.Cycle = id
	s.snap.Phase = phase
	s.snap.UpdatedAt = s.now()
	return s.snap
}
