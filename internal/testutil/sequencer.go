// Package testutil holds deterministic stand-ins shared by tests and the
// scenario harness: trace sequencers, session id generators and a core
// thread fixture.
package testutil

import (
	"slices"
	"sync"
)

// StepSequencer is a trace.Sequencer that starts at an arbitrary seq and
// advances by a fixed stride. It remembers every number it handed out so a
// test can match stored records against the exact seqs issued, including
// when a session is resumed from a later seq.
//
// Thread-safety: all methods are safe for concurrent use.
type StepSequencer struct {
	mu     sync.Mutex
	next   int64
	step   int64
	issued []int64
}

// NewStepSequencer returns a sequencer whose first Next returns start.
// A step below 1 is treated as 1.
func NewStepSequencer(start, step int64) *StepSequencer {
	if step < 1 {
		step = 1
	}
	return &StepSequencer{next: start, step: step}
}

// Next returns the next seq.
func (s *StepSequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next += s.step
	s.issued = append(s.issued, v)
	return v
}

// Issued returns every seq handed out, in order.
func (s *StepSequencer) Issued() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.issued)
}
