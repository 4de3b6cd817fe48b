package testutil

import (
	"fmt"
	"sync/atomic"
)

// FixedSessionGenerator returns the same session id every time, so a
// scenario recorded twice lands in byte-identical traces.
//
// Implements trace.IDGenerator.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator returns a generator for id, or for
// "test-session-default" when id is empty.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string { return g.id }

// SequentialSessionGenerator returns prefix-0001, prefix-0002 and so on.
// Safe for concurrent use.
type SequentialSessionGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialSessionGenerator creates a generator with prefix.
func NewSequentialSessionGenerator(prefix string) *SequentialSessionGenerator {
	return &SequentialSessionGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialSessionGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
