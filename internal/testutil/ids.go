package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates sequential, predictable move IDs.
//
// Unlike engine.FixedGenerator, which returns a fixed list and panics when
// it runs out, FixedIDGenerator never runs out: it yields prefix-001,
// prefix-002, ... so scenario runs of any length produce byte-identical
// history.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a sequential ID generator.
//
// If prefix is empty, IDs look like "move-001".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "move"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements engine.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}

// Reset restarts the sequence. After Reset, the next ID ends in 001.
func (g *FixedIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
