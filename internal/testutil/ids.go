package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns prefix-1, prefix-2, ... and never runs out.
//
// Implements tag.Generator. Used where tests need stable identifiers but
// cannot know in advance how many will be requested.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator for the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
