package tag

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers for runs, components and results.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type Generator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a millisecond timestamp in its most significant bits, so
// identifiers sort by creation time. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Default is the generator used when none is configured.
var Default Generator = UUIDv7Generator{}

// FixedGenerator returns predetermined identifiers, in order.
//
// Used by tests that compare run snapshots against golden files.
// Safe for concurrent use.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("run-1", "run-2")
//	gen.Generate() // "run-1"
//	gen.Generate() // "run-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics once all ids have been consumed, which points at a misconfigured test.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
