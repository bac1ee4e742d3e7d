package result

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Container is the authoritative result store of one run.
//
// INVARIANTS:
//   - Append-only: descriptors are never removed or edited.
//   - Each sequence (whole log, per entity) is sorted by CreatedAt;
//     equal timestamps keep insertion order.
//   - GenerationStart never changes after construction.
//   - A descriptor UID is stored at most once.
//
// Thread-safety: writes happen on the run's goroutine; concurrent readers
// (asynchronous sinks) are safe.
type Container struct {
	mu              sync.RWMutex
	clock           Clock
	gen             tag.Generator
	generationStart time.Time
	log             []Descriptor
	byEntity        map[string][]Descriptor
	seen            map[string]struct{}
}

// ContainerOption configures a Container.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	clock     Clock
	gen       tag.Generator
	inherited []*Container
}

// WithClock sets the clock used for generation boundaries and descriptor
// timestamps. Inherited containers must share a compatible clock.
func WithClock(c Clock) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.clock = c
	}
}

// WithGenerator sets the generator for descriptor uids.
func WithGenerator(g tag.Generator) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.gen = g
	}
}

// WithInherited imports the full history of parent. The imported
// descriptors keep their timestamps and are therefore never current in the
// new container.
func WithInherited(parent *Container) ContainerOption {
	return func(cfg *containerConfig) {
		if parent != nil {
			cfg.inherited = append(cfg.inherited, parent)
		}
	}
}

// NewContainer creates an empty container whose generation starts now.
func NewContainer(opts ...ContainerOption) *Container {
	cfg := containerConfig{clock: DefaultClock, gen: tag.Default}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Container{
		clock:    cfg.clock,
		gen:      cfg.gen,
		byEntity: make(map[string][]Descriptor),
		seen:     make(map[string]struct{}),
	}
	for _, parent := range cfg.inherited {
		c.importLocked(parent.Descriptors())
	}
	c.generationStart = c.clock.Now()
	return c
}

// GenerationStart returns the boundary separating current descriptors from
// inherited history.
func (c *Container) GenerationStart() time.Time {
	return c.generationStart
}

// IsCurrent reports whether d was produced in this container's generation.
func (c *Container) IsCurrent(d Descriptor) bool {
	return !d.CreatedAt.Before(c.generationStart)
}

// Register wraps r into a descriptor attributed to producer and stores it
// under entityUID.
func (c *Container) Register(entityUID string, producer tag.ComponentTag, r Result) Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Descriptor{
		UID:       c.gen.Generate(),
		Entity:    entityUID,
		Tag:       producer,
		Result:    r,
		CreatedAt: c.clock.Now(),
	}
	c.insertLocked(d)
	return d
}

// Import appends descriptors produced by another container, keeping their
// original producer tags and timestamps. Descriptors already present are
// skipped.
func (c *Container) Import(ds ...Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.importLocked(ds)
}

func (c *Container) importLocked(ds []Descriptor) {
	for _, d := range ds {
		if _, ok := c.seen[d.UID]; ok {
			continue
		}
		c.insertLocked(d)
	}
}

func (c *Container) insertLocked(d Descriptor) {
	c.seen[d.UID] = struct{}{}
	c.log = insertSorted(c.log, d)
	c.byEntity[d.Entity] = insertSorted(c.byEntity[d.Entity], d)
}

// insertSorted places d after every descriptor not newer than it. Appends
// in timestamp order stay O(1).
func insertSorted(s []Descriptor, d Descriptor) []Descriptor {
	n := len(s)
	if n == 0 || !s[n-1].CreatedAt.After(d.CreatedAt) {
		return append(s, d)
	}
	i := sort.Search(n, func(i int) bool {
		return s[i].CreatedAt.After(d.CreatedAt)
	})
	return slices.Insert(s, i, d)
}

// Descriptors returns a copy of the whole log, oldest first.
func (c *Container) Descriptors() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.log)
}

// Current returns the descriptors of this generation, oldest first.
func (c *Container) Current() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filterCurrent(c.log)
}

// EntityDescriptors returns a copy of one entity's sequence, oldest first.
func (c *Container) EntityDescriptors(entityUID string) []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.byEntity[entityUID])
}

// Len returns the number of stored descriptors, inherited ones included.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.log)
}

// Results returns the unscoped query view over this container.
func (c *Container) Results() Results {
	return Results{c: c}
}

func (c *Container) filterCurrent(ds []Descriptor) []Descriptor {
	var out []Descriptor
	for _, d := range ds {
		if c.IsCurrent(d) {
			out = append(out, d)
		}
	}
	return out
}
