package run

import (
	"slices"
	"sync"

	"github.com/illuin-tech/data-pipeline-sub000/result"
)

// Index maps entity uids to entities and remembers insertion order.
// Adding an entity whose uid is already indexed is a no-op.
type Index struct {
	mu       sync.RWMutex
	order    []string
	entities map[string]result.Entity
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entities: make(map[string]result.Entity)}
}

// Add indexes e. Returns false if its uid was already present.
func (i *Index) Add(e result.Entity) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	uid := e.UID()
	if _, ok := i.entities[uid]; ok {
		return false
	}
	i.entities[uid] = e
	i.order = append(i.order, uid)
	return true
}

// Get returns the entity with the given uid.
func (i *Index) Get(uid string) (result.Entity, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.entities[uid]
	return e, ok
}

// Contains reports whether uid is indexed.
func (i *Index) Contains(uid string) bool {
	_, ok := i.Get(uid)
	return ok
}

// Entities returns a snapshot of the indexed entities in insertion order.
func (i *Index) Entities() []result.Entity {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]result.Entity, 0, len(i.order))
	for _, uid := range i.order {
		out = append(out, i.entities[uid])
	}
	return out
}

// UIDs returns a snapshot of the indexed uids in insertion order.
func (i *Index) UIDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.order)
}

// Len returns the number of indexed entities.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.order)
}
