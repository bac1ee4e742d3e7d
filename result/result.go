package result

import (
	"reflect"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Entity is anything addressable by a process-unique identifier.
// Domain objects extracted by indexers and results are both entities.
type Entity interface {
	UID() string
}

// Result is an immutable value produced by a step.
type Result interface {
	Entity
	// Name is the logical type discriminant. An empty name means the
	// concrete type name is used (see NameOf).
	Name() string
	CreatedAt() time.Time
}

// Base implements Result and is meant to be embedded by user result types:
//
//	type WordCount struct {
//		result.Base
//		Count int
//	}
//
//	wc := WordCount{Base: result.NewBase("word_count"), Count: 3}
type Base struct {
	uid       string
	name      string
	createdAt time.Time
}

// NewBase stamps a new uid and creation time using the default generator
// and clock.
func NewBase(name string) Base {
	return NewBaseWith(name, tag.Default, DefaultClock)
}

// NewBaseWith stamps a new uid and creation time from explicit sources.
func NewBaseWith(name string, gen tag.Generator, clock Clock) Base {
	return Base{
		uid:       gen.Generate(),
		name:      name,
		createdAt: clock.Now(),
	}
}

func (b Base) UID() string          { return b.uid }
func (b Base) Name() string         { return b.name }
func (b Base) CreatedAt() time.Time { return b.createdAt }

// NameOf returns the logical name of a result: its Name when set, otherwise
// the name of its concrete type (pointer indirections removed).
func NameOf(r Result) string {
	if r == nil {
		return ""
	}
	if n := r.Name(); n != "" {
		return n
	}
	t := reflect.TypeOf(r)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Multi is a collection of results returned by a single step call.
// Each member is registered individually, in order, under the step's
// argument; the collection itself is never stored.
type Multi struct {
	Base
	Results []Result
}

// NewMulti wraps results into a multi-result collection.
func NewMulti(results ...Result) *Multi {
	return &Multi{Base: NewBase("multi"), Results: results}
}

// Descriptor wraps a result with its provenance.
type Descriptor struct {
	UID string
	// Entity is the uid of the entity the result was registered under.
	Entity string
	Tag    tag.ComponentTag
	Result Result
	// CreatedAt is the container-level timestamp used for ordering and
	// for the current/latest distinction. It may differ slightly from
	// Result.CreatedAt.
	CreatedAt time.Time
}
