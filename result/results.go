package result

// Results is a read-only query view over a Container, either unscoped or
// scoped to one entity's descriptor sequence.
//
// Queries never fail for "not found": they return an empty slice or
// (nil, false). Latest looks at the whole recorded history; Current only at
// descriptors with CreatedAt >= the container's GenerationStart. Scoped
// views use the same boundary as the container.
type Results struct {
	c      *Container
	entity string
	scoped bool
}

// Of scopes the view to one entity.
func (r Results) Of(e Entity) Results {
	return r.OfUID(e.UID())
}

// OfUID scopes the view to the entity with the given uid.
func (r Results) OfUID(uid string) Results {
	return Results{c: r.c, entity: uid, scoped: true}
}

// Descriptors returns every descriptor in scope, oldest first.
func (r Results) Descriptors() []Descriptor {
	if r.c == nil {
		return nil
	}
	if r.scoped {
		return r.c.EntityDescriptors(r.entity)
	}
	return r.c.Descriptors()
}

// CurrentDescriptors returns the descriptors in scope produced in this
// generation, oldest first.
func (r Results) CurrentDescriptors() []Descriptor {
	if r.c == nil {
		return nil
	}
	return r.c.filterCurrent(r.Descriptors())
}

// Stream returns every result in scope, oldest first.
func (r Results) Stream() []Result {
	return payloads(r.Descriptors(), nil)
}

// StreamNamed returns the results in scope with the given logical name.
func (r Results) StreamNamed(name string) []Result {
	return payloads(r.Descriptors(), byName(name))
}

// CurrentAll returns every result in scope produced in this generation.
func (r Results) CurrentAll() []Result {
	return payloads(r.CurrentDescriptors(), nil)
}

// Latest returns the most recent result with the given name over the full
// history.
func (r Results) Latest(name string) (Result, bool) {
	d, ok := last(r.Descriptors(), byName(name))
	return d.Result, ok
}

// Current returns the most recent result with the given name produced in
// this generation.
func (r Results) Current(name string) (Result, bool) {
	d, ok := last(r.CurrentDescriptors(), byName(name))
	return d.Result, ok
}

// LatestDescriptor is Latest returning the whole descriptor.
func (r Results) LatestDescriptor(name string) (Descriptor, bool) {
	return last(r.Descriptors(), byName(name))
}

// StreamOf returns the results in scope whose concrete type is T.
func StreamOf[T Result](r Results) []T {
	var out []T
	for _, d := range r.Descriptors() {
		if v, ok := d.Result.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// LatestOf returns the most recent result of concrete type T over the full
// history.
func LatestOf[T Result](r Results) (T, bool) {
	return lastOf[T](r.Descriptors())
}

// CurrentOf returns the most recent result of concrete type T produced in
// this generation.
func CurrentOf[T Result](r Results) (T, bool) {
	return lastOf[T](r.CurrentDescriptors())
}

func lastOf[T Result](ds []Descriptor) (T, bool) {
	for i := len(ds) - 1; i >= 0; i-- {
		if v, ok := ds[i].Result.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type filter func(Descriptor) bool

func byName(name string) filter {
	return func(d Descriptor) bool {
		return NameOf(d.Result) == name
	}
}

func payloads(ds []Descriptor, f filter) []Result {
	out := make([]Result, 0, len(ds))
	for _, d := range ds {
		if f == nil || f(d) {
			out = append(out, d.Result)
		}
	}
	return out
}

// last relies on descriptor slices being sorted by CreatedAt.
func last(ds []Descriptor, f filter) (Descriptor, bool) {
	for i := len(ds) - 1; i >= 0; i-- {
		if f(ds[i]) {
			return ds[i], true
		}
	}
	return Descriptor{}, false
}
