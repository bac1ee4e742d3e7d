package run

import "maps"

// Context carries ambient values for one run and, for nested runs, the
// output of the enclosing run.
//
// A Context is immutable: With returns a copy.
type Context struct {
	parent *Output
	values map[string]any
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{values: map[string]any{}}
}

// With returns a copy of the context with key set to value.
func (c *Context) With(key string, value any) *Context {
	next := c.clone()
	next.values[key] = value
	return next
}

// WithParent returns a copy of the context whose parent output is out.
func (c *Context) WithParent(out *Output) *Context {
	next := c.clone()
	next.parent = out
	return next
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// String returns the string stored under key, or "" if absent or not a string.
func (c *Context) String(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// Parent returns the output of the enclosing run, if any.
func (c *Context) Parent() (*Output, bool) {
	if c == nil || c.parent == nil {
		return nil, false
	}
	return c.parent, true
}

func (c *Context) clone() *Context {
	if c == nil {
		return NewContext()
	}
	values := maps.Clone(c.values)
	if values == nil {
		values = map[string]any{}
	}
	return &Context{parent: c.parent, values: values}
}
