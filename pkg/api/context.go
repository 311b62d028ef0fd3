package api

import (
	"errors"
	"fmt"
	"maps"
)

// ErrUndefined is returned by Context.Resolve for unknown names.
var ErrUndefined = errors.New("undefined variable")

// Context holds the variables visible to templates. It lives for a whole
// run and hooks write to it between steps.
type Context map[string]any

// NewContext seeds a Context from command line variables.
func NewContext(vars map[string]string) Context {
	ctx := make(Context, len(vars))
	for k, v := range vars {
		ctx[k] = v
	}
	return ctx
}

// Resolve looks up a single variable.
func (c Context) Resolve(name string) (any, error) {
	v, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUndefined, name)
	}
	return v, nil
}

// Set adds or overwrites a variable.
func (c Context) Set(name string, value any) {
	c[name] = value
}

// Snapshot returns a shallow copy.
func (c Context) Snapshot() Context {
	return maps.Clone(c)
}
