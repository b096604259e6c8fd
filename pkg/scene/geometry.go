// Package scene holds the generated side of the graph: reference-counted
// geometry payloads, the placed objects that wrap them, the ordered
// collections object-producing modules return, the per-module result cache,
// and an in-process implementation of the host object repository.
package scene

import (
	"fmt"

	"github.com/chazu/grove/pkg/kernel"
)

// Geometry is a shape payload. Several objects may reference the same
// Geometry when they were delivered as instances; the reference count tracks
// how many wrappers currently share it.
type Geometry struct {
	Solid kernel.Solid

	// Mesh is a lazily built local-space preview mesh. It travels with the
	// payload, so instances share it and deep copies clone it.
	Mesh *kernel.Mesh

	refs int
}

// NewGeometry returns a payload with one reference.
func NewGeometry(s kernel.Solid) *Geometry {
	return &Geometry{Solid: s, refs: 1}
}

// Refs returns the number of wrappers sharing this payload.
func (g *Geometry) Refs() int {
	return g.refs
}

// Shared reports whether more than one wrapper references this payload.
func (g *Geometry) Shared() bool {
	return g.refs > 1
}

// Retain records an additional reference and returns g.
func (g *Geometry) Retain() *Geometry {
	g.refs++
	return g
}

// Release drops one reference.
func (g *Geometry) Release() {
	if g.refs > 0 {
		g.refs--
	}
}

// Clone returns an independent payload with its own solid handle and a
// deep copy of the preview mesh. The clone starts with one reference.
func (g *Geometry) Clone() (*Geometry, error) {
	c := &Geometry{refs: 1}
	if g.Solid != nil {
		c.Solid = g.Solid.Clone()
	}
	m, err := g.Mesh.Clone()
	if err != nil {
		return nil, fmt.Errorf("scene: clone geometry: %w", err)
	}
	c.Mesh = m
	return c, nil
}
