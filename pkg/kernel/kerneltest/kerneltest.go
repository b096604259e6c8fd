// Package kerneltest provides a bounding-box geometry kernel for tests.
// Solids are axis-aligned boxes; every operation maps the box exactly as the
// real kernel would map the solid's bounds.
package kerneltest

import (
	"math"

	"github.com/chazu/grove/pkg/kernel"
)

// Solid is an axis-aligned box.
type Solid struct {
	Min, Max [3]float64
}

// BoundingBox implements kernel.Solid.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	return s.Min, s.Max
}

// Clone implements kernel.Solid.
func (s *Solid) Clone() kernel.Solid {
	c := *s
	return &c
}

// Kernel implements kernel.Kernel on bounding boxes and counts calls.
type Kernel struct {
	Calls map[string]int
}

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// New returns a Kernel.
func New() *Kernel {
	return &Kernel{Calls: make(map[string]int)}
}

func (k *Kernel) count(op string) {
	if k.Calls != nil {
		k.Calls[op]++
	}
}

func box(s kernel.Solid) *Solid {
	min, max := s.BoundingBox()
	return &Solid{Min: min, Max: max}
}

// Box returns a box with its minimum corner at the origin.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	k.count("box")
	return &Solid{Max: [3]float64{x, y, z}}
}

// Cylinder returns a cylinder's bounds, centered on the origin along Z.
func (k *Kernel) Cylinder(height, radius float64, _ int) kernel.Solid {
	k.count("cylinder")
	return &Solid{
		Min: [3]float64{-radius, -radius, -height / 2},
		Max: [3]float64{radius, radius, height / 2},
	}
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	k.count("union")
	x, y := box(a), box(b)
	for i := 0; i < 3; i++ {
		x.Min[i] = math.Min(x.Min[i], y.Min[i])
		x.Max[i] = math.Max(x.Max[i], y.Max[i])
	}
	return x
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.count("translate")
	b := box(s)
	d := [3]float64{x, y, z}
	for i := range d {
		b.Min[i] += d[i]
		b.Max[i] += d[i]
	}
	return b
}

// Rotate returns the bounds of the rotated box. Angles are in degrees and
// applied about X, then Y, then Z.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.count("rotate")
	b := box(s)
	out := &Solid{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for c := 0; c < 8; c++ {
		p := [3]float64{pick(b, c, 0), pick(b, c, 1), pick(b, c, 2)}
		p = RotatePoint(p, x, y, z)
		for i := range p {
			out.Min[i] = math.Min(out.Min[i], p[i])
			out.Max[i] = math.Max(out.Max[i], p[i])
		}
	}
	return out
}

func pick(b *Solid, corner, axis int) float64 {
	if corner&(1<<axis) != 0 {
		return b.Max[axis]
	}
	return b.Min[axis]
}

// RotatePoint rotates p by Euler angles in degrees, X then Y then Z. Results
// are rounded to 1e-9 so right angles stay exact.
func RotatePoint(p [3]float64, x, y, z float64) [3]float64 {
	rot := func(a, b float64, deg float64) (float64, float64) {
		sin, cos := math.Sincos(deg * math.Pi / 180)
		return a*cos - b*sin, a*sin + b*cos
	}
	p[1], p[2] = rot(p[1], p[2], x)
	p[2], p[0] = rot(p[2], p[0], y)
	p[0], p[1] = rot(p[0], p[1], z)
	for i := range p {
		p[i] = math.Round(p[i]*1e9) / 1e9
	}
	return p
}

func (k *Kernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.count("scale")
	b := box(s)
	f := [3]float64{x, y, z}
	for i := range f {
		lo, hi := b.Min[i]*f[i], b.Max[i]*f[i]
		b.Min[i], b.Max[i] = math.Min(lo, hi), math.Max(lo, hi)
	}
	return b
}

func (k *Kernel) Offset(s kernel.Solid, d float64) kernel.Solid {
	k.count("offset")
	b := box(s)
	for i := 0; i < 3; i++ {
		b.Min[i] -= d
		b.Max[i] += d
	}
	return b
}

// ToMesh returns the box as 8 vertices and 12 triangles.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.count("mesh")
	b := box(s)
	m := &kernel.Mesh{}
	for c := 0; c < 8; c++ {
		m.Vertices = append(m.Vertices,
			float32(pick(b, c, 0)), float32(pick(b, c, 1)), float32(pick(b, c, 2)))
		m.Normals = append(m.Normals, 0, 1, 0)
	}
	m.Indices = []uint32{
		0, 2, 1, 1, 2, 3, // -z
		4, 5, 6, 5, 7, 6, // +z
		0, 1, 4, 1, 5, 4, // -y
		2, 6, 3, 3, 6, 7, // +y
		0, 4, 2, 2, 4, 6, // -x
		1, 3, 5, 3, 7, 5, // +x
	}
	return m, nil
}
