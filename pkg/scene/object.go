package scene

import "fmt"

// Vec3 is a 3-component vector.
type Vec3 struct {
	X, Y, Z float64
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Placement positions an object relative to its parent node.
type Placement struct {
	Translation Vec3
	Rotation    Vec3 // Euler angles in degrees
}

// Object is a generated object: a geometry payload plus its placement,
// visibility and the name of the module that produced it.
type Object struct {
	Geometry  *Geometry
	Placement Placement
	Visible   bool
	Module    string
}

// NewObject wraps g as a visible object produced by module.
func NewObject(module string, g *Geometry) *Object {
	return &Object{Geometry: g, Visible: true, Module: module}
}

// Instance returns a new wrapper sharing the receiver's geometry payload.
func (o *Object) Instance() *Object {
	c := *o
	if o.Geometry != nil {
		c.Geometry = o.Geometry.Retain()
	}
	return &c
}

// DeepCopy returns a new wrapper around an independent copy of the payload.
func (o *Object) DeepCopy() (*Object, error) {
	c := *o
	if o.Geometry != nil {
		g, err := o.Geometry.Clone()
		if err != nil {
			return nil, fmt.Errorf("scene: copy object %q: %w", o.Module, err)
		}
		c.Geometry = g
	}
	return &c, nil
}

// Mutable reports whether the caller may modify the payload without
// affecting other objects.
func (o *Object) Mutable() bool {
	return o.Geometry == nil || !o.Geometry.Shared()
}

// Release drops the object's reference to its payload.
func (o *Object) Release() {
	if o.Geometry != nil {
		o.Geometry.Release()
	}
}
