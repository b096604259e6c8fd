// Package kernel defines the abstract geometry kernel interface.
// Implementations provide the solid modeling operations that object-producing
// modules need to build, resize and thicken their geometry. The kernel
// abstraction allows swapping backends without changing the rest of the system.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)

	// Clone returns a new handle to an equal solid. The returned handle
	// shares nothing mutable with the receiver.
	Clone() Solid
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Scale(s Solid, x, y, z float64) Solid

	// Offset grows (positive distance) or shrinks the surface of s.
	Offset(s Solid, distance float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Size returns the extent of s along each axis.
func Size(s Solid) [3]float64 {
	min, max := s.BoundingBox()
	return [3]float64{max[0] - min[0], max[1] - min[1], max[2] - min[2]}
}
