// Package tessellate turns generated collections into triangle meshes. One
// mesh is produced per visible object, placed in world space.
package tessellate

import (
	"fmt"

	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/kernel/sdfx"
	"github.com/chazu/grove/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// frame is the accumulated placement of a node: the full transform for
// vertices and its rotation part for normals.
type frame struct {
	full sdf.M44
	rot  sdf.M44
}

// transformStack accumulates placements during the collection walk.
type transformStack struct {
	frames []frame
}

func newTransformStack() *transformStack {
	id := sdf.Identity3d()
	return &transformStack{frames: []frame{{full: id, rot: id}}}
}

func (ts *transformStack) top() frame {
	return ts.frames[len(ts.frames)-1]
}

// push composes p below the current frame. Children are rotated first and
// then translated into their parent's space.
func (ts *transformStack) push(p scene.Placement) {
	top := ts.top()
	r := sdfx.RotationMatrix(p.Rotation.X, p.Rotation.Y, p.Rotation.Z)
	t := sdf.Translate3d(v3.Vec{X: p.Translation.X, Y: p.Translation.Y, Z: p.Translation.Z})
	ts.frames = append(ts.frames, frame{
		full: top.full.Mul(t).Mul(r),
		rot:  top.rot.Mul(r),
	})
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 1 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// Tessellate walks c depth first and returns one mesh per visible object.
// Invisible objects produce no mesh but their children are still walked.
//
// Each geometry payload is meshed once in local space and the result is kept
// on the payload, so instance-shared objects reuse it.
func Tessellate(c *scene.Collection, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if c.IsEmpty() {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	ts := newTransformStack()
	for _, root := range c.Roots {
		collected, err := walkNode(k, root, ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s: %w", c.Name, err)
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// walkNode pushes the node's placement, emits its mesh and recurses into
// its children.
func walkNode(k kernel.Kernel, n *scene.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	if n.Object != nil {
		ts.push(n.Object.Placement)
		defer ts.pop()

		if n.Object.Visible {
			m, err := placed(k, n.Object, ts.top())
			if err != nil {
				return nil, err
			}
			if m != nil {
				meshes = append(meshes, m)
			}
		}
	}

	for _, child := range n.Children {
		collected, err := walkNode(k, child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// local returns the cached local-space mesh of g, building it on first use.
func local(k kernel.Kernel, g *scene.Geometry) (*kernel.Mesh, error) {
	if g.Mesh == nil {
		m, err := k.ToMesh(g.Solid)
		if err != nil {
			return nil, err
		}
		g.Mesh = m
	}
	return g.Mesh, nil
}

// placed returns the object's mesh transformed by f.
func placed(k kernel.Kernel, o *scene.Object, f frame) (*kernel.Mesh, error) {
	if o.Geometry == nil || o.Geometry.Solid == nil {
		return nil, nil
	}
	src, err := local(k, o.Geometry)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed for %s: %w", o.Module, err)
	}

	m := &kernel.Mesh{
		Vertices: make([]float32, len(src.Vertices)),
		Normals:  make([]float32, len(src.Normals)),
		Indices:  append([]uint32(nil), src.Indices...),
		PartName: o.Module,
	}
	transform(m.Vertices, src.Vertices, f.full)
	transform(m.Normals, src.Normals, f.rot)
	return m, nil
}

// transform writes each xyz triple of src, multiplied by t, into dst.
func transform(dst, src []float32, t sdf.M44) {
	for i := 0; i+2 < len(src); i += 3 {
		p := t.MulPosition(v3.Vec{X: float64(src[i]), Y: float64(src[i+1]), Z: float64(src[i+2])})
		dst[i], dst[i+1], dst[i+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
}
