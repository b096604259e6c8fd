package modules

import (
	"fmt"
	"math"

	"github.com/chazu/grove/pkg/curve"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/scene"
	"github.com/chazu/grove/pkg/wire"
)

const (
	stemRadius   = 0.1 // fraction of the blade width
	stemSegments = 16
)

// Leaf builds a blade from a repository object: the base is normalized to
// Width × Length × Width, optionally joined with a stem below it and
// optionally thickened by Thickness × Profile(sizeR).
type Leaf struct {
	graph.Base
	hooks
	objectCore
	p LeafParams
}

// LeafParams is the Leaf snapshot.
type LeafParams struct {
	InstanceShared bool
	Index          int32

	Length    float64
	Width     float64
	Stem      float64 // stem length; 0 for none
	Thickness float64
	Thicken   bool

	// Profile scales Thickness by sizeR. An empty profile is a factor of 1.
	Profile curve.Curve
}

func (LeafParams) params() {}

// DefaultLeafParams returns the parameters new leaf modules start with.
func DefaultLeafParams() LeafParams {
	return LeafParams{Index: NoObject, Length: 1, Width: 0.25, Thickness: 0.02}
}

func (p LeafParams) validate() error {
	switch {
	case !(p.Length > 0) || math.IsInf(p.Length, 0):
		return fmt.Errorf("%w: leaf length %g", ErrParams, p.Length)
	case !(p.Width > 0) || math.IsInf(p.Width, 0):
		return fmt.Errorf("%w: leaf width %g", ErrParams, p.Width)
	case !(p.Stem >= 0):
		return fmt.Errorf("%w: leaf stem %g", ErrParams, p.Stem)
	case !(p.Thickness >= 0):
		return fmt.Errorf("%w: leaf thickness %g", ErrParams, p.Thickness)
	}
	return nil
}

// NewLeaf returns a leaf module.
func NewLeaf(env Env, name string, p LeafParams) (*Leaf, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	m := &Leaf{Base: graph.NewBase(name), objectCore: newObjectCore(env)}
	m.set(p)
	return m, nil
}

func (m *Leaf) set(p LeafParams) {
	m.p = p
	m.instanceShared = p.InstanceShared
	m.setIndex(p.Index)
	m.cache.Reset()
}

func (m *Leaf) Kind() graph.Kind      { return graph.KindLeaf }
func (m *Leaf) Inputs() []graph.Port  { return objectInputs }
func (m *Leaf) Outputs() []graph.Port { return objectOutputs }

func (m *Leaf) Snapshot() Params {
	p := m.p
	p.InstanceShared, p.Index = m.instanceShared, m.index
	return p
}

func (m *Leaf) Duplicate() graph.Module {
	return &Leaf{Base: m.Fork(), objectCore: m.fork(), p: m.p}
}

func (m *Leaf) Apply(p Params) error {
	lp, ok := p.(LeafParams)
	if !ok {
		return paramsError(LeafParams{}, p)
	}
	if err := lp.validate(); err != nil {
		return err
	}
	m.set(lp)
	m.modified(m.ID())
	return nil
}

func (m *Leaf) EncodeFields(w *wire.Writer) {
	w.Bool(m.instanceShared)
	w.Int32(m.index)
	w.Float64(m.p.Length)
	w.Float64(m.p.Width)
	w.Float64(m.p.Stem)
	w.Float64(m.p.Thickness)
	w.Bool(m.p.Thicken)
	m.p.Profile.Encode(w)
}

func (m *Leaf) DecodeFields(r *wire.Reader) {
	var p LeafParams
	p.InstanceShared = r.Bool()
	p.Index = r.Int32()
	p.Length = r.Float64()
	p.Width = r.Float64()
	p.Stem = r.Float64()
	p.Thickness = r.Float64()
	p.Thicken = r.Bool()
	p.Profile = curve.Decode(r)
	if r.Err() != nil {
		return
	}
	if err := p.validate(); err != nil {
		r.Fail(fmt.Errorf("%w: %v", wire.ErrMalformed, err))
		return
	}
	m.set(p)
}

func (m *Leaf) ComputeObject(req graph.Request, in graph.Inputs) (*scene.Collection, error) {
	return m.compute(m.Name(), req, in, func(sizeR, _ float64) (kernel.Solid, error) {
		return m.shape(sizeR)
	})
}

func (m *Leaf) shape(sizeR float64) (kernel.Solid, error) {
	base, err := m.base()
	if err != nil {
		return nil, err
	}
	k := m.env.Kernel

	size := kernel.Size(base)
	s := k.Scale(base, ratio(m.p.Width, size[0]), ratio(m.p.Length, size[1]), ratio(m.p.Width, size[2]))
	min, _ := s.BoundingBox()
	s = k.Translate(s, -min[0], -min[1], -min[2])

	if m.p.Stem > 0 {
		stem := k.Rotate(k.Cylinder(m.p.Stem, m.p.Width*stemRadius, stemSegments), 90, 0, 0)
		stem = k.Translate(stem, m.p.Width/2, -m.p.Stem/2, m.p.Width/2)
		s = k.Union(s, stem)
	}

	if m.p.Thicken && m.p.Thickness > 0 {
		factor := 1.0
		if !m.p.Profile.IsEmpty() {
			factor = m.p.Profile.Eval(sizeR)
		}
		if d := m.p.Thickness * factor; d != 0 {
			s = k.Offset(s, d)
		}
	}
	return s, nil
}

func ratio(want, have float64) float64 {
	if have <= 0 {
		return 1
	}
	return want / have
}
