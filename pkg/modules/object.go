package modules

import (
	"fmt"
	"math"

	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/scene"
	"github.com/chazu/grove/pkg/wire"
)

// Port indices shared by object-producing modules.
const (
	InputChildren = 0
	InputSizeR    = 1
	InputSizeY    = 2

	OutputWhole = 0 // this object with its children merged below it
	OutputOwn   = 1 // this object alone
)

// NoObject is the repository index of a module that references nothing.
const NoObject int32 = -1

var (
	objectInputs = []graph.Port{
		{Name: "children", Kind: graph.PortObject, Multi: true, Tooltip: "collections merged below this object"},
		{Name: "sizeR", Kind: graph.PortValue, Tooltip: "radial scale, 1 when unconnected, not positive or not finite"},
		{Name: "sizeY", Kind: graph.PortValue, Tooltip: "height scale, 1 when unconnected, not positive or not finite"},
	}
	objectOutputs = []graph.Port{
		{Name: "whole collection", Kind: graph.PortObject, Tooltip: "this object and its children"},
		{Name: "own object only", Kind: graph.PortObject, Tooltip: "this object without children"},
	}
)

// objectCore is the state and evaluation path shared by object variants:
// the repository reference, the delivery policy and the result cache.
type objectCore struct {
	env            Env
	instanceShared bool
	index          int32
	cache          scene.Cache
}

func newObjectCore(env Env) objectCore {
	return objectCore{env: env, index: NoObject}
}

// setIndex moves the repository reference to index.
func (c *objectCore) setIndex(index int32) {
	if index == c.index {
		return
	}
	c.release()
	c.index = index
	if c.env.Repo != nil && index >= 0 {
		c.env.Repo.Retain(index)
	}
	c.cache.Reset()
}

func (c *objectCore) release() {
	if c.env.Repo != nil && c.index >= 0 {
		c.env.Repo.Release(c.index)
	}
}

// fork returns a core with the same settings, its own repository reference
// and an empty cache.
func (c *objectCore) fork() objectCore {
	f := newObjectCore(c.env)
	f.instanceShared = c.instanceShared
	f.setIndex(c.index)
	return f
}

// BeginGenerationPass drops the result cached during the previous pass.
func (c *objectCore) BeginGenerationPass() {
	c.cache.Reset()
}

// Unregister releases the repository reference and the cached result. The
// module must not be evaluated afterwards.
func (c *objectCore) Unregister() {
	c.release()
	c.index = NoObject
	c.cache.Reset()
}

// CacheStats returns the result cache's hit and miss counts.
func (c *objectCore) CacheStats() (hits, misses int) {
	return c.cache.Stats()
}

// base looks up the referenced repository geometry.
func (c *objectCore) base() (kernel.Solid, error) {
	if c.env.Kernel == nil {
		return nil, ErrNoKernel
	}
	if c.env.Repo == nil || c.index < 0 {
		return nil, ErrNoObject
	}
	g, err := c.env.Repo.Lookup(c.index)
	if err != nil {
		return nil, err
	}
	if g.Solid == nil {
		return nil, fmt.Errorf("%w: index %d has no solid", ErrNoObject, c.index)
	}
	return g.Solid, nil
}

func sizeInput(in graph.Inputs, port int) (float64, error) {
	v, err := in.Value(port)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, nil
	}
	return v, nil
}

// resize scales s by (sizeR, sizeY, sizeR) and moves it so its lowest
// point sits on Y = 0.
func resize(k kernel.Kernel, s kernel.Solid, sizeR, sizeY float64) kernel.Solid {
	s = k.Scale(s, sizeR, sizeY, sizeR)
	min, _ := s.BoundingBox()
	return k.Translate(s, 0, -min[1], 0)
}

// compute runs the object evaluation path. shape builds the unsized solid
// on a cache miss.
func (c *objectCore) compute(name string, req graph.Request, in graph.Inputs, shape func(sizeR, sizeY float64) (kernel.Solid, error)) (*scene.Collection, error) {
	if req.Output != OutputWhole && req.Output != OutputOwn {
		logFor(req).Warn("invalid output port", "port", req.Output)
		return scene.Empty(), nil
	}

	sizeR, err := sizeInput(in, InputSizeR)
	if err != nil {
		return nil, err
	}
	sizeY, err := sizeInput(in, InputSizeY)
	if err != nil {
		return nil, err
	}

	obj, err := c.cache.Deliver(sizeR, sizeY, c.instanceShared, func() (*scene.Object, error) {
		s, err := shape(sizeR, sizeY)
		if err != nil {
			return nil, err
		}
		return scene.NewObject(name, scene.NewGeometry(resize(c.env.Kernel, s, sizeR, sizeY))), nil
	})
	if err != nil {
		return nil, fmt.Errorf("modules: %s: %w", name, err)
	}

	coll := scene.NewCollection(name)
	node := coll.Add(obj)
	if req.Output == OutputOwn {
		return coll, nil
	}
	subs, err := in.Collections(InputChildren)
	if err != nil {
		return nil, err
	}
	scene.Merge(node, subs...)
	return coll, nil
}

// Object places a host repository object.
type Object struct {
	graph.Base
	hooks
	objectCore
}

// ObjectParams is the Object snapshot.
type ObjectParams struct {
	InstanceShared bool
	Index          int32
}

func (ObjectParams) params() {}

// NewObject returns an object module referencing repository entry index,
// or nothing when index is NoObject.
func NewObject(env Env, name string, p ObjectParams) *Object {
	m := &Object{Base: graph.NewBase(name), objectCore: newObjectCore(env)}
	m.instanceShared = p.InstanceShared
	m.setIndex(p.Index)
	return m
}

func (m *Object) Kind() graph.Kind      { return graph.KindObject }
func (m *Object) Inputs() []graph.Port  { return objectInputs }
func (m *Object) Outputs() []graph.Port { return objectOutputs }

func (m *Object) Snapshot() Params {
	return ObjectParams{InstanceShared: m.instanceShared, Index: m.index}
}

func (m *Object) Duplicate() graph.Module {
	return &Object{Base: m.Fork(), objectCore: m.fork()}
}

func (m *Object) Apply(p Params) error {
	op, ok := p.(ObjectParams)
	if !ok {
		return paramsError(ObjectParams{}, p)
	}
	m.instanceShared = op.InstanceShared
	m.setIndex(op.Index)
	m.cache.Reset()
	m.modified(m.ID())
	return nil
}

func (m *Object) EncodeFields(w *wire.Writer) {
	w.Bool(m.instanceShared)
	w.Int32(m.index)
}

func (m *Object) DecodeFields(r *wire.Reader) {
	shared, index := r.Bool(), r.Int32()
	if r.Err() != nil {
		return
	}
	m.instanceShared = shared
	m.setIndex(index)
}

func (m *Object) ComputeObject(req graph.Request, in graph.Inputs) (*scene.Collection, error) {
	return m.compute(m.Name(), req, in, func(float64, float64) (kernel.Solid, error) {
		return m.base()
	})
}
