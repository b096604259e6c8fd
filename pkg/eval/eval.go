// Package eval pulls results out of a procedural graph. Evaluation is
// synchronous depth-first recursion: a requested output asks its module to
// compute, and the module pulls its inputs from their producers through the
// graph's connection index, each with its own derived seed.
package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/rng"
	"github.com/chazu/grove/pkg/scene"
	"github.com/hashicorp/go-hclog"
)

// EntryOutput is the output port pulled from entry modules.
const EntryOutput = 0

var (
	// ErrCyclicGraph is matched by every *CycleError.
	ErrCyclicGraph = errors.New("eval: cyclic graph")

	// ErrKindMismatch is returned when a value is requested from an object
	// module or a collection from a value module.
	ErrKindMismatch = errors.New("eval: module kind mismatch")

	// ErrUnknownModule is returned for an ID not in the graph.
	ErrUnknownModule = errors.New("eval: unknown module")
)

// CycleError reports a module reached again while it was still computing.
// Path lists module names from the first visit to the repeat.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "eval: cyclic graph: " + strings.Join(e.Path, " -> ")
}

// Is reports whether target is ErrCyclicGraph.
func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicGraph
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l hclog.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// WithMetrics records evaluation metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// Evaluator evaluates modules of one graph. It is not safe for concurrent
// use, and the graph must not be edited while a pull is in progress.
type Evaluator struct {
	g       *graph.Graph
	log     hclog.Logger
	metrics *Metrics

	stack   []graph.ModuleID
	onStack map[graph.ModuleID]bool
}

// New returns an Evaluator for g.
func New(g *graph.Graph, opts ...Option) *Evaluator {
	e := &Evaluator{
		g:       g,
		log:     hclog.NewNullLogger(),
		onStack: make(map[graph.ModuleID]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BeginGenerationPass clears the result cache of every object module.
// Call it once before the first pull of a pass.
func (e *Evaluator) BeginGenerationPass() {
	for _, m := range e.g.Modules() {
		if om, ok := m.(graph.ObjectModule); ok {
			om.BeginGenerationPass()
		}
	}
	e.metrics.pass()
	e.log.Debug("generation pass begun", "modules", e.g.Len())
}

// Value pulls output out of the value module id using seed.
func (e *Evaluator) Value(id graph.ModuleID, out int, seed uint64) (float64, error) {
	e.reset()
	return e.pullValue(id, out, seed)
}

// Collection pulls output out of the object module id using seed. Caches
// filled earlier in the current pass are reused.
func (e *Evaluator) Collection(id graph.ModuleID, out int, seed uint64) (*scene.Collection, error) {
	e.reset()
	return e.pullCollection(id, out, seed)
}

// Generate begins a generation pass and pulls a collection.
func (e *Evaluator) Generate(id graph.ModuleID, out int, seed uint64) (*scene.Collection, error) {
	e.BeginGenerationPass()
	return e.Collection(id, out, seed)
}

// GenerateEntries begins a generation pass and pulls EntryOutput from every
// entry module in order. Entry i is pulled with rng.Derive(seed, i).
func (e *Evaluator) GenerateEntries(seed uint64) ([]*scene.Collection, error) {
	e.BeginGenerationPass()
	entries := e.g.Entries()
	colls := make([]*scene.Collection, 0, len(entries))
	for i, id := range entries {
		c, err := e.Collection(id, EntryOutput, rng.Derive(seed, uint64(i)))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		colls = append(colls, c)
	}
	return colls, nil
}

func (e *Evaluator) reset() {
	e.stack = e.stack[:0]
	clear(e.onStack)
}

// enter pushes m on the recursion stack, failing if it is already there.
func (e *Evaluator) enter(m graph.Module) error {
	id := m.ID()
	if e.onStack[id] {
		var path []string
		for i, s := range e.stack {
			if s == id {
				for _, p := range e.stack[i:] {
					path = append(path, e.g.Module(p).Name())
				}
				break
			}
		}
		path = append(path, m.Name())
		e.metrics.cycle()
		e.log.Error("cyclic graph", "path", strings.Join(path, " -> "))
		return &CycleError{Path: path}
	}
	e.onStack[id] = true
	e.stack = append(e.stack, id)
	return nil
}

func (e *Evaluator) leave() {
	id := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.onStack, id)
}

func (e *Evaluator) module(id graph.ModuleID) (graph.Module, error) {
	m := e.g.Module(id)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id.Short())
	}
	return m, nil
}

func (e *Evaluator) request(m graph.Module, out int, seed uint64) (graph.Request, bool) {
	log := e.log.With("module", m.Name())
	if out < 0 || out >= len(m.Outputs()) {
		log.Warn("invalid output port", "port", out)
		e.metrics.invalidPort()
		return graph.Request{}, false
	}
	e.metrics.pull(m.Kind())
	return graph.Request{Output: out, Seq: rng.New(seed), Log: log}, true
}

func (e *Evaluator) pullValue(id graph.ModuleID, out int, seed uint64) (float64, error) {
	m, err := e.module(id)
	if err != nil {
		return 0, err
	}
	vm, ok := m.(graph.ValueModule)
	if !ok {
		return 0, fmt.Errorf("%w: %q produces objects", ErrKindMismatch, m.Name())
	}
	if err := e.enter(m); err != nil {
		return 0, err
	}
	defer e.leave()

	req, ok := e.request(m, out, seed)
	if !ok {
		return 0, nil
	}
	in := inputs{e: e, id: id, seed: seed}
	vars := make([]float64, len(m.Inputs()))
	for i, p := range m.Inputs() {
		if p.Kind != graph.PortValue {
			continue
		}
		if vars[i], err = in.Value(i); err != nil {
			return 0, err
		}
	}
	return vm.ComputeValue(req, vars), nil
}

func (e *Evaluator) pullCollection(id graph.ModuleID, out int, seed uint64) (*scene.Collection, error) {
	m, err := e.module(id)
	if err != nil {
		return nil, err
	}
	om, ok := m.(graph.ObjectModule)
	if !ok {
		return nil, fmt.Errorf("%w: %q produces values", ErrKindMismatch, m.Name())
	}
	if err := e.enter(m); err != nil {
		return nil, err
	}
	defer e.leave()

	req, ok := e.request(m, out, seed)
	if !ok {
		return scene.Empty(), nil
	}
	c, err := om.ComputeObject(req, inputs{e: e, id: id, seed: seed})
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = scene.Empty()
	}
	return c, nil
}

// inputs resolves a module's input ports through the connection index.
// Producer k on input port p is pulled with the seed derived from
// rng.Stream(p, k), so sibling pulls never share a sequence.
type inputs struct {
	e    *Evaluator
	id   graph.ModuleID
	seed uint64
}

func (in inputs) Value(port int) (float64, error) {
	ps := in.e.g.Index().Producers(in.id, port)
	if len(ps) == 0 {
		return 0, nil
	}
	p := ps[0]
	return in.e.pullValue(p.Module, p.Port, rng.Derive(in.seed, rng.Stream(port, 0)))
}

func (in inputs) Collections(port int) ([]*scene.Collection, error) {
	ps := in.e.g.Index().Producers(in.id, port)
	colls := make([]*scene.Collection, 0, len(ps))
	for k, p := range ps {
		c, err := in.e.pullCollection(p.Module, p.Port, rng.Derive(in.seed, rng.Stream(port, k)))
		if err != nil {
			return nil, err
		}
		colls = append(colls, c)
	}
	return colls, nil
}
