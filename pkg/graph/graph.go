package graph

import "fmt"

// Graph is the editable procedural graph. Every structural edit rebuilds the
// connection index. A Graph is not safe for concurrent use, and edits must
// not overlap an evaluation pass.
type Graph struct {
	modules map[ModuleID]Module
	order   []ModuleID
	conns   []Connection
	entries []ModuleID
	index   *ConnectionIndex
	version uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		modules: make(map[ModuleID]Module),
		index:   BuildIndex(nil),
	}
}

func (g *Graph) rebuild() {
	g.index = BuildIndex(g.conns)
	g.version++
}

// Version increases with every structural edit.
func (g *Graph) Version() uint64 {
	return g.version
}

// Add inserts m into the graph.
func (g *Graph) Add(m Module) error {
	if _, exists := g.modules[m.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.ID().Short())
	}
	g.modules[m.ID()] = m
	g.order = append(g.order, m.ID())
	g.rebuild()
	return nil
}

// Remove deletes the module and every connection touching it, and lets the
// module release host resources.
func (g *Graph) Remove(id ModuleID) error {
	m, ok := g.modules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id.Short())
	}

	kept := g.conns[:0]
	for _, c := range g.conns {
		if c.From.Module != id && c.To.Module != id {
			kept = append(kept, c)
		}
	}
	g.conns = kept
	g.order = removeID(g.order, id)
	g.entries = removeID(g.entries, id)
	delete(g.modules, id)
	g.rebuild()

	if u, ok := m.(Unregisterer); ok {
		u.Unregister()
	}
	return nil
}

func removeID(ids []ModuleID, id ModuleID) []ModuleID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Module returns the module with the given ID, or nil.
func (g *Graph) Module(id ModuleID) Module {
	return g.modules[id]
}

// Lookup returns the first module, in insertion order, named name, or nil.
func (g *Graph) Lookup(name string) Module {
	for _, id := range g.order {
		if m := g.modules[id]; m.Name() == name {
			return m
		}
	}
	return nil
}

// Modules returns all modules in insertion order.
func (g *Graph) Modules() []Module {
	ms := make([]Module, 0, len(g.order))
	for _, id := range g.order {
		ms = append(ms, g.modules[id])
	}
	return ms
}

// Len returns the number of modules.
func (g *Graph) Len() int {
	return len(g.modules)
}

// Duplicate adds a copy of the module with a fresh ID and no connections.
func (g *Graph) Duplicate(id ModuleID) (Module, error) {
	m, ok := g.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id.Short())
	}
	dup := m.Duplicate()
	if err := g.Add(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

func (g *Graph) port(e Endpoint, output bool) (Port, error) {
	m, ok := g.modules[e.Module]
	if !ok {
		return Port{}, fmt.Errorf("%w: %s", ErrUnknownModule, e.Module.Short())
	}
	ports, dir := m.Inputs(), "input"
	if output {
		ports, dir = m.Outputs(), "output"
	}
	if e.Port < 0 || e.Port >= len(ports) {
		return Port{}, fmt.Errorf("%w: %s %s %d", ErrInvalidPort, m.Name(), dir, e.Port)
	}
	return ports[e.Port], nil
}

// Connect adds an edge from (from, fromPort) to (to, toPort). Value inputs
// accept one producer; object inputs accept one unless marked Multi.
// Cycles are not rejected here; the evaluator detects them.
func (g *Graph) Connect(from ModuleID, fromPort int, to ModuleID, toPort int) error {
	c := Connection{
		From: Endpoint{Module: from, Port: fromPort},
		To:   Endpoint{Module: to, Port: toPort},
	}
	out, err := g.port(c.From, true)
	if err != nil {
		return err
	}
	in, err := g.port(c.To, false)
	if err != nil {
		return err
	}
	if out.Kind != in.Kind {
		return fmt.Errorf("%w: %s output to %s input", ErrPortKindMismatch, out.Kind, in.Kind)
	}
	for _, existing := range g.conns {
		if existing == c {
			return ErrDuplicateConnection
		}
	}
	if !in.Multi && len(g.index.Producers(to, toPort)) > 0 {
		return fmt.Errorf("%w: %s input %d", ErrPortOccupied, g.modules[to].Name(), toPort)
	}
	g.conns = append(g.conns, c)
	g.rebuild()
	return nil
}

// Disconnect removes the given edge.
func (g *Graph) Disconnect(c Connection) error {
	for i, existing := range g.conns {
		if existing == c {
			g.conns = append(g.conns[:i], g.conns[i+1:]...)
			g.rebuild()
			return nil
		}
	}
	return ErrUnknownConnection
}

// Connections returns a copy of the edges in creation order.
func (g *Graph) Connections() []Connection {
	return append([]Connection(nil), g.conns...)
}

// Index returns the current connection index.
func (g *Graph) Index() *ConnectionIndex {
	return g.index
}

// AddEntry marks a module as a generation entry point.
func (g *Graph) AddEntry(id ModuleID) error {
	if _, ok := g.modules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id.Short())
	}
	for _, e := range g.entries {
		if e == id {
			return nil
		}
	}
	g.entries = append(g.entries, id)
	return nil
}

// Entries returns the entry modules in the order they were added.
func (g *Graph) Entries() []ModuleID {
	return append([]ModuleID(nil), g.entries...)
}
