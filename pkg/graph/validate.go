package graph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ValidationError describes a single structural finding.
type ValidationError struct {
	Module ModuleID // zero for graph-level findings
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Module.IsZero() {
		return e.Err.Error()
	}
	return fmt.Sprintf("module %s: %v", e.Module.Short(), e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate runs the structural checks on g and returns every finding as a
// *multierror.Error, or nil when the graph is sound. It never mutates g.
func Validate(g *Graph) error {
	var result *multierror.Error
	result = multierror.Append(result, validateConnections(g)...)
	result = multierror.Append(result, validateFanIn(g)...)
	result = multierror.Append(result, validateEntries(g)...)
	result = multierror.Append(result, validateAcyclic(g)...)
	return result.ErrorOrNil()
}

// validateConnections checks that both ends of every edge exist and carry
// the same port kind.
func validateConnections(g *Graph) []error {
	var errs []error
	for _, c := range g.conns {
		out, err := g.port(c.From, true)
		if err != nil {
			errs = append(errs, &ValidationError{Module: c.From.Module, Err: err})
			continue
		}
		in, err := g.port(c.To, false)
		if err != nil {
			errs = append(errs, &ValidationError{Module: c.To.Module, Err: err})
			continue
		}
		if out.Kind != in.Kind {
			errs = append(errs, &ValidationError{
				Module: c.To.Module,
				Err:    fmt.Errorf("%w: input %d fed by %s output", ErrPortKindMismatch, c.To.Port, out.Kind),
			})
		}
	}
	return errs
}

// validateFanIn checks that single-producer inputs have at most one producer.
func validateFanIn(g *Graph) []error {
	var errs []error
	for _, id := range g.order {
		m := g.modules[id]
		for i, p := range m.Inputs() {
			if p.Multi {
				continue
			}
			if n := len(g.index.Producers(id, i)); n > 1 {
				errs = append(errs, &ValidationError{
					Module: id,
					Err:    fmt.Errorf("%w: input %d has %d producers", ErrPortOccupied, i, n),
				})
			}
		}
	}
	return errs
}

func validateEntries(g *Graph) []error {
	var errs []error
	for _, id := range g.entries {
		if _, ok := g.modules[id]; !ok {
			errs = append(errs, &ValidationError{
				Err: fmt.Errorf("%w: entry %s", ErrUnknownModule, id.Short()),
			})
		}
	}
	return errs
}

// validateAcyclic checks for cycles using DFS with 3-color marking over
// producer edges. Meeting a gray module means the current path loops.
func validateAcyclic(g *Graph) []error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[ModuleID]int, len(g.modules))
	var errs []error

	var visit func(id ModuleID) bool
	visit = func(id ModuleID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, &ValidationError{
				Module: id,
				Err:    fmt.Errorf("%w through module %q", ErrCycle, g.modules[id].Name()),
			})
			return true
		}

		color[id] = gray
		m, ok := g.modules[id]
		if !ok {
			// Dangling; reported by validateConnections.
			color[id] = black
			return false
		}
		for i := range m.Inputs() {
			for _, p := range g.index.Producers(id, i) {
				if _, ok := g.modules[p.Module]; !ok {
					continue
				}
				if visit(p.Module) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			// One cycle is enough to block evaluation.
			break
		}
	}
	return errs
}
