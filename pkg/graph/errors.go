package graph

import "errors"

var (
	// ErrUnknownModule is returned when an ID does not name a module in the graph.
	ErrUnknownModule = errors.New("graph: unknown module")

	// ErrDuplicateModule is returned when adding a module whose ID is taken.
	ErrDuplicateModule = errors.New("graph: duplicate module id")

	// ErrInvalidPort is returned for a port index outside the module's ports.
	ErrInvalidPort = errors.New("graph: invalid port")

	// ErrPortKindMismatch is returned when connecting a value port to an
	// object port or vice versa.
	ErrPortKindMismatch = errors.New("graph: port kind mismatch")

	// ErrPortOccupied is returned when connecting a second producer to an
	// input that accepts only one.
	ErrPortOccupied = errors.New("graph: input already connected")

	// ErrDuplicateConnection is returned when the same edge is added twice.
	ErrDuplicateConnection = errors.New("graph: duplicate connection")

	// ErrUnknownConnection is returned when removing an edge that does not exist.
	ErrUnknownConnection = errors.New("graph: unknown connection")

	// ErrCycle is reported by Validate when the graph contains a cycle.
	ErrCycle = errors.New("graph: cycle")
)
