// Package modules implements every module variant of the procedural graph:
// the value producers (constant, random, scale-shift, clip, unary, binary,
// function) and the object producers (object, leaf). Each variant exposes a
// parameter snapshot for editors and encodes its own record fields.
package modules

import (
	"errors"
	"fmt"

	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/scene"
)

var (
	// ErrParams is returned by Apply when a snapshot is of the wrong type or
	// holds values the module cannot accept.
	ErrParams = errors.New("modules: invalid parameters")

	// ErrNoObject is returned when an object module has no repository entry.
	ErrNoObject = errors.New("modules: no object referenced")

	// ErrNoKernel is returned when an object module is built without a kernel.
	ErrNoKernel = errors.New("modules: no geometry kernel")
)

// Env carries the host collaborators object-producing modules need. Value
// modules ignore it.
type Env struct {
	Kernel kernel.Kernel
	Repo   scene.Repository
}

// Params is a parameter snapshot. Each variant has its own concrete type.
type Params interface {
	params()
}

// Editable is implemented by every module in this package.
type Editable interface {
	graph.Module
	Snapshot() Params
	Apply(p Params) error
	OnModified(fn func(graph.ModuleID))
}

// hooks holds the editor's modified notification.
type hooks struct {
	onModified func(graph.ModuleID)
}

// OnModified installs fn to be called after a successful Apply.
func (h *hooks) OnModified(fn func(graph.ModuleID)) {
	h.onModified = fn
}

func (h *hooks) modified(id graph.ModuleID) {
	if h.onModified != nil {
		h.onModified(id)
	}
}

func paramsError(want Params, got Params) error {
	return fmt.Errorf("%w: want %T, got %T", ErrParams, want, got)
}

// Compile-time interface checks.
var (
	_ graph.ValueModule  = (*Constant)(nil)
	_ graph.ValueModule  = (*Random)(nil)
	_ graph.ValueModule  = (*ScaleShift)(nil)
	_ graph.ValueModule  = (*Clip)(nil)
	_ graph.ValueModule  = (*Unary)(nil)
	_ graph.ValueModule  = (*Binary)(nil)
	_ graph.ValueModule  = (*Function)(nil)
	_ graph.ObjectModule = (*Object)(nil)
	_ graph.ObjectModule = (*Leaf)(nil)
	_ graph.Unregisterer = (*Object)(nil)
	_ graph.Unregisterer = (*Leaf)(nil)
	_ Editable           = (*Constant)(nil)
	_ Editable           = (*Random)(nil)
	_ Editable           = (*ScaleShift)(nil)
	_ Editable           = (*Clip)(nil)
	_ Editable           = (*Unary)(nil)
	_ Editable           = (*Binary)(nil)
	_ Editable           = (*Function)(nil)
	_ Editable           = (*Object)(nil)
	_ Editable           = (*Leaf)(nil)
)
