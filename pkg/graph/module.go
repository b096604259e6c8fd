package graph

import (
	"github.com/chazu/grove/pkg/rng"
	"github.com/chazu/grove/pkg/scene"
	"github.com/chazu/grove/pkg/wire"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// ModuleID uniquely identifies a module within a graph.
type ModuleID string

// NewModuleID returns a fresh random ID.
func NewModuleID() ModuleID {
	return ModuleID(uuid.NewString())
}

// Short returns an abbreviated form for log and error messages.
func (id ModuleID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsZero reports whether the ID is empty.
func (id ModuleID) IsZero() bool {
	return id == ""
}

// Kind is the variant tag of a module.
type Kind int16

const (
	KindConstant   Kind = iota // fixed value
	KindRandom                 // seeded random value
	KindScaleShift             // a*scale + shift
	KindClip                   // clamp to [min, max]
	KindUnary                  // unary function
	KindBinary                 // binary operator
	KindFunction               // curve lookup
	KindObject                 // host object reference
	KindLeaf                   // derived leaf shape
)

var kindNames = [...]string{
	KindConstant:   "constant",
	KindRandom:     "random",
	KindScaleShift: "scale-shift",
	KindClip:       "clip",
	KindUnary:      "unary",
	KindBinary:     "binary",
	KindFunction:   "function",
	KindObject:     "object",
	KindLeaf:       "leaf",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// PortKind distinguishes scalar ports from collection ports.
type PortKind int

const (
	PortValue  PortKind = iota // carries a single float64
	PortObject                 // carries a scene.Collection
)

func (k PortKind) String() string {
	switch k {
	case PortValue:
		return "value"
	case PortObject:
		return "object"
	default:
		return "unknown"
	}
}

// Port is a typed connection point on a module.
type Port struct {
	Name    string
	Kind    PortKind
	Tooltip string
	Multi   bool // object input accepting any number of producers
}

// Position is the module's location in the editor. It is carried through
// serialization and not otherwise interpreted.
type Position struct {
	X, Y float64
}

// Module is the behavior shared by every module variant.
type Module interface {
	ID() ModuleID
	SetID(ModuleID)
	Kind() Kind
	Name() string
	SetName(string)
	Position() Position
	SetPosition(Position)

	Inputs() []Port
	Outputs() []Port

	// Duplicate returns a copy with a fresh ID, the same parameters and
	// no cached results.
	Duplicate() Module

	// EncodeFields and DecodeFields handle the variant-specific fields of
	// the module record. Decode errors are recorded on the reader.
	EncodeFields(w *wire.Writer)
	DecodeFields(r *wire.Reader)
}

// Request carries the per-call context of a compute operation.
type Request struct {
	Output int           // requested output port
	Seq    *rng.Sequence // this module's random sequence for the call
	Log    hclog.Logger  // scoped to the module
}

// Inputs pulls upstream results for an object-producing module.
type Inputs interface {
	// Value returns the value feeding input port, or 0 when unconnected.
	Value(port int) (float64, error)

	// Collections returns one collection per producer feeding port, in
	// connection order.
	Collections(port int) ([]*scene.Collection, error)
}

// ValueModule produces a scalar from its pulled value inputs. vars holds one
// entry per input port; unconnected inputs are 0.
type ValueModule interface {
	Module
	ComputeValue(req Request, vars []float64) float64
}

// ObjectModule produces a collection of generated objects.
type ObjectModule interface {
	Module
	ComputeObject(req Request, in Inputs) (*scene.Collection, error)

	// BeginGenerationPass clears results cached during the previous pass.
	BeginGenerationPass()
}

// Unregisterer is implemented by modules holding host resources that must
// be released when the module is removed from the graph.
type Unregisterer interface {
	Unregister()
}

// Base provides the identity plumbing shared by module variants.
type Base struct {
	id   ModuleID
	name string
	pos  Position
}

// NewBase returns a Base with a fresh ID.
func NewBase(name string) Base {
	return Base{id: NewModuleID(), name: name}
}

// ID implements Module.ID.
func (b *Base) ID() ModuleID { return b.id }

// SetID implements Module.SetID. Decoders use it to restore saved IDs.
func (b *Base) SetID(id ModuleID) { b.id = id }

// Name implements Module.Name.
func (b *Base) Name() string { return b.name }

// SetName implements Module.SetName.
func (b *Base) SetName(name string) { b.name = name }

// Position implements Module.Position.
func (b *Base) Position() Position { return b.pos }

// SetPosition implements Module.SetPosition.
func (b *Base) SetPosition(p Position) { b.pos = p }

// Fork returns a copy of b with a fresh ID.
func (b *Base) Fork() Base {
	c := *b
	c.id = NewModuleID()
	return c
}
