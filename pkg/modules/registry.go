package modules

import (
	"fmt"
	"sort"

	"github.com/chazu/grove/pkg/curve"
	"github.com/chazu/grove/pkg/graph"
)

// Info describes a module variant.
type Info struct {
	Kind        graph.Kind
	Description string
	Produces    graph.PortKind

	// New returns a module of this variant with default parameters.
	New func(env Env, name string) graph.Module
}

// Name returns the variant's registered name.
func (i Info) Name() string {
	return i.Kind.String()
}

var registry = map[graph.Kind]Info{
	graph.KindConstant: {
		Kind:        graph.KindConstant,
		Description: "fixed value",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return NewConstant(name, 0)
		},
	},
	graph.KindRandom: {
		Kind:        graph.KindRandom,
		Description: "seeded random value with mean and standard deviation",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return &Random{Base: graph.NewBase(name)}
		},
	},
	graph.KindScaleShift: {
		Kind:        graph.KindScaleShift,
		Description: "a*scale + shift",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return NewScaleShift(name, 1, 0)
		},
	},
	graph.KindClip: {
		Kind:        graph.KindClip,
		Description: "clamp to [min, max]",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return &Clip{Base: graph.NewBase(name), p: ClipParams{Min: 0, Max: 1}}
		},
	},
	graph.KindUnary: {
		Kind:        graph.KindUnary,
		Description: "abs, sin, cos, exp, log or sqrt of a",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return &Unary{Base: graph.NewBase(name), op: OpAbs}
		},
	},
	graph.KindBinary: {
		Kind:        graph.KindBinary,
		Description: "arithmetic or comparison of a and b",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return &Binary{Base: graph.NewBase(name), op: OpAdd}
		},
	},
	graph.KindFunction: {
		Kind:        graph.KindFunction,
		Description: "curve evaluated at a",
		Produces:    graph.PortValue,
		New: func(_ Env, name string) graph.Module {
			return NewFunction(name, curve.Linear())
		},
	},
	graph.KindObject: {
		Kind:        graph.KindObject,
		Description: "host object resized by sizeR and sizeY",
		Produces:    graph.PortObject,
		New: func(env Env, name string) graph.Module {
			return NewObject(env, name, ObjectParams{Index: NoObject})
		},
	},
	graph.KindLeaf: {
		Kind:        graph.KindLeaf,
		Description: "blade built from a host object, with optional stem and thickening",
		Produces:    graph.PortObject,
		New: func(env Env, name string) graph.Module {
			m, err := NewLeaf(env, name, DefaultLeafParams())
			if err != nil {
				panic(err)
			}
			return m
		},
	},
}

// Lookup returns the registry entry for kind.
func Lookup(kind graph.Kind) (Info, bool) {
	info, ok := registry[kind]
	return info, ok
}

// New returns a default module of the given kind.
func New(kind graph.Kind, env Env, name string) (graph.Module, error) {
	info, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("modules: unknown kind %d", kind)
	}
	return info.New(env, name), nil
}

// Kinds returns every registered variant in tag order.
func Kinds() []Info {
	infos := make([]Info, 0, len(registry))
	for _, info := range registry {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Kind < infos[j].Kind })
	return infos
}
