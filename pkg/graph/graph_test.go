package graph

import (
	"errors"
	"testing"

	"github.com/chazu/grove/pkg/wire"
	"github.com/google/go-cmp/cmp"
)

// stub is a minimal module with configurable ports.
type stub struct {
	Base
	ins, outs    []Port
	unregistered bool
}

func newStub(name string, ins, outs []Port) *stub {
	return &stub{Base: NewBase(name), ins: ins, outs: outs}
}

func valueStub(name string, nIn int) *stub {
	ins := make([]Port, nIn)
	for i := range ins {
		ins[i] = Port{Name: "in", Kind: PortValue}
	}
	return newStub(name, ins, []Port{{Name: "out", Kind: PortValue}})
}

func objectStub(name string) *stub {
	return newStub(name,
		[]Port{{Name: "children", Kind: PortObject, Multi: true}, {Name: "size", Kind: PortValue}},
		[]Port{{Name: "all", Kind: PortObject}, {Name: "own", Kind: PortObject}})
}

func (s *stub) Kind() Kind      { return KindConstant }
func (s *stub) Inputs() []Port  { return s.ins }
func (s *stub) Outputs() []Port { return s.outs }
func (s *stub) Duplicate() Module {
	c := *s
	c.Base = s.Fork()
	return &c
}
func (s *stub) EncodeFields(*wire.Writer) {}
func (s *stub) DecodeFields(*wire.Reader) {}
func (s *stub) Unregister()               { s.unregistered = true }

func mustAdd(t *testing.T, g *Graph, ms ...Module) {
	t.Helper()
	for _, m := range ms {
		if err := g.Add(m); err != nil {
			t.Fatalf("Add(%s): %v", m.Name(), err)
		}
	}
}

func TestAddAndLookup(t *testing.T) {
	g := New()
	a, b := valueStub("a", 0), valueStub("b", 0)
	mustAdd(t, g, a, b)

	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if g.Lookup("b") != Module(b) {
		t.Error("Lookup(b) did not return b")
	}
	if g.Lookup("missing") != nil {
		t.Error("Lookup(missing) should be nil")
	}
	var names []string
	for _, m := range g.Modules() {
		names = append(names, m.Name())
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("Modules() order (-want +got):\n%s", diff)
	}
	if err := g.Add(a); !errors.Is(err, ErrDuplicateModule) {
		t.Errorf("re-Add error = %v, want ErrDuplicateModule", err)
	}
}

func TestConnectRules(t *testing.T) {
	g := New()
	c1, c2 := valueStub("c1", 0), valueStub("c2", 0)
	add := valueStub("add", 2)
	obj, child := objectStub("obj"), objectStub("child")
	mustAdd(t, g, c1, c2, add, obj, child)

	if err := g.Connect(c1.ID(), 0, add.ID(), 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tests := []struct {
		name    string
		from    ModuleID
		fromP   int
		to      ModuleID
		toP     int
		wantErr error
	}{
		{"occupied value input", c2.ID(), 0, add.ID(), 0, ErrPortOccupied},
		{"duplicate", c1.ID(), 0, add.ID(), 0, ErrDuplicateConnection},
		{"bad output port", c1.ID(), 3, add.ID(), 1, ErrInvalidPort},
		{"bad input port", c1.ID(), 0, add.ID(), 2, ErrInvalidPort},
		{"negative port", c1.ID(), -1, add.ID(), 1, ErrInvalidPort},
		{"unknown module", NewModuleID(), 0, add.ID(), 1, ErrUnknownModule},
		{"kind mismatch", c1.ID(), 0, obj.ID(), 0, ErrPortKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Connect(tt.from, tt.fromP, tt.to, tt.toP)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Multi object inputs accept several producers.
	if err := g.Connect(child.ID(), 0, obj.ID(), 0); err != nil {
		t.Fatalf("first child: %v", err)
	}
	if err := g.Connect(child.ID(), 1, obj.ID(), 0); err != nil {
		t.Fatalf("second child: %v", err)
	}
	got := g.Index().Producers(obj.ID(), 0)
	want := []Endpoint{{child.ID(), 0}, {child.ID(), 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Producers (-want +got):\n%s", diff)
	}
}

func TestRemoveDropsConnectionsAndEntries(t *testing.T) {
	g := New()
	a, b := valueStub("a", 0), valueStub("b", 1)
	mustAdd(t, g, a, b)
	if err := g.Connect(a.ID(), 0, b.ID(), 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEntry(a.ID()); err != nil {
		t.Fatal(err)
	}

	v := g.Version()
	if err := g.Remove(a.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if g.Version() == v {
		t.Error("Remove did not bump version")
	}
	if !a.unregistered {
		t.Error("Remove did not call Unregister")
	}
	if n := len(g.Connections()); n != 0 {
		t.Errorf("connections after Remove = %d, want 0", n)
	}
	if n := len(g.Entries()); n != 0 {
		t.Errorf("entries after Remove = %d, want 0", n)
	}
	if len(g.Index().Producers(b.ID(), 0)) != 0 {
		t.Error("index still lists removed producer")
	}
	if err := g.Remove(a.ID()); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("second Remove error = %v, want ErrUnknownModule", err)
	}
}

func TestDisconnect(t *testing.T) {
	g := New()
	a, b := valueStub("a", 0), valueStub("b", 1)
	mustAdd(t, g, a, b)
	if err := g.Connect(a.ID(), 0, b.ID(), 0); err != nil {
		t.Fatal(err)
	}
	c := Connection{From: Endpoint{a.ID(), 0}, To: Endpoint{b.ID(), 0}}
	if err := g.Disconnect(c); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if g.Index().Len() != 0 {
		t.Errorf("index Len = %d, want 0", g.Index().Len())
	}
	if err := g.Disconnect(c); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("second Disconnect error = %v", err)
	}
	// The input is free again.
	if err := g.Connect(a.ID(), 0, b.ID(), 0); err != nil {
		t.Errorf("reconnect: %v", err)
	}
}

func TestDuplicateModule(t *testing.T) {
	g := New()
	a := valueStub("a", 0)
	mustAdd(t, g, a)
	dup, err := g.Duplicate(a.ID())
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.ID() == a.ID() {
		t.Error("duplicate kept the original ID")
	}
	if dup.Name() != "a" || g.Len() != 2 {
		t.Errorf("duplicate name %q, graph len %d", dup.Name(), g.Len())
	}
}

func TestEntries(t *testing.T) {
	g := New()
	a, b := objectStub("a"), objectStub("b")
	mustAdd(t, g, a, b)
	for _, id := range []ModuleID{b.ID(), a.ID(), b.ID()} {
		if err := g.AddEntry(id); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]ModuleID{b.ID(), a.ID()}, g.Entries()); diff != "" {
		t.Errorf("Entries (-want +got):\n%s", diff)
	}
	if err := g.AddEntry(NewModuleID()); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("AddEntry(unknown) error = %v", err)
	}
}

func TestKindNames(t *testing.T) {
	for k := KindConstant; k <= KindLeaf; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
	if _, ok := ParseKind("nope"); ok {
		t.Error("ParseKind(nope) should fail")
	}
}

func TestBuildIndexNil(t *testing.T) {
	var ix *ConnectionIndex
	if ix.Len() != 0 || ix.Producers("x", 0) != nil {
		t.Error("nil index should be empty")
	}
}
