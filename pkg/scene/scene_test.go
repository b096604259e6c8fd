package scene

import (
	"errors"
	"testing"

	"github.com/chazu/grove/pkg/kernel"
	"github.com/google/go-cmp/cmp"
)

// boxSolid is a minimal kernel.Solid for tests.
type boxSolid struct {
	max [3]float64
}

func (b *boxSolid) BoundingBox() (min, max [3]float64) { return [3]float64{}, b.max }
func (b *boxSolid) Clone() kernel.Solid                 { c := *b; return &c }

func newObject(module string) *Object {
	return NewObject(module, NewGeometry(&boxSolid{max: [3]float64{1, 1, 1}}))
}

func TestInstanceSharesPayload(t *testing.T) {
	o := newObject("trunk")
	i := o.Instance()
	if i == o {
		t.Fatal("Instance returned the receiver")
	}
	if i.Geometry != o.Geometry {
		t.Fatal("instance should share the geometry payload")
	}
	if got := o.Geometry.Refs(); got != 2 {
		t.Errorf("refs = %d, want 2", got)
	}
	if i.Mutable() || o.Mutable() {
		t.Error("shared payload must not be reported mutable")
	}
	i.Release()
	if !o.Mutable() {
		t.Error("payload should be mutable again after the instance is released")
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	o := newObject("leaf")
	o.Geometry.Mesh = &kernel.Mesh{Vertices: []float32{1, 2, 3}}
	c, err := o.DeepCopy()
	if err != nil {
		t.Fatal(err)
	}
	if c.Geometry == o.Geometry {
		t.Fatal("deep copy shares the payload")
	}
	if c.Geometry.Solid == o.Geometry.Solid {
		t.Error("deep copy shares the solid handle")
	}
	if c.Geometry.Refs() != 1 || o.Geometry.Refs() != 1 {
		t.Errorf("refs = %d/%d, want 1/1", c.Geometry.Refs(), o.Geometry.Refs())
	}
	c.Geometry.Mesh.Vertices[0] = 9
	if o.Geometry.Mesh.Vertices[0] != 1 {
		t.Error("mutating the copy's mesh changed the original")
	}
	if c.Module != "leaf" || !c.Visible {
		t.Errorf("copy lost wrapper fields: %+v", c)
	}
}

func TestMergePreservesConnectionOrder(t *testing.T) {
	parent := NewCollection("root", newObject("root"))
	a := NewCollection("a", newObject("A"))
	b := NewCollection("b", newObject("B"))
	Merge(parent.Roots[0], a, nil, b)

	var got []string
	for _, c := range parent.Roots[0].Children {
		got = append(got, c.Module())
	}
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("child order mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeKeepsDuplicates(t *testing.T) {
	parent := NewCollection("root", newObject("root"))
	a := NewCollection("a", newObject("A"))
	Merge(parent.Roots[0], a, a)
	if n := len(parent.Roots[0].Children); n != 2 {
		t.Errorf("children = %d, want 2", n)
	}
}

func TestWalkDepthFirst(t *testing.T) {
	c := NewCollection("tree", newObject("trunk"))
	branch := NewCollection("b", newObject("branch"))
	Merge(branch.Roots[0], NewCollection("l", newObject("leaf")))
	Merge(c.Roots[0], branch, NewCollection("f", newObject("fruit")))

	type visit struct {
		Module string
		Depth  int
	}
	var got []visit
	c.Walk(func(n *Node, depth int) bool {
		got = append(got, visit{n.Module(), depth})
		return true
	})
	want := []visit{{"trunk", 0}, {"branch", 1}, {"leaf", 2}, {"fruit", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 4 || len(c.Objects()) != 4 {
		t.Errorf("Len = %d, Objects = %d; want 4", c.Len(), len(c.Objects()))
	}
}

func TestEmptyCollection(t *testing.T) {
	if !Empty().IsEmpty() {
		t.Error("Empty() is not empty")
	}
	var nilColl *Collection
	if !nilColl.IsEmpty() || nilColl.Len() != 0 {
		t.Error("nil collection should behave as empty")
	}
}

func TestCacheInstanceShared(t *testing.T) {
	var c Cache
	builds := 0
	build := func() (*Object, error) {
		builds++
		return newObject("leaf"), nil
	}
	a, err := c.Deliver(1, 2, true, build)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Deliver(1, 2, true, build)
	if err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if a == b || a.Geometry != b.Geometry {
		t.Error("instance-shared deliveries should be distinct wrappers over one payload")
	}
	if a == c.Cached() || a.Geometry != c.Cached().Geometry {
		t.Error("delivery should wrap the cached payload without being the cached object")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestCacheIndependentCopies(t *testing.T) {
	var c Cache
	build := func() (*Object, error) { return newObject("leaf"), nil }
	a, _ := c.Deliver(1, 1, false, build)
	b, _ := c.Deliver(1, 1, false, build)
	if a.Geometry == b.Geometry || a.Geometry == c.Cached().Geometry {
		t.Fatal("independent deliveries must not share payloads")
	}
	if diff := cmp.Diff(a.Geometry.Solid, b.Geometry.Solid, cmp.AllowUnexported(boxSolid{})); diff != "" {
		t.Errorf("copies should have equal shape (-a +b):\n%s", diff)
	}
	if !a.Mutable() || !b.Mutable() {
		t.Error("independent copies should be mutable")
	}
}

func TestCacheRebuildsOnSizeChange(t *testing.T) {
	var c Cache
	builds := 0
	build := func() (*Object, error) {
		builds++
		return newObject("leaf"), nil
	}
	c.Deliver(1, 1, true, build)
	first := c.Cached()
	c.Deliver(2, 1, true, build)
	c.Deliver(2, 3, true, build)
	if builds != 3 {
		t.Errorf("builds = %d, want 3", builds)
	}
	if first.Geometry.Refs() != 1 {
		t.Errorf("replaced entry refs = %d, want 1 (only the delivered instance)", first.Geometry.Refs())
	}
	c.Reset()
	if c.Cached() != nil {
		t.Error("Reset left an entry behind")
	}
	c.Deliver(2, 3, true, build)
	if builds != 4 {
		t.Errorf("builds after reset = %d, want 4", builds)
	}
}

func TestCacheBuildError(t *testing.T) {
	var c Cache
	boom := errors.New("boom")
	_, err := c.Deliver(1, 1, false, func() (*Object, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Cached() != nil {
		t.Error("failed build should not populate the cache")
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	idx := s.Add("trunk", &boxSolid{})
	if idx != 0 || s.Len() != 1 {
		t.Fatalf("Add = %d, Len = %d", idx, s.Len())
	}
	if name, err := s.Name(idx); err != nil || name != "trunk" {
		t.Errorf("Name = %q, %v", name, err)
	}

	var released []int32
	s.OnRelease(func(i int32) { released = append(released, i) })

	s.Retain(idx)
	s.Retain(idx)
	s.Release(idx)
	if len(released) != 0 {
		t.Fatal("hook fired while a user remained")
	}
	s.Release(idx)
	if diff := cmp.Diff([]int32{idx}, released); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
	// Extra releases are ignored.
	s.Release(idx)
	if s.Users(idx) != 0 || len(released) != 1 {
		t.Errorf("users = %d, released = %v", s.Users(idx), released)
	}

	if err := s.Remove(idx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lookup(idx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup after Remove err = %v, want ErrNotFound", err)
	}
	if err := s.Remove(idx); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove err = %v, want ErrNotFound", err)
	}
	if next := s.Add("branch", &boxSolid{}); next != 1 {
		t.Errorf("indices must not be reused: got %d", next)
	}
}

func TestStoreLookupOutOfRange(t *testing.T) {
	s := NewStore()
	for _, idx := range []int32{-1, 0, 5} {
		if _, err := s.Lookup(idx); !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup(%d) err = %v, want ErrNotFound", idx, err)
		}
	}
}
