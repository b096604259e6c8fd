package modules

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/grove/pkg/curve"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/rng"
)

func req(seed uint64) graph.Request {
	return graph.Request{Seq: rng.New(seed)}
}

func TestBinaryOps(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		a, b float64
		want float64
	}{
		{OpAdd, 5, 3, 8},
		{OpSub, 5, 3, 2},
		{OpMul, 5, 3, 15},
		{OpDiv, 6, 3, 2},
		{OpDiv, 6, 0, 0},
		{OpDiv, -1, 0, 0},
		{OpDiv, 0, 0, 0},
		{OpGreater, 2, 7, 7},
		{OpGreater, 7, 2, 7},
		{OpMax, 2, 7, 7},
		{OpLower, 2, 7, 2},
		{OpMin, 7, 2, 2},
		{OpPow, 2, 10, 1024},
		{OpPow, -1, 0.5, 0},
		{OpPow, 0, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			m, err := NewBinary("b", tt.op)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.ComputeValue(req(1), []float64{tt.a, tt.b}); got != tt.want {
				t.Errorf("%s(%v, %v) = %v, want %v", tt.op, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestBinaryComparisonsAgree(t *testing.T) {
	greater, _ := NewBinary("g", OpGreater)
	mx, _ := NewBinary("x", OpMax)
	lower, _ := NewBinary("l", OpLower)
	mn, _ := NewBinary("n", OpMin)
	pairs := [][]float64{{1, 2}, {2, 1}, {-3, 3}, {0, 0}, {-1.5, -2.5}}
	for _, p := range pairs {
		if g, x := greater.ComputeValue(req(0), p), mx.ComputeValue(req(0), p); g != x || g != math.Max(p[0], p[1]) {
			t.Errorf("greater%v = %v, max = %v", p, g, x)
		}
		if l, n := lower.ComputeValue(req(0), p), mn.ComputeValue(req(0), p); l != n || l != math.Min(p[0], p[1]) {
			t.Errorf("lower%v = %v, min = %v", p, l, n)
		}
	}
}

func TestBinaryUnconnectedOperands(t *testing.T) {
	m, _ := NewBinary("b", OpSub)
	if got := m.ComputeValue(req(0), []float64{4}); got != 4 {
		t.Errorf("4 - <unconnected> = %v, want 4", got)
	}
	if got := m.ComputeValue(req(0), nil); got != 0 {
		t.Errorf("no operands = %v, want 0", got)
	}
}

func TestUnaryOps(t *testing.T) {
	tests := []struct {
		op   UnaryOp
		a    float64
		want float64
	}{
		{OpAbs, -2, 2},
		{OpSin, 1, 1},
		{OpCos, 0, 1},
		{OpExp, 0, 1},
		{OpLog, 0, 0},
		{OpLog, -1, 0},
		{OpLog, math.E, 0},
		{OpSqrt, -1, 0},
		{OpSqrt, 0, 0},
		{OpSqrt, 4, 0},
	}
	for _, tt := range tests {
		m, err := NewUnary("u", tt.op)
		if err != nil {
			t.Fatal(err)
		}
		got := m.ComputeValue(req(0), []float64{tt.a})
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s(%v) = %v, want %v", tt.op, tt.a, got, tt.want)
		}
	}
}

func TestClipStaysInRange(t *testing.T) {
	m, err := NewClip("c", -1, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []float64{-100, -1, -0.5, 0, 1.99, 2, 3, math.Inf(1), math.Inf(-1), math.NaN()} {
		got := m.ComputeValue(req(0), []float64{a})
		if got < -1 || got > 2 {
			t.Errorf("clip(%v) = %v outside [-1, 2]", a, got)
		}
	}
	if _, err := NewClip("bad", 3, 1); !errors.Is(err, ErrParams) {
		t.Errorf("NewClip(3, 1) error = %v, want ErrParams", err)
	}
}

func TestScaleShift(t *testing.T) {
	id := NewScaleShift("id", 1, 0)
	for _, a := range []float64{-3, 0, 0.25, 1e9} {
		if got := id.ComputeValue(req(0), []float64{a}); got != a {
			t.Errorf("scaleShift(%v, 1, 0) = %v", a, got)
		}
	}
	m := NewScaleShift("m", 2, 1)
	if got := m.ComputeValue(req(0), []float64{3}); got != 7 {
		t.Errorf("3*2+1 = %v", got)
	}
	if got := m.ComputeValue(req(0), nil); got != 1 {
		t.Errorf("unconnected input = %v, want shift 1", got)
	}
}

func TestRandom(t *testing.T) {
	flat, err := NewRandom("r", RandomParams{Mean: 0.5, StdDev: 0, Distribution: Uniform})
	if err != nil {
		t.Fatal(err)
	}
	for seed := uint64(0); seed < 20; seed++ {
		if got := flat.ComputeValue(req(seed), nil); got != 0.5 {
			t.Fatalf("seed %d: zero-spread uniform = %v, want 0.5", seed, got)
		}
	}

	g, _ := NewRandom("g", RandomParams{Mean: 10, StdDev: 2, Distribution: Gaussian})
	if a, b := g.ComputeValue(req(7), nil), g.ComputeValue(req(7), nil); a != b {
		t.Errorf("same seed gave %v and %v", a, b)
	}
	if a, b := g.ComputeValue(req(7), nil), g.ComputeValue(req(8), nil); a == b {
		t.Errorf("different seeds gave the same sample %v", a)
	}

	if _, err := NewRandom("bad", RandomParams{StdDev: -1}); !errors.Is(err, ErrParams) {
		t.Errorf("negative deviation error = %v", err)
	}
	if _, err := NewRandom("bad", RandomParams{Distribution: 5}); !errors.Is(err, ErrParams) {
		t.Errorf("unknown distribution error = %v", err)
	}
}

func TestFunctionCurve(t *testing.T) {
	m := NewFunction("f", curve.MustNew(curve.Point{X: 0, Y: 0}, curve.Point{X: 1, Y: 2}))
	tests := []struct{ a, want float64 }{{0.5, 1}, {-1, 0}, {5, 2}}
	for _, tt := range tests {
		if got := m.ComputeValue(req(0), []float64{tt.a}); got != tt.want {
			t.Errorf("f(%v) = %v, want %v", tt.a, got, tt.want)
		}
	}
	if got := m.ComputeValue(req(0), nil); got != 0 {
		t.Errorf("f(<unconnected>) = %v, want 0", got)
	}
	empty := NewFunction("e", curve.Curve{})
	if got := empty.ComputeValue(req(0), []float64{3}); got != 0 {
		t.Errorf("empty curve = %v, want 0", got)
	}
}

func TestNonFiniteOperands(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	clip, _ := NewClip("clip", 0, 1)
	fn := NewFunction("fn", curve.MustNew(curve.Point{X: 0, Y: 3}, curve.Point{X: 1, Y: 5}))
	unary := func(op UnaryOp) graph.ValueModule {
		m, err := NewUnary(op.String(), op)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	binary := func(op BinaryOp) graph.ValueModule {
		m, err := NewBinary(op.String(), op)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	same := func(want float64) func(float64) bool {
		return func(got float64) bool { return got == want }
	}
	isNaN := func(got float64) bool { return math.IsNaN(got) }

	tests := []struct {
		name string
		m    graph.ValueModule
		vars []float64
		ok   func(float64) bool
	}{
		{"clip NaN", clip, []float64{nan}, same(0)},
		{"clip +Inf", clip, []float64{inf}, same(1)},
		{"clip -Inf", clip, []float64{-inf}, same(0)},
		{"function NaN", fn, []float64{nan}, same(0)},
		{"function +Inf", fn, []float64{inf}, same(5)},
		{"function -Inf", fn, []float64{-inf}, same(3)},
		{"scale-shift NaN", NewScaleShift("ss", 2, 1), []float64{nan}, isNaN},
		{"scale-shift +Inf", NewScaleShift("ss", 2, 1), []float64{inf}, same(inf)},
		{"abs -Inf", unary(OpAbs), []float64{-inf}, same(inf)},
		{"abs NaN", unary(OpAbs), []float64{nan}, isNaN},
		{"sin +Inf", unary(OpSin), []float64{inf}, isNaN},
		{"cos NaN", unary(OpCos), []float64{nan}, isNaN},
		{"exp -Inf", unary(OpExp), []float64{-inf}, same(0)},
		{"exp +Inf", unary(OpExp), []float64{inf}, same(inf)},
		{"log NaN", unary(OpLog), []float64{nan}, same(0)},
		{"log -Inf", unary(OpLog), []float64{-inf}, same(0)},
		{"sqrt +Inf", unary(OpSqrt), []float64{inf}, same(0)},
		{"add Inf-Inf", binary(OpAdd), []float64{inf, -inf}, isNaN},
		{"sub Inf-Inf", binary(OpSub), []float64{inf, inf}, isNaN},
		{"mul 0*Inf", binary(OpMul), []float64{0, inf}, isNaN},
		{"div Inf/0", binary(OpDiv), []float64{inf, 0}, same(0)},
		{"div 1/Inf", binary(OpDiv), []float64{1, inf}, same(0)},
		{"max NaN", binary(OpMax), []float64{nan, 1}, isNaN},
		{"min -Inf", binary(OpMin), []float64{-inf, 1}, same(-inf)},
		{"pow Inf", binary(OpPow), []float64{inf, 2}, same(0)},
		{"pow NaN", binary(OpPow), []float64{nan, 2}, same(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.ComputeValue(req(0), tt.vars)
			if !tt.ok(got) {
				t.Errorf("ComputeValue(%v) = %v", tt.vars, got)
			}
		})
	}
}

func TestValueInvalidOutputPort(t *testing.T) {
	m := NewConstant("c", 42)
	for _, port := range []int{1, -1, 7} {
		r := req(0)
		r.Output = port
		if got := m.ComputeValue(r, nil); got != 0 {
			t.Errorf("output %d = %v, want 0", port, got)
		}
	}
}

func TestApplyAndModifiedHook(t *testing.T) {
	m := NewConstant("c", 1)
	var fired []graph.ModuleID
	m.OnModified(func(id graph.ModuleID) { fired = append(fired, id) })

	if err := m.Apply(ConstantParams{Value: 9}); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().(ConstantParams).Value; got != 9 {
		t.Errorf("Snapshot value = %v, want 9", got)
	}
	if len(fired) != 1 || fired[0] != m.ID() {
		t.Errorf("hook calls = %v", fired)
	}

	if err := m.Apply(ClipParams{}); !errors.Is(err, ErrParams) {
		t.Errorf("wrong snapshot type error = %v", err)
	}
	c, _ := NewClip("c", 0, 1)
	if err := c.Apply(ClipParams{Min: 2, Max: 1}); !errors.Is(err, ErrParams) {
		t.Errorf("inverted clip error = %v", err)
	}
	if got := c.Snapshot(); got != (ClipParams{Min: 0, Max: 1}) {
		t.Errorf("rejected Apply changed params to %+v", got)
	}
	if len(fired) != 1 {
		t.Errorf("failed Apply fired the hook")
	}
}

func TestValueDuplicate(t *testing.T) {
	m, _ := NewBinary("b", OpPow)
	d := m.Duplicate().(*Binary)
	if d.ID() == m.ID() {
		t.Error("duplicate kept the ID")
	}
	if d.Name() != "b" || d.Snapshot() != m.Snapshot() {
		t.Errorf("duplicate = %s %+v", d.Name(), d.Snapshot())
	}
}
