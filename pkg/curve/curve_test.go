package curve

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/chazu/grove/pkg/wire"
	"github.com/google/go-cmp/cmp"
)

func TestEval(t *testing.T) {
	c := MustNew(Point{2, 10}, Point{0, 0}, Point{4, 0})
	tests := []struct {
		x, want float64
	}{
		{-5, 0},
		{0, 0},
		{1, 5},
		{2, 10},
		{3, 5},
		{4, 0},
		{100, 0},
	}
	for _, tt := range tests {
		if got := c.Eval(tt.x); got != tt.want {
			t.Errorf("Eval(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestEvalEmptyAndSingle(t *testing.T) {
	var empty Curve
	if got := empty.Eval(3); got != 0 {
		t.Errorf("empty Eval = %v, want 0", got)
	}
	single := MustNew(Point{1, 7})
	for _, x := range []float64{-1, 1, 9} {
		if got := single.Eval(x); got != 7 {
			t.Errorf("single Eval(%v) = %v, want 7", x, got)
		}
	}
}

func TestEvalNonFinite(t *testing.T) {
	c := MustNew(Point{0, 1}, Point{1, 2}, Point{2, 4})
	tests := []struct {
		x, want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), 4},
		{math.Inf(-1), 1},
	}
	for _, tt := range tests {
		if got := c.Eval(tt.x); got != tt.want {
			t.Errorf("Eval(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestLinearIsIdentityOnUnitInterval(t *testing.T) {
	c := Linear()
	for _, x := range []float64{0, 0.25, 0.5, 1} {
		if got := c.Eval(x); got != x {
			t.Errorf("Eval(%v) = %v", x, got)
		}
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	cases := map[string][]Point{
		"duplicate x": {{1, 0}, {1, 2}},
		"nan":         {{math.NaN(), 0}},
		"inf":         {{0, math.Inf(1)}},
	}
	for name, ps := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(ps...); !errors.Is(err, ErrInvalidCurve) {
				t.Errorf("err = %v, want ErrInvalidCurve", err)
			}
		})
	}
}

func TestNewDoesNotAliasInput(t *testing.T) {
	ps := []Point{{1, 1}, {0, 0}}
	c := MustNew(ps...)
	ps[0].Y = 99
	if got := c.Eval(1); got != 1 {
		t.Errorf("curve changed with its input slice: Eval(1) = %v", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	c := MustNew(Point{0, 1}, Point{0.5, 0.2}, Point{1, 0})
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	c.Encode(w)
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	r := wire.NewReader(&buf)
	got := Decode(r)
	if err := r.Err(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(c.Points(), got.Points()); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsHugeCount(t *testing.T) {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	w.Int32(MaxPoints + 1)
	r := wire.NewReader(&buf)
	Decode(r)
	if !errors.Is(r.Err(), ErrInvalidCurve) {
		t.Fatalf("err = %v, want ErrInvalidCurve", r.Err())
	}
}
