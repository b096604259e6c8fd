// Package curve implements the 1-D function curves used by function modules
// and by the leaf thickening profile. A curve is a list of control points
// sorted by X and evaluated by linear interpolation, clamped to the end
// values outside its domain.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/grove/pkg/wire"
)

// MaxPoints bounds the number of control points in a decoded curve.
const MaxPoints = 4096

// ErrInvalidCurve reports control points that cannot form a curve.
var ErrInvalidCurve = errors.New("curve: invalid control points")

// Point is a single control point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a piecewise-linear function. The zero value is the empty curve,
// which evaluates to 0 everywhere.
type Curve struct {
	points []Point
}

// New builds a curve from points in any order. Points must be finite and
// have distinct X values.
func New(points ...Point) (Curve, error) {
	ps := append([]Point(nil), points...)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].X < ps[j].X })
	for i, p := range ps {
		if !finite(p.X) || !finite(p.Y) {
			return Curve{}, fmt.Errorf("%w: point %d is not finite", ErrInvalidCurve, i)
		}
		if i > 0 && ps[i-1].X == p.X {
			return Curve{}, fmt.Errorf("%w: duplicate x %g", ErrInvalidCurve, p.X)
		}
	}
	return Curve{points: ps}, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(points ...Point) Curve {
	c, err := New(points...)
	if err != nil {
		panic(err)
	}
	return c
}

// Linear returns the identity curve y = x over [0, 1].
func Linear() Curve {
	return Curve{points: []Point{{0, 0}, {1, 1}}}
}

// Points returns a copy of the control points in X order.
func (c Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// Len returns the number of control points.
func (c Curve) Len() int {
	return len(c.points)
}

// IsEmpty reports whether the curve has no control points.
func (c Curve) IsEmpty() bool {
	return len(c.points) == 0
}

// Eval returns the curve's value at x. An empty curve or a NaN x gives 0.
func (c Curve) Eval(x float64) float64 {
	ps := c.points
	switch {
	case len(ps) == 0, math.IsNaN(x):
		return 0
	case x <= ps[0].X:
		return ps[0].Y
	case x >= ps[len(ps)-1].X:
		return ps[len(ps)-1].Y
	}
	i := sort.Search(len(ps), func(i int) bool { return ps[i].X >= x })
	a, b := ps[i-1], ps[i]
	t := (x - a.X) / (b.X - a.X)
	return a.Y + t*(b.Y-a.Y)
}

// Encode writes the curve as a point count followed by (x, y) pairs.
func (c Curve) Encode(w *wire.Writer) {
	w.Int32(int32(len(c.points)))
	for _, p := range c.points {
		w.Float64(p.X)
		w.Float64(p.Y)
	}
}

// Decode reads a curve written by Encode. Errors are recorded on r.
func Decode(r *wire.Reader) Curve {
	n := r.Int32()
	if r.Err() != nil {
		return Curve{}
	}
	if n < 0 || n > MaxPoints {
		r.Fail(fmt.Errorf("%w: %d points", ErrInvalidCurve, n))
		return Curve{}
	}
	ps := make([]Point, n)
	for i := range ps {
		ps[i] = Point{X: r.Float64(), Y: r.Float64()}
	}
	if r.Err() != nil {
		return Curve{}
	}
	c, err := New(ps...)
	if err != nil {
		r.Fail(err)
		return Curve{}
	}
	return c
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
