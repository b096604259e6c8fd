package modules

import (
	"fmt"
	"math"

	"github.com/chazu/grove/pkg/curve"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/rng"
	"github.com/chazu/grove/pkg/wire"
	"github.com/hashicorp/go-hclog"
)

var (
	valueOutputs = []graph.Port{{Name: "value", Kind: graph.PortValue, Tooltip: "computed value"}}
	unaryInputs  = []graph.Port{{Name: "a", Kind: graph.PortValue, Tooltip: "operand, 0 when unconnected"}}
	binaryInputs = []graph.Port{
		{Name: "a", Kind: graph.PortValue, Tooltip: "first operand, 0 when unconnected"},
		{Name: "b", Kind: graph.PortValue, Tooltip: "second operand, 0 when unconnected"},
	}
)

func logFor(req graph.Request) hclog.Logger {
	if req.Log == nil {
		return hclog.NewNullLogger()
	}
	return req.Log
}

// badValueOutput logs and reports a request for any output other than 0.
func badValueOutput(req graph.Request) bool {
	if req.Output == 0 {
		return false
	}
	logFor(req).Warn("invalid output port", "port", req.Output)
	return true
}

func operand(vars []float64, i int) float64 {
	if i < len(vars) {
		return vars[i]
	}
	return 0
}

// Constant produces a fixed value.
type Constant struct {
	graph.Base
	hooks
	value float64
}

// ConstantParams is the Constant snapshot.
type ConstantParams struct{ Value float64 }

func (ConstantParams) params() {}

// NewConstant returns a constant module producing value.
func NewConstant(name string, value float64) *Constant {
	return &Constant{Base: graph.NewBase(name), value: value}
}

func (m *Constant) Kind() graph.Kind { return graph.KindConstant }
func (m *Constant) Inputs() []graph.Port { return nil }
func (m *Constant) Outputs() []graph.Port { return valueOutputs }
func (m *Constant) Snapshot() Params { return ConstantParams{Value: m.value} }
func (m *Constant) EncodeFields(w *wire.Writer) { w.Float64(m.value) }
func (m *Constant) DecodeFields(r *wire.Reader) { m.value = r.Float64() }

func (m *Constant) Duplicate() graph.Module {
	return &Constant{Base: m.Fork(), value: m.value}
}

func (m *Constant) Apply(p Params) error {
	cp, ok := p.(ConstantParams)
	if !ok {
		return paramsError(ConstantParams{}, p)
	}
	m.value = cp.Value
	m.modified(m.ID())
	return nil
}

func (m *Constant) ComputeValue(req graph.Request, _ []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	return m.value
}

// Random produces a seeded random value.
type Random struct {
	graph.Base
	hooks
	p RandomParams
}

// RandomParams is the Random snapshot.
type RandomParams struct {
	Mean         float64
	StdDev       float64
	Distribution Distribution
}

func (RandomParams) params() {}

func (p RandomParams) validate() error {
	if !p.Distribution.Valid() {
		return fmt.Errorf("%w: distribution %d", ErrParams, p.Distribution)
	}
	if p.StdDev < 0 || math.IsNaN(p.StdDev) {
		return fmt.Errorf("%w: standard deviation %g", ErrParams, p.StdDev)
	}
	return nil
}

// NewRandom returns a random module.
func NewRandom(name string, p RandomParams) (*Random, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Random{Base: graph.NewBase(name), p: p}, nil
}

func (m *Random) Kind() graph.Kind { return graph.KindRandom }
func (m *Random) Inputs() []graph.Port { return nil }
func (m *Random) Outputs() []graph.Port { return valueOutputs }
func (m *Random) Snapshot() Params { return m.p }

func (m *Random) Duplicate() graph.Module {
	return &Random{Base: m.Fork(), p: m.p}
}

func (m *Random) Apply(p Params) error {
	rp, ok := p.(RandomParams)
	if !ok {
		return paramsError(RandomParams{}, p)
	}
	if err := rp.validate(); err != nil {
		return err
	}
	m.p = rp
	m.modified(m.ID())
	return nil
}

func (m *Random) EncodeFields(w *wire.Writer) {
	w.Float64(m.p.Mean)
	w.Float64(m.p.StdDev)
	w.Int16(int16(m.p.Distribution))
}

func (m *Random) DecodeFields(r *wire.Reader) {
	p := RandomParams{Mean: r.Float64(), StdDev: r.Float64(), Distribution: Distribution(r.Int16())}
	if r.Err() != nil {
		return
	}
	if err := p.validate(); err != nil {
		r.Fail(fmt.Errorf("%w: %v", wire.ErrMalformed, err))
		return
	}
	m.p = p
}

func (m *Random) ComputeValue(req graph.Request, _ []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	seq := req.Seq
	if seq == nil {
		seq = rng.New(0)
	}
	if m.p.Distribution == Gaussian {
		return seq.GaussianSpread(m.p.Mean, m.p.StdDev)
	}
	return seq.UniformSpread(m.p.Mean, m.p.StdDev)
}

// ScaleShift produces a*scale + shift.
type ScaleShift struct {
	graph.Base
	hooks
	p ScaleShiftParams
}

// ScaleShiftParams is the ScaleShift snapshot.
type ScaleShiftParams struct{ Scale, Shift float64 }

func (ScaleShiftParams) params() {}

// NewScaleShift returns a scale-shift module.
func NewScaleShift(name string, scale, shift float64) *ScaleShift {
	return &ScaleShift{Base: graph.NewBase(name), p: ScaleShiftParams{Scale: scale, Shift: shift}}
}

func (m *ScaleShift) Kind() graph.Kind { return graph.KindScaleShift }
func (m *ScaleShift) Inputs() []graph.Port { return unaryInputs }
func (m *ScaleShift) Outputs() []graph.Port { return valueOutputs }
func (m *ScaleShift) Snapshot() Params { return m.p }

func (m *ScaleShift) Duplicate() graph.Module {
	return &ScaleShift{Base: m.Fork(), p: m.p}
}

func (m *ScaleShift) Apply(p Params) error {
	sp, ok := p.(ScaleShiftParams)
	if !ok {
		return paramsError(ScaleShiftParams{}, p)
	}
	m.p = sp
	m.modified(m.ID())
	return nil
}

func (m *ScaleShift) EncodeFields(w *wire.Writer) {
	w.Float64(m.p.Scale)
	w.Float64(m.p.Shift)
}

func (m *ScaleShift) DecodeFields(r *wire.Reader) {
	m.p.Scale = r.Float64()
	m.p.Shift = r.Float64()
}

func (m *ScaleShift) ComputeValue(req graph.Request, vars []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	return operand(vars, 0)*m.p.Scale + m.p.Shift
}

// Clip clamps its input to [Min, Max].
type Clip struct {
	graph.Base
	hooks
	p ClipParams
}

// ClipParams is the Clip snapshot. Min must not exceed Max.
type ClipParams struct{ Min, Max float64 }

func (ClipParams) params() {}

func (p ClipParams) validate() error {
	if p.Min > p.Max {
		return fmt.Errorf("%w: clip min %g > max %g", ErrParams, p.Min, p.Max)
	}
	return nil
}

// NewClip returns a clip module.
func NewClip(name string, min, max float64) (*Clip, error) {
	p := ClipParams{Min: min, Max: max}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Clip{Base: graph.NewBase(name), p: p}, nil
}

func (m *Clip) Kind() graph.Kind { return graph.KindClip }
func (m *Clip) Inputs() []graph.Port { return unaryInputs }
func (m *Clip) Outputs() []graph.Port { return valueOutputs }
func (m *Clip) Snapshot() Params { return m.p }

func (m *Clip) Duplicate() graph.Module {
	return &Clip{Base: m.Fork(), p: m.p}
}

func (m *Clip) Apply(p Params) error {
	cp, ok := p.(ClipParams)
	if !ok {
		return paramsError(ClipParams{}, p)
	}
	if err := cp.validate(); err != nil {
		return err
	}
	m.p = cp
	m.modified(m.ID())
	return nil
}

func (m *Clip) EncodeFields(w *wire.Writer) {
	w.Float64(m.p.Min)
	w.Float64(m.p.Max)
}

func (m *Clip) DecodeFields(r *wire.Reader) {
	m.p.Min = r.Float64()
	m.p.Max = r.Float64()
}

// ComputeValue clamps with min(max(a, Min), Max) whatever the bounds' order.
// A NaN input clamps as Min.
func (m *Clip) ComputeValue(req graph.Request, vars []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	a := operand(vars, 0)
	if math.IsNaN(a) {
		logFor(req).Warn("clip input is NaN", "min", m.p.Min)
		a = m.p.Min
	}
	return math.Min(math.Max(a, m.p.Min), m.p.Max)
}

// Unary applies a unary function to its input.
type Unary struct {
	graph.Base
	hooks
	op UnaryOp
}

// UnaryParams is the Unary snapshot.
type UnaryParams struct{ Op UnaryOp }

func (UnaryParams) params() {}

// NewUnary returns a unary module.
func NewUnary(name string, op UnaryOp) (*Unary, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: unary operator %d", ErrParams, op)
	}
	return &Unary{Base: graph.NewBase(name), op: op}, nil
}

func (m *Unary) Kind() graph.Kind { return graph.KindUnary }
func (m *Unary) Inputs() []graph.Port { return unaryInputs }
func (m *Unary) Outputs() []graph.Port { return valueOutputs }
func (m *Unary) Snapshot() Params { return UnaryParams{Op: m.op} }
func (m *Unary) EncodeFields(w *wire.Writer) { w.Int16(int16(m.op)) }

func (m *Unary) Duplicate() graph.Module {
	return &Unary{Base: m.Fork(), op: m.op}
}

func (m *Unary) Apply(p Params) error {
	up, ok := p.(UnaryParams)
	if !ok {
		return paramsError(UnaryParams{}, p)
	}
	if !up.Op.Valid() {
		return fmt.Errorf("%w: unary operator %d", ErrParams, up.Op)
	}
	m.op = up.Op
	m.modified(m.ID())
	return nil
}

func (m *Unary) DecodeFields(r *wire.Reader) {
	op := UnaryOp(r.Int16())
	if r.Err() != nil {
		return
	}
	if !op.Valid() {
		r.Fail(fmt.Errorf("%w: unary operator %d", wire.ErrMalformed, op))
		return
	}
	m.op = op
}

// ComputeValue applies the operator. log and sqrt of a non-positive input
// log a warning and return 0. For positive input they also return 0: this
// is a legacy defect (the result is computed from 0 instead of a) kept on
// purpose so existing graphs evaluate unchanged.
func (m *Unary) ComputeValue(req graph.Request, vars []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	a := operand(vars, 0)
	switch m.op {
	case OpAbs:
		return math.Abs(a)
	case OpSin:
		return math.Sin(a * math.Pi / 2)
	case OpCos:
		return math.Cos(a * math.Pi / 2)
	case OpExp:
		return math.Exp(a)
	case OpLog, OpSqrt:
		if a <= 0 {
			logFor(req).Warn("domain error", "op", m.op.String(), "a", a)
		}
		return 0
	}
	return 0
}

// Binary applies a binary operator to its two inputs.
type Binary struct {
	graph.Base
	hooks
	op BinaryOp
}

// BinaryParams is the Binary snapshot.
type BinaryParams struct{ Op BinaryOp }

func (BinaryParams) params() {}

// NewBinary returns a binary module.
func NewBinary(name string, op BinaryOp) (*Binary, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: binary operator %d", ErrParams, op)
	}
	return &Binary{Base: graph.NewBase(name), op: op}, nil
}

func (m *Binary) Kind() graph.Kind { return graph.KindBinary }
func (m *Binary) Inputs() []graph.Port { return binaryInputs }
func (m *Binary) Outputs() []graph.Port { return valueOutputs }
func (m *Binary) Snapshot() Params { return BinaryParams{Op: m.op} }
func (m *Binary) EncodeFields(w *wire.Writer) { w.Int16(int16(m.op)) }

func (m *Binary) Duplicate() graph.Module {
	return &Binary{Base: m.Fork(), op: m.op}
}

func (m *Binary) Apply(p Params) error {
	bp, ok := p.(BinaryParams)
	if !ok {
		return paramsError(BinaryParams{}, p)
	}
	if !bp.Op.Valid() {
		return fmt.Errorf("%w: binary operator %d", ErrParams, bp.Op)
	}
	m.op = bp.Op
	m.modified(m.ID())
	return nil
}

func (m *Binary) DecodeFields(r *wire.Reader) {
	op := BinaryOp(r.Int16())
	if r.Err() != nil {
		return
	}
	if !op.Valid() {
		r.Fail(fmt.Errorf("%w: binary operator %d", wire.ErrMalformed, op))
		return
	}
	m.op = op
}

func (m *Binary) ComputeValue(req graph.Request, vars []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	a, b := operand(vars, 0), operand(vars, 1)
	switch m.op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			logFor(req).Warn("division by zero", "a", a)
			return 0
		}
		return a / b
	case OpGreater, OpMax:
		return math.Max(a, b)
	case OpLower, OpMin:
		return math.Min(a, b)
	case OpPow:
		v := math.Pow(a, b)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			logFor(req).Warn("pow result not finite", "a", a, "b", b)
			return 0
		}
		return v
	}
	return 0
}

// Function evaluates a curve at its input.
type Function struct {
	graph.Base
	hooks
	curve curve.Curve
}

// FunctionParams is the Function snapshot.
type FunctionParams struct{ Curve curve.Curve }

func (FunctionParams) params() {}

// NewFunction returns a function module evaluating c.
func NewFunction(name string, c curve.Curve) *Function {
	return &Function{Base: graph.NewBase(name), curve: c}
}

func (m *Function) Kind() graph.Kind { return graph.KindFunction }
func (m *Function) Inputs() []graph.Port { return unaryInputs }
func (m *Function) Outputs() []graph.Port { return valueOutputs }
func (m *Function) Snapshot() Params { return FunctionParams{Curve: m.curve} }
func (m *Function) EncodeFields(w *wire.Writer) { m.curve.Encode(w) }

func (m *Function) DecodeFields(r *wire.Reader) {
	c := curve.Decode(r)
	if r.Err() == nil {
		m.curve = c
	}
}

func (m *Function) Duplicate() graph.Module {
	return &Function{Base: m.Fork(), curve: m.curve}
}

func (m *Function) Apply(p Params) error {
	fp, ok := p.(FunctionParams)
	if !ok {
		return paramsError(FunctionParams{}, p)
	}
	m.curve = fp.Curve
	m.modified(m.ID())
	return nil
}

func (m *Function) ComputeValue(req graph.Request, vars []float64) float64 {
	if badValueOutput(req) {
		return 0
	}
	a := operand(vars, 0)
	if math.IsNaN(a) {
		logFor(req).Warn("function input is NaN")
		return 0
	}
	return m.curve.Eval(a)
}
