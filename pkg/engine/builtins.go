package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/grove/pkg/curve"
	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/modules"
	"github.com/chazu/grove/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms graph source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: scale-shift -> scale_shift
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

// sexpModule refers to a module added to the graph under construction.
type sexpModule struct {
	m graph.Module
}

func (s *sexpModule) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", s.m.Kind(), s.m.Name())
}
func (s *sexpModule) Type() *zygo.RegisteredType { return nil }

// sexpShape refers to a store entry created by box or cylinder.
type sexpShape struct {
	index int32
	name  string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %q %d)", s.name, s.index)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpPoint is a curve control point.
type sexpPoint struct {
	p curve.Point
}

func (s *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(point %g %g)", s.p.X, s.p.Y)
}
func (s *sexpPoint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports the keyword name of s when it is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case !ok:
			result.positional = append(result.positional, args[i])
		case i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		default:
			// Trailing keyword without a value is a flag.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// arg returns the keyword argument key, falling back to positional i.
func (a kwArgs) arg(key string, i int) (zygo.Sexp, bool) {
	if v, ok := a.kw[key]; ok {
		return v, true
	}
	if i >= 0 && i < len(a.positional) {
		return a.positional[i], true
	}
	return nil, false
}

// number reads the numeric argument key (or positional i) into dst.
func (a kwArgs) number(key string, i int, dst *float64) error {
	v, ok := a.arg(key, i)
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// flag reads the boolean keyword argument key into dst.
func (a kwArgs) flag(key string, dst *bool) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	b, err := toBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false, a bare flag keyword, or a number (non-zero is
// true).
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toModule extracts the module behind a module reference.
func toModule(s zygo.Sexp) (graph.Module, error) {
	if ref, ok := s.(*sexpModule); ok {
		return ref.m, nil
	}
	return nil, fmt.Errorf("expected module, got %T (%s)", s, s.SexpString(nil))
}

// toIndex extracts a store index from a shape or a plain number.
func toIndex(s zygo.Sexp) (int32, error) {
	switch v := s.(type) {
	case *sexpShape:
		return v.index, nil
	case *zygo.SexpInt:
		return int32(v.Val), nil
	}
	return 0, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toPoints extracts control points from point values, descending into lists.
func toPoints(args []zygo.Sexp) ([]curve.Point, error) {
	var pts []curve.Point
	for _, a := range args {
		if p, ok := a.(*sexpPoint); ok {
			pts = append(pts, p.p)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, fmt.Errorf("expected point: %w", err)
		}
		sub, err := toPoints(items)
		if err != nil {
			return nil, err
		}
		pts = append(pts, sub...)
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Graph construction
// ---------------------------------------------------------------------------

// builder accumulates the graph built by one evaluation.
type builder struct {
	g     *graph.Graph
	env   modules.Env
	store *scene.Store
	count map[string]int
}

func newBuilder(env modules.Env, store *scene.Store) *builder {
	return &builder{g: graph.New(), env: env, store: store, count: make(map[string]int)}
}

// name returns the :name argument or a generated "prefix-N" name.
func (b *builder) name(prefix string, pa kwArgs) (string, error) {
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return "", fmt.Errorf("name: %w", err)
		}
		return s, nil
	}
	b.count[prefix]++
	return fmt.Sprintf("%s-%d", prefix, b.count[prefix]), nil
}

func (b *builder) add(m graph.Module) (zygo.Sexp, error) {
	if err := b.g.Add(m); err != nil {
		return zygo.SexpNull, err
	}
	return &sexpModule{m: m}, nil
}

// source returns the module feeding a value input: a module reference as is,
// or a number wrapped in a new constant.
func (b *builder) source(s zygo.Sexp) (graph.Module, error) {
	if ref, ok := s.(*sexpModule); ok {
		return ref.m, nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return nil, fmt.Errorf("expected module or number: %w", err)
	}
	name, _ := b.name(graph.KindConstant.String(), kwArgs{})
	c := modules.NewConstant(name, f)
	if err := b.g.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// feed connects the value argument key (or positional i) to port of dst.
func (b *builder) feed(pa kwArgs, key string, i int, dst graph.Module, port int) error {
	v, ok := pa.arg(key, i)
	if !ok {
		return nil
	}
	src, err := b.source(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := b.g.Connect(src.ID(), 0, dst.ID(), port); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// children connects every module reference in args to the children port
// of dst, in order.
func (b *builder) children(args []zygo.Sexp, dst graph.Module) error {
	for i, a := range args {
		m, err := toModule(a)
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
		if err := b.g.Connect(m.ID(), modules.OutputWhole, dst.ID(), modules.InputChildren); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	return nil
}

// sizes connects the :size-r and :size-y arguments of an object module.
func (b *builder) sizes(pa kwArgs, dst graph.Module) error {
	if err := b.feed(pa, "size-r", -1, dst, modules.InputSizeR); err != nil {
		return err
	}
	return b.feed(pa, "size-y", -1, dst, modules.InputSizeY)
}

// discard removes every module so repository references are released.
func (b *builder) discard() {
	for _, m := range b.g.Modules() {
		_ = b.g.Remove(m.ID())
	}
}

// shape adds solid to the store under name.
func (b *builder) shape(kind, name string, build func() (int32, error)) (zygo.Sexp, error) {
	if b.env.Kernel == nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", kind, modules.ErrNoKernel)
	}
	if b.store == nil {
		return zygo.SexpNull, fmt.Errorf("%s: no object store", kind)
	}
	index, err := build()
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
	}
	return &sexpShape{index: index, name: name}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(b *builder, pa kwArgs) (zygo.Sexp, error)

// builtins maps DSL names to their implementations. Kebab-case names are
// registered in the underscore form produced by preprocessSource.
var builtins = map[string]builtin{
	"constant":    constantBuiltin,
	"random":      randomBuiltin,
	"scale_shift": scaleShiftBuiltin,
	"clip":        clipBuiltin,
	"unary":       unaryBuiltin,
	"binary":      binaryBuiltin,
	"point":       pointBuiltin,
	"curve":       curveBuiltin,
	"box":         boxBuiltin,
	"cylinder":    cylinderBuiltin,
	"object":      objectBuiltin,
	"leaf":        leafBuiltin,
	"connect":     connectBuiltin,
	"entry":       entryBuiltin,
}

// registerBuiltins installs the graph builtins into a zygomys environment.
// Source must be preprocessed with preprocessSource so that :keyword tokens
// reach the builtins as recognizable strings.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	for name, fn := range builtins {
		dsl := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(b, parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", dsl, err)
			}
			return res, nil
		})
	}
}

// (constant 5 :name "trunk-height")
func constantBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindConstant.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	var value float64
	if err := pa.number("value", 0, &value); err != nil {
		return zygo.SexpNull, err
	}
	return b.add(modules.NewConstant(name, value))
}

// (random :mean 0.5 :sd 0.1 :dist :gaussian)
func randomBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindRandom.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	var p modules.RandomParams
	if err := pa.number("mean", 0, &p.Mean); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("sd", 1, &p.StdDev); err != nil {
		return zygo.SexpNull, err
	}
	if v, ok := pa.kw["dist"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dist: %w", err)
		}
		d, ok := modules.ParseDistribution(s)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("dist: unknown distribution %q", s)
		}
		p.Distribution = d
	}
	m, err := modules.NewRandom(name, p)
	if err != nil {
		return zygo.SexpNull, err
	}
	return b.add(m)
}

// (scale-shift x :scale 2 :shift 1)
func scaleShiftBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindScaleShift.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	scale, shift := 1.0, 0.0
	if err := pa.number("scale", -1, &scale); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("shift", -1, &shift); err != nil {
		return zygo.SexpNull, err
	}
	m := modules.NewScaleShift(name, scale, shift)
	res, err := b.add(m)
	if err != nil {
		return res, err
	}
	return res, b.feed(pa, "in", 0, m, 0)
}

// (clip x :min 0 :max 1)
func clipBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindClip.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	mn, mx := 0.0, 1.0
	if err := pa.number("min", -1, &mn); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("max", -1, &mx); err != nil {
		return zygo.SexpNull, err
	}
	m, err := modules.NewClip(name, mn, mx)
	if err != nil {
		return zygo.SexpNull, err
	}
	res, err := b.add(m)
	if err != nil {
		return res, err
	}
	return res, b.feed(pa, "in", 0, m, 0)
}

// (unary "sin" x) or (unary :op :sqrt :in x)
func unaryBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindUnary.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	v, ok := pa.arg("op", 0)
	if !ok {
		return zygo.SexpNull, fmt.Errorf("missing operator")
	}
	s, err := toKeywordString(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("op: %w", err)
	}
	op, ok := modules.ParseUnaryOp(s)
	if !ok {
		return zygo.SexpNull, fmt.Errorf("op: unknown operator %q", s)
	}
	m, err := modules.NewUnary(name, op)
	if err != nil {
		return zygo.SexpNull, err
	}
	res, err := b.add(m)
	if err != nil {
		return res, err
	}
	return res, b.feed(pa, "in", operandPos(pa, 1), m, 0)
}

// (binary "+" a b) or (binary :op :pow :a x :b 2)
func binaryBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindBinary.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	v, ok := pa.arg("op", 0)
	if !ok {
		return zygo.SexpNull, fmt.Errorf("missing operator")
	}
	s, err := toKeywordString(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("op: %w", err)
	}
	op, ok := modules.ParseBinaryOp(s)
	if !ok {
		return zygo.SexpNull, fmt.Errorf("op: unknown operator %q", s)
	}
	m, err := modules.NewBinary(name, op)
	if err != nil {
		return zygo.SexpNull, err
	}
	res, err := b.add(m)
	if err != nil {
		return res, err
	}
	first := operandPos(pa, 1)
	if err := b.feed(pa, "a", first, m, 0); err != nil {
		return res, err
	}
	return res, b.feed(pa, "b", first+1, m, 1)
}

// operandPos returns the positional index of the first operand: i when the
// operator is positional, i-1 when it was given as :op.
func operandPos(pa kwArgs, i int) int {
	if _, ok := pa.kw["op"]; ok {
		return i - 1
	}
	return i
}

// (point 0 1)
func pointBuiltin(_ *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 {
		return zygo.SexpNull, fmt.Errorf("requires exactly 2 arguments, got %d", len(pa.positional))
	}
	x, err := toFloat64(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("x: %w", err)
	}
	y, err := toFloat64(pa.positional[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("y: %w", err)
	}
	return &sexpPoint{p: curve.Point{X: x, Y: y}}, nil
}

// (curve (point 0 0) (point 1 2) :in x)
func curveBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindFunction.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	args := pa.positional
	if v, ok := pa.kw["points"]; ok {
		args = append([]zygo.Sexp{v}, args...)
	}
	pts, err := toPoints(args)
	if err != nil {
		return zygo.SexpNull, err
	}
	c, err := curve.New(pts...)
	if err != nil {
		return zygo.SexpNull, err
	}
	m := modules.NewFunction(name, c)
	res, err := b.add(m)
	if err != nil {
		return res, err
	}
	return res, b.feed(pa, "in", -1, m, 0)
}

// (box 1 2 1 :name "bark")
func boxBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name("box", pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	dims := [3]float64{1, 1, 1}
	for i, key := range []string{"x", "y", "z"} {
		if err := pa.number(key, i, &dims[i]); err != nil {
			return zygo.SexpNull, err
		}
	}
	return b.shape("box", name, func() (int32, error) {
		return b.store.Add(name, b.env.Kernel.Box(dims[0], dims[1], dims[2])), nil
	})
}

// (cylinder 2 0.1 :segments 12)
func cylinderBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name("cylinder", pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	height, radius, segments := 1.0, 0.5, 16.0
	if err := pa.number("height", 0, &height); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("radius", 1, &radius); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("segments", -1, &segments); err != nil {
		return zygo.SexpNull, err
	}
	return b.shape("cylinder", name, func() (int32, error) {
		if height <= 0 || radius <= 0 || segments < 3 {
			return 0, fmt.Errorf("invalid dimensions %g x %g (%g segments)", height, radius, segments)
		}
		return b.store.Add(name, b.env.Kernel.Cylinder(height, radius, int(segments))), nil
	})
}

// objectIndex reads the shape argument of object and leaf.
func objectIndex(pa kwArgs) ([]zygo.Sexp, int32, error) {
	v, ok := pa.kw["shape"]
	rest := pa.positional
	if !ok {
		if len(rest) == 0 {
			return nil, modules.NoObject, nil
		}
		if _, isModule := rest[0].(*sexpModule); isModule {
			return rest, modules.NoObject, nil
		}
		v, rest = rest[0], rest[1:]
	}
	index, err := toIndex(v)
	if err != nil {
		return nil, 0, fmt.Errorf("shape: %w", err)
	}
	return rest, index, nil
}

// (object trunk child... :size-r r :size-y h :instance-shared true)
func objectBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindObject.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	kids, index, err := objectIndex(pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	p := modules.ObjectParams{Index: index}
	if err := pa.flag("instance-shared", &p.InstanceShared); err != nil {
		return zygo.SexpNull, err
	}
	m := modules.NewObject(b.env, name, p)
	res, err := b.add(m)
	if err != nil {
		m.Unregister()
		return res, err
	}
	if err := b.sizes(pa, m); err != nil {
		return res, err
	}
	return res, b.children(kids, m)
}

// (leaf blade :length 1 :width 0.25 :stem 0.1 :thickness 0.02 :thicken true
//       :profile (list (point 0 1) (point 1 0.5)) :size-r r)
func leafBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	name, err := b.name(graph.KindLeaf.String(), pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	kids, index, err := objectIndex(pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	p := modules.DefaultLeafParams()
	p.Index = index
	for key, dst := range map[string]*float64{
		"length":    &p.Length,
		"width":     &p.Width,
		"stem":      &p.Stem,
		"thickness": &p.Thickness,
	} {
		if err := pa.number(key, -1, dst); err != nil {
			return zygo.SexpNull, err
		}
	}
	if err := pa.flag("instance-shared", &p.InstanceShared); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.flag("thicken", &p.Thicken); err != nil {
		return zygo.SexpNull, err
	}
	if v, ok := pa.kw["profile"]; ok {
		pts, err := toPoints([]zygo.Sexp{v})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("profile: %w", err)
		}
		if p.Profile, err = curve.New(pts...); err != nil {
			return zygo.SexpNull, fmt.Errorf("profile: %w", err)
		}
	}
	m, err := modules.NewLeaf(b.env, name, p)
	if err != nil {
		return zygo.SexpNull, err
	}
	res, err := b.add(m)
	if err != nil {
		m.Unregister()
		return res, err
	}
	if err := b.sizes(pa, m); err != nil {
		return res, err
	}
	return res, b.children(kids, m)
}

// (connect from to :from-port 1 :to-port 0)
func connectBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 {
		return zygo.SexpNull, fmt.Errorf("requires a source and a destination module")
	}
	from, err := toModule(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("from: %w", err)
	}
	to, err := toModule(pa.positional[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("to: %w", err)
	}
	var fromPort, toPort float64
	if err := pa.number("from-port", -1, &fromPort); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.number("to-port", -1, &toPort); err != nil {
		return zygo.SexpNull, err
	}
	if err := b.g.Connect(from.ID(), int(fromPort), to.ID(), int(toPort)); err != nil {
		return zygo.SexpNull, err
	}
	return pa.positional[1], nil
}

// (entry tree)
func entryBuiltin(b *builder, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) == 0 {
		return zygo.SexpNull, fmt.Errorf("requires at least one module")
	}
	for _, a := range pa.positional {
		m, err := toModule(a)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := b.g.AddEntry(m.ID()); err != nil {
			return zygo.SexpNull, err
		}
	}
	return pa.positional[0], nil
}
