package modules

// Distribution selects the shape of a random module's samples.
type Distribution int16

const (
	Uniform  Distribution = iota // uniform with the requested deviation
	Gaussian                     // normal
)

var distributionNames = [...]string{Uniform: "uniform", Gaussian: "gaussian"}

func (d Distribution) String() string { return lookupName(distributionNames[:], int(d)) }

// Valid reports whether d names a known distribution.
func (d Distribution) Valid() bool { return d >= 0 && int(d) < len(distributionNames) }

// ParseDistribution returns the distribution named s.
func ParseDistribution(s string) (Distribution, bool) {
	i, ok := parseName(distributionNames[:], s)
	return Distribution(i), ok
}

// UnaryOp is the function applied by a unary module.
type UnaryOp int16

const (
	OpAbs  UnaryOp = iota // |a|
	OpSin                 // sin(a·π/2)
	OpCos                 // cos(a·π/2)
	OpExp                 // e^a
	OpLog                 // see Unary.ComputeValue
	OpSqrt                // see Unary.ComputeValue
)

var unaryNames = [...]string{
	OpAbs: "abs", OpSin: "sin", OpCos: "cos", OpExp: "exp", OpLog: "log", OpSqrt: "sqrt",
}

func (op UnaryOp) String() string { return lookupName(unaryNames[:], int(op)) }

// Valid reports whether op names a known unary function.
func (op UnaryOp) Valid() bool { return op >= 0 && int(op) < len(unaryNames) }

// ParseUnaryOp returns the unary function named s.
func ParseUnaryOp(s string) (UnaryOp, bool) {
	i, ok := parseName(unaryNames[:], s)
	return UnaryOp(i), ok
}

// BinaryOp is the operator applied by a binary module.
type BinaryOp int16

const (
	OpAdd     BinaryOp = iota // a + b
	OpSub                     // a - b
	OpMul                     // a * b
	OpDiv                     // a / b, 0 when b is 0
	OpGreater                 // the greater operand
	OpLower                   // the lesser operand
	OpMin                     // the lesser operand
	OpMax                     // the greater operand
	OpPow                     // a^b, 0 when not finite
)

var binaryNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpGreater: "greater", OpLower: "lower", OpMin: "min", OpMax: "max", OpPow: "pow",
}

var binarySymbols = map[string]BinaryOp{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, ">": OpGreater, "<": OpLower,
}

func (op BinaryOp) String() string { return lookupName(binaryNames[:], int(op)) }

// Valid reports whether op names a known binary operator.
func (op BinaryOp) Valid() bool { return op >= 0 && int(op) < len(binaryNames) }

// ParseBinaryOp returns the operator named s. The symbols + - * / > < are
// accepted as well as the names.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	if op, ok := binarySymbols[s]; ok {
		return op, true
	}
	i, ok := parseName(binaryNames[:], s)
	return BinaryOp(i), ok
}

func lookupName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return "unknown"
}

func parseName(names []string, s string) (int, bool) {
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}
