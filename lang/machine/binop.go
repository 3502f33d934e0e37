package machine

import (
	"math"
	"strings"

	"github.com/reklawnos/housecat/lang/compiler"
)

// binaryOp implements §4.4's type contract table plus tuple broadcasting:
// if both operands are equal-length tuples, the operator applies
// element-wise and the result is a tuple of the same length.
func binaryOp(op compiler.Opcode, lhs, rhs Value, line int) (Value, error) {
	// Membership is not broadcast: a tuple on the right is the haystack.
	if op == compiler.IN {
		return inOp(lhs, rhs, line)
	}
	if lhs.Kind == KindTuple && rhs.Kind == KindTuple {
		if len(lhs.Tuple) != len(rhs.Tuple) {
			return Nil, arityError(line, "tuple broadcast length mismatch: %d vs %d", len(lhs.Tuple), len(rhs.Tuple))
		}
		out := make([]Value, len(lhs.Tuple))
		for i := range lhs.Tuple {
			v, err := binaryOp(op, lhs.Tuple[i], rhs.Tuple[i], line)
			if err != nil {
				return Nil, err
			}
			out[i] = v
		}
		return Tuple(out), nil
	}
	if lhs.Kind == KindTuple || rhs.Kind == KindTuple {
		return Nil, arityError(line, "cannot apply operator between a tuple and a %s", scalarKind(lhs, rhs))
	}

	// Equality is defined over any pair of kinds (§4.4 row: =, != any x any).
	switch op {
	case compiler.EQ:
		return Bool(lhs.Equals(rhs)), nil
	case compiler.NEQ:
		return Bool(!lhs.Equals(rhs)), nil
	}

	switch op {
	case compiler.AND:
		if lhs.Kind != KindBool || rhs.Kind != KindBool {
			return Nil, typeError(line, "&& requires two bools, got %s and %s", lhs.Kind, rhs.Kind)
		}
		return Bool(lhs.Bool && rhs.Bool), nil
	case compiler.OR:
		if lhs.Kind != KindBool || rhs.Kind != KindBool {
			return Nil, typeError(line, "|| requires two bools, got %s and %s", lhs.Kind, rhs.Kind)
		}
		return Bool(lhs.Bool || rhs.Bool), nil
	}

	if op == compiler.ADD && lhs.Kind == KindString && rhs.Kind == KindString {
		return String(lhs.Str + rhs.Str), nil
	}

	switch {
	case lhs.Kind == KindInt && rhs.Kind == KindInt:
		return intOp(op, lhs.Int, rhs.Int, line)
	case lhs.Kind == KindFloat && rhs.Kind == KindFloat:
		return floatOp(op, lhs.Float, rhs.Float, line)
	}

	return Nil, typeError(line, "operator %s not defined for %s and %s", op, lhs.Kind, rhs.Kind)
}

func scalarKind(lhs, rhs Value) Kind {
	if lhs.Kind != KindTuple {
		return lhs.Kind
	}
	return rhs.Kind
}

func intOp(op compiler.Opcode, l, r int64, line int) (Value, error) {
	switch op {
	case compiler.ADD:
		return Int(l + r), nil
	case compiler.SUB:
		return Int(l - r), nil
	case compiler.MUL:
		return Int(l * r), nil
	case compiler.DIV:
		if r == 0 {
			return Nil, fatalHostError(line, &ExecError{Kind: ErrFatalHost, Msg: "integer division by zero"})
		}
		return Int(l / r), nil
	case compiler.MOD:
		if r == 0 {
			return Nil, fatalHostError(line, &ExecError{Kind: ErrFatalHost, Msg: "integer division by zero"})
		}
		return Int(l % r), nil
	case compiler.EXP:
		// Int result when it fits in an int64; negative exponents and
		// overflowing results yield a Float.
		p := math.Pow(float64(l), float64(r))
		if r >= 0 && p >= -(1<<63) && p < 1<<63 {
			return Int(int64(p)), nil
		}
		return Float(p), nil
	case compiler.LT:
		return Bool(l < r), nil
	case compiler.LE:
		return Bool(l <= r), nil
	case compiler.GT:
		return Bool(l > r), nil
	case compiler.GE:
		return Bool(l >= r), nil
	}
	return Nil, typeError(line, "operator %s not defined for ints", op)
}

func floatOp(op compiler.Opcode, l, r float64, line int) (Value, error) {
	switch op {
	case compiler.ADD:
		return Float(l + r), nil
	case compiler.SUB:
		return Float(l - r), nil
	case compiler.MUL:
		return Float(l * r), nil
	case compiler.DIV:
		return Float(l / r), nil // IEEE rules: never fatal, may yield Inf/NaN.
	case compiler.MOD:
		return Float(math.Mod(l, r)), nil
	case compiler.EXP:
		return Float(math.Pow(l, r)), nil
	case compiler.LT:
		return Bool(l < r), nil
	case compiler.LE:
		return Bool(l <= r), nil
	case compiler.GT:
		return Bool(l > r), nil
	case compiler.GE:
		return Bool(l >= r), nil
	}
	return Nil, typeError(line, "operator %s not defined for floats", op)
}

// inOp implements tuple/string membership: `x in t` is true if t is a
// Tuple containing an element equal to x, or t is a String and x is a
// String occurring within it as a substring.
func inOp(lhs, rhs Value, line int) (Value, error) {
	switch rhs.Kind {
	case KindTuple:
		for _, item := range rhs.Tuple {
			if lhs.Equals(item) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case KindString:
		if lhs.Kind != KindString {
			return Nil, typeError(line, "in requires a string needle against a string haystack, got %s", lhs.Kind)
		}
		return Bool(strings.Contains(rhs.Str, lhs.Str)), nil
	default:
		return Nil, typeError(line, "in requires a tuple or string on the right, got %s", rhs.Kind)
	}
}
