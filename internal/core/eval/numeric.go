package eval

import (
	"math"

	cserrors "covscript.dev/go/cs/errors"
	"covscript.dev/go/cs/token"
	"covscript.dev/go/internal/core/value"
)

// asNumber reports whether v is Int or Float, and its float64 view. Used
// for the mixed int/float promotion rule recovered from
// _examples/original_source/sources/any.cpp (SPEC_FULL.md supplemented
// feature #1): spec.md's operator table is silent on mixed numeric
// operands, but the original promotes int-op-float to float rather than
// erroring.
func asNumber(v value.Value) (f float64, isFloat bool, ok bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), false, true
	case value.Float:
		return float64(n), true, true
	default:
		return 0, false, false
	}
}

var errNotNumeric = cserrors.New(cserrors.Unsupported, "operand is not a number")
var errDivByZero = cserrors.New(cserrors.Unsupported, "division by zero")

// arith implements the (num,num) rows of spec §4.3's operator table:
// + - * / % ** plus the relational and equality rows, with promotion to
// float whenever either operand is a Float.
func arith(op token.Op, l, r value.Value) (value.Value, error) {
	li, lIsInt := l.(value.Int)
	ri, rIsInt := r.(value.Int)
	if lIsInt && rIsInt {
		return arithInt(op, int64(li), int64(ri))
	}

	lf, _, lok := asNumber(l)
	rf, _, rok := asNumber(r)
	if !lok || !rok {
		return nil, errNotNumeric
	}
	return arithFloat(op, lf, rf)
}

func arithInt(op token.Op, l, r int64) (value.Value, error) {
	switch op {
	case token.ADD:
		return value.Int(l + r), nil
	case token.SUB:
		return value.Int(l - r), nil
	case token.MUL:
		return value.Int(l * r), nil
	case token.DIV:
		if r == 0 {
			return nil, errDivByZero
		}
		return value.Int(l / r), nil
	case token.MOD:
		if r == 0 {
			return nil, errDivByZero
		}
		return value.Int(l % r), nil
	case token.POW:
		if r >= 0 {
			return value.Int(intPow(l, r)), nil
		}
		return value.Float(math.Pow(float64(l), float64(r))), nil
	}
	return nil, cserrors.New(cserrors.Internal, "arithInt: unexpected op %s", op)
}

func intPow(base, exp int64) int64 {
	var result int64 = 1
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

func arithFloat(op token.Op, l, r float64) (value.Value, error) {
	switch op {
	case token.ADD:
		return value.Float(l + r), nil
	case token.SUB:
		return value.Float(l - r), nil
	case token.MUL:
		return value.Float(l * r), nil
	case token.DIV:
		if r == 0 {
			return nil, errDivByZero
		}
		return value.Float(l / r), nil
	case token.MOD:
		if r == 0 {
			return nil, errDivByZero
		}
		return value.Float(math.Mod(l, r)), nil
	case token.POW:
		return value.Float(math.Pow(l, r)), nil
	}
	return nil, cserrors.New(cserrors.Internal, "arithFloat: unexpected op %s", op)
}

// compare implements the relational rows of spec §4.3's operator table
// ((num,num) → bool), with the same int/float promotion as arith.
func compare(op token.Op, l, r value.Value) (bool, error) {
	li, lIsInt := l.(value.Int)
	ri, rIsInt := r.(value.Int)
	if lIsInt && rIsInt {
		return compareOrdered(op, int64(li), int64(ri)), nil
	}
	lf, _, lok := asNumber(l)
	rf, _, rok := asNumber(r)
	if !lok || !rok {
		return false, errNotNumeric
	}
	return compareOrdered(op, lf, rf), nil
}

func compareOrdered[T int64 | float64](op token.Op, l, r T) bool {
	switch op {
	case token.UND:
		return l < r
	case token.ABO:
		return l > r
	case token.UEQ:
		return l <= r
	case token.AEQ:
		return l >= r
	}
	return false
}
