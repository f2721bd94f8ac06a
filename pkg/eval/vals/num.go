package vals

import (
	"errors"
	"math"
)

// ErrDivideByZero is returned by Div and Mod when the divisor is an integer
// zero.
var ErrDivideByZero = errors.New("divide by zero")

// IsNumber returns whether the value is a number, either an int64 or a
// float64.
func IsNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// ToFloat64 converts a number to float64.
func ToFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Unify converts two numbers to the same representation. The result is two
// int64 values if both arguments are int64, and two float64 values
// otherwise. The last return value is false if either argument is not a
// number.
func Unify(a, b any) (any, any, bool) {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return ai, bi, true
		}
	}
	af, ok1 := ToFloat64(a)
	bf, ok2 := ToFloat64(b)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return af, bf, true
}

// Arith applies one of the binary operators + - * / % to two numbers. It
// assumes that both operands are numbers; use Unify to check.
//
// Integer operations whose result does not fit in an int64 are done in
// float64 instead, like divisions with a remainder.
func Arith(op string, a, b any) (any, error) {
	a, b, _ = Unify(a, b)
	switch a := a.(type) {
	case int64:
		b := b.(int64)
		switch op {
		case "+":
			if c := a + b; (a^c)&(b^c) >= 0 {
				return c, nil
			}
			return float64(a) + float64(b), nil
		case "-":
			if c := a - b; (a^b)&(a^c) >= 0 {
				return c, nil
			}
			return float64(a) - float64(b), nil
		case "*":
			if c, ok := mulInt64(a, b); ok {
				return c, nil
			}
			return float64(a) * float64(b), nil
		case "/":
			if b == 0 {
				return nil, ErrDivideByZero
			}
			if a == math.MinInt64 && b == -1 {
				return -float64(a), nil
			}
			if a%b == 0 {
				return a / b, nil
			}
			return float64(a) / float64(b), nil
		case "%":
			if b == 0 {
				return nil, ErrDivideByZero
			}
			return a % b, nil
		}
	case float64:
		b := b.(float64)
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		case "%":
			return math.Mod(a, b), nil
		}
	}
	return nil, errors.New("unknown operator " + op)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

// Compare compares two numbers, returning -1, 0 or 1. NaN compares unequal
// to everything and is reported as 2.
func Compare(a, b any) int {
	a, b, _ = Unify(a, b)
	switch a := a.(type) {
	case int64:
		b := b.(int64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case float64:
		b := b.(float64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		case a == b:
			return 0
		}
	}
	return 2
}
