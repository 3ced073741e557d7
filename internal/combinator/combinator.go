// Package combinator holds the stateless scalar helpers used to compose
// derived indicator expressions. Operands are any scalar the store or a
// caller produces: nil, decimals, Go numerics, bools or numeric strings.
//
// Null is false: Not(nil) is 1, And with a null operand is 0 and Or
// ignores nulls. Arithmetic on null fails with ErrTypeMismatch.
package combinator

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

const maxArgs = 8

// IfNull returns b when a is null or an empty string, else a.
func IfNull(a, b any) any {
	switch x := a.(type) {
	case nil:
		return b
	case string:
		if strings.TrimSpace(x) == "" {
			return b
		}
	case decimal.NullDecimal:
		if !x.Valid {
			return b
		}
	case *decimal.Decimal:
		if x == nil {
			return b
		}
	}
	return a
}

// Not returns 0 when cond is truthy, else 1.
func Not(cond any) (int, error) {
	t, err := truthy(cond)
	if err != nil {
		return 0, fmt.Errorf("not: %w", err)
	}
	if t {
		return 0, nil
	}
	return 1, nil
}

// And returns 0 at the first falsy operand, else 1. Takes 2 to 8 operands.
func And(conds ...any) (int, error) {
	if err := arity("and", len(conds), 2); err != nil {
		return 0, err
	}
	for i, c := range conds {
		t, err := truthy(c)
		if err != nil {
			return 0, fmt.Errorf("and arg %d: %w", i+1, err)
		}
		if !t {
			return 0, nil
		}
	}
	return 1, nil
}

// Or returns 1 at the first truthy operand, else 0. Takes 2 to 8 operands.
func Or(conds ...any) (int, error) {
	if err := arity("or", len(conds), 2); err != nil {
		return 0, err
	}
	for i, c := range conds {
		t, err := truthy(c)
		if err != nil {
			return 0, fmt.Errorf("or arg %d: %w", i+1, err)
		}
		if t {
			return 1, nil
		}
	}
	return 0, nil
}

// Mod returns value modulo divisor with the result taking the divisor's
// sign (floored division), so Mod(-7, 3) is 2 and Mod(7, -3) is -2.
func Mod(value, divisor any) (decimal.Decimal, error) {
	v, err := operand("mod", value)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := operand("mod", divisor)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("mod %s by 0: %w", v, model.ErrDivisionByZero)
	}
	r := v.Mod(d)
	if !r.IsZero() && r.Sign() != d.Sign() {
		r = r.Add(d)
	}
	return r, nil
}

// Power raises value to exponent. Integer exponents are computed exactly;
// fractional ones go through float64.
func Power(value, exponent any) (decimal.Decimal, error) {
	v, err := operand("power", value)
	if err != nil {
		return decimal.Zero, err
	}
	e, err := operand("power", exponent)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsZero() && e.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("power 0^%s: %w", e, model.ErrDivisionByZero)
	}
	if e.IsZero() {
		return decimal.NewFromInt(1), nil
	}
	if e.Equal(e.Truncate(0)) {
		return v.Pow(e), nil
	}
	f := math.Pow(v.InexactFloat64(), e.InexactFloat64())
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("power %s^%s is not a real number: %w", v, e, model.ErrTypeMismatch)
	}
	return decimal.NewFromFloat(f), nil
}

// Abs returns the absolute value.
func Abs(value any) (decimal.Decimal, error) {
	v, err := operand("abs", value)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Abs(), nil
}

// Greater returns the largest of 1 to 8 operands.
func Greater(args ...any) (decimal.Decimal, error) {
	vals, err := operands("greater", args)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(vals[0], vals[1:]...), nil
}

// Less returns the smallest of 1 to 8 operands.
func Less(args ...any) (decimal.Decimal, error) {
	vals, err := operands("less", args)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Min(vals[0], vals[1:]...), nil
}

func arity(op string, n, min int) error {
	if n < min || n > maxArgs {
		return fmt.Errorf("%s takes %d to %d operands, got %d: %w", op, min, maxArgs, n, model.ErrInvalidArgumentCount)
	}
	return nil
}

func operands(op string, args []any) ([]decimal.Decimal, error) {
	if err := arity(op, len(args), 1); err != nil {
		return nil, err
	}
	vals := make([]decimal.Decimal, len(args))
	for i, a := range args {
		v, err := operand(op, a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func operand(op string, a any) (decimal.Decimal, error) {
	v, err := model.ToNullDecimal(a)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	if !v.Valid {
		return decimal.Zero, fmt.Errorf("%s: null operand: %w", op, model.ErrTypeMismatch)
	}
	return v.Decimal, nil
}

func truthy(a any) (bool, error) {
	v, err := model.ToNullDecimal(a)
	if err != nil {
		return false, err
	}
	return v.Valid && !v.Decimal.IsZero(), nil
}
