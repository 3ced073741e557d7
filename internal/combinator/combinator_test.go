package combinator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

func TestIfNull(t *testing.T) {
	cases := []struct {
		a, b, want any
	}{
		{nil, 5, 5},
		{"", 5, 5},
		{"  ", 5, 5},
		{decimal.NullDecimal{}, 0, 0},
		{3, 5, 3},
		{0, 5, 0},
		{"abc", 5, "abc"},
	}
	for _, tc := range cases {
		if got := IfNull(tc.a, tc.b); got != tc.want {
			t.Errorf("IfNull(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNot(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{1, 0}, {-2.5, 0}, {"3", 0}, {true, 0},
		{0, 1}, {false, 1}, {"0.00", 1}, {nil, 1}, {decimal.NullDecimal{}, 1},
	}
	for _, tc := range cases {
		got, err := Not(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("Not(%v) = %d %v, want %d", tc.in, got, err, tc.want)
		}
	}
	if _, err := Not("yes"); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestAndOr(t *testing.T) {
	check := func(name string, got int, err error, want int) {
		t.Helper()
		if err != nil || got != want {
			t.Errorf("%s = %d %v, want %d", name, got, err, want)
		}
	}
	got, err := And(1, 1, 0)
	check("and(1,1,0)", got, err, 0)
	got, err = And(1, 1)
	check("and(1,1)", got, err, 1)
	got, err = Or(0, 0, 1)
	check("or(0,0,1)", got, err, 1)
	got, err = Or(0, 0)
	check("or(0,0)", got, err, 0)
	got, err = And(1, nil)
	check("and(1,nil)", got, err, 0)
	got, err = Or(nil, 1)
	check("or(nil,1)", got, err, 1)

	// short-circuit: later operands are never inspected
	got, err = And(0, "not-a-number")
	check("and(0,bad)", got, err, 0)
	got, err = Or(1, "not-a-number")
	check("or(1,bad)", got, err, 1)
}

func TestAndOr_Arity(t *testing.T) {
	nine := []any{1, 1, 1, 1, 1, 1, 1, 1, 1}
	eight := nine[:8]
	if _, err := And(1); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("and(1): %v", err)
	}
	if _, err := And(nine...); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("and(x9): %v", err)
	}
	if _, err := Or(0); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("or(0): %v", err)
	}
	if _, err := Or(nine...); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("or(x9): %v", err)
	}
	if got, err := And(eight...); err != nil || got != 1 {
		t.Errorf("and(x8) = %d %v", got, err)
	}
}

func TestMod(t *testing.T) {
	cases := []struct {
		v, d any
		want string
	}{
		{7, 3, "1"},
		{-7, 3, "2"},
		{7, -3, "-2"},
		{-7, -3, "-1"},
		{"7.5", 2, "1.5"},
		{6, 3, "0"},
	}
	for _, tc := range cases {
		got, err := Mod(tc.v, tc.d)
		if err != nil || got.String() != tc.want {
			t.Errorf("Mod(%v, %v) = %s %v, want %s", tc.v, tc.d, got, err, tc.want)
		}
	}
	if _, err := Mod(7, 0); !errors.Is(err, model.ErrDivisionByZero) {
		t.Errorf("mod(7,0): expected ErrDivisionByZero, got %v", err)
	}
	if _, err := Mod("seven", 2); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := Mod(nil, 2); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("null operand: expected ErrTypeMismatch, got %v", err)
	}
}

func TestPowerAndAbs(t *testing.T) {
	for _, base := range []any{0, 5, "-2.5"} {
		if got, err := Power(base, 0); err != nil || got.String() != "1" {
			t.Errorf("%v^0 = %s %v, want 1", base, got, err)
		}
	}
	if got, err := Power(2, 10); err != nil || got.String() != "1024" {
		t.Errorf("2^10 = %s %v", got, err)
	}
	if got, err := Power("1.1", 2); err != nil || got.String() != "1.21" {
		t.Errorf("1.1^2 = %s %v", got, err)
	}
	if got, err := Power(9, 0.5); err != nil || got.String() != "3" {
		t.Errorf("9^0.5 = %s %v", got, err)
	}
	if _, err := Power(-8, 0.5); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("(-8)^0.5: expected ErrTypeMismatch, got %v", err)
	}
	if _, err := Power(0, -1); !errors.Is(err, model.ErrDivisionByZero) {
		t.Errorf("0^-1: expected ErrDivisionByZero, got %v", err)
	}
	if got, err := Abs("-3.25"); err != nil || got.String() != "3.25" {
		t.Errorf("abs(-3.25) = %s %v", got, err)
	}
	if _, err := Abs(nil); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("abs(nil): expected ErrTypeMismatch, got %v", err)
	}
}

func TestGreaterLess(t *testing.T) {
	if got, err := Greater(3, "7.5", -1); err != nil || got.String() != "7.5" {
		t.Errorf("greater = %s %v", got, err)
	}
	if got, err := Less(3, "7.5", -1); err != nil || got.String() != "-1" {
		t.Errorf("less = %s %v", got, err)
	}
	if got, err := Greater(42); err != nil || got.String() != "42" {
		t.Errorf("greater(single) = %s %v", got, err)
	}
	if _, err := Greater(); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("greater(): %v", err)
	}
	if _, err := Less(1, 2, 3, 4, 5, 6, 7, 8, 9); !errors.Is(err, model.ErrInvalidArgumentCount) {
		t.Errorf("less(x9): %v", err)
	}
	if _, err := Greater(1, nil); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("greater with null: %v", err)
	}
}
