package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a column or table name.
func ValidIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// CheckIdentifiers returns ErrInvalidIdentifier for the first unsafe name.
func CheckIdentifiers(names ...string) error {
	for _, n := range names {
		if !ValidIdentifier(n) {
			return fmt.Errorf("%q: %w", n, ErrInvalidIdentifier)
		}
	}
	return nil
}

// Condition is a numeric comparison "column operator value".
type Condition struct {
	Column string
	Op     string
	Value  decimal.Decimal
}

var validOps = map[string]string{
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
	"=":  "=",
	"==": "=",
	"!=": "!=",
	"<>": "!=",
}

// condOps lists the accepted operators, longer tokens first so "<=" is
// not read as "<".
var condOps = []string{"<=", ">=", "!=", "<>", "==", "<", ">", "="}

// ParseCondition parses a predicate such as "closePrice > 10" or
// "closePrice>10". Spaces around the operator are optional.
func ParseCondition(s string) (Condition, error) {
	i := strings.IndexAny(s, "<>=!")
	if i < 0 {
		return Condition{}, fmt.Errorf("%q: no operator: %w", s, ErrInvalidCondition)
	}
	col, rest := strings.TrimSpace(s[:i]), s[i:]
	var tok string
	for _, op := range condOps {
		if strings.HasPrefix(rest, op) {
			tok = op
			break
		}
	}
	if tok == "" {
		return Condition{}, fmt.Errorf("%q: unknown operator: %w", s, ErrInvalidCondition)
	}
	if !ValidIdentifier(col) {
		return Condition{}, fmt.Errorf("%q: %w", col, ErrInvalidIdentifier)
	}
	raw := strings.TrimSpace(rest[len(tok):])
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return Condition{}, fmt.Errorf("%q: value %q: %w", s, raw, ErrInvalidCondition)
	}
	return Condition{Column: col, Op: validOps[tok], Value: v}, nil
}

// ParseConditions parses every predicate, failing on the first bad one.
func ParseConditions(ss []string) ([]Condition, error) {
	out := make([]Condition, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCondition(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Match evaluates the condition against v. Null never matches.
func (c Condition) Match(v decimal.NullDecimal) bool {
	if !v.Valid {
		return false
	}
	cmp := v.Decimal.Cmp(c.Value)
	switch c.Op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}

func (c Condition) String() string {
	return c.Column + " " + c.Op + " " + c.Value.String()
}
