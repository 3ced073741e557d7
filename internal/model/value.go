package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted textual date form.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
}

// ParseDate parses a caller supplied YYYY-MM-DD date (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDateFormat)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToDate converts a stored date value. Null converts to the zero time.
// Timestamps keep their calendar date and drop the clock.
func ToDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return Day(x), nil
	case []byte:
		return ToDate(string(x))
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return Day(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("%q: %w", x, ErrInvalidDateFormat)
	default:
		return time.Time{}, fmt.Errorf("date from %T: %w", v, ErrTypeMismatch)
	}
}

// ToNullDecimal converts a stored or caller supplied numeric value.
// Strings are parsed exactly so textual decimals keep full precision;
// NaN floats and empty strings read as null.
func ToNullDecimal(v any) (decimal.NullDecimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.NullDecimal:
		return x, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(x), nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NewNullDecimal(*x), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x))), nil
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt32(x)), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x)), nil
	case uint32:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x))), nil
	case float32:
		return ToNullDecimal(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(x)), nil
	case bool:
		if x {
			return decimal.NewNullDecimal(decimal.NewFromInt(1)), nil
		}
		return decimal.NewNullDecimal(decimal.Zero), nil
	case []byte:
		return ToNullDecimal(string(x))
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("%q: %w", x, ErrTypeMismatch)
		}
		return decimal.NewNullDecimal(d), nil
	default:
		return decimal.NullDecimal{}, fmt.Errorf("numeric from %T: %w", v, ErrTypeMismatch)
	}
}
