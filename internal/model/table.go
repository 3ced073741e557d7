package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one record of a materialised result, keyed by column name.
type Row map[string]any

// Table is the ordered result returned by the data-store collaborator.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Date reads a date column from row i.
func (t Table) Date(i int, col string) (time.Time, error) {
	v, ok := t.Rows[i][col]
	if !ok {
		return time.Time{}, fmt.Errorf("column %q: %w", col, ErrNotFound)
	}
	return ToDate(v)
}

// Decimal reads a nullable numeric column from row i.
func (t Table) Decimal(i int, col string) (decimal.NullDecimal, error) {
	v, ok := t.Rows[i][col]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return ToNullDecimal(v)
}

// Int reads an integer column from row i; missing or null reads as 0.
func (t Table) Int(i int, col string) (int64, error) {
	d, err := t.Decimal(i, col)
	if err != nil || !d.Valid {
		return 0, err
	}
	return d.Decimal.IntPart(), nil
}

// String reads a text column from row i.
func (t Table) String(i int, col string) string {
	switch v := t.Rows[i][col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Dedup asks the collaborator to keep one row per PartitionBy value: the
// row with the highest RankBy, ties broken by the highest TieBreak.
type Dedup struct {
	PartitionBy string
	RankBy      string
	TieBreak    string
}

// DateRange bounds DateColumn. Zero times are open bounds.
type DateRange struct {
	From        time.Time
	To          time.Time
	ToExclusive bool
	MonthDays   []string // "MM-DD" suffixes DateColumn must end with
}

// FilterSpec describes one request to the data-store collaborator.
type FilterSpec struct {
	EntityColumn string
	Entity       string
	Columns      []string
	DateColumn   string
	Range        DateRange
	Equals       map[string]string
	Conditions   []Condition
	Dedup        *Dedup
	OrderBy      string
	Descending   bool
	Limit        int
}
