package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is one fiscal-period row of a financial statement table.
type ReportRow struct {
	PeriodEnd   time.Time           `json:"period_end"`
	PublishDate time.Time           `json:"publish_date"`
	Value       decimal.NullDecimal `json:"value"`
	Revision    int64               `json:"revision"`
}

// Series is ordered by PeriodEnd, most recent first, with unique period ends.
type Series []ReportRow

// Observation is one trade-date row of a market data table. Columns holds
// any extra numeric columns that were selected alongside the indicator.
type Observation struct {
	TradeDate time.Time                      `json:"trade_date"`
	Value     decimal.NullDecimal            `json:"value"`
	Columns   map[string]decimal.NullDecimal `json:"columns,omitempty"`
}

// Column returns one of the extra columns selected with the indicator.
func (o Observation) Column(name string) (decimal.NullDecimal, bool) {
	if v, ok := o.Columns[name]; ok {
		return v, true
	}
	return decimal.NullDecimal{}, false
}

// FillPolicy governs resolution when the target period's value is missing.
// Numeric values match the fill_option codes used by existing callers.
type FillPolicy int

const (
	LookbackFourPeriods FillPolicy = 0
	PreserveNull        FillPolicy = 1
	ZeroFill            FillPolicy = 2
)

func (p FillPolicy) String() string {
	switch p {
	case LookbackFourPeriods:
		return "lookback4"
	case PreserveNull:
		return "preserve"
	case ZeroFill:
		return "zero"
	default:
		return "unknown"
	}
}

// ParseFillPolicy accepts either the name or the numeric code.
func ParseFillPolicy(s string) (FillPolicy, bool) {
	switch s {
	case "0", "lookback4", "lookback":
		return LookbackFourPeriods, true
	case "1", "preserve", "null":
		return PreserveNull, true
	case "2", "zero":
		return ZeroFill, true
	}
	return 0, false
}
