package model

import "time"

// CalendarEntry is one calendar day of an exchange trading calendar.
// Period markers are the first/last trading day of the week, month,
// quarter and year containing Date. Entries exist for closed days too.
type CalendarEntry struct {
	Date          time.Time `json:"date"`
	Exchange      string    `json:"exchange"`
	IsOpen        bool      `json:"is_open"`
	PrevTradeDate time.Time `json:"prev_trade_date"`

	WeekStart    time.Time `json:"week_start"`
	WeekEnd      time.Time `json:"week_end"`
	MonthStart   time.Time `json:"month_start"`
	MonthEnd     time.Time `json:"month_end"`
	QuarterStart time.Time `json:"quarter_start"`
	QuarterEnd   time.Time `json:"quarter_end"`
	YearStart    time.Time `json:"year_start"`
	YearEnd      time.Time `json:"year_end"`
}

// Granularity selects the period used by boundary lookups.
type Granularity int

const (
	Week Granularity = iota
	Month
	Quarter
	SixMonths
	Year
)

func (g Granularity) String() string {
	switch g {
	case Week:
		return "week"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case SixMonths:
		return "6months"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// ParseGranularity accepts the names produced by String ("sixMonths" too).
func ParseGranularity(s string) (Granularity, bool) {
	switch s {
	case "week":
		return Week, true
	case "month":
		return Month, true
	case "quarter":
		return Quarter, true
	case "6months", "sixMonths", "six_months":
		return SixMonths, true
	case "year":
		return Year, true
	}
	return 0, false
}
