package calendar

import (
	"fmt"
	"time"

	"research-corev1/internal/model"
)

// period describes how to read a period's end marker from a calendar row
// and how to reach a day inside the preceding period.
type period struct {
	marker func(model.CalendarEntry) time.Time
	prior  func(model.CalendarEntry) time.Time
}

var periods = map[model.Granularity]period{
	model.Week: {
		marker: func(e model.CalendarEntry) time.Time { return e.WeekEnd },
		prior:  func(e model.CalendarEntry) time.Time { return e.WeekEnd.AddDate(0, 0, -7) },
	},
	model.Month: {
		marker: func(e model.CalendarEntry) time.Time { return e.MonthEnd },
		prior:  func(e model.CalendarEntry) time.Time { return firstOfMonth(e.MonthEnd).AddDate(0, 0, -10) },
	},
	model.Quarter: {
		marker: func(e model.CalendarEntry) time.Time { return e.QuarterEnd },
		prior:  func(e model.CalendarEntry) time.Time { return firstOfMonth(e.QuarterStart).AddDate(0, 0, -10) },
	},
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodBoundary resolves a period boundary relative to date.
//
// For week, month and quarter the end marker of the period containing date
// is read first. A marker on or after date-3 days belongs to a period that
// has not settled yet, so the walk steps back to the end marker of the
// preceding period. WalkSingleStep stops after one step; WalkFull repeats
// until the marker precedes the cutoff. A marker already before the cutoff
// is returned as is.
//
// SixMonths returns the month-end marker of the day 180 days earlier and
// Year returns the first trading day of date's year.
func (w *Window) PeriodBoundary(date string, g model.Granularity) (time.Time, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return w.boundary(d, g)
}

func (w *Window) boundary(d time.Time, g model.Granularity) (time.Time, error) {
	switch g {
	case model.SixMonths:
		e, err := w.entry(d.AddDate(0, 0, -180))
		if err != nil {
			return time.Time{}, err
		}
		return w.marker(e.MonthEnd, g, d)
	case model.Year:
		e, err := w.entry(d)
		if err != nil {
			return time.Time{}, err
		}
		return w.marker(e.YearStart, g, d)
	}

	p, ok := periods[g]
	if !ok {
		return time.Time{}, fmt.Errorf("granularity %d: %w", g, model.ErrTypeMismatch)
	}
	e, err := w.entry(d)
	if err != nil {
		return time.Time{}, err
	}
	cur, err := w.marker(p.marker(e), g, d)
	if err != nil {
		return time.Time{}, err
	}
	cutoff := d.AddDate(0, 0, -settleDays)
	if cur.Before(cutoff) {
		return cur, nil
	}
	for {
		e, err = w.entry(p.prior(e))
		if err != nil {
			return time.Time{}, err
		}
		next, err := w.marker(p.marker(e), g, d)
		if err != nil {
			return time.Time{}, err
		}
		if w.walk == WalkSingleStep || next.Before(cutoff) || !next.Before(cur) {
			return next, nil
		}
		cur = next
	}
}

func (w *Window) marker(t time.Time, g model.Granularity, d time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%s marker missing near %s: %w", g, model.FormatDate(d), model.ErrNotFound)
	}
	return model.Day(t), nil
}

// FinancialDates bundles the reference dates reports are computed against.
type FinancialDates struct {
	PreviousTradingDay time.Time `json:"previous_trading_day"`
	LastOfWeek         time.Time `json:"last_trading_day_of_week"`
	LastOfMonth        time.Time `json:"last_trading_day_of_month"`
	LastOfQuarter      time.Time `json:"last_trading_day_of_quarter"`
	LastOfSixMonths    time.Time `json:"last_trading_day_of_6months"`
	FirstTradingOfYear time.Time `json:"first_trading_day_of_year"`
}

// FinancialDates resolves the previous trading day and every period
// boundary for date in one pass.
func (w *Window) FinancialDates(date string) (FinancialDates, error) {
	var fd FinancialDates
	d, err := model.ParseDate(date)
	if err != nil {
		return fd, err
	}
	if fd.PreviousTradingDay, err = w.PreviousTradingDay(date); err != nil {
		return fd, err
	}
	targets := []struct {
		g   model.Granularity
		dst *time.Time
	}{
		{model.Week, &fd.LastOfWeek},
		{model.Month, &fd.LastOfMonth},
		{model.Quarter, &fd.LastOfQuarter},
		{model.SixMonths, &fd.LastOfSixMonths},
		{model.Year, &fd.FirstTradingOfYear},
	}
	for _, t := range targets {
		if *t.dst, err = w.boundary(d, t.g); err != nil {
			return fd, fmt.Errorf("%s boundary: %w", t.g, err)
		}
	}
	return fd, nil
}
