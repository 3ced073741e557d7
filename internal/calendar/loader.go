package calendar

import (
	"context"
	"fmt"
	"time"

	"research-corev1/internal/model"
)

// Column names of the trade calendar source.
const (
	ColCalendarDate  = "calendarDate"
	ColExchange      = "exchangeCD"
	ColIsOpen        = "isOpen"
	ColPrevTradeDate = "prevTradeDate"
	ColWeekStart     = "weekStartDate"
	ColWeekEnd       = "weekEndDate"
	ColMonthStart    = "monthStartDate"
	ColMonthEnd      = "monthEndDate"
	ColQuarterStart  = "quarterStartDate"
	ColQuarterEnd    = "quarterEndDate"
	ColYearStart     = "yearStartDate"
	ColYearEnd       = "yearEndDate"
)

// DefaultSource is the trade calendar table name.
const DefaultSource = "trade_cal"

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Source       string // default "trade_cal"
	Exchange     string // default "XSHG"
	LookbackDays int    // default 365
	Walk         WalkMode
}

// Loader materialises calendar windows with one collaborator query each.
type Loader struct {
	q   model.Querier
	cfg LoaderConfig
}

// NewLoader creates a Loader over q.
func NewLoader(q model.Querier, cfg LoaderConfig) *Loader {
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "XSHG"
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	return &Loader{q: q, cfg: cfg}
}

// Exchange returns the exchange code windows are loaded for.
func (l *Loader) Exchange() string { return l.cfg.Exchange }

// Load returns the window [asOf-lookback, asOf]. The date is validated
// before any query is issued.
func (l *Loader) Load(ctx context.Context, asOf string) (*Window, error) {
	to, err := model.ParseDate(asOf)
	if err != nil {
		return nil, err
	}
	return l.LoadRange(ctx, to.AddDate(0, 0, -l.cfg.LookbackDays), to)
}

// LoadRange returns the window [from, to], both inclusive.
func (l *Loader) LoadRange(ctx context.Context, from, to time.Time) (*Window, error) {
	tbl, err := l.q.Query(ctx, l.cfg.Source, model.FilterSpec{
		EntityColumn: ColExchange,
		Entity:       l.cfg.Exchange,
		Columns: []string{
			ColCalendarDate, ColExchange, ColIsOpen, ColPrevTradeDate,
			ColWeekStart, ColWeekEnd, ColMonthStart, ColMonthEnd,
			ColQuarterStart, ColQuarterEnd, ColYearStart, ColYearEnd,
		},
		DateColumn: ColCalendarDate,
		Range:      model.DateRange{From: from, To: to},
		OrderBy:    ColCalendarDate,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s calendar %s..%s: %w", l.cfg.Exchange, model.FormatDate(from), model.FormatDate(to), err)
	}
	if tbl.Empty() {
		return nil, fmt.Errorf("%s calendar %s..%s: %w", l.cfg.Exchange, model.FormatDate(from), model.FormatDate(to), model.ErrEmptyResult)
	}
	rows, err := decodeEntries(tbl)
	if err != nil {
		return nil, err
	}
	return NewWindow(l.cfg.Exchange, rows, WithWalkMode(l.cfg.Walk)), nil
}

func decodeEntries(tbl model.Table) ([]model.CalendarEntry, error) {
	out := make([]model.CalendarEntry, 0, tbl.Len())
	for i := range tbl.Rows {
		var e model.CalendarEntry
		dates := []struct {
			col string
			dst *time.Time
		}{
			{ColCalendarDate, &e.Date},
			{ColPrevTradeDate, &e.PrevTradeDate},
			{ColWeekStart, &e.WeekStart},
			{ColWeekEnd, &e.WeekEnd},
			{ColMonthStart, &e.MonthStart},
			{ColMonthEnd, &e.MonthEnd},
			{ColQuarterStart, &e.QuarterStart},
			{ColQuarterEnd, &e.QuarterEnd},
			{ColYearStart, &e.YearStart},
			{ColYearEnd, &e.YearEnd},
		}
		for _, d := range dates {
			if _, ok := tbl.Rows[i][d.col]; !ok {
				continue
			}
			v, err := tbl.Date(i, d.col)
			if err != nil {
				return nil, fmt.Errorf("calendar row %d %s: %w", i, d.col, err)
			}
			*d.dst = v
		}
		if e.Date.IsZero() {
			return nil, fmt.Errorf("calendar row %d: missing %s: %w", i, ColCalendarDate, model.ErrEmptyResult)
		}
		open, err := tbl.Int(i, ColIsOpen)
		if err != nil {
			return nil, fmt.Errorf("calendar row %d %s: %w", i, ColIsOpen, err)
		}
		e.IsOpen = open == 1
		e.Exchange = tbl.String(i, ColExchange)
		out = append(out, e)
	}
	return out, nil
}
