// Package calendar answers trading-calendar questions against a locally
// materialised window of exchange calendar rows.
//
// A Window is immutable once built and safe for concurrent readers.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"research-corev1/internal/model"
)

// WalkMode controls how far PeriodBoundary steps back from an unsettled period.
type WalkMode int

const (
	// WalkSingleStep steps back exactly one period.
	WalkSingleStep WalkMode = iota
	// WalkFull keeps stepping until the boundary precedes the cutoff.
	WalkFull
)

// ParseWalkMode accepts "single" and "full".
func ParseWalkMode(s string) (WalkMode, bool) {
	switch s {
	case "single", "":
		return WalkSingleStep, true
	case "full":
		return WalkFull, true
	}
	return 0, false
}

// settleDays is how close to the query date a period end may be and still
// count as the current, unsettled period.
const settleDays = 3

// Window is a read-only slice of one exchange's trading calendar.
type Window struct {
	exchange string
	walk     WalkMode
	entries  map[string]model.CalendarEntry
	days     []time.Time // ascending, every calendar day present
}

// Option configures a Window.
type Option func(*Window)

// WithWalkMode sets the period walk-back mode (default WalkSingleStep).
func WithWalkMode(m WalkMode) Option {
	return func(w *Window) { w.walk = m }
}

// NewWindow builds a window from calendar rows. The rows are copied.
func NewWindow(exchange string, rows []model.CalendarEntry, opts ...Option) *Window {
	w := &Window{
		exchange: exchange,
		entries:  make(map[string]model.CalendarEntry, len(rows)),
		days:     make([]time.Time, 0, len(rows)),
	}
	for _, r := range rows {
		key := model.FormatDate(r.Date)
		if _, dup := w.entries[key]; !dup {
			w.days = append(w.days, model.Day(r.Date))
		}
		w.entries[key] = r
	}
	sort.Slice(w.days, func(i, j int) bool { return w.days[i].Before(w.days[j]) })
	for _, o := range opts {
		o(w)
	}
	return w
}

// Exchange returns the exchange code the window was loaded for.
func (w *Window) Exchange() string { return w.exchange }

// Len returns the number of calendar days held.
func (w *Window) Len() int { return len(w.days) }

// Span returns the first and last calendar day held.
func (w *Window) Span() (first, last time.Time) {
	if len(w.days) == 0 {
		return time.Time{}, time.Time{}
	}
	return w.days[0], w.days[len(w.days)-1]
}

// Contains reports whether d falls inside the loaded window.
func (w *Window) Contains(d time.Time) bool {
	_, ok := w.entries[model.FormatDate(d)]
	return ok
}

func (w *Window) entry(d time.Time) (model.CalendarEntry, error) {
	e, ok := w.entries[model.FormatDate(d)]
	if !ok {
		return model.CalendarEntry{}, fmt.Errorf("%s on %s: %w", w.exchange, model.FormatDate(d), model.ErrNotFound)
	}
	return e, nil
}

// Entry returns the calendar row for date.
func (w *Window) Entry(date string) (model.CalendarEntry, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return model.CalendarEntry{}, err
	}
	return w.entry(d)
}

// IsTradingDay reports whether the exchange is open on date.
func (w *Window) IsTradingDay(date string) (bool, error) {
	e, err := w.Entry(date)
	if err != nil {
		return false, err
	}
	return e.IsOpen, nil
}

// PreviousTradingDay returns the last open day strictly before date.
// The stored prevTradeDate is authoritative; when it is missing the
// window is scanned backwards.
func (w *Window) PreviousTradingDay(date string) (time.Time, error) {
	e, err := w.Entry(date)
	if err != nil {
		return time.Time{}, err
	}
	if !e.PrevTradeDate.IsZero() {
		return model.Day(e.PrevTradeDate), nil
	}
	return w.scanPrevOpen(model.Day(e.Date))
}

func (w *Window) scanPrevOpen(d time.Time) (time.Time, error) {
	i := sort.Search(len(w.days), func(i int) bool { return !w.days[i].Before(d) })
	for i--; i >= 0; i-- {
		if w.entries[model.FormatDate(w.days[i])].IsOpen {
			return w.days[i], nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day before %s: %w", model.FormatDate(d), model.ErrNotFound)
}

// TradingDays returns the open days in [start, end], ascending. Both ends
// must lie inside the window.
func (w *Window) TradingDays(start, end string) ([]time.Time, error) {
	from, err := model.ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := model.ParseDate(end)
	if err != nil {
		return nil, err
	}
	if _, err := w.entry(from); err != nil {
		return nil, err
	}
	if _, err := w.entry(to); err != nil {
		return nil, err
	}
	var out []time.Time
	for _, d := range w.days {
		if d.Before(from) {
			continue
		}
		if d.After(to) {
			break
		}
		if w.entries[model.FormatDate(d)].IsOpen {
			out = append(out, d)
		}
	}
	return out, nil
}

// RecentTradingDays returns the last n open days on or before asOf,
// ascending. It fails with ErrNotFound when the window runs out first.
func (w *Window) RecentTradingDays(asOf string, n int) ([]time.Time, error) {
	d, err := model.ParseDate(asOf)
	if err != nil {
		return nil, err
	}
	if _, err := w.entry(d); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	i := sort.Search(len(w.days), func(i int) bool { return w.days[i].After(d) })
	out := make([]time.Time, 0, n)
	for i--; i >= 0 && len(out) < n; i-- {
		if w.entries[model.FormatDate(w.days[i])].IsOpen {
			out = append(out, w.days[i])
		}
	}
	if len(out) < n {
		return nil, fmt.Errorf("%d trading days before %s: %w", n, asOf, model.ErrNotFound)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}
