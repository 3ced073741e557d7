package calendar

import (
	"time"

	"research-corev1/internal/model"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// genCalendar builds calendar rows for [from, to] where weekends and the
// given holidays are closed. Markers are computed from the open-day rule,
// so they are correct even for periods reaching outside the span.
func genCalendar(from, to string, holidays ...string) []model.CalendarEntry {
	closed := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		closed[h] = true
	}
	isOpen := func(d time.Time) bool {
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday && !closed[model.FormatDate(d)]
	}
	firstOpen := func(a, b time.Time) time.Time {
		for d := a; !d.After(b); d = d.AddDate(0, 0, 1) {
			if isOpen(d) {
				return d
			}
		}
		return time.Time{}
	}
	lastOpen := func(a, b time.Time) time.Time {
		for d := b; !d.Before(a); d = d.AddDate(0, 0, -1) {
			if isOpen(d) {
				return d
			}
		}
		return time.Time{}
	}

	var out []model.CalendarEntry
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		monday := d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
		mStart := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		qm := time.Month((int(d.Month())-1)/3*3 + 1)
		qStart := time.Date(d.Year(), qm, 1, 0, 0, 0, 0, time.UTC)
		yStart := time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

		out = append(out, model.CalendarEntry{
			Date:          d,
			Exchange:      "XSHG",
			IsOpen:        isOpen(d),
			PrevTradeDate: lastOpen(d.AddDate(0, 0, -30), d.AddDate(0, 0, -1)),
			WeekStart:     firstOpen(monday, monday.AddDate(0, 0, 6)),
			WeekEnd:       lastOpen(monday, monday.AddDate(0, 0, 6)),
			MonthStart:    firstOpen(mStart, mStart.AddDate(0, 1, -1)),
			MonthEnd:      lastOpen(mStart, mStart.AddDate(0, 1, -1)),
			QuarterStart:  firstOpen(qStart, qStart.AddDate(0, 3, -1)),
			QuarterEnd:    lastOpen(qStart, qStart.AddDate(0, 3, -1)),
			YearStart:     firstOpen(yStart, yStart.AddDate(1, 0, -1)),
			YearEnd:       lastOpen(yStart, yStart.AddDate(1, 0, -1)),
		})
	}
	return out
}

func yearWindow(opts ...Option) *Window {
	return NewWindow("XSHG", genCalendar("2023-01-01", "2024-06-30", "2023-01-02", "2024-01-01"), opts...)
}
