package api

import (
	"fmt"
	"net/http"
	"time"

	"research-corev1/internal/calendar"
	"research-corev1/internal/model"
)

// window loads the calendar window ending at the request's "date".
func (h *handler) window(r *http.Request) (*calendar.Window, string, error) {
	date, err := requireParam(r, "date")
	if err != nil {
		return nil, "", err
	}
	w, err := h.d.Calendars.Window(r.Context(), date)
	if err != nil {
		return nil, "", err
	}
	return w, date, nil
}

func (h *handler) tradingDay(w http.ResponseWriter, r *http.Request) {
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	open, err := win.IsTradingDay(date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "is_trading_day": open})
}

func (h *handler) previousTradingDay(w http.ResponseWriter, r *http.Request) {
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	prev, err := win.PreviousTradingDay(date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "previous_trading_day": model.FormatDate(prev)})
}

func (h *handler) boundary(w http.ResponseWriter, r *http.Request) {
	gs, err := requireParam(r, "granularity")
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, ok := model.ParseGranularity(gs)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: unknown granularity %q", errBadParam, gs))
		return
	}
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := win.PeriodBoundary(date, g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "granularity": g.String(), "boundary": model.FormatDate(b)})
}

func (h *handler) financialDates(w http.ResponseWriter, r *http.Request) {
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fd, err := win.FinancialDates(date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"date":                        date,
		"previous_trading_day":        model.FormatDate(fd.PreviousTradingDay),
		"last_trading_day_of_week":    model.FormatDate(fd.LastOfWeek),
		"last_trading_day_of_month":   model.FormatDate(fd.LastOfMonth),
		"last_trading_day_of_quarter": model.FormatDate(fd.LastOfQuarter),
		"last_trading_day_of_6months": model.FormatDate(fd.LastOfSixMonths),
		"first_trading_day_of_year":   model.FormatDate(fd.FirstTradingOfYear),
	})
}

// tradingDays lists open days in [start, date]; the window ends at date.
func (h *handler) tradingDays(w http.ResponseWriter, r *http.Request) {
	start, err := requireParam(r, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := win.TradingDays(start, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "end": date, "trading_days": formatDates(days)})
}

// recentTradingDays lists the last n open days on or before date.
func (h *handler) recentTradingDays(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", 5)
	if err != nil {
		writeError(w, r, err)
		return
	}
	win, date, err := h.window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := win.RecentTradingDays(date, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "trading_days": formatDates(days)})
}

// lastFriday needs no calendar window: it is a plain calendar Friday.
func (h *handler) lastFriday(w http.ResponseWriter, r *http.Request) {
	date, err := requireParam(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := calendar.LastFriday(date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "last_friday": model.FormatDate(f)})
}

func formatDates(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = model.FormatDate(d)
	}
	return out
}

// session reports the exchange status at the current instant.
func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	now := h.d.Now().In(calendar.CST)
	date := model.FormatDate(now)
	win, err := h.d.Calendars.Window(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	running, err := h.d.Session.IsRunning(now, win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"running": running,
		"status":  h.d.Session.StatusString(now, win),
	})
}
