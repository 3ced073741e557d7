package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"research-corev1/internal/model"
)

func (h *handler) halted(w http.ResponseWriter, r *http.Request) {
	h.tickerScreen(w, r, func(date string, r *http.Request) ([]string, error) {
		svc, err := h.d.Services(r.URL.Query().Get("source"))
		if err != nil {
			return nil, err
		}
		return svc.Builder().HaltedTickers(r.Context(), date)
	})
}

func (h *handler) specialTreatment(w http.ResponseWriter, r *http.Request) {
	h.tickerScreen(w, r, func(date string, r *http.Request) ([]string, error) {
		svc, err := h.d.Services(r.URL.Query().Get("source"))
		if err != nil {
			return nil, err
		}
		return svc.Builder().STTickers(r.Context(), date)
	})
}

func (h *handler) tickerScreen(w http.ResponseWriter, r *http.Request, fn func(string, *http.Request) ([]string, error)) {
	date, err := requireParam(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tickers, err := fn(date, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "tickers": tickers})
}

// dividends returns the ex-dividend rows for date as plain objects.
func (h *handler) dividends(w http.ResponseWriter, r *http.Request) {
	date, err := requireParam(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.d.Services(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	tbl, err := svc.Builder().DividendEvents(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "events": jsonRows(tbl)})
}

func jsonRows(tbl model.Table) []map[string]any {
	out := make([]map[string]any, 0, tbl.Len())
	for _, row := range tbl.Rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[k] = v
		}
		out = append(out, m)
	}
	return out
}

// invalidate drops cached query results for one table of a source.
func (h *handler) invalidate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if err := model.CheckIdentifiers(table); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.d.Invalidate(r.Context(), r.URL.Query().Get("source"), table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "deleted": n})
}
