// Package api exposes the calendar, indicator and combinator operations
// over HTTP with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"research-corev1/internal/calendar"
	"research-corev1/internal/resolver"
)

// Windows provides calendar windows ending at a given date.
type Windows interface {
	Window(ctx context.Context, asOf string) (*calendar.Window, error)
}

// Services resolves a data-store name ("" for the default) to a resolver.
type Services func(source string) (*resolver.Service, error)

// Deps are the collaborators the router serves.
type Deps struct {
	Calendars Windows
	Services  Services
	Session   calendar.Session
	Health    http.Handler // optional /healthz
	Metrics   http.Handler // optional /metrics
	Now       func() time.Time
	Timeout   time.Duration

	// Invalidate, when set, drops cached results for a table of a source.
	Invalidate func(ctx context.Context, source, table string) (int, error)
}

type handler struct {
	d Deps
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	h := &handler{d: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(traceFromRequestID)

	if d.Health != nil {
		r.Method(http.MethodGet, "/healthz", d.Health)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(d.Timeout))

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/trading-day", h.tradingDay)
			r.Get("/previous", h.previousTradingDay)
			r.Get("/boundary", h.boundary)
			r.Get("/financial-dates", h.financialDates)
			r.Get("/trading-days", h.tradingDays)
			r.Get("/recent", h.recentTradingDays)
			r.Get("/last-friday", h.lastFriday)
			r.Get("/session", h.session)
		})

		r.Route("/indicators", func(r chi.Router) {
			r.Get("/refq", h.refq)
			r.Get("/stdev", h.stdev)
			r.Get("/accuq", h.accuq)
			r.Get("/annual", h.annual)
			r.Get("/ma", h.ma)
			r.Get("/percent-rank", h.percentRank)
			r.Get("/last-value", h.lastValue)
		})

		r.Route("/screens", func(r chi.Router) {
			r.Get("/halted", h.halted)
			r.Get("/st", h.specialTreatment)
			r.Get("/dividends", h.dividends)
		})

		r.Post("/combinators/{name}", h.combinator)

		if d.Invalidate != nil {
			r.Delete("/cache/{table}", h.invalidate)
		}
	})
	return r
}
