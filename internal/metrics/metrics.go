package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"research-corev1/internal/model"
)

// Metrics holds all Prometheus metrics for the resolution engine.
type Metrics struct {
	// Resolver operations
	OpsTotal    *prometheus.CounterVec   // labels: op, outcome
	OpDur       *prometheus.HistogramVec // labels: op
	EntityFanIn prometheus.Histogram     // entities per ResolveMany call

	// Data-store collaborator
	QueryDur    *prometheus.HistogramVec // labels: source
	QueryErrors *prometheus.CounterVec   // labels: source
	QueryRows   *prometheus.HistogramVec // labels: source

	// Result cache
	CacheHits    *prometheus.CounterVec // labels: source
	CacheMisses  *prometheus.CounterVec // labels: source
	CircuitState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	CircuitTrips prometheus.Counter

	// Calendar
	CalendarLoads   prometheus.Counter
	CalendarWindows prometheus.Gauge
	MarketState     prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescore_ops_total",
			Help: "Resolver operations by op and outcome",
		}, []string{"op", "outcome"}),
		OpDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rescore_op_duration_seconds",
			Help:    "Resolver operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		EntityFanIn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rescore_resolve_many_entities",
			Help:    "Entities resolved per batch call",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),

		QueryDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rescore_query_duration_seconds",
			Help:    "Data-store round trip latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"source"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescore_query_errors_total",
			Help: "Failed data-store round trips",
		}, []string{"source"}),
		QueryRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rescore_query_rows",
			Help:    "Rows returned per data-store round trip",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"source"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescore_cache_hits_total",
			Help: "Result cache hits",
		}, []string{"source"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescore_cache_misses_total",
			Help: "Result cache misses",
		}, []string{"source"}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rescore_cache_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CircuitTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rescore_cache_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		CalendarLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rescore_calendar_loads_total",
			Help: "Calendar windows materialised from the data store",
		}),
		CalendarWindows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rescore_calendar_windows",
			Help: "Calendar windows held in the cache",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rescore_market_state",
			Help: "Exchange session state (0=closed, 1=open)",
		}),
	}

	reg.MustRegister(
		m.OpsTotal,
		m.OpDur,
		m.EntityFanIn,
		m.QueryDur,
		m.QueryErrors,
		m.QueryRows,
		m.CacheHits,
		m.CacheMisses,
		m.CircuitState,
		m.CircuitTrips,
		m.CalendarLoads,
		m.CalendarWindows,
		m.MarketState,
	)
	return m
}

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInvalidDateFormat),
		errors.Is(err, model.ErrInvalidArgumentCount),
		errors.Is(err, model.ErrTypeMismatch),
		errors.Is(err, model.ErrInvalidIdentifier),
		errors.Is(err, model.ErrInvalidCondition):
		return "invalid"
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrEmptyResult):
		return "not_found"
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrDivisionByZero):
		return "insufficient"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// ObserveOp records one resolver operation. Safe on a nil receiver.
func (m *Metrics) ObserveOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OpsTotal.WithLabelValues(op, Outcome(err)).Inc()
	m.OpDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetCircuitState records a breaker transition; entering open counts a trip.
func (m *Metrics) SetCircuitState(state int) {
	if m == nil {
		return
	}
	m.CircuitState.Set(float64(state))
	if state == 1 {
		m.CircuitTrips.Inc()
	}
}

// InstrumentQuerier wraps q so every round trip is timed and counted
// under the given source label.
func (m *Metrics) InstrumentQuerier(source string, q model.Querier) model.Querier {
	if m == nil {
		return q
	}
	return model.QuerierFunc(func(ctx context.Context, table string, spec model.FilterSpec) (model.Table, error) {
		start := time.Now()
		tbl, err := q.Query(ctx, table, spec)
		m.QueryDur.WithLabelValues(source).Observe(time.Since(start).Seconds())
		if err != nil {
			m.QueryErrors.WithLabelValues(source).Inc()
			return tbl, err
		}
		m.QueryRows.WithLabelValues(source).Observe(float64(tbl.Len()))
		return tbl, nil
	})
}
