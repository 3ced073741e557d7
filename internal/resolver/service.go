package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"research-corev1/internal/logger"
	"research-corev1/internal/metrics"
	"research-corev1/internal/model"
	"research-corev1/internal/query"
)

// Service resolves named indicators for one entity at a time. It holds no
// mutable state, so one Service can serve concurrent callers.
type Service struct {
	b           *query.Builder
	m           *metrics.Metrics
	maxParallel int
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every operation in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.m = m }
}

// WithMaxParallel bounds ResolveMany concurrency (default 8).
func WithMaxParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewService creates a resolver over b.
func NewService(b *query.Builder, opts ...Option) *Service {
	s := &Service{b: b, maxParallel: 8}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Builder returns the underlying query builder.
func (s *Service) Builder() *query.Builder { return s.b }

func withTrace(ctx context.Context, entity string) context.Context {
	if logger.TraceID(ctx) != "" {
		return ctx
	}
	return logger.WithTraceID(ctx, logger.GenerateTraceID(entity, time.Now()))
}

func (s *Service) observe(ctx context.Context, op, indicator, entity string, start time.Time, err error) {
	s.m.ObserveOp(op, start, err)
	attrs := append(logger.LogWithTrace(ctx),
		slog.String("op", op),
		slog.String("indicator", indicator),
		slog.String("entity", entity),
		slog.Duration("took", time.Since(start)))
	if err != nil {
		slog.Warn("resolve failed", append(attrs, slog.String("err", err.Error()))...)
		return
	}
	slog.Debug("resolved", attrs...)
}

func orDefault(table, def string) string {
	if table == "" {
		return def
	}
	return table
}

// Refq returns indicator's value n quarters back under fill policy p.
// Enough history is fetched for LookbackFourPeriods to inspect the four
// periods before the target. With no target row, ZeroFill yields 0,
// LookbackFourPeriods yields null and PreserveNull fails with EmptyResult.
func (s *Service) Refq(ctx context.Context, indicator string, n int, p model.FillPolicy, table, entity string) (v decimal.NullDecimal, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "refq", indicator, entity, start, err) }()

	if n < 0 {
		return v, fmt.Errorf("refq n=%d: %w", n, model.ErrInvalidArgumentCount)
	}
	series, err := s.b.FetchSeries(ctx, indicator, orDefault(table, query.TableIncome), entity, n+lookbackPeriods)
	if err != nil && !errors.Is(err, model.ErrEmptyResult) {
		return v, err
	}
	if len(series) <= n {
		if p == model.PreserveNull {
			return v, fmt.Errorf("refq %s n=%d: %w", indicator, n, model.ErrEmptyResult)
		}
		return ResolveWithFill(nil, p), nil
	}
	return ResolveWithFill(series[n:], p), nil
}

// Stdev is the sample standard deviation of indicator over the latest n
// quarter-end periods.
func (s *Service) Stdev(ctx context.Context, indicator string, n int, table, entity string) (sd float64, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "stdev", indicator, entity, start, err) }()

	if n < 1 {
		return 0, fmt.Errorf("stdev n=%d: %w", n, model.ErrInvalidArgumentCount)
	}
	series, err := s.b.FetchSeries(ctx, indicator, orDefault(table, query.TableIncome), entity, n-1)
	if err != nil {
		if errors.Is(err, model.ErrEmptyResult) {
			return 0, fmt.Errorf("stdev %s: %w", indicator, model.ErrInsufficientData)
		}
		return 0, err
	}
	return StandardDeviation(series, n)
}

// AccuQ returns the year-to-date cumulative value yearsBack years ago.
func (s *Service) AccuQ(ctx context.Context, indicator string, yearsBack int, table, entity string) (v decimal.NullDecimal, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "accuq", indicator, entity, start, err) }()

	row, err := s.b.FetchAnnualAccumulated(ctx, indicator, orDefault(table, query.TableIncome), entity, yearsBack)
	if err != nil {
		return v, err
	}
	return row.Value, nil
}

// Annual returns the annual-report value for fiscal year
// today-shiftYears-1, or null when that filing does not exist.
func (s *Service) Annual(ctx context.Context, indicator string, shiftYears int, table, entity string) (v decimal.NullDecimal, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "annual", indicator, entity, start, err) }()

	return s.b.FetchAnnualReport(ctx, indicator, orDefault(table, query.TableIncome), entity, shiftYears)
}

// MA averages indicator over the n trading-day observations before today;
// n == 0 averages every observation up to and including today.
func (s *Service) MA(ctx context.Context, indicator string, n int, table, entity string) (avg decimal.Decimal, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "ma", indicator, entity, start, err) }()

	if n < 0 {
		return avg, fmt.Errorf("ma n=%d: %w", n, model.ErrInvalidArgumentCount)
	}
	obs, err := s.b.FetchObservations(ctx, indicator, orDefault(table, query.TableMarket), entity, n, s.b.Today(), n == 0)
	if err != nil {
		return avg, err
	}
	return MovingAverage(obs, n)
}

// PercentRank ranks today's indicator value within the latest n+1 rows.
func (s *Service) PercentRank(ctx context.Context, indicator string, n int, table, entity string) (r float64, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "percent_rank", indicator, entity, start, err) }()

	if n < 1 {
		return 0, fmt.Errorf("percent rank n=%d: %w", n, model.ErrInsufficientData)
	}
	obs, err := s.b.FetchObservations(ctx, indicator, orDefault(table, query.TableMarket), entity, n+1, time.Time{}, true)
	if err != nil {
		return 0, err
	}
	return PercentileRank(obs, n)
}

// LastValue returns indicator from the most recent row satisfying every
// "column op value" condition, or null when none does.
func (s *Service) LastValue(ctx context.Context, indicator string, conds []string, table, entity string) (v decimal.NullDecimal, err error) {
	ctx, start := withTrace(ctx, entity), time.Now()
	defer func() { s.observe(ctx, "last_value", indicator, entity, start, err) }()

	preds, err := model.ParseConditions(conds)
	if err != nil {
		return v, err
	}
	obs, err := s.b.FetchLastMatching(ctx, indicator, orDefault(table, query.TableMarket), entity, preds)
	if err != nil {
		return v, err
	}
	return LastValueMatching(obs, preds), nil
}

// Result is one entity's outcome in a ResolveMany batch.
type Result struct {
	Value decimal.NullDecimal
	Err   error
}

// ResolveMany runs fn for every distinct entity with bounded parallelism.
// Per-entity failures are reported in the map; only cancellation of ctx
// fails the whole batch.
func (s *Service) ResolveMany(ctx context.Context, entities []string, fn func(ctx context.Context, entity string) (decimal.NullDecimal, error)) (map[string]Result, error) {
	out := make(map[string]Result, len(entities))
	if s.m != nil {
		s.m.EntityFanIn.Observe(float64(len(entities)))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if seen[e] {
			continue
		}
		seen[e] = true
		e := e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, e)
			mu.Lock()
			out[e] = Result{Value: v, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}
