// Package query turns indicator requests into data-store FilterSpecs and
// decodes the returned tables into report series and observations. Every
// fetch is exactly one Querier round trip.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"research-corev1/internal/logger"
	"research-corev1/internal/model"
)

// Column names the builder reads from reporting and market tables.
const (
	ColTicker      = "ticker"
	ColEndDate     = "endDate"
	ColPublishDate = "publishDate"
	ColRevision    = "ID"
	ColReportType  = "reportType"
	ColTradeDate   = "tradeDate"
)

// Default tables used where a caller does not name one.
const (
	TableIncome   = "fdmt_is_2018"
	TableMarket   = "mkt_equd"
	TableST       = "sec_st"
	TableDividend = "equ_div"
)

// QuarterEnds are the canonical fiscal period-end month-days.
var QuarterEnds = []string{"03-31", "06-30", "09-30", "12-31"}

// Builder issues indicator fetches against one data store.
type Builder struct {
	q         model.Querier
	source    string
	now       func() time.Time
	entityCol string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithEntityColumn overrides the entity column (default "ticker").
func WithEntityColumn(col string) Option {
	return func(b *Builder) { b.entityCol = col }
}

// NewBuilder creates a builder over q. source labels the data store in logs.
func NewBuilder(q model.Querier, source string, opts ...Option) *Builder {
	b := &Builder{q: q, source: source, now: time.Now, entityCol: ColTicker}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Source returns the data-store label.
func (b *Builder) Source() string { return b.source }

// Today returns the builder's current date.
func (b *Builder) Today() time.Time { return model.Day(b.now()) }

func (b *Builder) query(ctx context.Context, table string, spec model.FilterSpec) (model.Table, error) {
	start := time.Now()
	tbl, err := b.q.Query(ctx, table, spec)
	if err != nil {
		return model.Table{}, fmt.Errorf("query %s.%s: %w", b.source, table, err)
	}
	slog.Debug("query", append(logger.LogWithTrace(ctx),
		slog.String("source", b.source),
		slog.String("table", table),
		slog.String("entity", spec.Entity),
		slog.Int("rows", tbl.Len()),
		slog.Duration("took", time.Since(start)))...)
	return tbl, nil
}
