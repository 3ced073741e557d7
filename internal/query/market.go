package query

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// FetchObservations returns up to limit trade-date rows of indicator for
// entity, newest first, with tradeDate before (or on, when inclusive) the
// given date. limit 0 means no limit; a zero before means no bound.
func (b *Builder) FetchObservations(ctx context.Context, indicator, table, entity string, limit int, before time.Time, inclusive bool) ([]model.Observation, error) {
	if err := model.CheckIdentifiers(indicator, table); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, model.ErrInvalidArgumentCount)
	}
	spec := model.FilterSpec{
		EntityColumn: b.entityCol,
		Entity:       entity,
		Columns:      []string{ColTradeDate, indicator},
		DateColumn:   ColTradeDate,
		Range:        model.DateRange{To: before, ToExclusive: !inclusive},
		OrderBy:      ColTradeDate,
		Descending:   true,
		Limit:        limit,
	}
	tbl, err := b.query(ctx, table, spec)
	if err != nil {
		return nil, err
	}
	obs, err := decodeObservations(tbl, indicator, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch observations %s.%s: %w", table, indicator, err)
	}
	out := obs[:0]
	for _, o := range obs {
		if before.IsZero() || o.TradeDate.Before(before) || (inclusive && o.TradeDate.Equal(before)) {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchLastMatching returns the newest observation of indicator whose row
// satisfies every condition. The conditions are pushed down to the store;
// the returned observation carries the condition columns so callers can
// re-check them. No match yields an empty slice.
func (b *Builder) FetchLastMatching(ctx context.Context, indicator, table, entity string, conds []model.Condition) ([]model.Observation, error) {
	if table == "" {
		table = TableMarket
	}
	if err := model.CheckIdentifiers(indicator, table); err != nil {
		return nil, err
	}
	cols := []string{ColTradeDate, indicator}
	var extra []string
	for _, c := range conds {
		if err := model.CheckIdentifiers(c.Column); err != nil {
			return nil, err
		}
		if !containsStr(cols, c.Column) {
			cols = append(cols, c.Column)
			extra = append(extra, c.Column)
		}
	}
	spec := model.FilterSpec{
		EntityColumn: b.entityCol,
		Entity:       entity,
		Columns:      cols,
		Conditions:   conds,
		OrderBy:      ColTradeDate,
		Descending:   true,
		Limit:        1,
	}
	tbl, err := b.query(ctx, table, spec)
	if err != nil {
		return nil, err
	}
	obs, err := decodeObservations(tbl, indicator, extra)
	if err != nil {
		return nil, fmt.Errorf("fetch last matching %s.%s: %w", table, indicator, err)
	}
	return obs, nil
}

func decodeObservations(tbl model.Table, indicator string, extra []string) ([]model.Observation, error) {
	out := make([]model.Observation, 0, tbl.Len())
	for i := range tbl.Rows {
		td, err := tbl.Date(i, ColTradeDate)
		if err != nil {
			return nil, err
		}
		v, err := tbl.Decimal(i, indicator)
		if err != nil {
			return nil, err
		}
		o := model.Observation{TradeDate: td, Value: v, Columns: make(map[string]decimal.NullDecimal, len(extra)+1)}
		o.Columns[indicator] = v
		for _, col := range extra {
			cv, err := tbl.Decimal(i, col)
			if err != nil {
				return nil, err
			}
			o.Columns[col] = cv
		}
		out = append(out, o)
	}
	return out, nil
}

func containsStr(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
