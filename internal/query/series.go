package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// revisionDedup keeps the highest revision per period end, ties broken
// by the latest publish date.
var revisionDedup = model.Dedup{PartitionBy: ColEndDate, RankBy: ColRevision, TieBreak: ColPublishDate}

func (b *Builder) reportSpec(indicator, entity string, r model.DateRange) model.FilterSpec {
	r.MonthDays = QuarterEnds
	d := revisionDedup
	return model.FilterSpec{
		EntityColumn: b.entityCol,
		Entity:       entity,
		Columns:      []string{ColEndDate, ColPublishDate, ColRevision, indicator},
		DateColumn:   ColEndDate,
		Range:        r,
		Dedup:        &d,
		OrderBy:      ColEndDate,
		Descending:   true,
	}
}

// FetchSeries returns at most window+1 quarter-end periods for entity,
// newest first, one row per period end.
func (b *Builder) FetchSeries(ctx context.Context, indicator, table, entity string, window int) (model.Series, error) {
	if err := model.CheckIdentifiers(indicator, table); err != nil {
		return nil, err
	}
	if window < 0 {
		return nil, fmt.Errorf("window %d: %w", window, model.ErrInvalidArgumentCount)
	}
	today := b.Today()
	spec := b.reportSpec(indicator, entity, model.DateRange{To: today})
	spec.Limit = window + 1

	tbl, err := b.query(ctx, table, spec)
	if err != nil {
		return nil, err
	}
	rows, err := decodeReports(tbl, indicator)
	if err != nil {
		return nil, fmt.Errorf("fetch series %s.%s: %w", table, indicator, err)
	}
	series := normalizeSeries(rows, time.Time{}, today)
	if len(series) > window+1 {
		series = series[:window+1]
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s %s.%s: %w", entity, table, indicator, model.ErrEmptyResult)
	}
	return series, nil
}

// FetchAnnualAccumulated returns the latest quarter-end row of calendar
// year today.Year()-yearsBack. Reported figures are already cumulative
// within the year, so nothing is summed.
func (b *Builder) FetchAnnualAccumulated(ctx context.Context, indicator, table, entity string, yearsBack int) (model.ReportRow, error) {
	if err := model.CheckIdentifiers(indicator, table); err != nil {
		return model.ReportRow{}, err
	}
	if yearsBack < 0 {
		return model.ReportRow{}, fmt.Errorf("yearsBack %d: %w", yearsBack, model.ErrInvalidArgumentCount)
	}
	today := b.Today()
	year := today.Year() - yearsBack
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if yearsBack == 0 {
		to = today
	}
	spec := b.reportSpec(indicator, entity, model.DateRange{From: from, To: to})
	spec.Limit = 1

	tbl, err := b.query(ctx, table, spec)
	if err != nil {
		return model.ReportRow{}, err
	}
	rows, err := decodeReports(tbl, indicator)
	if err != nil {
		return model.ReportRow{}, fmt.Errorf("fetch annual %s.%s: %w", table, indicator, err)
	}
	series := normalizeSeries(rows, from, to)
	if len(series) == 0 {
		return model.ReportRow{}, fmt.Errorf("%s %s.%s year %d: %w", entity, table, indicator, year, model.ErrEmptyResult)
	}
	return series[0], nil
}

// FetchAnnualReport returns the annual ('A') filing value for fiscal year
// today.Year()-shiftYears-1, latest publication first. A missing filing
// is an invalid NullDecimal, not an error.
func (b *Builder) FetchAnnualReport(ctx context.Context, indicator, table, entity string, shiftYears int) (decimal.NullDecimal, error) {
	if table == "" {
		table = TableIncome
	}
	if err := model.CheckIdentifiers(indicator, table); err != nil {
		return decimal.NullDecimal{}, err
	}
	if shiftYears < 0 {
		return decimal.NullDecimal{}, fmt.Errorf("shiftYears %d: %w", shiftYears, model.ErrInvalidArgumentCount)
	}
	end := time.Date(b.Today().Year()-shiftYears-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	spec := model.FilterSpec{
		EntityColumn: b.entityCol,
		Entity:       entity,
		Columns:      []string{ColEndDate, ColPublishDate, indicator},
		DateColumn:   ColEndDate,
		Range:        model.DateRange{From: end, To: end},
		Equals:       map[string]string{ColReportType: "A"},
		OrderBy:      ColPublishDate,
		Descending:   true,
		Limit:        1,
	}
	tbl, err := b.query(ctx, table, spec)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if tbl.Empty() {
		return decimal.NullDecimal{}, nil
	}
	v, err := tbl.Decimal(0, indicator)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("annual report %s.%s: %w", table, indicator, err)
	}
	return v, nil
}

func decodeReports(tbl model.Table, indicator string) ([]model.ReportRow, error) {
	rows := make([]model.ReportRow, 0, tbl.Len())
	for i := range tbl.Rows {
		end, err := tbl.Date(i, ColEndDate)
		if err != nil {
			return nil, err
		}
		if end.IsZero() {
			continue
		}
		var pub time.Time
		if _, ok := tbl.Rows[i][ColPublishDate]; ok {
			if pub, err = tbl.Date(i, ColPublishDate); err != nil {
				return nil, err
			}
		}
		rev, err := tbl.Int(i, ColRevision)
		if err != nil {
			return nil, err
		}
		v, err := tbl.Decimal(i, indicator)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.ReportRow{PeriodEnd: end, PublishDate: pub, Value: v, Revision: rev})
	}
	return rows, nil
}

// normalizeSeries re-applies the quarter-end filter, the date bounds and
// the revision dedup locally, then orders newest first. Zero bounds are open.
func normalizeSeries(rows []model.ReportRow, from, to time.Time) model.Series {
	best := make(map[time.Time]model.ReportRow, len(rows))
	for _, r := range rows {
		if !IsQuarterEnd(r.PeriodEnd) {
			continue
		}
		if (!from.IsZero() && r.PeriodEnd.Before(from)) || (!to.IsZero() && r.PeriodEnd.After(to)) {
			continue
		}
		cur, ok := best[r.PeriodEnd]
		if !ok || newerRevision(r, cur) {
			best[r.PeriodEnd] = r
		}
	}
	out := make(model.Series, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.After(out[j].PeriodEnd) })
	return out
}

func newerRevision(a, b model.ReportRow) bool {
	if a.Revision != b.Revision {
		return a.Revision > b.Revision
	}
	return a.PublishDate.After(b.PublishDate)
}

// IsQuarterEnd reports whether t falls on a canonical fiscal quarter end.
func IsQuarterEnd(t time.Time) bool {
	md := t.Format("01-02")
	for _, q := range QuarterEnds {
		if md == q {
			return true
		}
	}
	return false
}
