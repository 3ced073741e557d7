package query

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// HaltedTickers lists tickers suspended from trading on date.
func (b *Builder) HaltedTickers(ctx context.Context, date string) ([]string, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	halted := model.Condition{Column: "isOpen", Op: "=", Value: decimal.Zero}
	tbl, err := b.query(ctx, TableMarket, model.FilterSpec{
		Columns:    []string{b.entityCol, "isOpen"},
		DateColumn: ColTradeDate,
		Range:      model.DateRange{From: d, To: d},
		Conditions: []model.Condition{halted},
		OrderBy:    b.entityCol,
	})
	if err != nil {
		return nil, err
	}
	var out []string
	for i := range tbl.Rows {
		v, err := tbl.Decimal(i, "isOpen")
		if err != nil {
			return nil, fmt.Errorf("halted tickers: %w", err)
		}
		if halted.Match(v) {
			out = append(out, tbl.String(i, b.entityCol))
		}
	}
	return out, nil
}

// STTickers lists tickers under special treatment on date.
func (b *Builder) STTickers(ctx context.Context, date string) ([]string, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	tbl, err := b.query(ctx, TableST, model.FilterSpec{
		Columns:    []string{b.entityCol},
		DateColumn: ColTradeDate,
		Range:      model.DateRange{From: d, To: d},
		OrderBy:    b.entityCol,
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, tbl.Len())
	for i := range tbl.Rows {
		out = append(out, tbl.String(i, b.entityCol))
	}
	return out, nil
}

// DividendEvents returns every dividend row going ex on date.
func (b *Builder) DividendEvents(ctx context.Context, date string) (model.Table, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Table{}, err
	}
	return b.query(ctx, TableDividend, model.FilterSpec{
		DateColumn: "exDivDate",
		Range:      model.DateRange{From: d, To: d},
	})
}
