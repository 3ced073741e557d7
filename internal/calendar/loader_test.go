package calendar

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"research-corev1/internal/model"
)

func calendarTable(rows []model.CalendarEntry) model.Table {
	tbl := model.Table{Columns: []string{ColCalendarDate, ColExchange, ColIsOpen, ColPrevTradeDate, ColWeekEnd, ColMonthEnd, ColQuarterStart, ColQuarterEnd, ColYearStart}}
	for _, r := range rows {
		open := 0
		if r.IsOpen {
			open = 1
		}
		tbl.Rows = append(tbl.Rows, model.Row{
			ColCalendarDate:  model.FormatDate(r.Date),
			ColExchange:      r.Exchange,
			ColIsOpen:        int64(open),
			ColPrevTradeDate: model.FormatDate(r.PrevTradeDate),
			ColWeekEnd:       model.FormatDate(r.WeekEnd),
			ColMonthEnd:      []byte(model.FormatDate(r.MonthEnd)),
			ColQuarterStart:  model.FormatDate(r.QuarterStart),
			ColQuarterEnd:    model.FormatDate(r.QuarterEnd),
			ColYearStart:     r.YearStart,
		})
	}
	return tbl
}

type fakeQuerier struct {
	calls atomic.Int32
	last  model.FilterSpec
	src   string
	tbl   model.Table
	err   error
}

func (f *fakeQuerier) Query(_ context.Context, source string, spec model.FilterSpec) (model.Table, error) {
	f.calls.Add(1)
	f.src, f.last = source, spec
	return f.tbl, f.err
}

func TestLoader_Load(t *testing.T) {
	fq := &fakeQuerier{tbl: calendarTable(genCalendar("2023-01-01", "2024-06-30", "2024-01-01"))}
	l := NewLoader(fq, LoaderConfig{})

	w, err := l.Load(context.Background(), "2024-05-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fq.calls.Load() != 1 {
		t.Errorf("expected exactly one query, got %d", fq.calls.Load())
	}
	if fq.src != DefaultSource || fq.last.Entity != "XSHG" || fq.last.EntityColumn != ColExchange {
		t.Errorf("unexpected request: source=%s spec=%+v", fq.src, fq.last)
	}
	if model.FormatDate(fq.last.Range.From) != "2023-05-16" || model.FormatDate(fq.last.Range.To) != "2024-05-15" {
		t.Errorf("unexpected range %v..%v", fq.last.Range.From, fq.last.Range.To)
	}

	open, err := w.IsTradingDay("2024-01-01")
	if err != nil || open {
		t.Errorf("2024-01-01: expected closed holiday, got %v (%v)", open, err)
	}
	q, err := w.PeriodBoundary("2024-05-15", model.Quarter)
	if err != nil || model.FormatDate(q) != "2024-03-29" {
		t.Errorf("quarter boundary: got %v (%v)", q, err)
	}
	m, err := w.PeriodBoundary("2024-03-15", model.Month)
	if err != nil || model.FormatDate(m) != "2024-02-29" {
		t.Errorf("month boundary from []byte column: got %v (%v)", m, err)
	}
}

func TestLoader_InvalidDateBeforeQuery(t *testing.T) {
	fq := &fakeQuerier{}
	l := NewLoader(fq, LoaderConfig{})
	if _, err := l.Load(context.Background(), "2024-5-15"); !errors.Is(err, model.ErrInvalidDateFormat) {
		t.Errorf("expected ErrInvalidDateFormat, got %v", err)
	}
	if fq.calls.Load() != 0 {
		t.Errorf("no query may be issued for a malformed date, got %d", fq.calls.Load())
	}
}

func TestLoader_EmptyAndFailing(t *testing.T) {
	l := NewLoader(&fakeQuerier{}, LoaderConfig{Exchange: "XSHE"})
	if _, err := l.Load(context.Background(), "2024-05-15"); !errors.Is(err, model.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}

	boom := errors.New("boom")
	l = NewLoader(&fakeQuerier{err: boom}, LoaderConfig{})
	if _, err := l.Load(context.Background(), "2024-05-15"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped collaborator error, got %v", err)
	}
}

func TestLoader_BadRow(t *testing.T) {
	tbl := model.Table{Rows: []model.Row{{ColCalendarDate: "2024/01/02", ColIsOpen: int64(1)}}}
	l := NewLoader(&fakeQuerier{tbl: tbl}, LoaderConfig{})
	if _, err := l.Load(context.Background(), "2024-01-02"); !errors.Is(err, model.ErrInvalidDateFormat) {
		t.Errorf("expected ErrInvalidDateFormat for bad stored date, got %v", err)
	}
}

func TestCache_LoadsOncePerKey(t *testing.T) {
	fq := &fakeQuerier{tbl: calendarTable(genCalendar("2024-01-01", "2024-01-31"))}
	c := NewCache(NewLoader(fq, LoaderConfig{}), 2)
	loads := 0
	c.OnLoad = func(int) { loads++ }
	ctx := context.Background()

	a, err := c.Window(ctx, "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := c.Window(ctx, "2024-01-31")
	if a != b {
		t.Error("expected the cached window to be reused")
	}
	if fq.calls.Load() != 1 {
		t.Errorf("expected 1 load, got %d", fq.calls.Load())
	}

	c.Window(ctx, "2024-01-30")
	c.Window(ctx, "2024-01-29")
	if c.Len() != 1 {
		t.Errorf("expected cache reset when full, got %d entries", c.Len())
	}
	if loads != 3 {
		t.Errorf("expected OnLoad per miss, got %d", loads)
	}
}
