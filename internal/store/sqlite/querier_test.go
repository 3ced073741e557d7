package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

func openTemp(t *testing.T) *Querier {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func d(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func nd(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestBuildSelect_Plain(t *testing.T) {
	c, _ := model.ParseCondition("closePrice > 10")
	q, args, err := buildSelect("mkt_equd", model.FilterSpec{
		EntityColumn: "ticker",
		Entity:       "600000",
		Columns:      []string{"closePrice", "tradeDate"},
		DateColumn:   "tradeDate",
		Range:        model.DateRange{To: d("2024-01-05"), ToExclusive: true},
		Conditions:   []model.Condition{c},
		OrderBy:      "tradeDate",
		Descending:   true,
		Limit:        5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT "closePrice", "tradeDate" FROM "mkt_equd" WHERE "ticker" = ? AND "tradeDate" < ? AND "closePrice" > ? ORDER BY "tradeDate" DESC LIMIT 5`
	if q != want {
		t.Errorf("unexpected SQL:\n got %s\nwant %s", q, want)
	}
	if len(args) != 3 || args[0] != "600000" || args[1] != "2024-01-05" || args[2] != 10.0 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildSelect_Dedup(t *testing.T) {
	q, args, err := buildSelect("fdmt_is_2018", model.FilterSpec{
		EntityColumn: "ticker",
		Entity:       "600000",
		Columns:      []string{"endDate", "revenue"},
		DateColumn:   "endDate",
		Range:        model.DateRange{To: d("2024-05-15"), MonthDays: []string{"03-31", "12-31"}},
		Dedup:        &model.Dedup{PartitionBy: "endDate", RankBy: "ID", TieBreak: "publishDate"},
		OrderBy:      "endDate",
		Descending:   true,
		Limit:        3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, frag := range []string{
		`WITH ranked AS (SELECT "endDate", "revenue", "ID", "publishDate"`,
		`ROW_NUMBER() OVER (PARTITION BY "endDate" ORDER BY "ID" DESC, "publishDate" DESC) AS rn`,
		`("endDate" LIKE ? OR "endDate" LIKE ?)`,
		`SELECT "endDate", "revenue" FROM ranked WHERE rn = 1 ORDER BY "endDate" DESC LIMIT 3`,
	} {
		if !strings.Contains(q, frag) {
			t.Errorf("SQL missing %q:\n%s", frag, q)
		}
	}
	if len(args) != 4 || args[2] != "%-03-31" || args[3] != "%-12-31" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildSelect_RejectsUnsafeIdentifiers(t *testing.T) {
	specs := []model.FilterSpec{
		{Columns: []string{"revenue; DROP TABLE x"}},
		{OrderBy: "a b"},
		{Equals: map[string]string{"x=1 OR 1": "1"}},
		{Dedup: &model.Dedup{PartitionBy: "endDate", RankBy: "ID--"}},
	}
	for i, s := range specs {
		if _, _, err := buildSelect("t", s); !errors.Is(err, model.ErrInvalidIdentifier) {
			t.Errorf("spec %d: expected ErrInvalidIdentifier, got %v", i, err)
		}
	}
	if _, _, err := buildSelect("bad table", model.FilterSpec{}); !errors.Is(err, model.ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier for table, got %v", err)
	}
}

func TestQuerier_ReportDedupAndPrecision(t *testing.T) {
	q := openTemp(t)
	ctx := context.Background()
	w := NewWriter(q.DB())
	if err := w.EnsureReportTable(ctx, "fdmt_is", "revenue"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	rows := []model.ReportRow{
		{PeriodEnd: d("2023-09-30"), PublishDate: d("2023-10-28"), Value: nd("100.10"), Revision: 1},
		{PeriodEnd: d("2023-12-31"), PublishDate: d("2024-03-30"), Value: nd("200.20"), Revision: 2},
		{PeriodEnd: d("2023-12-31"), PublishDate: d("2024-04-15"), Value: nd("123456789012.345678901"), Revision: 7},
		{PeriodEnd: d("2023-11-15"), PublishDate: d("2023-11-20"), Value: nd("999"), Revision: 3},
	}
	if err := w.InsertReports(ctx, "fdmt_is", "revenue", "600000", "Q", rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	tbl, err := q.Query(ctx, "fdmt_is", model.FilterSpec{
		EntityColumn: "ticker",
		Entity:       "600000",
		Columns:      []string{"endDate", "publishDate", "ID", "revenue"},
		DateColumn:   "endDate",
		Range:        model.DateRange{MonthDays: []string{"03-31", "06-30", "09-30", "12-31"}},
		Dedup:        &model.Dedup{PartitionBy: "endDate", RankBy: "ID", TieBreak: "publishDate"},
		OrderBy:      "endDate",
		Descending:   true,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 deduplicated quarter rows, got %d", tbl.Len())
	}
	end, _ := tbl.Date(0, "endDate")
	if model.FormatDate(end) != "2023-12-31" {
		t.Errorf("expected newest period first, got %s", model.FormatDate(end))
	}
	v, err := tbl.Decimal(0, "revenue")
	if err != nil {
		t.Fatalf("decimal: %v", err)
	}
	if v.Decimal.String() != "123456789012.345678901" {
		t.Errorf("expected latest revision value with full precision, got %s", v.Decimal.String())
	}
	id, _ := tbl.Int(0, "ID")
	if id != 7 {
		t.Errorf("expected revision 7, got %d", id)
	}
}

func TestQuerier_MarketConditionsAndOrder(t *testing.T) {
	q := openTemp(t)
	ctx := context.Background()
	w := NewWriter(q.DB())
	if err := w.EnsureMarketTable(ctx, "mkt_equd", "closePrice", "turnoverVol"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	obs := []model.Observation{
		{TradeDate: d("2024-01-02"), Value: nd("10.5"), Columns: map[string]decimal.NullDecimal{"turnoverVol": nd("100")}},
		{TradeDate: d("2024-01-03"), Value: nd("11.0"), Columns: map[string]decimal.NullDecimal{"turnoverVol": nd("0")}},
		{TradeDate: d("2024-01-04"), Value: nd("9.5"), Columns: map[string]decimal.NullDecimal{"turnoverVol": nd("300")}},
	}
	if err := w.InsertObservations(ctx, "mkt_equd", "closePrice", "600000", obs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	c1, _ := model.ParseCondition("turnoverVol > 50")
	c2, _ := model.ParseCondition("closePrice >= 10")
	tbl, err := q.Query(ctx, "mkt_equd", model.FilterSpec{
		EntityColumn: "ticker",
		Entity:       "600000",
		Columns:      []string{"tradeDate", "closePrice"},
		Conditions:   []model.Condition{c1, c2},
		OrderBy:      "tradeDate",
		Descending:   true,
		Limit:        1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", tbl.Len())
	}
	td, _ := tbl.Date(0, "tradeDate")
	if model.FormatDate(td) != "2024-01-02" {
		t.Errorf("expected 2024-01-02, got %s", model.FormatDate(td))
	}
}

func TestWriter_InsertObservationsIsAtomic(t *testing.T) {
	q := openTemp(t)
	ctx := context.Background()
	w := NewWriter(q.DB())
	if err := w.EnsureMarketTable(ctx, "mkt_equd", "closePrice"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	obs := []model.Observation{
		{TradeDate: d("2024-01-02"), Value: nd("10.5")},
		{TradeDate: d("2024-01-03"), Value: nd("11.0"), Columns: map[string]decimal.NullDecimal{"turnoverVol": nd("5")}},
	}
	if err := w.InsertObservations(ctx, "mkt_equd", "closePrice", "600000", obs); err == nil {
		t.Fatal("expected an error for a column the table does not have")
	}

	var n int
	if err := q.DB().GetContext(ctx, &n, `SELECT COUNT(*) FROM mkt_equd`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("failed insert must leave no rows behind, found %d", n)
	}
}

func TestQuerier_Calendar(t *testing.T) {
	q := openTemp(t)
	ctx := context.Background()
	w := NewWriter(q.DB())
	if err := w.EnsureCalendarTable(ctx, "trade_cal"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	entries := []model.CalendarEntry{
		{Date: d("2024-01-05"), Exchange: "XSHG", IsOpen: true, PrevTradeDate: d("2024-01-04"), WeekEnd: d("2024-01-05")},
		{Date: d("2024-01-06"), Exchange: "XSHG", IsOpen: false, PrevTradeDate: d("2024-01-05"), WeekEnd: d("2024-01-05")},
		{Date: d("2024-01-06"), Exchange: "XSHE", IsOpen: false},
	}
	if err := w.InsertCalendar(ctx, "trade_cal", entries); err != nil {
		t.Fatalf("insert: %v", err)
	}
	tbl, err := q.Query(ctx, "trade_cal", model.FilterSpec{
		EntityColumn: "exchangeCD",
		Entity:       "XSHG",
		DateColumn:   "calendarDate",
		Range:        model.DateRange{From: d("2024-01-01"), To: d("2024-01-31")},
		OrderBy:      "calendarDate",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 XSHG rows, got %d", tbl.Len())
	}
	open, _ := tbl.Int(1, "isOpen")
	if open != 0 {
		t.Errorf("expected 2024-01-06 closed")
	}
	if tbl.Rows[1]["prevTradeDate"] == nil {
		t.Error("expected prevTradeDate to be populated")
	}
}

func TestQuerier_UnknownTable(t *testing.T) {
	q := openTemp(t)
	if _, err := q.Query(context.Background(), "missing", model.FilterSpec{}); err == nil {
		t.Fatal("expected error for unknown table")
	}
}
