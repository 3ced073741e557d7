package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
	"research-corev1/internal/store/sqlite"
)

func weekdays(from, to time.Time) []model.CalendarEntry {
	open := func(d time.Time) bool { return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday }
	last := func(a, b time.Time) time.Time {
		for d := b; !d.Before(a); d = d.AddDate(0, 0, -1) {
			if open(d) {
				return d
			}
		}
		return time.Time{}
	}
	var out []model.CalendarEntry
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		monday := d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
		out = append(out, model.CalendarEntry{
			Date:          d,
			Exchange:      "XSHG",
			IsOpen:        open(d),
			PrevTradeDate: last(d.AddDate(0, 0, -10), d.AddDate(0, 0, -1)),
			WeekEnd:       last(monday, monday.AddDate(0, 0, 6)),
		})
	}
	return out
}

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "research.db")
	q, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer q.Close()
	ctx := context.Background()
	w := sqlite.NewWriter(q.DB())

	from := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	if err := w.EnsureCalendarTable(ctx, "trade_cal"); err != nil {
		t.Fatalf("calendar table: %v", err)
	}
	if err := w.InsertCalendar(ctx, "trade_cal", weekdays(from, to)); err != nil {
		t.Fatalf("calendar rows: %v", err)
	}

	if err := w.EnsureMarketTable(ctx, "mkt_equd", "closePrice"); err != nil {
		t.Fatalf("market table: %v", err)
	}
	var obs []model.Observation
	for i, p := range []string{"10", "12", "14"} {
		obs = append(obs, model.Observation{
			TradeDate: time.Date(2024, 5, 14-i, 0, 0, 0, 0, time.UTC),
			Value:     decimal.NewNullDecimal(decimal.RequireFromString(p)),
		})
	}
	if err := w.InsertObservations(ctx, "mkt_equd", "closePrice", "600000", obs); err != nil {
		t.Fatalf("market rows: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	conditions = nil
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCalendarCommands(t *testing.T) {
	db := seed(t)

	out, err := run(t, "--db", db, "calendar", "prev", "2024-05-13")
	if err != nil || out != "2024-05-10" {
		t.Errorf("prev: %q (%v)", out, err)
	}
	out, err = run(t, "--db", db, "calendar", "is-trading", "2024-05-18")
	if err != nil || out != "false" {
		t.Errorf("is-trading: %q (%v)", out, err)
	}
	out, err = run(t, "--db", db, "calendar", "boundary", "-g", "week", "2024-05-15")
	if err != nil || out != "2024-05-10" {
		t.Errorf("boundary: %q (%v)", out, err)
	}
	if _, err := run(t, "--db", db, "calendar", "prev", "2024-5-13"); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestIndicatorCommands(t *testing.T) {
	db := seed(t)

	out, err := run(t, "--db", db, "--as-of", "2024-05-15", "indicator", "ma", "-i", "closePrice", "-n", "3", "600000")
	if err != nil || out != "600000\t12" {
		t.Errorf("ma: %q (%v)", out, err)
	}

	out, err = run(t, "--db", db, "--as-of", "2024-05-15", "indicator", "ma", "-i", "closePrice", "-n", "3", "600000", "000001")
	if err != nil {
		t.Fatalf("batch ma: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || lines[0] != "600000\t12" || !strings.HasPrefix(lines[1], "000001\terror:") {
		t.Errorf("batch ma output: %q", out)
	}
}

func TestIndicatorLast(t *testing.T) {
	db := seed(t)

	out, err := run(t, "--db", db, "indicator", "last", "-i", "closePrice", "--cond", "closePrice<11", "600000")
	if err != nil || out != "600000\t10" {
		t.Errorf("last: %q (%v)", out, err)
	}
	out, err = run(t, "--db", db, "indicator", "last", "-i", "closePrice", "--cond", "closePrice>11", "--cond", "closePrice<=12", "600000")
	if err != nil || out != "600000\t12" {
		t.Errorf("last with two conditions: %q (%v)", out, err)
	}
	if _, err := run(t, "--db", db, "indicator", "last", "-i", "closePrice", "--cond", "closePrice~1", "600000"); err == nil {
		t.Error("expected an error for an unknown operator")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSeedCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "seeded.db")

	cal := writeFile(t, dir, "trade_cal.csv", `calendarDate,exchangeCD,isOpen,prevTradeDate
2024-05-09,XSHG,1,2024-05-08
2024-05-10,XSHG,1,2024-05-09
2024-05-11,XSHG,0,2024-05-10
2024-05-12,XSHG,0,2024-05-10
2024-05-13,XSHG,1,2024-05-10
2024-05-14,XSHG,1,2024-05-13
2024-05-15,XSHG,1,2024-05-14
`)
	out, err := run(t, "--db", db, "seed", "calendar", cal)
	if err != nil || out != "trade_cal\t7 rows" {
		t.Fatalf("seed calendar: %q (%v)", out, err)
	}

	mkt := writeFile(t, dir, "mkt_equd.csv", `ticker,tradeDate,closePrice,turnoverVol
600000,2024-05-10,14,300
600000,2024-05-13,12,500
600000,2024-05-14,10,0
000001,2024-05-14,8.5,
`)
	out, err = run(t, "--db", db, "seed", "market", "-i", "closePrice", mkt)
	if err != nil || out != "mkt_equd\t4 rows" {
		t.Fatalf("seed market: %q (%v)", out, err)
	}

	out, err = run(t, "--db", db, "calendar", "prev", "2024-05-13")
	if err != nil || out != "2024-05-10" {
		t.Errorf("prev after seed: %q (%v)", out, err)
	}
	out, err = run(t, "--db", db, "--as-of", "2024-05-15", "indicator", "ma", "-i", "closePrice", "-n", "2", "600000")
	if err != nil || out != "600000\t11" {
		t.Errorf("ma after seed: %q (%v)", out, err)
	}
	out, err = run(t, "--db", db, "indicator", "last", "-i", "closePrice", "--cond", "turnoverVol>0", "600000")
	if err != nil || out != "600000\t12" {
		t.Errorf("last after seed: %q (%v)", out, err)
	}

	bad := writeFile(t, dir, "bad.csv", "ticker,closePrice\n600000,1\n")
	if _, err := run(t, "--db", db, "seed", "market", "-i", "closePrice", bad); err == nil {
		t.Error("expected an error for a file without tradeDate")
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(decimal.NullDecimal{}); got != "null" {
		t.Errorf("null: %q", got)
	}
	if got := formatValue(decimal.NewNullDecimal(decimal.RequireFromString("1.50"))); got != "1.5" {
		t.Errorf("value: %q", got)
	}
}
