package sqlite

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// Writer loads source rows into a local SQLite mirror. Each insert call
// commits one transaction.
type Writer struct {
	db *sqlx.DB
}

// NewWriter wraps an open database.
func NewWriter(db *sqlx.DB) *Writer {
	return &Writer{db: db}
}

// EnsureCalendarTable creates the trade calendar table.
func (w *Writer) EnsureCalendarTable(ctx context.Context, table string) error {
	if err := model.CheckIdentifiers(table); err != nil {
		return err
	}
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			calendarDate     TEXT    NOT NULL,
			exchangeCD       TEXT    NOT NULL,
			isOpen           INTEGER NOT NULL,
			prevTradeDate    TEXT,
			weekStartDate    TEXT,
			weekEndDate      TEXT,
			monthStartDate   TEXT,
			monthEndDate     TEXT,
			quarterStartDate TEXT,
			quarterEndDate   TEXT,
			yearStartDate    TEXT,
			yearEndDate      TEXT,
			PRIMARY KEY (exchangeCD, calendarDate)
		)`, quote(table)))
	return err
}

// InsertCalendar writes calendar rows, replacing existing days.
func (w *Writer) InsertCalendar(ctx context.Context, table string, rows []model.CalendarEntry) error {
	if err := model.CheckIdentifiers(table); err != nil {
		return err
	}
	start := time.Now()
	err := w.inTx(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (calendarDate, exchangeCD, isOpen, prevTradeDate,
			weekStartDate, weekEndDate, monthStartDate, monthEndDate,
			quarterStartDate, quarterEndDate, yearStartDate, yearEndDate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, quote(table)), len(rows), func(i int) []any {
		e := rows[i]
		open := 0
		if e.IsOpen {
			open = 1
		}
		return []any{
			model.FormatDate(e.Date), e.Exchange, open, nullDate(e.PrevTradeDate),
			nullDate(e.WeekStart), nullDate(e.WeekEnd), nullDate(e.MonthStart), nullDate(e.MonthEnd),
			nullDate(e.QuarterStart), nullDate(e.QuarterEnd), nullDate(e.YearStart), nullDate(e.YearEnd),
		}
	})
	if err != nil {
		return fmt.Errorf("sqlite insert calendar: %w", err)
	}
	log.Printf("[sqlite-writer] committed %d calendar rows in %v", len(rows), time.Since(start))
	return nil
}

// EnsureReportTable creates a financial statement table. Indicator columns
// are TEXT so decimal values survive exactly.
func (w *Writer) EnsureReportTable(ctx context.Context, table string, indicators ...string) error {
	if err := model.CheckIdentifiers(append([]string{table}, indicators...)...); err != nil {
		return err
	}
	var cols strings.Builder
	for _, ind := range indicators {
		cols.WriteString(",\n\t\t\t" + quote(ind) + " TEXT")
	}
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ID          INTEGER PRIMARY KEY,
			ticker      TEXT NOT NULL,
			endDate     TEXT NOT NULL,
			publishDate TEXT,
			reportType  TEXT NOT NULL DEFAULT 'Q'%s
		)`, quote(table), cols.String()))
	return err
}

// InsertReports writes filings for one ticker. Revision becomes the row ID.
func (w *Writer) InsertReports(ctx context.Context, table, indicator, ticker, reportType string, rows []model.ReportRow) error {
	if err := model.CheckIdentifiers(table, indicator); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (ID, ticker, endDate, publishDate, reportType, %s) VALUES (?, ?, ?, ?, ?, ?)`,
		quote(table), quote(indicator))
	err := w.inTx(ctx, stmt, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.Revision, ticker, model.FormatDate(r.PeriodEnd), nullDate(r.PublishDate), reportType, nullDecimal(r.Value)}
	})
	if err != nil {
		return fmt.Errorf("sqlite insert reports: %w", err)
	}
	return nil
}

// EnsureMarketTable creates a daily market table with REAL columns.
func (w *Writer) EnsureMarketTable(ctx context.Context, table string, columns ...string) error {
	if err := model.CheckIdentifiers(append([]string{table}, columns...)...); err != nil {
		return err
	}
	var cols strings.Builder
	for _, c := range columns {
		cols.WriteString(",\n\t\t\t" + quote(c) + " REAL")
	}
	_, err := w.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ticker    TEXT NOT NULL,
			tradeDate TEXT NOT NULL%s,
			PRIMARY KEY (ticker, tradeDate)
		)`, quote(table), cols.String()))
	return err
}

// InsertObservations writes daily rows for one ticker: the indicator value
// plus any extra columns carried by each observation. All rows commit in
// one transaction.
func (w *Writer) InsertObservations(ctx context.Context, table, indicator, ticker string, obs []model.Observation) error {
	if err := model.CheckIdentifiers(table, indicator); err != nil {
		return err
	}
	for _, o := range obs {
		for col := range o.Columns {
			if err := model.CheckIdentifiers(col); err != nil {
				return err
			}
		}
	}

	start := time.Now()
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite insert observations: %w", err)
	}
	for _, o := range obs {
		day := model.FormatDate(o.TradeDate)
		if _, err := tx.ExecContext(ctx, upsertSQL(table, []string{"ticker", "tradeDate", indicator}),
			ticker, day, nullDecimal(o.Value)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s.%s: %w", table, indicator, err)
		}
		for _, col := range sortedColumns(o.Columns) {
			if col == indicator {
				continue
			}
			if _, err := tx.ExecContext(ctx, upsertSQL(table, []string{"ticker", "tradeDate", col}),
				ticker, day, nullDecimal(o.Columns[col])); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlite insert %s.%s: %w", table, col, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite insert observations: %w", err)
	}
	log.Printf("[sqlite-writer] committed %d %s rows for %s in %v", len(obs), table, ticker, time.Since(start))
	return nil
}

func sortedColumns(m map[string]decimal.NullDecimal) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func upsertSQL(table string, cols []string) string {
	qc := make([]string, len(cols))
	for i, c := range cols {
		qc[i] = quote(c)
	}
	last := qc[len(qc)-1]
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?) ON CONFLICT (ticker, tradeDate) DO UPDATE SET %s = excluded.%s`,
		quote(table), strings.Join(qc, ", "), last, last)
}

// inTx prepares stmt once and executes it n times in one transaction.
func (w *Writer) inTx(ctx context.Context, stmt string, n int, args func(i int) []any) error {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	ps, err := tx.PreparexContext(ctx, stmt)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer ps.Close()

	for i := 0; i < n; i++ {
		if _, err := ps.ExecContext(ctx, args(i)...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return model.FormatDate(t)
}

// nullDecimal binds decimals as text so no binary float rounding happens
// on the way in.
func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
